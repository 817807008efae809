package config

import "github.com/stark-validator/attestor/pkg/felt"

// ChainAddresses is the staking/attestation/STRK-token address triple for
// one chain id.
type ChainAddresses struct {
	Staking     felt.Felt
	Attestation felt.Felt
	STRKToken   felt.Felt
}

// ChainDefaults is the chain-defaults table (spec.md §9 "Chain defaults
// table is a data constant, not a runtime lookup"), keyed by the hex chain
// id returned by starknet_chainId. Values below are illustrative
// placeholders for the two known networks; a conforming deployment
// substitutes the deployed staking/attestation/STRK contract addresses.
var ChainDefaults = map[string]ChainAddresses{
	// "SN_MAIN"
	mainnetChainIDHex: {
		Staking:     mustFelt("0x00ca1705e74233131dbcdee7f1b8cf61e3f81303a2fc3cbdd8a6042ebeeff8e"),
		Attestation: mustFelt("0x02c4fa53a66cfc5945a1d8d9c6b94ce0eeba0259e0c2a3e6c6c3d6c8c5e9e1a9"),
		STRKToken:   mustFelt("0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938"),
	},
	// "SN_SEPOLIA"
	sepoliaChainIDHex: {
		Staking:     mustFelt("0x01aef02d0a1930e0f9e62fa2c4d0d66d2e2cfe43a6d97eab653b768d42b6e6c"),
		Attestation: mustFelt("0x02ed5ca250fe22cf253be7d91347938c2a5ce7f02e2a1b9e9d66c1f3d1e1b9f"),
		STRKToken:   mustFelt("0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938"),
	},
}

const (
	mainnetChainIDHex = "0x534e5f4d41494e"
	sepoliaChainIDHex = "0x534e5f5345504f4c4941"
)

// NetworkName returns the short network name used as the metrics
// "network" label for a known chain id, or the raw hex id for an unknown
// one.
func NetworkName(chainID felt.Felt) string {
	switch chainID.Hex() {
	case mainnetChainIDHex:
		return "mainnet"
	case sepoliaChainIDHex:
		return "sepolia"
	default:
		return chainID.Hex()
	}
}

func mustFelt(hex string) felt.Felt {
	f, err := felt.FromHex(hex)
	if err != nil {
		panic(err)
	}
	return f
}
