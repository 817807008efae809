package rpcclient

import (
	"context"

	"github.com/stark-validator/attestor/pkg/attestinfo"
	"github.com/stark-validator/attestor/pkg/felt"
)

// Signer produces a two-element signature for a transaction hash, given the
// transaction template it signs over and the chain id (spec.md §4.4). The
// interface lives here, not in pkg/signer, so this package can depend on it
// without pkg/signer needing to import rpcclient's own Client interface.
type Signer interface {
	Sign(ctx context.Context, txHash felt.Felt, tmpl TxTemplate, chainID felt.Felt) ([2]felt.Felt, error)
}

// Client is the C1 RPC client contract: typed request/response against the
// chain over JSON-RPC. Every operation may fail with a transport/encoding
// error (wrapped as Other) or, for Attest, a chain-side rejection (wrapped
// as AttestationFailed).
type Client interface {
	// GetAttestationInfo reads the staking contract (pending tag) and the
	// attestation contract's attestation_window for operationalAddress.
	GetAttestationInfo(ctx context.Context, operationalAddress felt.Felt) (attestinfo.Info, error)

	// IsAttestationDoneInCurrentEpoch reads the pending-tag staking contract
	// state for stakerAddress.
	IsAttestationDoneInCurrentEpoch(ctx context.Context, stakerAddress felt.Felt) (bool, error)

	// AttestationStatus polls the status of a previously submitted tx.
	AttestationStatus(ctx context.Context, txHash felt.Felt) (TxStatus, error)

	// GetBlockHash returns the hash of an already-final block; it errors if
	// the RPC server returns a pending block for blockNumber.
	GetBlockHash(ctx context.Context, blockNumber uint64) (felt.Felt, error)

	// GetSTRKBalance returns the native-token balance for address.
	GetSTRKBalance(ctx context.Context, address felt.Felt) (*Balance, error)

	// Attest builds, signs via signer, and submits a v3 invoke transaction
	// calling attest(blockHash) on the attestation contract, with the fee
	// estimate multiplied 3x on both gas amount and gas price.
	Attest(ctx context.Context, operationalAddress felt.Felt, signer Signer, blockHash felt.Felt) (felt.Felt, error)

	// ChainID returns the chain id, used once at startup to select default
	// contract addresses.
	ChainID(ctx context.Context) (felt.Felt, error)
}
