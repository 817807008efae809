// Package config resolves the agent's CLI flags/environment variables into
// a Config value (spec.md §6 "Configuration"). Flags are defined with
// pflag, bound to environment variables through viper, and surfaced on a
// cobra root command — the conventional three-library stack already
// present in the teacher's dependency graph, though the teacher itself
// reads a flat struct from os.Getenv directly (the original
// pkg/config/config.go); this package keeps that flat-struct shape but lets
// cobra/pflag/viper do the parsing and binding.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stark-validator/attestor/pkg/felt"
)

// Config is the fully resolved, validated configuration for one run of the
// agent.
type Config struct {
	StakingContractAddress     felt.Felt
	AttestationContractAddress felt.Felt
	STRKTokenAddress           felt.Felt

	StakerOperationalAddress felt.Felt

	NodeURL          string
	NodeWebsocketURL string

	LocalSigner              bool
	RemoteSignerURL          string
	OperationalPrivateKeyHex string

	MetricsAddress string
	LogFormat      string
}

const envPrefix = "VALIDATOR_ATTESTATION"

// BindFlags registers every flag named in spec.md §6 on cmd's flag set and
// binds each to its environment-variable alias via viper.
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()

	flags.String("config-file", "", "optional YAML file pre-seeding these flags (${VAR} / ${VAR:-default} substitution supported)")
	flags.String("staking-contract-address", "", "F hex address of the staking contract (auto from chain id on mainnet/testnet)")
	flags.String("attestation-contract-address", "", "F hex address of the attestation contract (auto from chain id on mainnet/testnet)")
	flags.String("staker-operational-address", "", "F hex address of the operational account (required)")
	flags.String("node-url", "", "HTTP(S) JSON-RPC endpoint (required)")
	flags.String("node-websocket-url", "", "WebSocket endpoint (defaults to node-url with the scheme swapped)")
	flags.Bool("local-signer", false, "use a local in-process signer (mutually exclusive with --remote-signer-url)")
	flags.String("remote-signer-url", "", "base URL of a remote signer (mutually exclusive with --local-signer)")
	flags.String("metrics-address", "127.0.0.1:9090", "bind address for the /metrics HTTP endpoint")
	flags.String("log-format", "compact", "log output format: compact|json")

	bindAll(v, flags)
}

func bindAll(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		envVar := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		_ = v.BindEnv(f.Name, envVar)
		_ = v.BindPFlag(f.Name, f)
	})
	// The private key has no corresponding flag: it is never accepted as a
	// command-line argument, only as an environment variable (spec.md §6).
	_ = v.BindEnv("operational-private-key", envPrefix+"_OPERATIONAL_PRIVATE_KEY")
}

// LoadOverlay reads the file named by the --config-file flag, if any, and
// seeds v's defaults from it so unset flags/env vars fall back to the file
// before built-in defaults apply.
func LoadOverlay(v *viper.Viper) error {
	path := v.GetString("config-file")
	if path == "" {
		return nil
	}
	overlay, err := LoadFileOverlay(path)
	if err != nil {
		return err
	}
	overlay.ApplyDefaults(v)
	return nil
}

// Resolve validates v's bound values against a previously-fetched chain id,
// applying chain defaults where a contract address flag was left empty.
func Resolve(v *viper.Viper, chainID felt.Felt) (Config, error) {
	var cfg Config

	opAddrHex := v.GetString("staker-operational-address")
	if opAddrHex == "" {
		return Config{}, fmt.Errorf("config: --staker-operational-address is required")
	}
	opAddr, err := felt.FromHex(opAddrHex)
	if err != nil {
		return Config{}, fmt.Errorf("config: --staker-operational-address: %w", err)
	}
	cfg.StakerOperationalAddress = opAddr

	cfg.NodeURL = v.GetString("node-url")
	if cfg.NodeURL == "" {
		return Config{}, fmt.Errorf("config: --node-url is required")
	}
	cfg.NodeWebsocketURL = v.GetString("node-websocket-url")
	if cfg.NodeWebsocketURL == "" {
		cfg.NodeWebsocketURL = deriveWebsocketURL(cfg.NodeURL)
	}

	localSigner := v.GetBool("local-signer")
	remoteSignerURL := v.GetString("remote-signer-url")
	switch {
	case localSigner && remoteSignerURL != "":
		return Config{}, fmt.Errorf("config: --local-signer and --remote-signer-url are mutually exclusive")
	case !localSigner && remoteSignerURL == "":
		return Config{}, fmt.Errorf("config: exactly one of --local-signer or --remote-signer-url is required")
	}
	cfg.LocalSigner = localSigner
	cfg.RemoteSignerURL = remoteSignerURL
	cfg.OperationalPrivateKeyHex = v.GetString("operational-private-key")
	if localSigner && cfg.OperationalPrivateKeyHex == "" {
		return Config{}, fmt.Errorf("config: %s_OPERATIONAL_PRIVATE_KEY is required with --local-signer", envPrefix)
	}

	cfg.MetricsAddress = v.GetString("metrics-address")
	cfg.LogFormat = v.GetString("log-format")
	if cfg.LogFormat != "compact" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("config: --log-format must be compact or json, got %q", cfg.LogFormat)
	}

	defaults, ok := ChainDefaults[chainID.Hex()]

	stakingHex := v.GetString("staking-contract-address")
	switch {
	case stakingHex != "":
		f, err := felt.FromHex(stakingHex)
		if err != nil {
			return Config{}, fmt.Errorf("config: --staking-contract-address: %w", err)
		}
		cfg.StakingContractAddress = f
	case ok:
		cfg.StakingContractAddress = defaults.Staking
	default:
		return Config{}, fmt.Errorf("config: --staking-contract-address required: chain id %s has no known defaults", chainID.Hex())
	}

	attestationHex := v.GetString("attestation-contract-address")
	switch {
	case attestationHex != "":
		f, err := felt.FromHex(attestationHex)
		if err != nil {
			return Config{}, fmt.Errorf("config: --attestation-contract-address: %w", err)
		}
		cfg.AttestationContractAddress = f
	case ok:
		cfg.AttestationContractAddress = defaults.Attestation
	default:
		return Config{}, fmt.Errorf("config: --attestation-contract-address required: chain id %s has no known defaults", chainID.Hex())
	}

	if ok {
		cfg.STRKTokenAddress = defaults.STRKToken
	}

	return cfg, nil
}

func deriveWebsocketURL(nodeURL string) string {
	switch {
	case strings.HasPrefix(nodeURL, "https://"):
		return "wss://" + strings.TrimPrefix(nodeURL, "https://")
	case strings.HasPrefix(nodeURL, "http://"):
		return "ws://" + strings.TrimPrefix(nodeURL, "http://")
	default:
		return nodeURL
	}
}
