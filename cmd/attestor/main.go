// Command attestor runs the validator attestation agent: it watches one
// Starknet-like chain for its own staker's attestation window each epoch
// and submits the attestation transaction on time.
package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stark-validator/attestor/pkg/config"
	"github.com/stark-validator/attestor/pkg/metrics"
	"github.com/stark-validator/attestor/pkg/rpcclient"
	"github.com/stark-validator/attestor/pkg/signer"
	"github.com/stark-validator/attestor/pkg/statemachine"
	"github.com/stark-validator/attestor/pkg/supervisor"
)

func main() {
	v := viper.New()
	root := &cobra.Command{
		Use:           "attestor",
		Short:         "Validator attestation agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}
	config.BindFlags(root, v)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "attestor:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, v *viper.Viper) error {
	if err := config.LoadOverlay(v); err != nil {
		return fmt.Errorf("attestor: %w", err)
	}

	// The staking/attestation/STRK-token contract defaults depend on the
	// chain id, which we only learn by asking the node, so resolution is a
	// two-phase affair: probe chain id first, then validate the rest.
	bootstrapURL := v.GetString("node-url")
	if bootstrapURL == "" {
		return fmt.Errorf("attestor: --node-url is required")
	}
	bootstrapClient := rpcclient.NewHTTPClient(bootstrapURL, rpcclient.ContractAddresses{}, zap.NewNop())
	chainID, err := bootstrapClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("attestor: fetch chain id: %w", err)
	}

	cfg, err := config.Resolve(v, chainID)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("attestor: %w", err)
	}
	defer logger.Sync()

	logger.Info("attestor: starting",
		zap.String("chain_id", chainID.Hex()),
		zap.String("staker_operational_address", cfg.StakerOperationalAddress.Hex()),
		zap.String("node_url", cfg.NodeURL))

	client := rpcclient.NewHTTPClient(cfg.NodeURL, rpcclient.ContractAddresses{
		Staking:     cfg.StakingContractAddress,
		Attestation: cfg.AttestationContractAddress,
		STRKToken:   cfg.STRKTokenAddress,
	}, logger)

	txSigner, err := buildSigner(cfg)
	if err != nil {
		return fmt.Errorf("attestor: %w", err)
	}

	m := metrics.New(config.NetworkName(chainID))
	machine := statemachine.New(client, m, logger)

	sv := supervisor.New(
		client,
		txSigner,
		machine,
		m,
		logger,
		cfg.NodeWebsocketURL,
		cfg.AttestationContractAddress,
		rpcclient.EventSelector(),
		cfg.StakerOperationalAddress,
	)

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddress,
		Handler: m.Handler(),
	}
	go func() {
		logger.Info("attestor: metrics endpoint listening", zap.String("address", cfg.MetricsAddress))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("attestor: metrics server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	return sv.Run(ctx)
}

func buildSigner(cfg config.Config) (rpcclient.Signer, error) {
	if cfg.LocalSigner {
		key, ok := new(big.Int).SetString(trimHexPrefix(cfg.OperationalPrivateKeyHex), 16)
		if !ok {
			return nil, fmt.Errorf("operational private key is not valid hex: %q", cfg.OperationalPrivateKeyHex)
		}
		return signer.NewLocalSigner(key), nil
	}
	return signer.NewRemoteSigner(cfg.RemoteSignerURL), nil
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func newLogger(format string) (*zap.Logger, error) {
	switch format {
	case "json":
		return zap.NewProduction()
	default:
		cfg := zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
		return cfg.Build()
	}
}
