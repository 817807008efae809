package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/stark-validator/attestor/pkg/felt"
)

func mainnetFelt(t *testing.T) felt.Felt {
	t.Helper()
	f, err := felt.FromHex(mainnetChainIDHex)
	require.NoError(t, err)
	return f
}

func unknownChainFelt(t *testing.T) felt.Felt {
	t.Helper()
	return felt.FromUint64(0xdeadbeef)
}

func newBoundViper(t *testing.T) *viper.Viper {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	BindFlags(cmd, v)
	return v
}

func TestResolveRequiresOperationalAddress(t *testing.T) {
	v := newBoundViper(t)
	v.Set("node-url", "http://localhost:5050")
	v.Set("local-signer", true)
	os.Setenv("VALIDATOR_ATTESTATION_OPERATIONAL_PRIVATE_KEY", "0x1")
	defer os.Unsetenv("VALIDATOR_ATTESTATION_OPERATIONAL_PRIVATE_KEY")

	_, err := Resolve(v, mainnetFelt(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "staker-operational-address")
}

func TestResolveRejectsBothSignerModes(t *testing.T) {
	v := newBoundViper(t)
	v.Set("staker-operational-address", "0x1")
	v.Set("node-url", "http://localhost:5050")
	v.Set("local-signer", true)
	v.Set("remote-signer-url", "http://localhost:6000")

	_, err := Resolve(v, mainnetFelt(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "mutually exclusive")
}

func TestResolveRejectsNeitherSignerMode(t *testing.T) {
	v := newBoundViper(t)
	v.Set("staker-operational-address", "0x1")
	v.Set("node-url", "http://localhost:5050")

	_, err := Resolve(v, mainnetFelt(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exactly one of")
}

func TestResolveRequiresPrivateKeyForLocalSigner(t *testing.T) {
	v := newBoundViper(t)
	v.Set("staker-operational-address", "0x1")
	v.Set("node-url", "http://localhost:5050")
	v.Set("local-signer", true)

	_, err := Resolve(v, mainnetFelt(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "OPERATIONAL_PRIVATE_KEY")
}

func TestResolveAppliesChainDefaultsForKnownChain(t *testing.T) {
	v := newBoundViper(t)
	v.Set("staker-operational-address", "0x1")
	v.Set("node-url", "http://localhost:5050")
	v.Set("remote-signer-url", "http://localhost:6000")

	cfg, err := Resolve(v, mainnetFelt(t))
	require.NoError(t, err)
	require.Equal(t, ChainDefaults[mainnetChainIDHex].Staking, cfg.StakingContractAddress)
	require.Equal(t, ChainDefaults[mainnetChainIDHex].STRKToken, cfg.STRKTokenAddress)
}

func TestResolveRejectsUnknownChainWithoutExplicitAddresses(t *testing.T) {
	v := newBoundViper(t)
	v.Set("staker-operational-address", "0x1")
	v.Set("node-url", "http://localhost:5050")
	v.Set("remote-signer-url", "http://localhost:6000")

	_, err := Resolve(v, unknownChainFelt(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no known defaults")
}

func TestResolveDerivesWebsocketURLFromHTTPNodeURL(t *testing.T) {
	v := newBoundViper(t)
	v.Set("staker-operational-address", "0x1")
	v.Set("node-url", "https://node.example.com/rpc")
	v.Set("remote-signer-url", "http://localhost:6000")

	cfg, err := Resolve(v, mainnetFelt(t))
	require.NoError(t, err)
	require.Equal(t, "wss://node.example.com/rpc", cfg.NodeWebsocketURL)
}

func TestResolveRejectsUnknownLogFormat(t *testing.T) {
	v := newBoundViper(t)
	v.Set("staker-operational-address", "0x1")
	v.Set("node-url", "http://localhost:5050")
	v.Set("remote-signer-url", "http://localhost:6000")
	v.Set("log-format", "xml")

	_, err := Resolve(v, mainnetFelt(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "log-format")
}

func TestLoadOverlaySeedsDefaultsWithoutOverridingExplicitFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""+
		"node_url: \"${TEST_OVERLAY_NODE_URL:-http://from-file.example.com}\"\n"+
		"metrics_address: \"0.0.0.0:9999\"\n"), 0o644))

	v := newBoundViper(t)
	v.Set("config-file", path)
	v.Set("staker-operational-address", "0x1")
	v.Set("remote-signer-url", "http://localhost:6000")

	require.NoError(t, LoadOverlay(v))

	cfg, err := Resolve(v, mainnetFelt(t))
	require.NoError(t, err)
	require.Equal(t, "http://from-file.example.com", cfg.NodeURL)
	require.Equal(t, "0.0.0.0:9999", cfg.MetricsAddress)
}

func TestSubstituteEnvVarsUsesEnvOverFallback(t *testing.T) {
	os.Setenv("TEST_OVERLAY_NODE_URL", "http://from-env.example.com")
	defer os.Unsetenv("TEST_OVERLAY_NODE_URL")

	got := substituteEnvVars("${TEST_OVERLAY_NODE_URL:-http://fallback.example.com}")
	require.Equal(t, "http://from-env.example.com", got)
}

func TestSubstituteEnvVarsUsesFallbackWhenUnset(t *testing.T) {
	os.Unsetenv("TEST_OVERLAY_UNSET_VAR")
	got := substituteEnvVars("${TEST_OVERLAY_UNSET_VAR:-http://fallback.example.com}")
	require.Equal(t, "http://fallback.example.com", got)
}
