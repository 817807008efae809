package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// FileOverlay is an optional YAML file whose values are registered as viper
// defaults, so an operator can check in a per-network file instead of
// repeating flags on every invocation. Flags and env vars still take
// precedence (spec.md §6 config precedence is flags > env > file > built-in
// defaults).
//
// Grounded on the teacher's anchor config loader: ${VAR} / ${VAR:-default}
// substitution applied to the raw file bytes before YAML unmarshalling.
type FileOverlay struct {
	StakingContractAddress     string `yaml:"staking_contract_address"`
	AttestationContractAddress string `yaml:"attestation_contract_address"`
	StakerOperationalAddress   string `yaml:"staker_operational_address"`
	NodeURL                    string `yaml:"node_url"`
	NodeWebsocketURL           string `yaml:"node_websocket_url"`
	LocalSigner                *bool  `yaml:"local_signer"`
	RemoteSignerURL            string `yaml:"remote_signer_url"`
	MetricsAddress             string `yaml:"metrics_address"`
	LogFormat                  string `yaml:"log_format"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// substituteEnvVars expands ${VAR} and ${VAR:-default} references against
// the process environment.
func substituteEnvVars(raw string) string {
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, fallback := groups[1], groups[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return fallback
	})
}

// LoadFileOverlay reads path, substitutes environment references, and
// parses the result as a FileOverlay.
func LoadFileOverlay(path string) (*FileOverlay, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read overlay file: %w", err)
	}

	expanded := substituteEnvVars(string(raw))

	var overlay FileOverlay
	if err := yaml.Unmarshal([]byte(expanded), &overlay); err != nil {
		return nil, fmt.Errorf("config: parse overlay file: %w", err)
	}
	return &overlay, nil
}

// ApplyDefaults seeds v with any overlay field v doesn't already have bound
// from a flag or environment variable, using SetDefault so flag/env binding
// still wins.
func (o *FileOverlay) ApplyDefaults(v viperSetter) {
	if o == nil {
		return
	}
	setIfNonEmpty(v, "staking-contract-address", o.StakingContractAddress)
	setIfNonEmpty(v, "attestation-contract-address", o.AttestationContractAddress)
	setIfNonEmpty(v, "staker-operational-address", o.StakerOperationalAddress)
	setIfNonEmpty(v, "node-url", o.NodeURL)
	setIfNonEmpty(v, "node-websocket-url", o.NodeWebsocketURL)
	setIfNonEmpty(v, "remote-signer-url", o.RemoteSignerURL)
	setIfNonEmpty(v, "metrics-address", o.MetricsAddress)
	setIfNonEmpty(v, "log-format", o.LogFormat)
	if o.LocalSigner != nil {
		v.SetDefault("local-signer", *o.LocalSigner)
	}
}

func setIfNonEmpty(v viperSetter, key, value string) {
	if value != "" {
		v.SetDefault(key, value)
	}
}

// viperSetter is the single viper method this file depends on, named so the
// file-overlay logic can be unit-tested against a stub.
type viperSetter interface {
	SetDefault(key string, value any)
}
