// Package config holds the UTXO manager's runtime configuration:
// defaults, environment-variable loading, and validation.
package config

import (
	"fmt"
)

// Network selects which chain REST API a Config talks to.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// baseURLs maps a Network to its REST API base URL.
var baseURLs = map[Network]string{
	Mainnet: "https://api.kaspa.org",
	Testnet: "https://api-tn10.kaspa.org",
}

// BaseURL returns the REST API base URL for the network, or an empty
// string if the network is not recognized.
func (n Network) BaseURL() string {
	return baseURLs[n]
}

// Valid reports whether n is one of the known networks.
func (n Network) Valid() bool {
	_, ok := baseURLs[n]
	return ok
}

// UTXOManagerConfig holds every tunable named in the UTXO manager's
// environment-variable surface. Every field maps one-to-one onto an
// env var of the same concern (see loadFromEnv).
type UTXOManagerConfig struct {
	// MinUTXOAgeBlocks is the age threshold (in DAA blocks) below which
	// a UTXO is considered "fresh" and unsafe to re-spend without risking
	// the storage-mass penalty.
	MinUTXOAgeBlocks int64 `env:"MIN_UTXO_AGE_BLOCKS"`

	// MaxInputsPerTx is the hard ceiling on inputs a single selection
	// may use, honored by both the strategies and the mass estimator.
	MaxInputsPerTx int `env:"MAX_INPUTS_PER_TX"`

	// ConsolidationThreshold is the count of small mature UTXOs above
	// which the Consolidator recommends a self-send.
	ConsolidationThreshold int `env:"CONSOLIDATION_THRESHOLD"`

	// MassLimitBuffer scales MaxMassBytes down to an effective ceiling,
	// in (0, 1].
	MassLimitBuffer float64 `env:"MASS_LIMIT_BUFFER"`

	// MaxMassBytes is the chain's hard per-transaction mass ceiling.
	MaxMassBytes uint32 `env:"MAX_MASS_BYTES"`

	// CacheExpiryMS is the TTL, in milliseconds, applied to cache
	// entries in C1.
	CacheExpiryMS int64 `env:"CACHE_EXPIRY_MS"`

	// Net selects the REST API this manager's fetcher talks to.
	Net Network `env:"KASPA_NETWORK"`
}

// DefaultConfig returns the configuration defaults named in the spec.
func DefaultConfig() *UTXOManagerConfig {
	return &UTXOManagerConfig{
		MinUTXOAgeBlocks:       10,
		MaxInputsPerTx:         5,
		ConsolidationThreshold: 10,
		MassLimitBuffer:        0.9,
		MaxMassBytes:           100_000,
		CacheExpiryMS:          10_000,
		Net:                    Mainnet,
	}
}

// Validate checks a config for the fatal-at-construction invariants
// named in the spec. It never mutates config.
func Validate(cfg *UTXOManagerConfig) error {
	switch {
	case cfg.MinUTXOAgeBlocks < 0:
		return &InvalidConfigError{Field: "MinUTXOAgeBlocks", Reason: "must be >= 0"}
	case cfg.MaxInputsPerTx < 1:
		return &InvalidConfigError{Field: "MaxInputsPerTx", Reason: "must be >= 1"}
	case cfg.ConsolidationThreshold < 2:
		return &InvalidConfigError{Field: "ConsolidationThreshold", Reason: "must be >= 2"}
	case cfg.MassLimitBuffer <= 0 || cfg.MassLimitBuffer > 1:
		return &InvalidConfigError{Field: "MassLimitBuffer", Reason: "must be in (0, 1]"}
	case cfg.MaxMassBytes == 0:
		return &InvalidConfigError{Field: "MaxMassBytes", Reason: "must be > 0"}
	case cfg.CacheExpiryMS < 0:
		return &InvalidConfigError{Field: "CacheExpiryMS", Reason: "must be >= 0"}
	case !cfg.Net.Valid():
		return &InvalidConfigError{Field: "Net", Reason: fmt.Sprintf("unknown network %q", cfg.Net)}
	}
	return nil
}

// InvalidConfigError reports a single failed validation rule.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config field %s: %s", e.Field, e.Reason)
}

// FromEnv builds a config by overlaying environment variables onto
// DefaultConfig, then validates the result.
func FromEnv() (*UTXOManagerConfig, error) {
	cfg := DefaultConfig()
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
