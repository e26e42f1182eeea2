/*
Package config loads server configuration from the environment.

Flags in cmd/server may override individual fields; the environment is the
source of defaults so containerized deployments need no flags at all.
*/
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/questforge/chronicle/ledger"
)

// Config holds every tunable of the history server.
type Config struct {
	// Port is the HTTP listen port.
	Port int `env:"CHRONICLE_PORT" envDefault:"8080"`

	// DatabasePath is the SQLite file; ":memory:" for ephemeral runs.
	DatabasePath string `env:"CHRONICLE_DB" envDefault:"chronicle.db"`

	// MaxBlockBytes is the serialized byte ceiling per history block.
	MaxBlockBytes int `env:"CHRONICLE_MAX_BLOCK_BYTES" envDefault:"358400"`

	// LogLevel is a zerolog level name (trace..panic).
	LogLevel string `env:"CHRONICLE_LOG_LEVEL" envDefault:"info"`

	// PrettyLog switches from JSON to console output.
	PrettyLog bool `env:"CHRONICLE_LOG_PRETTY" envDefault:"false"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxBlockBytes <= 0 {
		cfg.MaxBlockBytes = ledger.DefaultMaxBlockBytes
	}
	return cfg, nil
}
