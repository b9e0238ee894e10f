// Package config loads engine configuration from environment variables.
// CLI flags override whatever the environment provides.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime configuration for the leadflow CLI and engine.
type Config struct {
	// DBPath is the SQLite database file. Empty selects the in-memory
	// store (non-durable fallback).
	DBPath string `env:"LEADFLOW_DB" envDefault:"leadflow.db"`

	// SpecsDir is the directory of CUE sequence definitions.
	SpecsDir string `env:"LEADFLOW_SPECS" envDefault:"specs"`

	// DefaultSequence overrides the registry default sequence id.
	DefaultSequence string `env:"LEADFLOW_DEFAULT_SEQUENCE"`

	// Retry tuning for the action retry loop.
	MaxRetries    int           `env:"LEADFLOW_MAX_RETRIES" envDefault:"3"`
	InitialDelay  time.Duration `env:"LEADFLOW_INITIAL_DELAY" envDefault:"1s"`
	BackoffFactor float64       `env:"LEADFLOW_BACKOFF_FACTOR" envDefault:"2"`
	MaxDelay      time.Duration `env:"LEADFLOW_MAX_DELAY" envDefault:"30s"`

	// ActionTimeout bounds each capability call.
	ActionTimeout time.Duration `env:"LEADFLOW_ACTION_TIMEOUT" envDefault:"30s"`

	// SimplifiedFallback toggles the simplified-action fallback tier.
	// When false, failed actions escalate directly.
	SimplifiedFallback bool `env:"LEADFLOW_SIMPLIFIED_FALLBACK" envDefault:"true"`

	// MaxSteps bounds a single `leadflow run` invocation.
	MaxSteps int `env:"LEADFLOW_MAX_STEPS" envDefault:"100"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.BackoffFactor < 1 {
		return fmt.Errorf("backoff factor must be >= 1, got %g", c.BackoffFactor)
	}
	if c.InitialDelay < 0 || c.MaxDelay < 0 || c.ActionTimeout <= 0 {
		return fmt.Errorf("delays must be non-negative and action timeout positive")
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be > 0, got %d", c.MaxSteps)
	}
	return nil
}
