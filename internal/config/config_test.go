package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "leadflow.db", cfg.DBPath)
	assert.Equal(t, "specs", cfg.SpecsDir)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialDelay)
	assert.Equal(t, 2.0, cfg.BackoffFactor)
	assert.Equal(t, 30*time.Second, cfg.MaxDelay)
	assert.Equal(t, 30*time.Second, cfg.ActionTimeout)
	assert.True(t, cfg.SimplifiedFallback)
	assert.Equal(t, 100, cfg.MaxSteps)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LEADFLOW_DB", "/tmp/custom.db")
	t.Setenv("LEADFLOW_MAX_RETRIES", "5")
	t.Setenv("LEADFLOW_INITIAL_DELAY", "250ms")
	t.Setenv("LEADFLOW_SIMPLIFIED_FALLBACK", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.InitialDelay)
	assert.False(t, cfg.SimplifiedFallback)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"backoff below one", func(c *Config) { c.BackoffFactor = 0.5 }},
		{"zero action timeout", func(c *Config) { c.ActionTimeout = 0 }},
		{"zero max steps", func(c *Config) { c.MaxSteps = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
