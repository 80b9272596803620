package nodepool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultsAreValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfig_WithDefaultsFillsZeroFields(t *testing.T) {
	cfg := Config{MaxRetries: 3}.withDefaults()
	def := DefaultConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, def.InitialDelay, cfg.InitialDelay)
	assert.Equal(t, def.MaxDelay, cfg.MaxDelay)
	assert.Equal(t, def.BackoffMultiplier, cfg.BackoffMultiplier)
	assert.Equal(t, def.Timeout, cfg.Timeout)
	assert.Equal(t, def.HealthThreshold, cfg.HealthThreshold)
	assert.Equal(t, def.LoadBalancing, cfg.LoadBalancing)

	// booleans and the breaker are taken as-is, not defaulted
	assert.False(t, cfg.AdaptiveDelay)
	assert.Nil(t, cfg.CircuitBreaker)
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	base := DefaultConfig()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative initial delay", func(c *Config) { c.InitialDelay = -time.Second }},
		{"max delay below initial", func(c *Config) { c.MaxDelay = c.InitialDelay / 2 }},
		{"multiplier below one", func(c *Config) { c.BackoffMultiplier = 0.5 }},
		{"negative min nodes", func(c *Config) { c.MinNodes = -1 }},
		{"health threshold above ceiling", func(c *Config) { c.HealthThreshold = 1.5 }},
		{"unknown strategy", func(c *Config) { c.LoadBalancing = "random" }},
		{"zero breaker threshold", func(c *Config) {
			c.CircuitBreaker = &CircuitBreakerConfig{FailureThreshold: 0, ResetTimeout: time.Second}
		}},
		{"zero breaker reset timeout", func(c *Config) {
			c.CircuitBreaker = &CircuitBreakerConfig{FailureThreshold: 3}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_NilCircuitBreakerDisablesThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CircuitBreaker = nil

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, cfg.failureThreshold())
}
