package nodepool

import (
	"errors"
	"time"
)

// Strategy selects the load balancing policy for node selection
type Strategy string

const (
	// BalanceHealth picks nodes randomly, weighted by health score
	BalanceHealth Strategy = "health"
	// BalanceRoundRobin picks the least recently used eligible node
	BalanceRoundRobin Strategy = "round-robin"
	// BalancePriority always prefers the first eligible node in pool order
	BalancePriority Strategy = "priority"
)

// CircuitBreakerConfig configures the per-node circuit breaker.
// A nil CircuitBreakerConfig on Config disables circuit breaking entirely.
type CircuitBreakerConfig struct {
	// FailureThreshold is the consecutive failure count that opens the circuit
	FailureThreshold int

	// ResetTimeout is how long an open circuit waits before a half-open trial
	ResetTimeout time.Duration
}

// Config controls retry behavior. Zero-valued numeric fields are filled from
// DefaultConfig at construction; booleans and the circuit breaker are taken
// as-is, so callers wanting the documented defaults should start from
// DefaultConfig and override.
type Config struct {
	// InitialDelay is the backoff delay before the first retry
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff delay
	MaxDelay time.Duration

	// BackoffMultiplier is the exponential backoff growth factor
	BackoffMultiplier float64

	// MaxRetries caps attempts per Execute call
	MaxRetries int

	// MaxDuration caps wall-clock time for an Execute call including retries
	MaxDuration time.Duration

	// Timeout caps a single attempt; an attempt exceeding it is recorded as
	// a timeout failure
	Timeout time.Duration

	// MinNodes is the minimum number of non-open nodes required to proceed
	MinNodes int

	// HealthThreshold is the score below which a node is considered degraded
	// for selection weighting
	HealthThreshold float64

	// AdaptiveDelay scales backoff by the class of the last error
	AdaptiveDelay bool

	// LoadBalancing selects the node selection policy
	LoadBalancing Strategy

	// CircuitBreaker enables per-node circuit breaking when non-nil
	CircuitBreaker *CircuitBreakerConfig

	// OnRetry is invoked with the failed attempt's error, the attempt number
	// and the computed delay before each backoff sleep. Observability only.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultConfig returns the documented default configuration
func DefaultConfig() Config {
	return Config{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		MaxRetries:        5,
		MaxDuration:       60 * time.Second,
		Timeout:           15 * time.Second,
		MinNodes:          1,
		HealthThreshold:   0.3,
		AdaptiveDelay:     true,
		LoadBalancing:     BalanceHealth,
		CircuitBreaker: &CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
	}
}

// withDefaults fills zero-valued fields from DefaultConfig
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.InitialDelay == 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = def.BackoffMultiplier
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.MaxDuration == 0 {
		c.MaxDuration = def.MaxDuration
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.HealthThreshold == 0 {
		c.HealthThreshold = def.HealthThreshold
	}
	if c.LoadBalancing == "" {
		c.LoadBalancing = def.LoadBalancing
	}
	return c
}

// Validate checks configuration consistency
func (c Config) Validate() error {
	if c.InitialDelay <= 0 {
		return errors.New("initial delay must be positive")
	}
	if c.MaxDelay < c.InitialDelay {
		return errors.New("max delay must be at least initial delay")
	}
	if c.BackoffMultiplier < 1.0 {
		return errors.New("backoff multiplier must be at least 1.0")
	}
	if c.MaxRetries <= 0 {
		return errors.New("max retries must be positive")
	}
	if c.MinNodes < 0 {
		return errors.New("min nodes must not be negative")
	}
	if c.HealthThreshold < healthFloor || c.HealthThreshold > healthCeil {
		return errors.New("health threshold must be within health score bounds")
	}
	switch c.LoadBalancing {
	case BalanceHealth, BalanceRoundRobin, BalancePriority:
	default:
		return errors.New("unknown load balancing strategy")
	}
	if cb := c.CircuitBreaker; cb != nil {
		if cb.FailureThreshold <= 0 {
			return errors.New("circuit breaker failure threshold must be positive")
		}
		if cb.ResetTimeout <= 0 {
			return errors.New("circuit breaker reset timeout must be positive")
		}
	}
	return nil
}

// failureThreshold returns the circuit breaker threshold, or 0 when circuit
// breaking is disabled
func (c Config) failureThreshold() int {
	if c.CircuitBreaker == nil {
		return 0
	}
	return c.CircuitBreaker.FailureThreshold
}
