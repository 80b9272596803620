package nodepool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jzx17/nodepool/pkg/types"
)

// Operation is the caller-supplied function executed against a selected node
type Operation[T any] func(ctx context.Context, node *Node) (T, error)

// Stats contains cumulative manager counters
type Stats struct {
	TotalAttempts  int64 // total attempt count across all operations
	TotalRetries   int64 // attempts beyond the first of their operation
	TotalSuccesses int64 // operations that resolved successfully
	TotalFailures  int64 // operations that failed terminally
}

// Manager owns a static pool of nodes and executes operations against them
// with automatic retry, health tracking, circuit breaking and load balancing.
// Safe for concurrent use; the pool is the only shared mutable state and is
// guarded by a single lock.
type Manager struct {
	mu     sync.Mutex
	nodes  []*Node
	stats  Stats
	cfg    Config
	clock  types.Clock
	logger *zap.Logger
}

// Option is a configuration option for the manager
type Option func(*Manager)

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithLogger sets the logger; the default is a no-op logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager builds a manager over the given node URLs. Pool order is
// significant: the priority strategy prefers earlier nodes. Zero-valued
// numeric config fields are filled from DefaultConfig.
func NewManager(urls []string, cfg Config, opts ...Option) (*Manager, error) {
	if len(urls) == 0 {
		return nil, types.ErrNoNodes
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}

	m := &Manager{
		cfg:    cfg,
		clock:  types.NewRealClock(),
		logger: zap.NewNop(),
	}
	m.nodes = make([]*Node, len(urls))
	for i, u := range urls {
		m.nodes[i] = newNode(u)
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Execute runs op against selected nodes until it succeeds, a non-retryable
// failure occurs, or an exhaustion condition is reached. Attempts are strictly
// sequential. The terminal error is always a *types.RetryError carrying one of
// the four codes, except context cancellation which propagates as-is.
func Execute[T any](m *Manager, ctx context.Context, operationName string, op Operation[T]) (T, error) {
	var zero T
	cfg := m.cfg
	log := m.logger.With(
		zap.String("operation", operationName),
		zap.String("call_id", shortCallID()),
	)
	start := m.clock.Now()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		// duration budget is checked before starting a new attempt; an
		// in-flight attempt is bounded by its own per-attempt timeout
		if cfg.MaxDuration > 0 && m.clock.Since(start) >= cfg.MaxDuration {
			m.countFailure()
			return zero, types.NewTimeoutError(operationName, attempt-1, lastErr)
		}

		node, pickErr := m.pickNode()
		if pickErr != nil {
			m.countFailure()
			if ie, ok := pickErr.(*insufficientNodesError); ok {
				return zero, types.NewInsufficientNodesError(operationName, ie.eligible, ie.required)
			}
			return zero, pickErr
		}

		m.countAttempt(attempt)

		result, err := runAttempt(m, ctx, node, op)
		if err == nil {
			m.recordSuccess(node, log)
			m.countSuccess()
			return result, nil
		}
		lastErr = err
		m.recordFailure(node, log)

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		rule := classify(err)
		if !rule.retryable {
			m.countFailure()
			log.Debug("permanent failure, not retrying",
				zap.Int("attempt", attempt), zap.Error(err))
			return zero, types.NewNonRetryableError(operationName, attempt, err)
		}
		if attempt == cfg.MaxRetries {
			break
		}

		delay := m.delayFor(attempt, rule)
		if cfg.OnRetry != nil {
			cfg.OnRetry(err, attempt, delay)
		}
		log.Debug("retrying after failure",
			zap.Int("attempt", attempt),
			zap.String("node", node.url),
			zap.String("error_class", rule.class.String()),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-m.clock.After(delay):
		}
	}

	m.countFailure()
	return zero, types.NewMaxAttemptsError(operationName, cfg.MaxRetries, lastErr)
}

// ExecuteAsync runs Execute in a goroutine and delivers the outcome on the
// returned channel
func ExecuteAsync[T any](m *Manager, ctx context.Context, operationName string, op Operation[T]) <-chan types.Result[T] {
	resultChan := make(chan types.Result[T], 1)

	go func() {
		defer close(resultChan)

		start := m.clock.Now()
		value, err := Execute(m, ctx, operationName, op)
		resultChan <- types.Result[T]{
			Value:    value,
			Error:    err,
			Duration: m.clock.Since(start),
		}
	}()

	return resultChan
}

// runAttempt races a single attempt against the per-attempt timeout. The
// attempt also receives a deadline context as a best-effort abort; a late
// result from a timed-out attempt is ignored and the goroutine never leaks
// thanks to the buffered channel.
func runAttempt[T any](m *Manager, ctx context.Context, node *Node, op Operation[T]) (T, error) {
	var zero T
	timeout := m.cfg.Timeout
	if timeout <= 0 {
		return op(ctx, node)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(attemptCtx, node)
		done <- outcome{value: v, err: err}
	}()

	timer := m.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		// an op honoring the attempt deadline reports it as
		// context.DeadlineExceeded; normalize to the timeout failure
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("attempt to %s timed out after %v", node.url, timeout)
		}
		return out.value, out.err
	case <-timer.C():
		return zero, fmt.Errorf("attempt to %s timed out after %v", node.url, timeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// delayFor computes the backoff delay before the next attempt: exponential
// growth capped at MaxDelay, then scaled by the error class factor when
// adaptive delay is enabled
func (m *Manager) delayFor(attempt int, rule classRule) time.Duration {
	cfg := m.cfg
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1)))
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.AdaptiveDelay {
		delay = time.Duration(float64(delay) * rule.delayFactor)
	}
	return delay
}

// NodesHealth returns a snapshot of every node's health record. The returned
// slice holds copies; callers cannot mutate manager state through it.
func (m *Manager) NodesHealth() []NodeHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]NodeHealth, len(m.nodes))
	for i, n := range m.nodes {
		out[i] = n.snapshot()
	}
	return out
}

// Stats returns a copy of the cumulative counters
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Manager) recordSuccess(node *Node, log *zap.Logger) {
	m.mu.Lock()
	closed := node.recordSuccess()
	m.mu.Unlock()

	if closed {
		log.Info("circuit closed after successful trial", zap.String("node", node.url))
	}
}

func (m *Manager) recordFailure(node *Node, log *zap.Logger) {
	m.mu.Lock()
	tripped := node.recordFailure(m.cfg.failureThreshold(), m.clock.Now())
	failures := node.consecutiveFailures
	m.mu.Unlock()

	if tripped {
		log.Warn("circuit opened",
			zap.String("node", node.url),
			zap.Int("consecutive_failures", failures))
	}
}

func (m *Manager) countAttempt(attempt int) {
	m.mu.Lock()
	m.stats.TotalAttempts++
	if attempt > 1 {
		m.stats.TotalRetries++
	}
	m.mu.Unlock()
}

func (m *Manager) countSuccess() {
	m.mu.Lock()
	m.stats.TotalSuccesses++
	m.mu.Unlock()
}

func (m *Manager) countFailure() {
	m.mu.Lock()
	m.stats.TotalFailures++
	m.mu.Unlock()
}

// shortCallID returns a compact correlation id for log lines of one Execute
// call
func shortCallID() string {
	return uuid.NewString()[:8]
}
