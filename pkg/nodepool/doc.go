// Package nodepool provides resilient execution of operations against a pool
// of remote nodes, with per-node health tracking, circuit breaking, adaptive
// backoff and configurable load balancing.
//
// Key Features:
//
// 1. Node pool management:
//   - Static pool built from endpoint URLs at construction
//   - Per-node health score in [0.1, 1.0], decaying on failure and
//     recovering on success
//   - Per-node circuit breaker (closed / open / half-open) with automatic
//     half-open probation after a reset timeout
//
// 2. Load balancing strategies:
//   - BalanceHealth: weighted random selection proportional to health
//   - BalanceRoundRobin: least recently used eligible node
//   - BalancePriority: pool order encodes operator-assigned priority
//
// 3. Classified retries:
//   - Ordered rule table mapping error text to a class, a retry decision
//     and an adaptive delay factor
//   - Unknown errors are conservatively non-retryable
//
// 4. Exhaustion handling:
//   - Distinct terminal codes for attempts exhausted, duration budget
//     exhausted, insufficient eligible nodes and non-retryable failures
//   - All terminal errors are *types.RetryError values
//
// Basic usage example:
//
//	m, err := nodepool.NewManager(
//		[]string{"https://node-a.example", "https://node-b.example"},
//		nodepool.DefaultConfig(),
//	)
//	if err != nil {
//		return err
//	}
//
//	blob, err := nodepool.Execute(m, ctx, "fetch-blob",
//		func(ctx context.Context, node *nodepool.Node) ([]byte, error) {
//			return fetchFrom(ctx, node.URL())
//		})
//
// Observability:
//
//	cfg := nodepool.DefaultConfig()
//	cfg.OnRetry = func(err error, attempt int, delay time.Duration) {
//		metrics.RecordRetry(attempt, delay)
//	}
//	m, err := nodepool.NewManager(urls, cfg,
//		nodepool.WithLogger(logger))
//
// Thread safety:
//
// A single Manager may serve many concurrent Execute calls; the node pool is
// guarded by one lock and NodesHealth returns copies only.
package nodepool
