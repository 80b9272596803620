package nodepool

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// eligibleNodes promotes open circuits whose reset timeout has elapsed and
// returns the non-open nodes in pool order. Caller must hold the manager lock.
func (m *Manager) eligibleNodes(now time.Time) []*Node {
	eligible := make([]*Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		if cb := m.cfg.CircuitBreaker; cb != nil && n.maybeHalfOpen(cb.ResetTimeout, now) {
			m.logger.Info("circuit half-open", zap.String("node", n.url))
		}
		if n.circuitState != CircuitOpen {
			eligible = append(eligible, n)
		}
	}
	return eligible
}

// pickNode selects a node per the configured strategy and stamps its
// lastUsed time. Returns an insufficientNodesError carrying the eligible
// count when fewer than MinNodes non-open nodes remain.
func (m *Manager) pickNode() (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	eligible := m.eligibleNodes(now)
	if len(eligible) < m.cfg.MinNodes {
		return nil, &insufficientNodesError{eligible: len(eligible), required: m.cfg.MinNodes}
	}
	if len(eligible) == 0 {
		// MinNodes is 0 and every circuit is open; fall back to the full
		// pool so the caller can still make progress
		eligible = m.nodes
	}

	var chosen *Node
	switch m.cfg.LoadBalancing {
	case BalanceRoundRobin:
		chosen = pickRoundRobin(eligible)
	case BalancePriority:
		chosen = eligible[0]
	default:
		chosen = pickHealthWeighted(eligible, m.cfg.HealthThreshold)
	}
	chosen.lastUsed = now
	return chosen, nil
}

// pickRoundRobin returns the eligible node with the oldest lastUsed stamp,
// ties broken by pool order. Never-used nodes sort first.
func pickRoundRobin(eligible []*Node) *Node {
	best := eligible[0]
	for _, n := range eligible[1:] {
		if n.lastUsed.Before(best.lastUsed) {
			best = n
		}
	}
	return best
}

// pickHealthWeighted draws a node at random with probability proportional to
// its selection weight via a cumulative weight scan.
func pickHealthWeighted(eligible []*Node, healthThreshold float64) *Node {
	total := 0.0
	cumulative := make([]float64, len(eligible))
	for i, n := range eligible {
		total += selectionWeight(n, healthThreshold)
		cumulative[i] = total
	}

	r := rand.Float64() * total
	for i, c := range cumulative {
		if r < c {
			return eligible[i]
		}
	}
	return eligible[len(eligible)-1]
}

// selectionWeight is the node's health score, scaled down hard for degraded
// nodes below the threshold. Always positive so no node is ever excluded.
func selectionWeight(n *Node, healthThreshold float64) float64 {
	w := n.health
	if w < healthThreshold {
		w *= degradedWeightScale
	}
	return w
}

// insufficientNodesError is the internal selection failure, wrapped into a
// RetryError with the operation name by Execute
type insufficientNodesError struct {
	eligible int
	required int
}

func (e *insufficientNodesError) Error() string {
	return "insufficient eligible nodes"
}
