// Package nodepool provides node pool management with health tracking
package nodepool

import "time"

// CircuitState represents the per-node circuit breaker state
type CircuitState int

const (
	// CircuitClosed is normal operation, the node is selectable
	CircuitClosed CircuitState = iota
	// CircuitOpen excludes the node from selection after repeated failures
	CircuitOpen
	// CircuitHalfOpen allows one trial request after the reset timeout
	CircuitHalfOpen
)

// String returns a human-readable state name
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Health score bounds and steps. Recovery and decay are linear; nothing in
// the selection contract depends on the exact curve, only on the bounds and
// on healthier nodes being preferred.
const (
	healthFloor        = 0.1
	healthCeil         = 1.0
	healthRecoveryStep = 0.15
	healthDecayStep    = 0.2

	// degradedWeightScale shrinks the selection weight of nodes below the
	// health threshold without ever excluding them
	degradedWeightScale = 0.1
)

// Node is a single remote endpoint in the pool. All fields are owned by the
// Manager and mutated only under its lock; the pool is static after
// construction.
type Node struct {
	url                 string
	health              float64
	consecutiveFailures int
	lastUsed            time.Time
	circuitState        CircuitState
	circuitOpenedAt     time.Time
}

func newNode(url string) *Node {
	return &Node{
		url:          url,
		health:       healthCeil,
		circuitState: CircuitClosed,
	}
}

// URL returns the node's endpoint identifier
func (n *Node) URL() string {
	return n.url
}

// recordSuccess resets the failure counter, recovers health toward the
// ceiling and closes a half-open circuit. Returns true when the circuit
// transitioned back to closed. Caller must hold the manager lock.
func (n *Node) recordSuccess() bool {
	n.consecutiveFailures = 0
	n.health += healthRecoveryStep
	if n.health > healthCeil {
		n.health = healthCeil
	}
	if n.circuitState == CircuitHalfOpen {
		n.circuitState = CircuitClosed
		n.circuitOpenedAt = time.Time{}
		return true
	}
	return false
}

// recordFailure increments the failure counter, decays health toward the
// floor and trips the circuit once failures reach the threshold. A failed
// half-open trial re-opens immediately. Returns true when the circuit
// transitioned to open. Caller must hold the manager lock.
func (n *Node) recordFailure(failureThreshold int, now time.Time) bool {
	n.consecutiveFailures++
	n.health -= healthDecayStep
	if n.health < healthFloor {
		n.health = healthFloor
	}
	if failureThreshold > 0 && n.consecutiveFailures >= failureThreshold && n.circuitState != CircuitOpen {
		n.circuitState = CircuitOpen
		n.circuitOpenedAt = now
		return true
	}
	return false
}

// maybeHalfOpen promotes an open circuit to half-open once the reset timeout
// has elapsed. Returns true on transition. Caller must hold the manager lock.
func (n *Node) maybeHalfOpen(resetTimeout time.Duration, now time.Time) bool {
	if n.circuitState != CircuitOpen {
		return false
	}
	if now.Sub(n.circuitOpenedAt) >= resetTimeout {
		n.circuitState = CircuitHalfOpen
		return true
	}
	return false
}

// NodeHealth is a point-in-time copy of a node's health record
type NodeHealth struct {
	// URL is the node's endpoint identifier
	URL string

	// Health is the current score in [0.1, 1.0]
	Health float64

	// ConsecutiveFailures is the current failure streak
	ConsecutiveFailures int

	// CircuitState is the current circuit breaker state
	CircuitState CircuitState
}

// snapshot copies the externally visible health fields
func (n *Node) snapshot() NodeHealth {
	return NodeHealth{
		URL:                 n.url,
		Health:              n.health,
		ConsecutiveFailures: n.consecutiveFailures,
		CircuitState:        n.circuitState,
	}
}
