package nodepool

import (
	"testing"
	"time"

	"github.com/jzx17/nodepool/internal/testutils"
)

func TestNode_HealthBounds(t *testing.T) {
	n := newNode("https://node.example")

	if n.health != healthCeil {
		t.Fatalf("Expected initial health %v, got %v", healthCeil, n.health)
	}

	// health never drops below the floor however many failures pile up
	for i := 0; i < 20; i++ {
		n.recordFailure(0, time.Now())
		if n.health < healthFloor || n.health > healthCeil {
			t.Fatalf("Health %v escaped bounds after %d failures", n.health, i+1)
		}
	}
	if n.health != healthFloor {
		t.Errorf("Expected health at floor %v, got %v", healthFloor, n.health)
	}

	// and never exceeds the ceiling on recovery
	for i := 0; i < 20; i++ {
		n.recordSuccess()
		if n.health < healthFloor || n.health > healthCeil {
			t.Fatalf("Health %v escaped bounds after %d successes", n.health, i+1)
		}
	}
	if n.health != healthCeil {
		t.Errorf("Expected health back at ceiling %v, got %v", healthCeil, n.health)
	}
}

func TestNode_FailureCounterResetOnSuccess(t *testing.T) {
	n := newNode("https://node.example")

	n.recordFailure(0, time.Now())
	n.recordFailure(0, time.Now())
	if n.consecutiveFailures != 2 {
		t.Fatalf("Expected 2 consecutive failures, got %d", n.consecutiveFailures)
	}

	n.recordSuccess()
	if n.consecutiveFailures != 0 {
		t.Errorf("Expected failure counter reset, got %d", n.consecutiveFailures)
	}
}

func TestNode_CircuitTripsAtThreshold(t *testing.T) {
	n := newNode("https://node.example")
	now := time.Now()

	if tripped := n.recordFailure(3, now); tripped {
		t.Error("Circuit tripped below threshold")
	}
	n.recordFailure(3, now)
	if n.circuitState != CircuitClosed {
		t.Fatalf("Expected closed circuit at 2 failures, got %v", n.circuitState)
	}

	if tripped := n.recordFailure(3, now); !tripped {
		t.Error("Expected circuit to trip at threshold")
	}
	if n.circuitState != CircuitOpen {
		t.Errorf("Expected open circuit, got %v", n.circuitState)
	}
	if !n.circuitOpenedAt.Equal(now) {
		t.Errorf("Expected circuitOpenedAt %v, got %v", now, n.circuitOpenedAt)
	}
}

func TestNode_CircuitDisabledWithZeroThreshold(t *testing.T) {
	n := newNode("https://node.example")

	for i := 0; i < 50; i++ {
		n.recordFailure(0, time.Now())
	}
	if n.circuitState != CircuitClosed {
		t.Errorf("Expected circuit to stay closed with breaker disabled, got %v", n.circuitState)
	}
}

func TestNode_HalfOpenAfterResetTimeout(t *testing.T) {
	mClock := testutils.NewMockClock(t)
	resetTimeout := 30 * time.Second

	n := newNode("https://node.example")
	n.recordFailure(1, mClock.Now())
	if n.circuitState != CircuitOpen {
		t.Fatalf("Expected open circuit, got %v", n.circuitState)
	}

	// not yet eligible before the reset window elapses
	mClock.Advance(resetTimeout - time.Second)
	if n.maybeHalfOpen(resetTimeout, mClock.Now()) {
		t.Error("Circuit went half-open before reset timeout")
	}

	mClock.Advance(2 * time.Second)
	if !n.maybeHalfOpen(resetTimeout, mClock.Now()) {
		t.Error("Expected half-open transition after reset timeout")
	}
	if n.circuitState != CircuitHalfOpen {
		t.Errorf("Expected half-open state, got %v", n.circuitState)
	}

	// a successful trial closes the circuit
	if closed := n.recordSuccess(); !closed {
		t.Error("Expected success in half-open to close the circuit")
	}
	if n.circuitState != CircuitClosed {
		t.Errorf("Expected closed state, got %v", n.circuitState)
	}
}

func TestNode_HalfOpenTrialFailureReopens(t *testing.T) {
	mClock := testutils.NewMockClock(t)
	resetTimeout := 10 * time.Second

	n := newNode("https://node.example")
	n.recordFailure(2, mClock.Now())
	n.recordFailure(2, mClock.Now())
	if n.circuitState != CircuitOpen {
		t.Fatalf("Expected open circuit, got %v", n.circuitState)
	}

	mClock.Advance(resetTimeout)
	if !n.maybeHalfOpen(resetTimeout, mClock.Now()) {
		t.Fatal("Expected half-open transition")
	}

	reopenedAt := mClock.Now()
	if tripped := n.recordFailure(2, reopenedAt); !tripped {
		t.Error("Expected failed half-open trial to reopen the circuit")
	}
	if n.circuitState != CircuitOpen {
		t.Errorf("Expected open state, got %v", n.circuitState)
	}
	if !n.circuitOpenedAt.Equal(reopenedAt) {
		t.Error("Expected circuitOpenedAt refreshed on reopen")
	}
}

func TestCircuitState_String(t *testing.T) {
	cases := map[CircuitState]string{
		CircuitClosed:    "closed",
		CircuitOpen:      "open",
		CircuitHalfOpen:  "half-open",
		CircuitState(42): "unknown",
	}
	for state, expected := range cases {
		if got := state.String(); got != expected {
			t.Errorf("CircuitState(%d).String() = %q, expected %q", state, got, expected)
		}
	}
}
