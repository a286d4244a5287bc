package services

import (
	"context"
	"testing"
	"time"
)

// Requirement: identities are strictly increasing and only the most
// recently started operation is current, regardless of the order in
// which the operations settle.
func TestCoordinator_IsCurrent(t *testing.T) {
	coordinator := NewCoordinator(time.Second)
	ctx := context.Background()

	first, _, cancel1 := coordinator.Begin(ctx)
	defer cancel1()
	second, _, cancel2 := coordinator.Begin(ctx)
	defer cancel2()
	third, _, cancel3 := coordinator.Begin(ctx)
	defer cancel3()

	if first >= second || second >= third {
		t.Fatalf("identities not strictly increasing: %d, %d, %d", first, second, third)
	}

	// Settle out of order: only the newest may apply.
	for _, settled := range []uint64{third, first, second} {
		want := settled == third
		if got := coordinator.IsCurrent(settled); got != want {
			t.Errorf("IsCurrent(%d) = %v, want %v", settled, got, want)
		}
	}
}

// Requirement: every operation context is armed with the configured
// deadline.
func TestCoordinator_ArmsDeadline(t *testing.T) {
	coordinator := NewCoordinator(time.Minute)

	_, opCtx, cancel := coordinator.Begin(context.Background())
	defer cancel()

	deadline, ok := opCtx.Deadline()
	if !ok {
		t.Fatal("operation context has no deadline")
	}
	if remaining := time.Until(deadline); remaining <= 0 || remaining > time.Minute {
		t.Errorf("deadline %v from now, want within (0, 1m]", remaining)
	}
}

// Requirement: a non-positive timeout falls back to the default.
func TestCoordinator_DefaultTimeout(t *testing.T) {
	if got := NewCoordinator(0).Timeout(); got != DefaultAnalysisTimeout {
		t.Errorf("Timeout() = %v, want %v", got, DefaultAnalysisTimeout)
	}
	if got := NewCoordinator(-time.Second).Timeout(); got != DefaultAnalysisTimeout {
		t.Errorf("Timeout() = %v, want %v", got, DefaultAnalysisTimeout)
	}
	if got := NewCoordinator(5 * time.Second).Timeout(); got != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", got)
	}
}
