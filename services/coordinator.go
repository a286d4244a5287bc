package services

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultAnalysisTimeout bounds one analysis upload end to end.
const DefaultAnalysisTimeout = 60 * time.Second

// Coordinator assigns a strictly increasing identity to each in-flight
// operation of one class (e.g. "analysis") and arms each with the
// class deadline. Only the response matching the current counter value
// may produce an observable effect; anything older is discarded by the
// caller via IsCurrent.
//
// The counter is atomic because, unlike a single-threaded host, Go
// completion handlers can run on different goroutines.
type Coordinator struct {
	seq     atomic.Uint64
	timeout time.Duration
}

func NewCoordinator(timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultAnalysisTimeout
	}
	return &Coordinator{timeout: timeout}
}

// Begin starts a new operation: it supersedes everything in flight,
// returns the new identity, and derives a context armed with the class
// deadline. The cancel func must be called when the operation settles.
func (c *Coordinator) Begin(ctx context.Context) (uint64, context.Context, context.CancelFunc) {
	id := c.seq.Add(1)
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	return id, opCtx, cancel
}

// IsCurrent reports whether id still identifies the most recently
// started operation.
func (c *Coordinator) IsCurrent(id uint64) bool {
	return id == c.seq.Load()
}

// Timeout returns the configured per-operation deadline.
func (c *Coordinator) Timeout() time.Duration {
	return c.timeout
}
