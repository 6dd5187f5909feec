// Package governor provides counting-semaphore admission control for the
// heavyweight pipeline stages. Two process-wide instances are constructed at
// startup (extraction and OCR) and passed by reference into the services that
// need them; there are no package-level globals.
package governor

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Governor bounds how many operations of one kind run concurrently.
// Acquire suspends the caller until a permit is free; waiters are served in
// FIFO order, so a released permit goes to the oldest waiter.
type Governor struct {
	name     string
	capacity int64
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// New creates a governor with the given capacity. Capacity must be positive.
func New(name string, capacity int) *Governor {
	if capacity < 1 {
		capacity = 1
	}
	return &Governor{
		name:     name,
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
}

// Acquire blocks until a permit is available or ctx is done. It returns
// ctx.Err() on cancellation without consuming a permit.
func (g *Governor) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inFlight.Add(1)
	return nil
}

// TryAcquire takes a permit without blocking. Returns false when none free.
func (g *Governor) TryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.inFlight.Add(1)
	return true
}

// Release returns a permit, handing it to the oldest waiter if any.
func (g *Governor) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// Name returns the governor's name for logging.
func (g *Governor) Name() string { return g.name }

// Capacity returns the permit count the governor was built with.
func (g *Governor) Capacity() int { return int(g.capacity) }

// InFlight returns the number of permits currently held.
func (g *Governor) InFlight() int64 { return g.inFlight.Load() }
