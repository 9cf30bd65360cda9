package httputil

import (
	"context"
	"sync/atomic"
)

// Semaphore bounds concurrent operations. The gateway uses one to cap
// in-flight upstream model calls so a burst of conversations cannot pile
// hundreds of requests onto the LLM provider at once.
type Semaphore struct {
	sem     chan struct{}
	dropped atomic.Int64
}

// NewSemaphore creates a semaphore with the given capacity.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 100
	}
	return &Semaphore{
		sem: make(chan struct{}, capacity),
	}
}

// TryAcquire attempts to acquire a slot without blocking.
// Returns false if at capacity; the drop is counted for monitoring.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.sem <- struct{}{}:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Acquire blocks until a slot is available or the context is cancelled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot to the semaphore.
// Must be called after a successful TryAcquire or Acquire.
func (s *Semaphore) Release() {
	select {
	case <-s.sem:
	default:
		// release without acquire; ignore
	}
}

// DroppedCount returns the number of operations rejected at capacity.
func (s *Semaphore) DroppedCount() int64 {
	return s.dropped.Load()
}

// InUse returns the number of slots currently held.
func (s *Semaphore) InUse() int {
	return len(s.sem)
}

// Stats returns current semaphore metrics.
func (s *Semaphore) Stats() SemaphoreStats {
	return SemaphoreStats{
		Capacity: cap(s.sem),
		InUse:    len(s.sem),
		Dropped:  s.dropped.Load(),
	}
}

// SemaphoreStats provides semaphore metrics for the health endpoint.
type SemaphoreStats struct {
	Capacity int   `json:"capacity"`
	InUse    int   `json:"in_use"`
	Dropped  int64 `json:"dropped"`
}
