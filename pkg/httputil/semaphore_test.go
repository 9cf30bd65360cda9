package httputil

import (
	"context"
	"testing"
	"time"
)

func TestSemaphore_TryAcquire(t *testing.T) {
	s := NewSemaphore(2)

	if !s.TryAcquire() || !s.TryAcquire() {
		t.Fatal("TryAcquire failed with free slots")
	}
	if s.TryAcquire() {
		t.Error("TryAcquire succeeded at capacity")
	}
	if s.DroppedCount() != 1 {
		t.Errorf("dropped = %d, want 1", s.DroppedCount())
	}

	s.Release()
	if !s.TryAcquire() {
		t.Error("TryAcquire failed after release")
	}
}

func TestSemaphore_AcquireBlocksUntilRelease(t *testing.T) {
	s := NewSemaphore(1)
	s.TryAcquire()

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- s.Acquire(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	s.Release()

	if err := <-done; err != nil {
		t.Errorf("Acquire after release failed: %v", err)
	}
}

func TestSemaphore_AcquireHonorsContext(t *testing.T) {
	s := NewSemaphore(1)
	s.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Error("Acquire at capacity ignored context deadline")
	}
}

func TestSemaphore_DefaultCapacity(t *testing.T) {
	s := NewSemaphore(0)
	if !s.TryAcquire() {
		t.Error("zero-capacity request did not fall back to default")
	}
	if s.InUse() != 1 {
		t.Errorf("InUse = %d, want 1", s.InUse())
	}

	stats := s.Stats()
	if stats.Capacity != 100 || stats.InUse != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
