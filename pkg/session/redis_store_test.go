package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(context.Background(), mr.Addr(), 0, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	s := newSession("conv-1", time.Now().UTC())
	s.TurnCount = 2
	s.ScamDetected = true
	s.MaxConfidence = 0.82
	s.append(SenderScammer, "you won a lottery", time.Now().UTC())
	s.Intelligence["upi_id"] = []string{"fraud@paytm"}

	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.TurnCount != 2 || !got.ScamDetected || got.MaxConfidence != 0.82 {
		t.Errorf("state lost in round trip: %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Sender != SenderScammer {
		t.Errorf("messages lost: %+v", got.Messages)
	}
	if got.Intelligence["upi_id"][0] != "fraud@paytm" {
		t.Errorf("intel lost: %+v", got.Intelligence)
	}
}

func TestRedisStore_LoadMissing(t *testing.T) {
	store, _ := newTestRedisStore(t)

	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	store.Save(ctx, newSession("conv-1", time.Now()))

	mr.FastForward(2 * time.Hour)
	if _, err := store.Load(ctx, "conv-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("session survived TTL: %v", err)
	}
}

func TestRedisStore_DeleteAndCount(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	store.Save(ctx, newSession("a", time.Now()))
	store.Save(ctx, newSession("b", time.Now()))

	if n, err := store.Count(ctx); err != nil || n != 2 {
		t.Errorf("count = %d (%v), want 2", n, err)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("count after delete = %d, want 1", n)
	}
}

func TestRedisStore_ActiveCount(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	store.Save(ctx, newSession("active", time.Now()))
	ended := newSession("ended", time.Now())
	ended.Active = false
	store.Save(ctx, ended)

	if n, err := store.Count(ctx); err != nil || n != 2 {
		t.Errorf("count = %d (%v), want 2", n, err)
	}
	if n, err := store.ActiveCount(ctx); err != nil || n != 1 {
		t.Errorf("active count = %d (%v), want 1", n, err)
	}
}

func TestRedisStore_RegistryIntegration(t *testing.T) {
	store, _ := newTestRedisStore(t)

	r := NewRegistry(store, &fakeScorer{}, fakeResponder{}, defaultTestPolicy(), nil)
	result, err := r.ProcessMessage(context.Background(), "conv-1", "pay winner@paytm now")
	if err != nil {
		t.Fatalf("ProcessMessage over redis failed: %v", err)
	}
	if len(result.Intelligence.UPIIDs) != 1 {
		t.Errorf("intel = %+v", result.Intelligence)
	}

	// A second registry over the same store sees the conversation.
	r2 := NewRegistry(store, &fakeScorer{}, fakeResponder{}, defaultTestPolicy(), nil)
	s, err := r2.Get(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Get via second registry failed: %v", err)
	}
	if len(s.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(s.Messages))
	}
}
