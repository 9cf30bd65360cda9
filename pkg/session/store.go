package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned by lookups for unknown conversation ids.
var ErrNotFound = errors.New("conversation not found")

// Store persists conversation state. The in-memory implementation is the
// default; Redis backs multi-process deployments.
type Store interface {
	// Load returns the session or ErrNotFound.
	Load(ctx context.Context, id string) (*ConversationSession, error)
	// Save creates or replaces the session.
	Save(ctx context.Context, s *ConversationSession) error
	// Delete removes the session. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
	// Count returns the number of stored sessions, ended ones included.
	Count(ctx context.Context) (int, error)
	// ActiveCount returns the number of sessions still engaging.
	ActiveCount(ctx context.Context) (int, error)
	// Close releases store resources.
	Close() error
}

// MemoryStore is a thread-safe in-memory store with TTL-based cleanup.
// Suitable for single-node deployments.
type MemoryStore struct {
	sessions map[string]*ConversationSession
	mu       sync.RWMutex

	maxAge          time.Duration
	cleanupInterval time.Duration

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// MemoryStoreOption is a functional option for configuring MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMaxAge sets how long an idle session survives before cleanup.
// Non-positive values keep the default; a zero max age would make every
// load read as absent.
func WithMaxAge(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithCleanupInterval sets how often the cleanup routine runs.
// Non-positive values keep the default.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// NewMemoryStore creates an in-memory session store and starts its
// background cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions:        make(map[string]*ConversationSession),
		maxAge:          24 * time.Hour,
		cleanupInterval: 10 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

// Load retrieves a session by id. The returned session is a deep copy:
// callers mutate it freely and persist changes via Save, matching the
// value semantics of the Redis-backed store.
func (s *MemoryStore) Load(_ context.Context, id string) (*ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Stale sessions read as absent; the loop reclaims them.
	if time.Since(session.LastActivityAt) > s.maxAge {
		return nil, ErrNotFound
	}

	return session.Clone(), nil
}

// Save creates or replaces a session.
func (s *MemoryStore) Save(_ context.Context, session *ConversationSession) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy so later caller mutations never reach the map.
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Count returns the number of stored sessions.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

// ActiveCount counts sessions that are still engaging. Ended sessions
// linger in the store for their TTL but no longer count.
func (s *MemoryStore) ActiveCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, session := range s.sessions {
		if session.Active && time.Since(session.LastActivityAt) <= s.maxAge {
			n++
		}
	}
	return n, nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, session := range s.sessions {
		if now.Sub(session.LastActivityAt) > s.maxAge {
			delete(s.sessions, id)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
