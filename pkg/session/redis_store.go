package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "hivetrap:session:"

// RedisStore persists sessions as JSON in Redis so multiple gateway
// processes can share conversation state. The key TTL doubles as idle
// session cleanup; no background goroutine needed.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

// Load retrieves a session by id.
func (s *RedisStore) Load(ctx context.Context, id string) (*ConversationSession, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var session ConversationSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return &session, nil
}

// Save creates or replaces a session and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, session *ConversationSession) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Count scans for session keys. SCAN keeps it non-blocking on large
// keyspaces; the count feeds the health endpoint only.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	var count int
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return count, nil
}

// ActiveCount scans session keys and counts the ones still engaging.
// Ended sessions stay readable until their TTL expires but no longer
// count. Health-endpoint use only; not built for hot paths.
func (s *RedisStore) ActiveCount(ctx context.Context) (int, error) {
	var count int
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and get
		}
		if err != nil {
			return 0, fmt.Errorf("redis get: %w", err)
		}
		var session ConversationSession
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		if session.Active {
			count++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return count, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
