package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const pruneInterval = time.Hour

// IdempotencyStore remembers processed Idempotency-Keys together with the
// response produced, so a replayed request within the TTL returns the
// original response without reprocessing.
type IdempotencyStore interface {
	// Get returns the cached response for the key, or (nil, false).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put records the response for the key for the store's TTL.
	Put(ctx context.Context, key string, response []byte) error

	// Close releases background resources.
	Close() error
}

// ========== In-memory store ==========

type idempotencyEntry struct {
	response  []byte
	expiresAt time.Time
}

// MemoryIdempotencyStore is a process-local TTL map. Like the in-memory
// rate limiter it does not survive restarts or span replicas.
type MemoryIdempotencyStore struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]idempotencyEntry

	stop chan struct{}
	once sync.Once
}

// NewMemoryIdempotencyStore creates the store and starts its pruner.
func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	s := &MemoryIdempotencyStore{
		ttl:     ttl,
		entries: make(map[string]idempotencyEntry),
		stop:    make(chan struct{}),
	}

	go s.prune()

	return s
}

// Get implements IdempotencyStore.
func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}

	return entry.response, true, nil
}

// Put implements IdempotencyStore.
func (s *MemoryIdempotencyStore) Put(_ context.Context, key string, response []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = idempotencyEntry{
		response:  response,
		expiresAt: time.Now().Add(s.ttl),
	}

	return nil
}

// Close stops the pruner.
func (s *MemoryIdempotencyStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryIdempotencyStore) prune() {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, entry := range s.entries {
				if now.After(entry.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// ========== Redis store ==========

// RedisIdempotencyStore keeps keys in a shared redis so duplicate
// suppression holds across restarts and replicas.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdempotencyStore creates a redis-backed store.
func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

// Get implements IdempotencyStore.
func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, "idempotency:"+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency get: %w", err)
	}
	return val, true, nil
}

// Put implements IdempotencyStore.
func (s *RedisIdempotencyStore) Put(ctx context.Context, key string, response []byte) error {
	if err := s.client.SetEx(ctx, "idempotency:"+key, response, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency put: %w", err)
	}
	return nil
}

// Close is a no-op; the shared client is owned by the caller.
func (s *RedisIdempotencyStore) Close() error {
	return nil
}
