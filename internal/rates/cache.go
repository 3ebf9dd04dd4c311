package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iwvelando/finance-calculators/pkg/convert"
	"github.com/redis/go-redis/v9"
)

// Snapshot is one fetched rate table.
type Snapshot struct {
	Rates     map[string]convert.Rate `json:"rates"`
	Source    string                  `json:"source"`
	FetchedAt time.Time               `json:"fetchedAt"`
}

// Cache stores snapshots under a key until their TTL elapses.
type Cache interface {
	Get(ctx context.Context, key string) (Snapshot, bool, error)
	Set(ctx context.Context, key string, snapshot Snapshot, ttl time.Duration) error
}

type memoryEntry struct {
	snapshot  Snapshot
	expiresAt time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty MemoryCache. A nil clock uses time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return Snapshot{}, false, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		return Snapshot{}, false, nil
	}
	return entry.snapshot, true, nil
}

// Set implements Cache. A non-positive ttl keeps the entry forever.
func (m *MemoryCache) Set(_ context.Context, key string, snapshot Snapshot, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{snapshot: snapshot}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

// RedisCache keeps snapshots as JSON strings in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects lazily to the Redis server at addr.
func NewRedisCache(addr string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &RedisCache{client: rdb}
}

// Ping checks that the server is reachable.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) (Snapshot, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return Snapshot{}, false, fmt.Errorf("redis get %s: failed to decode snapshot: %w", key, err)
	}
	return snapshot, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, snapshot Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("redis set %s: failed to encode snapshot: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
