package transform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores transformed code by key
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, code string) error
}

// MemoryCache is a bounded in-process cache evicting the oldest entry first
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]string // Protected by mu
	order   []string          // Protected by mu
	max     int
}

// NewMemoryCache creates a cache holding at most max entries
func NewMemoryCache(max int) *MemoryCache {
	if max <= 0 {
		max = 256
	}
	return &MemoryCache{
		entries: make(map[string]string, max),
		max:     max,
	}
}

// Get returns a cached entry
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.entries[key]
	return code, ok, nil
}

// Set stores an entry, evicting the oldest when full
func (c *MemoryCache) Set(_ context.Context, key, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = code
		return nil
	}
	for len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = code
	c.order = append(c.order, key)
	return nil
}

// Len returns the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RedisCache shares transformed code between processes
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a redis-backed cache. A zero ttl keeps entries forever.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "sandbox:transform:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns a cached entry
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	code, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return code, true, nil
}

// Set stores an entry
func (c *RedisCache) Set(ctx context.Context, key, code string) error {
	if err := c.client.Set(ctx, c.prefix+key, code, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
