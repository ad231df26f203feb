package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a small JSON read-through cache on Redis. A nil *Cache is valid and
// turns every operation into a no-op, so callers never need to branch on
// whether Redis is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at addr. An empty addr returns a nil cache.
func New(addr string) *Cache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &Cache{client: client, ttl: 5 * time.Minute}
}

// NewWithClient wraps an existing Redis client, mainly for tests.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get unmarshals the cached value for key into dest and reports whether the
// key was present.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		log.Printf("cache decode %s: %v", key, err)
		return false
	}
	return true
}

// Set stores value under key for the cache TTL. Failures are logged and
// swallowed; the cache is never load-bearing.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("cache set %s: %v", key, err)
	}
}

// Delete removes the given keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache delete: %v", err)
	}
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
