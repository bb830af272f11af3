package cache

import (
	"context"
	"errors"
	"time"

	rediscommon "github.com/voyago/reeltrip/common/redis"
)

// RedisCache is a Redis-backed Cache implementation, used when cached
// extraction results should survive restarts and be shared between
// instances.
type RedisCache struct {
	client *rediscommon.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache with a key prefix
func NewRedisCache(client *rediscommon.Client, prefix string) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.GetBytes(ctx, c.key(key))
	if err != nil {
		if errors.Is(err, rediscommon.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Set stores a value in cache with TTL
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.SetBytes(ctx, c.key(key), value, ttl)
}

// Delete removes a value from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Delete(ctx, c.key(key))
}

// Close is a no-op; the shared Redis client is closed by its owner
func (c *RedisCache) Close() error {
	return nil
}
