package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by Get when the key does not exist.
// Callers must distinguish absence from connectivity failures.
var ErrKeyNotFound = errors.New("redis: key not found")

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Client wraps redis.Client with common operations and instrumentation
type Client struct {
	redis  *redis.Client
	logger Logger
}

// NewClient creates a new Redis client wrapper
func NewClient(redisClient *redis.Client, logger Logger) *Client {
	return &Client{
		redis:  redisClient,
		logger: logger,
	}
}

// Underlying returns the wrapped redis.Client for advanced operations
// (the rate limiter runs Lua scripts directly against it)
func (c *Client) Underlying() *redis.Client {
	return c.redis
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get retrieves a value by key. Returns ErrKeyNotFound when absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		c.logger.Debug("redis GET key not found", "key", key)
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		c.logger.Error("redis GET failed", "key", key, "error", err)
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	c.logger.Debug("redis GET", "key", key)
	return val, nil
}

// Set sets a key with optional expiration (0 = no expiration)
func (c *Client) Set(ctx context.Context, key, value string, expiry time.Duration) error {
	err := c.redis.Set(ctx, key, value, expiry).Err()
	if err != nil {
		c.logger.Error("redis SET failed", "key", key, "error", err)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	c.logger.Debug("redis SET", "key", key, "expiry", expiry)
	return nil
}

// SetNX sets a key only if it doesn't exist. The fetch marker relies on
// this to elect a single scraping holder across processes.
func (c *Client) SetNX(ctx context.Context, key, value string, expiry time.Duration) (bool, error) {
	wasSet, err := c.redis.SetNX(ctx, key, value, expiry).Result()
	if err != nil {
		c.logger.Error("redis SETNX failed", "key", key, "error", err)
		return false, fmt.Errorf("failed to setnx key %s: %w", key, err)
	}
	c.logger.Debug("redis SETNX", "key", key, "was_set", wasSet)
	return wasSet, nil
}

// releaseScript deletes a key only when its value still matches,
// so a slow holder cannot delete a successor's marker.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseIfHolder deletes key only if its current value equals token.
// Returns true when the key was deleted by this call.
func (c *Client) ReleaseIfHolder(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, c.redis, []string{key}, token).Int64()
	if err != nil {
		c.logger.Error("redis release failed", "key", key, "error", err)
		return false, fmt.Errorf("failed to release key %s: %w", key, err)
	}
	c.logger.Debug("redis release", "key", key, "released", n == 1)
	return n == 1, nil
}

// Delete removes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	err := c.redis.Del(ctx, keys...).Err()
	if err != nil {
		c.logger.Error("redis DEL failed", "keys", keys, "error", err)
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	c.logger.Debug("redis DEL", "keys", keys)
	return nil
}

// Exists reports whether a key exists
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.redis.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Error("redis EXISTS failed", "key", key, "error", err)
		return false, fmt.Errorf("failed to check key %s: %w", key, err)
	}
	return n > 0, nil
}

// Increment increments a counter and returns the new value
func (c *Client) Increment(ctx context.Context, key string) (int64, error) {
	val, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Error("redis INCR failed", "key", key, "error", err)
		return 0, fmt.Errorf("failed to increment key %s: %w", key, err)
	}
	c.logger.Debug("redis INCR", "key", key, "value", val)
	return val, nil
}

// GetBytes retrieves a binary value by key. Returns ErrKeyNotFound when absent.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	val, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		c.logger.Error("redis GET failed", "key", key, "error", err)
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// SetBytes sets a binary value with expiration
func (c *Client) SetBytes(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	err := c.redis.Set(ctx, key, value, expiry).Err()
	if err != nil {
		c.logger.Error("redis SET failed", "key", key, "error", err)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.redis.Close()
}
