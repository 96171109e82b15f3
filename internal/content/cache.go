package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores extracted bodies keyed by canonical article URL.
type Cache interface {
	Get(ctx context.Context, pageURL string) (string, bool, error)
	Set(ctx context.Context, pageURL, body string) error
}

// NopCache never stores anything.
type NopCache struct{}

// Get always misses.
func (NopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }

// Set does nothing.
func (NopCache) Set(context.Context, string, string) error { return nil }

const (
	cacheKeyPrefix = "techcrawler:content:"
	// DefaultCacheTTL is used when no TTL is configured.
	DefaultCacheTTL = 24 * time.Hour
)

// RedisCache is a Cache backed by Redis string keys with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached body for pageURL.
func (c *RedisCache) Get(ctx context.Context, pageURL string) (string, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(pageURL)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set stores body for pageURL.
func (c *RedisCache) Set(ctx context.Context, pageURL, body string) error {
	if err := c.client.Set(ctx, cacheKey(pageURL), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func cacheKey(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
