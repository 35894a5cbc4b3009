package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisCache is a Redis-backed Cache shared across server instances.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache constructs a RedisCache. A nil client yields a nil cache,
// which callers treat as disabled.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if client == nil {
		return nil
	}
	return &RedisCache{client: client, prefix: strings.TrimSpace(prefix)}
}

// Get returns the cached payload for the key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, errGet := c.client.Get(ctx, c.buildKey(key)).Bytes()
	if errGet != nil {
		if errGet != redis.Nil {
			log.WithError(errGet).Debug("cache: redis get failed")
		}
		return nil, false
	}
	return payload, true
}

// Set stores a payload under the key for the TTL.
func (c *RedisCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if c == nil || c.client == nil || ttl <= 0 {
		return
	}
	if errSet := c.client.Set(ctx, c.buildKey(key), payload, ttl).Err(); errSet != nil {
		log.WithError(errSet).Debug("cache: redis set failed")
	}
}

// DeletePrefix drops every key sharing the prefix.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) {
	if c == nil || c.client == nil {
		return
	}
	pattern := c.buildKey(prefix) + "*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if errDel := c.client.Del(ctx, iter.Val()).Err(); errDel != nil {
			log.WithError(errDel).Debug("cache: redis delete failed")
		}
	}
	if errIter := iter.Err(); errIter != nil {
		log.WithError(errIter).Debug("cache: redis scan failed")
	}
}

func (c *RedisCache) buildKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}
