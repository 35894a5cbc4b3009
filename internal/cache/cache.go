// Package cache provides the shared read-through cache keyed by query
// signature. Screens that used to refetch collections independently share one
// keyed store, and mutations invalidate the affected prefixes.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized query results under string keys.
type Cache interface {
	// Get returns the cached payload for the key.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a payload under the key for the TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
	// DeletePrefix drops every key sharing the prefix.
	DeletePrefix(ctx context.Context, prefix string)
}

// Fetch returns the cached payload for the key, loading and storing it on a
// miss. Load errors are returned without touching the cache.
func Fetch(ctx context.Context, c Cache, key string, ttl time.Duration, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if c != nil {
		if payload, ok := c.Get(ctx, key); ok {
			return payload, nil
		}
	}
	payload, errLoad := load(ctx)
	if errLoad != nil {
		return nil, errLoad
	}
	if c != nil {
		c.Set(ctx, key, payload, ttl)
	}
	return payload, nil
}
