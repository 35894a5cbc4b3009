package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryItem struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is an in-process Cache used when Redis is not configured.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	nowFn func() time.Time
}

// NewMemoryCache constructs a MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		nowFn: time.Now,
	}
}

// Get returns the cached payload for the key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.nowFn().After(item.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return item.payload, true
}

// Set stores a payload under the key for the TTL.
func (c *MemoryCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.items[key] = memoryItem{payload: payload, expiresAt: c.nowFn().Add(ttl)}
	c.mu.Unlock()
}

// DeletePrefix drops every key sharing the prefix.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
}
