package ratelimit

import (
	"context"
	"sync"
	"time"
)

// windowCount tracks the hits one key received within a one-second window.
type windowCount struct {
	second int64
	hits   int
}

// MemoryLimiter is a fixed one-second-window limiter backed by a local map.
// It serves as the fallback backend when Redis is disabled or unreachable,
// so login and review keys from many clients can land here; counters from
// past windows are swept to keep the map bounded.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]windowCount
	sweptAt int64
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]windowCount)}
}

// Allow checks whether the request fits the key's budget for the current
// second. A zero or negative limit disables the check.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	sec := now.Unix()
	reset := time.Unix(sec+1, 0).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(sec)
	w := l.windows[key]
	if w.second != sec {
		w = windowCount{second: sec}
	}
	if w.hits >= limit {
		l.windows[key] = w
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	w.hits++
	l.windows[key] = w
	return Result{Allowed: true, Remaining: limit - w.hits, Reset: reset}, nil
}

// sweep drops counters left over from earlier windows. Runs at most once
// per second.
func (l *MemoryLimiter) sweep(sec int64) {
	if sec == l.sweptAt {
		return
	}
	for key, w := range l.windows {
		if w.second != sec {
			delete(l.windows, key)
		}
	}
	l.sweptAt = sec
}
