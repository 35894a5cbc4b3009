package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestManagerBlocksAfterLoginLimit(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(func() SettingsConfig {
		return SettingsConfig{LoginLimit: 2}
	}, func() time.Time {
		return now
	}, nil)

	for i := 0; i < 2; i++ {
		res, errAllow := m.AllowLogin(context.Background(), "10.0.0.1")
		if errAllow != nil {
			t.Fatalf("allow %d: %v", i, errAllow)
		}
		if !res.Allowed {
			t.Fatalf("expected attempt %d to be allowed", i)
		}
	}
	res, errAllow := m.AllowLogin(context.Background(), "10.0.0.1")
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if res.Allowed {
		t.Fatalf("expected third attempt to be blocked")
	}

	// Another address is unaffected.
	other, _ := m.AllowLogin(context.Background(), "10.0.0.2")
	if !other.Allowed {
		t.Fatalf("expected other address to be allowed")
	}
}

func TestManagerWindowResets(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(func() SettingsConfig {
		return SettingsConfig{ReviewLimit: 1}
	}, func() time.Time {
		return now
	}, nil)

	if res, _ := m.AllowReview(context.Background(), "42"); !res.Allowed {
		t.Fatalf("expected first review to be allowed")
	}
	if res, _ := m.AllowReview(context.Background(), "42"); res.Allowed {
		t.Fatalf("expected second review in the same second to be blocked")
	}

	now = now.Add(time.Second)
	if res, _ := m.AllowReview(context.Background(), "42"); !res.Allowed {
		t.Fatalf("expected review to be allowed in the next window")
	}
}

func TestMemoryLimiterSweepsStaleKeys(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter()

	for _, key := range []string{"login:10.0.0.1", "review:1", "review:2"} {
		if res, errAllow := l.Allow(context.Background(), key, 5, now); errAllow != nil || !res.Allowed {
			t.Fatalf("allow %q: %v %v", key, res, errAllow)
		}
	}
	if len(l.windows) != 3 {
		t.Fatalf("window count = %d, want 3", len(l.windows))
	}

	// A request in a later window drops every counter from the old one.
	now = now.Add(2 * time.Second)
	if res, _ := l.Allow(context.Background(), "review:1", 5, now); !res.Allowed {
		t.Fatal("expected request in new window to be allowed")
	}
	if len(l.windows) != 1 {
		t.Fatalf("window count after sweep = %d, want 1", len(l.windows))
	}
	if res, _ := l.Allow(context.Background(), "review:1", 5, now); res.Remaining != 3 {
		t.Fatalf("remaining = %d, want 3", res.Remaining)
	}
}

func TestManagerZeroLimitDisables(t *testing.T) {
	m := NewManager(func() SettingsConfig { return SettingsConfig{} }, nil, nil)
	for i := 0; i < 10; i++ {
		res, errAllow := m.AllowLogin(context.Background(), "addr")
		if errAllow != nil || !res.Allowed {
			t.Fatalf("expected unlimited when limit is zero")
		}
	}
}
