package tenant

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCache_GetSet(t *testing.T) {
	cache := NewCache()
	id := uuid.New()

	if _, ok := cache.Get(); ok {
		t.Error("empty cache should miss")
	}

	cache.Set(id, time.Minute)

	got, ok := cache.Get()
	if !ok {
		t.Fatal("cache should hit after Set")
	}
	if got != id {
		t.Errorf("Get = %v, want %v", got, id)
	}
}

func TestCache_TTLBoundary(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	cache := NewCache()
	cache.now = func() time.Time { return now }

	id := uuid.New()
	ttl := 5 * time.Minute
	cache.Set(id, ttl)

	tests := []struct {
		name    string
		elapsed time.Duration
		hit     bool
	}{
		{"immediately", 0, true},
		{"just before expiry", ttl - time.Millisecond, true},
		{"exactly at expiry", ttl, false},
		{"just after expiry", ttl + time.Millisecond, false},
		{"long after expiry", time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = start.Add(tt.elapsed)
			got, ok := cache.Get()
			if ok != tt.hit {
				t.Errorf("hit = %v, want %v", ok, tt.hit)
			}
			if tt.hit && got != id {
				t.Errorf("Get = %v, want %v", got, id)
			}
		})
	}
}

func TestCache_LastWriteWins(t *testing.T) {
	cache := NewCache()
	first := uuid.New()
	second := uuid.New()

	cache.Set(first, time.Minute)
	cache.Set(second, time.Minute)

	got, ok := cache.Get()
	if !ok || got != second {
		t.Errorf("Get = (%v, %v), want (%v, true)", got, ok, second)
	}
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache()
	cache.Set(uuid.New(), time.Minute)
	cache.Clear()

	if _, ok := cache.Get(); ok {
		t.Error("cache should miss after Clear")
	}
}

func TestCache_SetRefreshesExpiry(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	cache := NewCache()
	cache.now = func() time.Time { return now }

	id := uuid.New()
	cache.Set(id, time.Minute)

	// A rewrite near expiry restarts the clock.
	now = start.Add(59 * time.Second)
	cache.Set(id, time.Minute)

	now = start.Add(90 * time.Second)
	if _, ok := cache.Get(); !ok {
		t.Error("entry rewritten at 59s should still be live at 90s")
	}
}
