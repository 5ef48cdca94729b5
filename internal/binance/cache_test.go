package binance

import (
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Now()
	cache := NewTTLCacheWithClock(func() time.Time { return now })

	cache.Set("price:BTCUSDT", 42000.5, 30*time.Second)

	v, ok := cache.Get("price:BTCUSDT")
	if !ok || v.(float64) != 42000.5 {
		t.Fatalf("Get = (%v, %v), want fresh value", v, ok)
	}

	now = now.Add(29 * time.Second)
	if _, ok := cache.Get("price:BTCUSDT"); !ok {
		t.Error("entry should still be live inside the TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := cache.Get("price:BTCUSDT"); ok {
		t.Error("entry should be expired after the TTL")
	}
}

func TestTTLCacheMiss(t *testing.T) {
	cache := NewTTLCache()

	if _, ok := cache.Get("missing"); ok {
		t.Error("missing key should not hit")
	}

	hits, misses := cache.Stats()
	if hits != 0 || misses != 1 {
		t.Errorf("stats = (%d, %d), want (0, 1)", hits, misses)
	}
}

func TestTTLCacheSweep(t *testing.T) {
	now := time.Now()
	cache := NewTTLCacheWithClock(func() time.Time { return now })

	cache.Set("a", 1, time.Second)
	cache.Set("b", 2, time.Hour)

	now = now.Add(time.Minute)
	cache.Sweep()

	if _, ok := cache.Get("a"); ok {
		t.Error("swept entry should be gone")
	}
	if _, ok := cache.Get("b"); !ok {
		t.Error("live entry should survive the sweep")
	}
}
