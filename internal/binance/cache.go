package binance

import (
	"sync"
	"time"
)

// Cache TTLs per data bucket. Symbol filters change on exchange maintenance
// windows only, so they are held for hours.
const (
	TTLPrice   = 30 * time.Second
	TTLTicker  = 30 * time.Second
	TTLBook    = 30 * time.Second
	TTLKlines  = 20 * time.Second
	TTLFilters = 4 * time.Hour
)

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// TTLCache is a coarse-grained expiring cache keyed by string. One mutex is
// enough: lookups dominate and writes happen once per key per TTL window.
// The clock is injected so tests can expire entries deterministically.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time

	hits   int64
	misses int64
}

// NewTTLCache creates an empty cache using the wall clock.
func NewTTLCache() *TTLCache {
	return &TTLCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// NewTTLCacheWithClock creates a cache with an injected clock for tests.
func NewTTLCacheWithClock(now func() time.Time) *TTLCache {
	return &TTLCache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

// Get returns the cached value for key, or false when missing or expired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return entry.value, true
}

// Set stores value under key for the given TTL.
func (c *TTLCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Stats returns hit/miss counters since startup.
func (c *TTLCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Sweep drops expired entries. Called periodically by the gateway so the
// map does not grow without bound over long uptimes.
func (c *TTLCache) Sweep() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
