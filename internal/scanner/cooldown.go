package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CooldownStore suppresses re-emission of a (symbol, strategy) pair for a
// fixed window after it was signalled. The in-process map is authoritative;
// when a Redis client is attached the marks are mirrored there so restarts
// within the window stay quiet, but Redis failures only log and never block
// a scan.
type CooldownStore struct {
	mu     sync.Mutex
	until  map[string]time.Time
	window time.Duration
	now    func() time.Time

	rdb *redis.Client
	log zerolog.Logger
}

// NewCooldownStore creates a store with the given suppression window.
func NewCooldownStore(window time.Duration, log zerolog.Logger) *CooldownStore {
	return &CooldownStore{
		until:  make(map[string]time.Time),
		window: window,
		now:    time.Now,
		log:    log.With().Str("component", "cooldown").Logger(),
	}
}

// NewCooldownStoreWithClock is NewCooldownStore with an injected clock.
func NewCooldownStoreWithClock(window time.Duration, now func() time.Time, log zerolog.Logger) *CooldownStore {
	s := NewCooldownStore(window, log)
	s.now = now
	return s
}

// AttachRedis adds a mirror for cooldown marks. Existing remote marks are
// honored via Active lookups only when the local map has no entry.
func (s *CooldownStore) AttachRedis(rdb *redis.Client) {
	s.rdb = rdb
}

func cooldownKey(symbol, strategy string) string {
	return fmt.Sprintf("cooldown:%s:%s", symbol, strategy)
}

// Mark records an emission now, suppressing the pair for the window.
func (s *CooldownStore) Mark(ctx context.Context, symbol, strategy string) {
	key := cooldownKey(symbol, strategy)

	s.mu.Lock()
	s.until[key] = s.now().Add(s.window)
	s.mu.Unlock()

	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, key, "1", s.window).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cooldown mirror write failed")
	}
}

// Active reports whether the pair is still inside its suppression window.
func (s *CooldownStore) Active(ctx context.Context, symbol, strategy string) bool {
	key := cooldownKey(symbol, strategy)

	s.mu.Lock()
	until, ok := s.until[key]
	if ok && s.now().After(until) {
		delete(s.until, key)
		ok = false
	}
	s.mu.Unlock()
	if ok {
		return true
	}

	if s.rdb == nil {
		return false
	}
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cooldown mirror read failed")
		return false
	}
	return n > 0
}

// Size returns the number of live local marks, expiring stale ones.
func (s *CooldownStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, until := range s.until {
		if now.After(until) {
			delete(s.until, key)
		}
	}
	return len(s.until)
}
