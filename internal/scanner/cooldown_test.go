package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCooldownExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewCooldownStoreWithClock(45*time.Minute, clock, zerolog.Nop())
	ctx := context.Background()

	if store.Active(ctx, "BTCUSDT", "jemput-bola") {
		t.Error("fresh store should have no active cooldowns")
	}

	store.Mark(ctx, "BTCUSDT", "jemput-bola")
	if !store.Active(ctx, "BTCUSDT", "jemput-bola") {
		t.Error("pair should be cooling down right after a mark")
	}

	// Same symbol, different strategy: independent windows.
	if store.Active(ctx, "BTCUSDT", "scalping-breakout") {
		t.Error("cooldown must be scoped per strategy")
	}

	now = now.Add(44 * time.Minute)
	if !store.Active(ctx, "BTCUSDT", "jemput-bola") {
		t.Error("cooldown should survive until the window closes")
	}

	now = now.Add(2 * time.Minute)
	if store.Active(ctx, "BTCUSDT", "jemput-bola") {
		t.Error("cooldown should expire after the window")
	}
}

func TestCooldownSize(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewCooldownStoreWithClock(10*time.Minute, clock, zerolog.Nop())
	ctx := context.Background()

	store.Mark(ctx, "BTCUSDT", "jemput-bola")
	store.Mark(ctx, "ETHUSDT", "jemput-bola")
	if got := store.Size(); got != 2 {
		t.Errorf("Size = %d, want 2", got)
	}

	now = now.Add(11 * time.Minute)
	if got := store.Size(); got != 0 {
		t.Errorf("Size after expiry = %d, want 0", got)
	}
}
