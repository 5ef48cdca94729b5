package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.BinanceBaseURL != "https://api.binance.com" {
		t.Errorf("BinanceBaseURL = %q", cfg.BinanceBaseURL)
	}
	if cfg.HTTPConcurrency != 12 {
		t.Errorf("HTTPConcurrency = %d, want 12", cfg.HTTPConcurrency)
	}
	if cfg.AnalysisConcurrency != 8 {
		t.Errorf("AnalysisConcurrency = %d, want 8", cfg.AnalysisConcurrency)
	}
	if cfg.CooldownMinutes != 45 {
		t.Errorf("CooldownMinutes = %d, want 45", cfg.CooldownMinutes)
	}
	if cfg.MaxSignals != 5 {
		t.Errorf("MaxSignals = %d, want 5", cfg.MaxSignals)
	}
	if cfg.FeeRoundTripPct != 0.20 {
		t.Errorf("FeeRoundTripPct = %f, want 0.20", cfg.FeeRoundTripPct)
	}
	if cfg.ReferenceSymbol != "BTCUSDT" {
		t.Errorf("ReferenceSymbol = %q", cfg.ReferenceSymbol)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_CONCURRENCY", "20")
	t.Setenv("ALLOWED_IDS", "123, 456, not-a-number, 789")
	t.Setenv("EXCLUDE_SYMBOLS", "busdusdt, TUSDUSDT")
	t.Setenv("PRODUCTION", "true")

	cfg := Load()

	if cfg.HTTPConcurrency != 20 {
		t.Errorf("HTTPConcurrency = %d, want 20", cfg.HTTPConcurrency)
	}
	if len(cfg.AllowedIDs) != 3 || cfg.AllowedIDs[2] != 789 {
		t.Errorf("AllowedIDs = %v, want [123 456 789]", cfg.AllowedIDs)
	}
	if len(cfg.ExcludeSymbols) != 2 || cfg.ExcludeSymbols[0] != "BUSDUSDT" {
		t.Errorf("ExcludeSymbols = %v", cfg.ExcludeSymbols)
	}
	if !cfg.Production {
		t.Error("Production should be true")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("HTTP_CONCURRENCY", "many")
	t.Setenv("FEE_ROUND_TRIP_PCT", "cheap")

	cfg := Load()

	if cfg.HTTPConcurrency != 12 {
		t.Errorf("malformed int should fall back to 12, got %d", cfg.HTTPConcurrency)
	}
	if cfg.FeeRoundTripPct != 0.20 {
		t.Errorf("malformed float should fall back to 0.20, got %f", cfg.FeeRoundTripPct)
	}
}
