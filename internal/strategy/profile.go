// Package strategy evaluates a candle window against a strategy profile and
// the market regime, producing a scored signal candidate with dynamic
// targets, or nothing when any gate rejects.
package strategy

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for configuration lookups. Surfaced to the invoker before
// a scan starts; never produced mid-scan.
var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrUnknownMode     = errors.New("unknown mode")
)

// Kind is the closed set of strategy families. Dispatch is by enum, not by
// display label.
type Kind int

const (
	DipAccumulation Kind = iota
	ReversalSwing
	Breakout
)

func (k Kind) String() string {
	switch k {
	case DipAccumulation:
		return "jemput-bola"
	case ReversalSwing:
		return "rebound-swing"
	case Breakout:
		return "scalping-breakout"
	}
	return "unknown"
}

// DisplayName returns the user-facing label used in delivery messages.
func (k Kind) DisplayName() string {
	switch k {
	case DipAccumulation:
		return "🔴 Jemput Bola"
	case ReversalSwing:
		return "🟡 Rebound Swing"
	case Breakout:
		return "🟢 Scalping Breakout"
	}
	return "unknown"
}

// MeanReversion reports whether the family buys weakness rather than
// strength. Dip and reversal entries are counter-trend.
func (k Kind) MeanReversion() bool {
	return k == DipAccumulation || k == ReversalSwing
}

// ParseKind resolves a strategy name, accepting both the slug and the
// display label (with or without the emoji prefix).
func ParseKind(name string) (Kind, error) {
	switch normalize(name) {
	case "jemput-bola", "jemput bola", "dip":
		return DipAccumulation, nil
	case "rebound-swing", "rebound swing", "reversal":
		return ReversalSwing, nil
	case "scalping-breakout", "scalping breakout", "breakout":
		return Breakout, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func normalize(name string) string {
	s := strings.TrimSpace(strings.ToLower(name))
	for _, prefix := range []string{"🔴", "🟡", "🟢"} {
		s = strings.TrimPrefix(s, prefix)
	}
	return strings.TrimSpace(s)
}

// Profile is the immutable per-strategy configuration selected per scan.
type Profile struct {
	Kind           Kind
	RSILimit       float64 // RSI(6) bound used by the validity rule
	MinQuoteVolume float64 // minimum 24h quote volume in USDT
	MinScore       float64 // confidence threshold for emission

	// ATR multiplier table for dynamic targets.
	TP1Mult  float64
	TP2Mult  float64
	StopMult float64
}

var profiles = map[Kind]Profile{
	DipAccumulation: {
		Kind:           DipAccumulation,
		RSILimit:       40,
		MinQuoteVolume: 3_000_000,
		MinScore:       4.0,
		TP1Mult:        2.0,
		TP2Mult:        3.8,
		StopMult:       1.5,
	},
	ReversalSwing: {
		Kind:           ReversalSwing,
		RSILimit:       50,
		MinQuoteVolume: 3_000_000,
		MinScore:       4.0,
		TP1Mult:        1.6,
		TP2Mult:        2.8,
		StopMult:       1.3,
	},
	Breakout: {
		Kind:           Breakout,
		RSILimit:       60,
		MinQuoteVolume: 10_000_000,
		MinScore:       5.0,
		TP1Mult:        1.2,
		TP2Mult:        2.0,
		StopMult:       1.0,
	},
}

// ProfileFor returns the profile for a strategy family.
func ProfileFor(k Kind) Profile {
	return profiles[k]
}

// Mode tunes gating strictness. Retail is deliberately loose so casual
// users still see signals; pro is the original strict screening.
type Mode struct {
	Name              string
	ADXMin            float64
	ATRPctMinBreakout float64
	AvgTradesMin      float64
	RequireMultiTF    bool
}

var modes = map[string]Mode{
	"retail": {Name: "retail", ADXMin: 15.0, ATRPctMinBreakout: 0.05, AvgTradesMin: 50, RequireMultiTF: false},
	"pro":    {Name: "pro", ADXMin: 25.0, ATRPctMinBreakout: 0.15, AvgTradesMin: 200, RequireMultiTF: true},
}

// ParseMode resolves a mode profile by name.
func ParseMode(name string) (Mode, error) {
	m, ok := modes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Mode{}, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	return m, nil
}
