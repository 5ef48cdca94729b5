package strategy

import (
	"math"

	"github.com/kakamigomarket/bot-scan/internal/regime"
)

// FeeModel carries the taker fee assumptions used to floor TP1. RoundTripPct
// is the combined entry+exit fee in percent.
type FeeModel struct {
	RoundTripPct float64
}

// DefaultFees assumes standard taker fees on both legs.
var DefaultFees = FeeModel{RoundTripPct: 0.20}

type targetInput struct {
	price     float64
	atr       float64
	atrPct    float64
	vol24h    float64
	spreadPct float64
	tick      float64
	market    regime.State
	profile   Profile
	fees      FeeModel
}

type targets struct {
	tp1, tp2, stop float64
}

// computeTargets derives tick-rounded TP1/TP2/SL from the ATR multiplier
// table, scaled by regime, volatility and liquidity, then floored so TP1
// clears fees plus half the spread. Returns ok=false when rounding collapses
// the ordering stop < entry < tp1 <= tp2.
func computeTargets(in targetInput) (targets, bool) {
	p := in.profile

	factor := volatilityFactor(in.atrPct) * liquidityFactor(in.vol24h)
	if p.Kind == Breakout {
		factor *= regimeFactor(in.market)
	}

	tp1 := in.price + p.TP1Mult*in.atr*factor
	tp2 := in.price + p.TP2Mult*in.atr*factor
	stop := in.price - p.StopMult*in.atr

	// Floor the targets: fees plus half-spread must be clearable, and very
	// cheap assets need a wider minimum move to be worth acting on.
	minTP1Pct := tp1FloorPct(in.price)
	if feeFloor := in.fees.RoundTripPct + in.spreadPct/2; feeFloor > minTP1Pct {
		minTP1Pct = feeFloor
	}
	minTP2Pct := 1.8 * minTP1Pct

	if floor := in.price * (1 + minTP1Pct/100); tp1 < floor {
		tp1 = floor
	}
	if floor := in.price * (1 + minTP2Pct/100); tp2 < floor {
		tp2 = floor
	}

	out := targets{
		tp1:  RoundToTick(tp1, in.tick),
		tp2:  RoundToTick(tp2, in.tick),
		stop: RoundToTick(stop, in.tick),
	}
	entry := RoundToTick(in.price, in.tick)
	if !(out.stop < entry && entry < out.tp1 && out.tp1 <= out.tp2) {
		return targets{}, false
	}
	return out, true
}

// regimeFactor widens breakout targets in a confirmed uptrend and trims them
// when the market leans down.
func regimeFactor(s regime.State) float64 {
	switch s {
	case regime.Up:
		return 1.10
	case regime.Down:
		return 0.85
	}
	return 1.0
}

// volatilityFactor stretches targets in quiet markets and compresses them
// when the candle range is already wide.
func volatilityFactor(atrPct float64) float64 {
	switch {
	case atrPct < 0.5:
		return 1.15
	case atrPct > 2.5:
		return 0.85
	}
	return 1.0
}

// liquidityFactor widens targets on thin pairs, where moves overshoot, and
// narrows them on deep ones.
func liquidityFactor(vol24h float64) float64 {
	switch {
	case vol24h < 5_000_000:
		return 1.10
	case vol24h > 50_000_000:
		return 0.90
	}
	return 1.0
}

// tp1FloorPct is the minimum first-target move by price magnitude. Cheap
// assets trade in coarse ticks, so their floor is wider.
func tp1FloorPct(price float64) float64 {
	switch {
	case price < 0.01:
		return 1.2
	case price < 1:
		return 0.9
	}
	return 0.6
}

// RoundToTick rounds a price to the nearest tick, half up. A zero tick
// leaves the price unchanged.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Floor(price/tick+0.5) * tick
}
