package indicator

import (
	"math"

	"github.com/kakamigomarket/bot-scan/internal/binance"
)

// Candle pattern labels for the most recent candle.
const (
	PatternDoji      = "Doji"
	PatternHammer    = "Hammer"
	PatternEngulfing = "Engulfing"
)

// Divergence labels.
const (
	DivergenceBullish = "bullish"
	DivergenceBearish = "bearish"
)

// Support/resistance zone labels.
const (
	ZoneNearSupport    = "near support"
	ZoneNearResistance = "near resistance"
)

// Trend labels.
const (
	TrendUp       = "Uptrend"
	TrendDown     = "Downtrend"
	TrendSideways = "Sideways"
)

// CandlePattern classifies the most recent candle. Engulfing needs the
// prior candle and is only checked when at least two candles exist; the
// bounds-unsafe single-candle variant is intentionally not reproduced.
func CandlePattern(klines []binance.Kline) string {
	if len(klines) == 0 {
		return ""
	}
	last := klines[len(klines)-1]
	body := math.Abs(last.Close - last.Open)
	candleRange := last.High - last.Low
	upperWick := last.High - math.Max(last.Open, last.Close)
	lowerWick := math.Min(last.Open, last.Close) - last.Low

	if len(klines) >= 2 {
		prev := klines[len(klines)-2]
		// Bullish reversal engulfing the prior bearish body.
		if prev.Close < prev.Open && last.Close > last.Open &&
			last.Open <= prev.Close && last.Close >= prev.Open {
			return PatternEngulfing
		}
	}

	if lowerWick > 2*body && upperWick < body {
		return PatternHammer
	}
	if candleRange > 0 && body <= 0.1*candleRange {
		return PatternDoji
	}
	return ""
}

// Divergence compares the value five samples back against the latest value
// for both series. Price up with RSI down is bearish divergence; price down
// with RSI up is bullish. Requires at least 5 samples in each series.
func Divergence(prices, rsis []float64) string {
	if len(prices) < 5 || len(rsis) < 5 {
		return ""
	}
	priceThen, priceNow := prices[len(prices)-5], prices[len(prices)-1]
	rsiThen, rsiNow := rsis[len(rsis)-5], rsis[len(rsis)-1]

	switch {
	case priceNow > priceThen && rsiNow < rsiThen:
		return DivergenceBearish
	case priceNow < priceThen && rsiNow > rsiThen:
		return DivergenceBullish
	}
	return ""
}

// ProximityToSR reports whether the latest close sits within 2% of the
// window's support (minimum close) or resistance (maximum close).
func ProximityToSR(closes []float64, window int) string {
	if window <= 0 || len(closes) < window {
		return ""
	}
	tail := closes[len(closes)-window:]
	support, resistance := tail[0], tail[0]
	for _, c := range tail {
		if c < support {
			support = c
		}
		if c > resistance {
			resistance = c
		}
	}
	last := closes[len(closes)-1]
	if support > 0 && math.Abs(last-support)/support <= 0.02 {
		return ZoneNearSupport
	}
	if resistance > 0 && math.Abs(last-resistance)/resistance <= 0.02 {
		return ZoneNearResistance
	}
	return ""
}

// SupportLevel returns the minimum of the closes preceding the latest one
// over the given window, or 0 when there is not enough history. Used for
// the "support not broken" confirmation.
func SupportLevel(closes []float64, window int) float64 {
	if window <= 0 || len(closes) < window+1 {
		return 0
	}
	prior := closes[len(closes)-window-1 : len(closes)-1]
	support := prior[0]
	for _, c := range prior {
		if c < support {
			support = c
		}
	}
	return support
}

// VolumeSpike reports whether the latest volume exceeds 1.5x the mean of
// the prior 19 candles.
func VolumeSpike(volumes []float64) bool {
	if len(volumes) < 20 {
		return false
	}
	prior := volumes[len(volumes)-20 : len(volumes)-1]
	sum := 0.0
	for _, v := range prior {
		sum += v
	}
	mean := sum / float64(len(prior))
	return volumes[len(volumes)-1] > 1.5*mean
}

// TrendStrength compares the 10- and 30-period simple means of the closes
// and classifies a direction only when the move is corroborated by volume
// above 1.2x its 20-period mean; otherwise Sideways.
func TrendStrength(closes, volumes []float64) string {
	if len(closes) < 30 || len(volumes) < 20 {
		return TrendSideways
	}
	fast := SMA(closes, 10)
	slow := SMA(closes, 30)
	volMean := SMA(volumes, 20)
	volConfirmed := volMean > 0 && volumes[len(volumes)-1] > 1.2*volMean

	switch {
	case fast > slow && volConfirmed:
		return TrendUp
	case fast < slow && volConfirmed:
		return TrendDown
	}
	return TrendSideways
}
