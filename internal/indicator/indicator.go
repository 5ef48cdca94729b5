// Package indicator provides stateless technical indicator functions over
// candle windows. All functions are pure: identical input yields identical
// output, and insufficient history yields a sentinel (empty slice, zero or
// neutral value), never a panic.
package indicator

import (
	"math"

	"github.com/kakamigomarket/bot-scan/internal/binance"
)

// Closes extracts the close series from a candle window.
func Closes(klines []binance.Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}

// Volumes extracts the volume series from a candle window.
func Volumes(klines []binance.Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Volume
	}
	return out
}

// SMA returns the simple mean of the last period values, or 0 when there is
// not enough history.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMASeries returns the exponential moving average series, seeded with the
// simple mean of the first period values. Returns nil when len(values) is
// below period; callers must treat nil as "indicator unavailable", not zero.
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	k := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	ema := seed
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

// EMA returns the latest value of the EMA series, or 0 when unavailable.
func EMA(values []float64, period int) float64 {
	series := EMASeries(values, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// RSI computes the Wilder-smoothed relative strength index over the close
// series. Boundary policy: both average gain and loss zero (flat window)
// yields the neutral 50; zero loss yields 100; zero gain yields 0.
// Insufficient history also yields the neutral 50.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	case avgGain == 0:
		return 0
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// RSISeries returns the rolling Wilder RSI, one value per close starting at
// index period. Returns nil when there is not enough history. Each value
// follows the same boundary policy as RSI.
func RSISeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	value := func(gain, loss float64) float64 {
		switch {
		case gain == 0 && loss == 0:
			return 50
		case loss == 0:
			return 100
		case gain == 0:
			return 0
		}
		return 100 - 100/(1+gain/loss)
	}

	out := make([]float64, 0, len(closes)-period)
	out = append(out, value(avgGain, avgLoss))
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, value(avgGain, avgLoss))
	}
	return out
}

// MACDHistogram computes the MACD histogram: MACD line = EMA(12) - EMA(26),
// signal = EMA(9) of the MACD line, histogram = MACD - signal. Returns 0
// when fewer than 35 closes are available.
func MACDHistogram(closes []float64) float64 {
	if len(closes) < 35 {
		return 0
	}
	fast := EMASeries(closes, 12)
	slow := EMASeries(closes, 26)
	if len(fast) == 0 || len(slow) == 0 {
		return 0
	}

	// Both series end at the latest close; align their tails.
	n := len(slow)
	macd := make([]float64, n)
	offset := len(fast) - n
	for i := 0; i < n; i++ {
		macd[i] = fast[offset+i] - slow[i]
	}

	signal := EMASeries(macd, 9)
	if len(signal) == 0 {
		return 0
	}
	return macd[len(macd)-1] - signal[len(signal)-1]
}

// TrueRange returns the true range for one candle given the prior close.
func TrueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// ATR computes the average true range as a simple trailing mean of the last
// period true ranges. Deliberately not Wilder-smoothed, unlike DMIADX below,
// matching the long-observed behavior of the target computation. Returns 0
// when len(klines) <= period.
func ATR(klines []binance.Kline, period int) float64 {
	if period <= 0 || len(klines) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		sum += TrueRange(klines[i].High, klines[i].Low, klines[i-1].Close)
	}
	return sum / float64(period)
}

// DMIADX computes the directional movement indicators and ADX with Wilder
// smoothing. Returns a zero triple when there is not enough history
// (fewer than 2*period+1 candles).
func DMIADX(klines []binance.Kline, period int) (plusDI, minusDI, adx float64) {
	if period <= 0 || len(klines) < 2*period+1 {
		return 0, 0, 0
	}

	n := len(klines) - 1
	trs := make([]float64, n)
	plusDMs := make([]float64, n)
	minusDMs := make([]float64, n)
	for i := 1; i < len(klines); i++ {
		cur, prev := klines[i], klines[i-1]
		trs[i-1] = TrueRange(cur.High, cur.Low, prev.Close)

		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low
		if upMove > downMove && upMove > 0 {
			plusDMs[i-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDMs[i-1] = downMove
		}
	}

	// Seed the Wilder sums with the first period values.
	var sTR, sPlus, sMinus float64
	for i := 0; i < period; i++ {
		sTR += trs[i]
		sPlus += plusDMs[i]
		sMinus += minusDMs[i]
	}

	di := func() (p, m float64) {
		if sTR == 0 {
			return 0, 0
		}
		return 100 * sPlus / sTR, 100 * sMinus / sTR
	}

	var dxs []float64
	appendDX := func() {
		p, m := di()
		if p+m == 0 {
			dxs = append(dxs, 0)
			return
		}
		dxs = append(dxs, 100*math.Abs(p-m)/(p+m))
	}
	appendDX()

	for i := period; i < n; i++ {
		sTR = sTR - sTR/float64(period) + trs[i]
		sPlus = sPlus - sPlus/float64(period) + plusDMs[i]
		sMinus = sMinus - sMinus/float64(period) + minusDMs[i]
		appendDX()
	}

	// ADX: mean of the first period DX values, then Wilder-smoothed.
	if len(dxs) < period {
		return 0, 0, 0
	}
	sum := 0.0
	for _, dx := range dxs[:period] {
		sum += dx
	}
	adx = sum / float64(period)
	for _, dx := range dxs[period:] {
		adx = (adx*float64(period-1) + dx) / float64(period)
	}

	plusDI, minusDI = di()
	return plusDI, minusDI, adx
}
