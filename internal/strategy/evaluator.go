package strategy

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kakamigomarket/bot-scan/internal/binance"
	"github.com/kakamigomarket/bot-scan/internal/indicator"
	"github.com/kakamigomarket/bot-scan/internal/regime"
)

// Evidence holds the corroborating confirmations gathered for a candidate.
// It feeds both the weighted score and the human-readable summary.
type Evidence struct {
	Pattern       string `json:"pattern,omitempty"`
	Divergence    string `json:"divergence,omitempty"`
	Zone          string `json:"zone,omitempty"`
	Trend         string `json:"trend,omitempty"`
	VolumeSpike   bool   `json:"volume_spike"`
	MACDPositive  bool   `json:"macd_positive"`
	SupportHeld   bool   `json:"support_held"`
	MultiTF       bool   `json:"multi_tf"`
	ADXConfirmed  bool   `json:"adx_confirmed"`
	ATRConfirmed  bool   `json:"atr_confirmed"`
}

// Summary lists the confirmations present, in delivery order.
func (e Evidence) Summary() []string {
	var out []string
	if e.MultiTF {
		out = append(out, "multi-TF confirm")
	}
	if e.ADXConfirmed {
		out = append(out, "ADX trend")
	}
	if e.ATRConfirmed {
		out = append(out, "ATR expansion")
	}
	if e.Divergence != "" {
		out = append(out, e.Divergence+" divergence")
	}
	if e.Zone != "" {
		out = append(out, e.Zone)
	}
	if e.VolumeSpike {
		out = append(out, "volume spike")
	}
	if e.MACDPositive {
		out = append(out, "MACD > 0")
	}
	if e.Pattern != "" {
		out = append(out, e.Pattern)
	}
	if e.SupportHeld {
		out = append(out, "support held")
	}
	if e.Trend != "" {
		out = append(out, e.Trend)
	}
	return out
}

// Weights is the fixed per-evidence weight table. The maximum achievable
// confidence score is the sum of all weights.
type Weights struct {
	MultiTF     float64
	ADX         float64
	ATR         float64
	Divergence  float64
	Zone        float64
	VolumeSpike float64
	MACD        float64
	Pattern     float64
	SupportHeld float64
}

// DefaultWeights is the production weight table.
var DefaultWeights = Weights{
	MultiTF:     2.0,
	ADX:         1.5,
	ATR:         1.0,
	Divergence:  1.5,
	Zone:        1.0,
	VolumeSpike: 1.0,
	MACD:        1.0,
	Pattern:     1.0,
	SupportHeld: 1.0,
}

// Max returns the sum of all weights, the score ceiling.
func (w Weights) Max() float64 {
	return w.MultiTF + w.ADX + w.ATR + w.Divergence + w.Zone + w.VolumeSpike + w.MACD + w.Pattern + w.SupportHeld
}

// Score sums the weights of the confirmations present.
func (w Weights) Score(e Evidence) float64 {
	score := 0.0
	if e.MultiTF {
		score += w.MultiTF
	}
	if e.ADXConfirmed {
		score += w.ADX
	}
	if e.ATRConfirmed {
		score += w.ATR
	}
	if e.Divergence == indicator.DivergenceBullish {
		score += w.Divergence
	}
	if e.Zone != "" {
		score += w.Zone
	}
	if e.VolumeSpike {
		score += w.VolumeSpike
	}
	if e.MACDPositive {
		score += w.MACD
	}
	if e.Pattern != "" {
		score += w.Pattern
	}
	if e.SupportHeld {
		score += w.SupportHeld
	}
	return score
}

// Input carries everything the evaluator needs for one (symbol, timeframe)
// pair. The scanner assembles it; the evaluator performs no I/O.
type Input struct {
	Symbol    string
	Timeframe string
	Klines    []binance.Kline

	Price          float64
	QuoteVolume24h float64
	SpreadPct      float64
	TickSize       float64

	Market        regime.State // composite market regime, shared per scan
	HigherTF      regime.State // regime of the next-higher timeframe
	HigherTFKnown bool
}

// Candidate is a fully computed signal for one (symbol, timeframe) pair.
// Prices are tick-rounded; percentage deltas are relative to entry.
type Candidate struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Strategy  Kind      `json:"-"`
	Entry     float64   `json:"entry"`
	TP1       float64   `json:"tp1"`
	TP2       float64   `json:"tp2"`
	StopLoss  float64   `json:"stop_loss"`
	TP1Pct    float64   `json:"tp1_pct"`
	TP2Pct    float64   `json:"tp2_pct"`
	StopPct   float64   `json:"stop_pct"`
	Score     float64   `json:"score"`
	Evidence  Evidence  `json:"evidence"`
	CreatedAt time.Time `json:"created_at"`
}

// Evaluator runs the gating pipeline and scoring. Gates are hard filters
// applied in order with short-circuiting; rejection is the normal outcome
// and is signalled by a nil candidate, never by an error.
type Evaluator struct {
	weights Weights
	fees    FeeModel
	log     zerolog.Logger
}

// NewEvaluator creates an evaluator with the given weight table and fee
// model.
func NewEvaluator(weights Weights, fees FeeModel, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		weights: weights,
		fees:    fees,
		log:     log.With().Str("component", "evaluator").Logger(),
	}
}

const liquidityWindow = 20

// Evaluate runs the full pipeline for one (symbol, timeframe) pair.
// Returns nil when any gate rejects or an indicator is degenerate.
func (ev *Evaluator) Evaluate(in Input, p Profile, m Mode) *Candidate {
	if len(in.Klines) < liquidityWindow || in.Price <= 0 {
		return nil
	}

	// Gate 1: liquidity. Thin books fake every other indicator.
	if avgTradeCount(in.Klines, liquidityWindow) < m.AvgTradesMin {
		return nil
	}

	closes := indicator.Closes(in.Klines)
	volumes := indicator.Volumes(in.Klines)
	atr := indicator.ATR(in.Klines, 14)
	if atr <= 0 {
		return nil
	}
	atrPct := atr / in.Price * 100
	rsi6 := indicator.RSI(closes, 6)
	e7 := indicator.EMA(closes, 7)
	e25 := indicator.EMA(closes, 25)
	e99 := indicator.EMA(closes, 99)

	// Gate 2: regime compatibility.
	if !ev.regimeCompatible(in, p.Kind, m, atrPct, rsi6, e7) {
		return nil
	}

	// Gate 3: trend strength.
	_, _, adx := indicator.DMIADX(in.Klines, 14)
	if adx < m.ADXMin {
		return nil
	}

	// Gate 4: multi-timeframe confirmation (profile-controlled).
	multiTF := ev.higherTFConfirms(in, p.Kind)
	if m.RequireMultiTF && !multiTF {
		return nil
	}

	// Gate 5: strategy-specific validity.
	if !Valid(p.Kind, in.Price, e7, e25, e99, rsi6, in.Klines) {
		return nil
	}

	evidence := Evidence{
		Pattern:      indicator.CandlePattern(in.Klines),
		Divergence:   indicator.Divergence(closes, indicator.RSISeries(closes, 14)),
		Zone:         indicator.ProximityToSR(closes, 20),
		Trend:        indicator.TrendStrength(closes, volumes),
		VolumeSpike:  indicator.VolumeSpike(volumes),
		MACDPositive: indicator.MACDHistogram(closes) > 0,
		MultiTF:      multiTF,
		ADXConfirmed: adx >= m.ADXMin,
		ATRConfirmed: p.Kind == Breakout && atrPct >= m.ATRPctMinBreakout,
	}
	if support := indicator.SupportLevel(closes, liquidityWindow); support > 0 && in.Price >= support {
		evidence.SupportHeld = true
	}

	score := ev.weights.Score(evidence)
	if score < p.MinScore {
		return nil
	}

	targets, ok := computeTargets(targetInput{
		price:     in.Price,
		atr:       atr,
		atrPct:    atrPct,
		vol24h:    in.QuoteVolume24h,
		spreadPct: in.SpreadPct,
		tick:      in.TickSize,
		market:    in.Market,
		profile:   p,
		fees:      ev.fees,
	})
	if !ok {
		return nil
	}

	ev.log.Debug().Str("symbol", in.Symbol).Str("tf", in.Timeframe).
		Float64("score", score).Msg("candidate accepted")

	entry := RoundToTick(in.Price, in.TickSize)
	return &Candidate{
		Symbol:    in.Symbol,
		Timeframe: in.Timeframe,
		Strategy:  p.Kind,
		Entry:     entry,
		TP1:       targets.tp1,
		TP2:       targets.tp2,
		StopLoss:  targets.stop,
		TP1Pct:    pctDelta(entry, targets.tp1),
		TP2Pct:    pctDelta(entry, targets.tp2),
		StopPct:   pctDelta(entry, targets.stop),
		Score:     score,
		Evidence:  evidence,
		CreatedAt: time.Now(),
	}
}

// regimeCompatible applies gate 2. Breakouts need an UP market with enough
// volatility. Mean-reversion entries reject UP markets outright, except for
// a tightly bounded pullback on the short timeframe: deeply oversold RSI
// with price meaningfully under its short EMA.
func (ev *Evaluator) regimeCompatible(in Input, k Kind, m Mode, atrPct, rsi6, e7 float64) bool {
	if k == Breakout {
		return in.Market == regime.Up && atrPct >= m.ATRPctMinBreakout
	}
	if in.Market != regime.Up {
		return true
	}
	return in.Timeframe == "15m" && rsi6 < 35 && e7 > 0 && in.Price < 0.99*e7
}

// higherTFConfirms reports whether the next-higher timeframe's regime
// corroborates the entry: UP for breakouts, anything but UP for
// mean-reversion.
func (ev *Evaluator) higherTFConfirms(in Input, k Kind) bool {
	if !in.HigherTFKnown {
		return false
	}
	if k == Breakout {
		return in.HigherTF == regime.Up
	}
	return in.HigherTF != regime.Up
}

// Valid applies the strategy family's validity rule. Exposed separately so
// the rules can be tested without constructing full indicator state.
func Valid(k Kind, price, e7, e25, e99, rsi6 float64, klines []binance.Kline) bool {
	switch k {
	case DipAccumulation:
		return e25 > 0 && e99 > 0 && price < e25 && price > 0.9*e99 && rsi6 < profiles[DipAccumulation].RSILimit
	case ReversalSwing:
		return e25 > 0 && e7 > 0 && price < e25 && price > e7 && rsi6 < profiles[ReversalSwing].RSILimit
	case Breakout:
		if len(klines) < 3 {
			return false
		}
		prevHigh := klines[len(klines)-2].High
		if h := klines[len(klines)-3].High; h > prevHigh {
			prevHigh = h
		}
		return e7 > 0 && price > e7 && price > e25 && price > e99 &&
			rsi6 >= profiles[Breakout].RSILimit && price > prevHigh
	}
	return false
}

func avgTradeCount(klines []binance.Kline, window int) float64 {
	if len(klines) < window {
		return 0
	}
	sum := 0
	for _, k := range klines[len(klines)-window:] {
		sum += k.TradeCount
	}
	return float64(sum) / float64(window)
}

func pctDelta(entry, price float64) float64 {
	if entry == 0 {
		return 0
	}
	return (price - entry) / entry * 100
}
