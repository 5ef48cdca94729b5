// Package regime derives a three-state trend regime from EMA stacking and
// RSI, and composes the reference symbol's regime across two timeframes
// into a single market-wide signal.
package regime

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kakamigomarket/bot-scan/internal/binance"
	"github.com/kakamigomarket/bot-scan/internal/indicator"
)

// State is the trend regime of an instrument on one timeframe.
type State int

const (
	Sideways State = iota
	Up
	Down
)

func (s State) String() string {
	switch s {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return "SIDEWAYS"
	}
}

const candleLimit = 99

// candleSource is the slice of the market gateway the classifier needs.
type candleSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]binance.Kline, error)
}

// Classifier computes regimes from fresh candles; nothing is stored.
type Classifier struct {
	source    candleSource
	reference string
	log       zerolog.Logger
}

// NewClassifier creates a classifier using the given reference symbol
// (typically BTCUSDT) for the composite market regime.
func NewClassifier(source candleSource, reference string, log zerolog.Logger) *Classifier {
	return &Classifier{
		source:    source,
		reference: reference,
		log:       log.With().Str("component", "regime").Logger(),
	}
}

// Regime fetches candles for (symbol, interval) and classifies the trend.
func (c *Classifier) Regime(ctx context.Context, symbol, interval string) (State, error) {
	klines, err := c.source.Klines(ctx, symbol, interval, candleLimit)
	if err != nil {
		return Sideways, err
	}
	return Classify(klines), nil
}

// Composite computes the reference symbol's regime on 1h and 4h and returns
// the shared value when they agree. Disagreement means no clear regime and
// yields Sideways; it is never tie-broken toward either direction. Fetch
// failures degrade to Sideways as well, since a scan must not die on the
// reference symbol.
func (c *Classifier) Composite(ctx context.Context) State {
	h1, err := c.Regime(ctx, c.reference, "1h")
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", c.reference).Msg("composite regime 1h fetch failed")
		return Sideways
	}
	h4, err := c.Regime(ctx, c.reference, "4h")
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", c.reference).Msg("composite regime 4h fetch failed")
		return Sideways
	}
	if h1 == h4 {
		return h1
	}
	return Sideways
}

// Classify derives the regime from a candle window. UP requires the full
// EMA stack close > EMA7 > EMA25 > EMA99 with RSI(14) above 55; DOWN is the
// mirror with RSI below 45; anything else is Sideways.
func Classify(klines []binance.Kline) State {
	closes := indicator.Closes(klines)
	e7 := indicator.EMA(closes, 7)
	e25 := indicator.EMA(closes, 25)
	e99 := indicator.EMA(closes, 99)
	if e7 == 0 || e25 == 0 || e99 == 0 {
		return Sideways
	}
	price := closes[len(closes)-1]
	rsi := indicator.RSI(closes, 14)

	if price > e7 && e7 > e25 && e25 > e99 && rsi > 55 {
		return Up
	}
	if price < e7 && e7 < e25 && e25 < e99 && rsi < 45 {
		return Down
	}
	return Sideways
}
