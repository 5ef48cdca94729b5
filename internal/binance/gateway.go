package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// restAPI is the raw client surface the gateway drives. Narrowed to an
// interface so tests can substitute a scripted fake.
type restAPI interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
	Get24hTickers(ctx context.Context) ([]Ticker24h, error)
	Get24hTicker(ctx context.Context, symbol string) (*Ticker24h, error)
	GetBookTicker(ctx context.Context, symbol string) (*BookTicker, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
	GetSymbolFilters(ctx context.Context, symbol string) (*SymbolFilters, error)
}

// Gateway is the rate-limited, TTL-cached market data accessor. Every
// outbound call holds a slot on the network semaphore, and transient
// failures are retried with a linear backoff before the error is returned
// to the caller. Failures stay local to the requested key; nothing here is
// fatal to a scan.
type Gateway struct {
	api     restAPI
	cache   *TTLCache
	netSem  chan struct{}
	retries int
	backoff time.Duration
	log     zerolog.Logger
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithCache replaces the default cache, mainly for tests with fake clocks.
func WithCache(c *TTLCache) GatewayOption {
	return func(g *Gateway) { g.cache = c }
}

// WithRetry overrides the retry count and base backoff.
func WithRetry(retries int, backoff time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.retries = retries
		g.backoff = backoff
	}
}

// NewGateway creates a gateway over the given client with at most
// maxConcurrent in-flight network calls.
func NewGateway(api restAPI, maxConcurrent int, log zerolog.Logger, opts ...GatewayOption) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 12
	}
	g := &Gateway{
		api:     api,
		cache:   NewTTLCache(),
		netSem:  make(chan struct{}, maxConcurrent),
		retries: 3,
		backoff: 300 * time.Millisecond,
		log:     log.With().Str("component", "gateway").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// fetch runs fn under the network semaphore with retry. The backoff grows
// linearly with the attempt number (0.3s, 0.6s, 0.9s by default).
func (g *Gateway) fetch(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	select {
	case g.netSem <- struct{}{}:
		defer func() { <-g.netSem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var lastErr error
	for attempt := 1; attempt <= g.retries; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < g.retries {
			wait := time.Duration(attempt) * g.backoff
			g.log.Debug().Str("key", key).Int("attempt", attempt).Err(err).
				Dur("backoff", wait).Msg("fetch failed, retrying")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	g.log.Warn().Str("key", key).Err(lastErr).Msg("fetch failed after retries")
	return nil, fmt.Errorf("fetch %s: %w", key, lastErr)
}

// Price returns the last traded price for a symbol.
func (g *Gateway) Price(ctx context.Context, symbol string) (float64, error) {
	key := "price:" + symbol
	if v, ok := g.cache.Get(key); ok {
		return v.(float64), nil
	}
	v, err := g.fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return g.api.GetPrice(ctx, symbol)
	})
	if err != nil {
		return 0, err
	}
	g.cache.Set(key, v, TTLPrice)
	return v.(float64), nil
}

// Tickers returns 24h ticker statistics for the whole exchange. Used once
// per scan as the universe snapshot.
func (g *Gateway) Tickers(ctx context.Context) ([]Ticker24h, error) {
	key := "tickers:all"
	if v, ok := g.cache.Get(key); ok {
		return v.([]Ticker24h), nil
	}
	v, err := g.fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return g.api.Get24hTickers(ctx)
	})
	if err != nil {
		return nil, err
	}
	tickers := v.([]Ticker24h)
	g.cache.Set(key, tickers, TTLTicker)
	return tickers, nil
}

// Ticker returns 24h ticker statistics for one symbol.
func (g *Gateway) Ticker(ctx context.Context, symbol string) (*Ticker24h, error) {
	key := "ticker:" + symbol
	if v, ok := g.cache.Get(key); ok {
		return v.(*Ticker24h), nil
	}
	v, err := g.fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return g.api.Get24hTicker(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	t := v.(*Ticker24h)
	g.cache.Set(key, t, TTLTicker)
	return t, nil
}

// BookTicker returns the current best bid/ask for a symbol.
func (g *Gateway) BookTicker(ctx context.Context, symbol string) (*BookTicker, error) {
	key := "book:" + symbol
	if v, ok := g.cache.Get(key); ok {
		return v.(*BookTicker), nil
	}
	v, err := g.fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return g.api.GetBookTicker(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	b := v.(*BookTicker)
	g.cache.Set(key, b, TTLBook)
	return b, nil
}

// Klines returns a candle window for (symbol, interval), oldest first.
// The returned slice is shared with the cache and must not be mutated.
func (g *Gateway) Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	key := fmt.Sprintf("klines:%s:%s:%d", symbol, interval, limit)
	if v, ok := g.cache.Get(key); ok {
		return v.([]Kline), nil
	}
	v, err := g.fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return g.api.GetKlines(ctx, symbol, interval, limit)
	})
	if err != nil {
		return nil, err
	}
	klines := v.([]Kline)
	g.cache.Set(key, klines, TTLKlines)
	return klines, nil
}

// SymbolFilters returns the price tick and quantity step for a symbol.
func (g *Gateway) SymbolFilters(ctx context.Context, symbol string) (*SymbolFilters, error) {
	key := "filters:" + symbol
	if v, ok := g.cache.Get(key); ok {
		return v.(*SymbolFilters), nil
	}
	v, err := g.fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return g.api.GetSymbolFilters(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	f := v.(*SymbolFilters)
	g.cache.Set(key, f, TTLFilters)
	return f, nil
}

// WarmTicker lets the websocket stream refresh the per-symbol ticker bucket
// without a REST round trip.
func (g *Gateway) WarmTicker(t Ticker24h) {
	tt := t
	g.cache.Set("ticker:"+t.Symbol, &tt, TTLTicker)
	g.cache.Set("price:"+t.Symbol, t.LastPrice, TTLPrice)
}

// RunSweeper drops expired cache entries every interval until ctx is done.
func (g *Gateway) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.cache.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// IsUSDTPair reports whether the ticker belongs to a spot USDT pair worth
// scanning. Leveraged tokens are excluded up front.
func IsUSDTPair(symbol string) bool {
	if !strings.HasSuffix(symbol, "USDT") {
		return false
	}
	for _, lev := range []string{"UPUSDT", "DOWNUSDT", "BULLUSDT", "BEARUSDT"} {
		if strings.HasSuffix(symbol, lev) {
			return false
		}
	}
	return true
}
