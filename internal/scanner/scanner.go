// Package scanner orchestrates full-market signal scans: it snapshots the
// tradable universe, fans symbols out over a bounded worker pool, evaluates
// every configured timeframe, and reduces the candidates to a small ranked
// set with per-pair cooldowns.
package scanner

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kakamigomarket/bot-scan/internal/binance"
	"github.com/kakamigomarket/bot-scan/internal/regime"
	"github.com/kakamigomarket/bot-scan/internal/strategy"
)

// ErrScanInProgress is returned when a scan is requested while one is
// already running. Results are shared, so overlapping scans are pointless.
var ErrScanInProgress = errors.New("scan already in progress")

const (
	defaultWorkers     = 8
	defaultMaxSignals  = 5
	defaultCandleLimit = 120
)

// MarketData is the slice of the gateway the scanner drives.
type MarketData interface {
	Tickers(ctx context.Context) ([]binance.Ticker24h, error)
	BookTicker(ctx context.Context, symbol string) (*binance.BookTicker, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]binance.Kline, error)
	SymbolFilters(ctx context.Context, symbol string) (*binance.SymbolFilters, error)
}

// RegimeSource classifies trend regimes for the scanner.
type RegimeSource interface {
	Composite(ctx context.Context) regime.State
	Regime(ctx context.Context, symbol, interval string) (regime.State, error)
}

// EvalFunc computes a candidate for one (symbol, timeframe) input. Kept as a
// function field so tests can script outcomes without candle fixtures.
type EvalFunc func(in strategy.Input, p strategy.Profile, m strategy.Mode) *strategy.Candidate

// Config tunes a Scanner. Zero values fall back to defaults.
type Config struct {
	Workers     int
	MaxSignals  int
	CandleLimit int
	Timeframes  []string
	HigherTF    map[string]string
	Exclude     []string
}

// Scanner runs market passes. Safe for concurrent use; at most one scan is
// in flight at a time.
type Scanner struct {
	market   MarketData
	regimes  RegimeSource
	cooldown *CooldownStore
	evaluate EvalFunc

	workers     int
	maxSignals  int
	candleLimit int
	timeframes  []string
	higherTF    map[string]string
	exclude     map[string]bool
	log         zerolog.Logger

	mu      sync.RWMutex
	running bool
	last    *ScanResult
}

// New creates a scanner. The evaluator's Evaluate method is the production
// EvalFunc; tests swap it via SetEvaluator.
func New(market MarketData, regimes RegimeSource, cooldown *CooldownStore, ev *strategy.Evaluator, cfg Config, log zerolog.Logger) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.MaxSignals <= 0 {
		cfg.MaxSignals = defaultMaxSignals
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = defaultCandleLimit
	}
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = []string{"15m", "1h", "4h"}
	}
	if cfg.HigherTF == nil {
		cfg.HigherTF = map[string]string{"15m": "1h", "1h": "4h", "4h": "1d"}
	}
	excl := make(map[string]bool, len(cfg.Exclude))
	for _, s := range cfg.Exclude {
		excl[s] = true
	}
	return &Scanner{
		market:      market,
		regimes:     regimes,
		cooldown:    cooldown,
		evaluate:    ev.Evaluate,
		workers:     cfg.Workers,
		maxSignals:  cfg.MaxSignals,
		candleLimit: cfg.CandleLimit,
		timeframes:  cfg.Timeframes,
		higherTF:    cfg.HigherTF,
		exclude:     excl,
		log:         log.With().Str("component", "scanner").Logger(),
	}
}

// SetEvaluator replaces the candidate evaluator. Test hook.
func (s *Scanner) SetEvaluator(fn EvalFunc) {
	s.evaluate = fn
}

// Scan runs one full market pass for the given strategy and mode.
func (s *Scanner) Scan(ctx context.Context, kind strategy.Kind, mode strategy.Mode) (*ScanResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	profile := strategy.ProfileFor(kind)

	tickers, err := s.market.Tickers(ctx)
	if err != nil {
		return nil, err
	}
	universe := s.filterUniverse(tickers, profile)

	market := s.regimes.Composite(ctx)
	s.log.Info().Str("strategy", kind.String()).Str("mode", mode.Name).
		Stringer("market", market).Int("universe", len(universe)).Msg("scan started")

	symbols := make(chan binance.Ticker24h)
	results := make(chan *strategy.Candidate)
	var skipped int64
	var skippedMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range symbols {
				best, skip := s.scanSymbol(ctx, t, kind, profile, mode, market)
				if skip {
					skippedMu.Lock()
					skipped++
					skippedMu.Unlock()
					continue
				}
				if best != nil {
					results <- best
				}
			}
		}()
	}

	go func() {
		defer close(symbols)
		for _, t := range universe {
			select {
			case symbols <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var candidates []*strategy.Candidate
	for c := range results {
		candidates = append(candidates, c)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})
	if len(candidates) > s.maxSignals {
		candidates = candidates[:s.maxSignals]
	}
	for _, c := range candidates {
		s.cooldown.Mark(ctx, c.Symbol, kind.String())
	}

	result := &ScanResult{
		ScanID:     uuid.NewString(),
		Strategy:   kind.String(),
		Mode:       mode.Name,
		Market:     market,
		MarketName: market.String(),
		Signals:    candidates,
		Scanned:    len(universe),
		Skipped:    int(skipped),
		StartedAt:  start,
		Duration:   time.Since(start),
		DurationMS: time.Since(start).Milliseconds(),
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	s.log.Info().Str("scan_id", result.ScanID).Int("signals", len(candidates)).
		Dur("took", result.Duration).Msg("scan finished")
	return result, nil
}

// filterUniverse keeps spot USDT pairs above the strategy's volume bar,
// minus the configured exclusions.
func (s *Scanner) filterUniverse(tickers []binance.Ticker24h, p strategy.Profile) []binance.Ticker24h {
	out := make([]binance.Ticker24h, 0, len(tickers))
	for _, t := range tickers {
		if !binance.IsUSDTPair(t.Symbol) || s.exclude[t.Symbol] {
			continue
		}
		if t.QuoteVolume < p.MinQuoteVolume {
			continue
		}
		out = append(out, t)
	}
	return out
}

// scanSymbol evaluates every timeframe for one symbol and returns the
// highest-scoring candidate, or nil. skip=true means the symbol was under
// cooldown or pre-filtered before any evaluation ran.
func (s *Scanner) scanSymbol(ctx context.Context, t binance.Ticker24h, kind strategy.Kind, p strategy.Profile, m strategy.Mode, market regime.State) (best *strategy.Candidate, skip bool) {
	if s.cooldown.Active(ctx, t.Symbol, kind.String()) {
		return nil, true
	}

	// Mean-reversion buys weakness; a symbol already in a daily uptrend
	// offers no dip worth catching.
	if kind.MeanReversion() {
		daily, err := s.regimes.Regime(ctx, t.Symbol, "1d")
		if err == nil && daily == regime.Up {
			return nil, true
		}
	}

	filters, err := s.market.SymbolFilters(ctx, t.Symbol)
	if err != nil {
		s.log.Debug().Err(err).Str("symbol", t.Symbol).Msg("filters unavailable")
		return nil, false
	}
	book, err := s.market.BookTicker(ctx, t.Symbol)
	if err != nil {
		s.log.Debug().Err(err).Str("symbol", t.Symbol).Msg("book ticker unavailable")
		return nil, false
	}
	spread := book.SpreadPercent()

	type tfResult struct{ c *strategy.Candidate }
	results := make([]tfResult, len(s.timeframes))

	var wg sync.WaitGroup
	for i, tf := range s.timeframes {
		wg.Add(1)
		go func(i int, tf string) {
			defer wg.Done()
			klines, err := s.market.Klines(ctx, t.Symbol, tf, s.candleLimit)
			if err != nil {
				s.log.Debug().Err(err).Str("symbol", t.Symbol).Str("tf", tf).Msg("klines unavailable")
				return
			}
			if len(klines) == 0 {
				return
			}

			in := strategy.Input{
				Symbol:         t.Symbol,
				Timeframe:      tf,
				Klines:         klines,
				Price:          klines[len(klines)-1].Close,
				QuoteVolume24h: t.QuoteVolume,
				SpreadPct:      spread,
				TickSize:       filters.TickSize,
				Market:         market,
			}
			if higher, ok := s.higherTF[tf]; ok {
				if st, err := s.regimes.Regime(ctx, t.Symbol, higher); err == nil {
					in.HigherTF = st
					in.HigherTFKnown = true
				}
			}
			results[i].c = s.evaluate(in, p, m)
		}(i, tf)
	}
	wg.Wait()

	for _, r := range results {
		if r.c == nil {
			continue
		}
		if best == nil || r.c.Score > best.Score {
			best = r.c
		}
	}
	return best, false
}

// LastResult returns the most recent scan result, or nil.
func (s *Scanner) LastResult() *ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Status reports the scanner's current state.
func (s *Scanner) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Running:      s.running,
		CooldownSize: s.cooldown.Size(),
	}
	if s.last != nil {
		st.LastScanID = s.last.ScanID
		at := s.last.StartedAt
		st.LastScanAt = &at
		st.LastSignals = len(s.last.Signals)
	}
	return st
}

// RunScheduled repeats a scan on a fixed interval until ctx is done.
// Overlap and transient failures are logged and the loop continues.
func (s *Scanner) RunScheduled(ctx context.Context, interval time.Duration, kind strategy.Kind, mode strategy.Mode, deliver func(*ScanResult)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			res, err := s.Scan(ctx, kind, mode)
			if err != nil {
				if !errors.Is(err, ErrScanInProgress) {
					s.log.Warn().Err(err).Msg("scheduled scan failed")
				}
				continue
			}
			if deliver != nil && len(res.Signals) > 0 {
				deliver(res)
			}
		case <-ctx.Done():
			return
		}
	}
}
