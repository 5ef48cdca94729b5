package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kakamigomarket/bot-scan/internal/binance"
	"github.com/kakamigomarket/bot-scan/internal/regime"
	"github.com/kakamigomarket/bot-scan/internal/strategy"
)

type fakeMarket struct {
	tickers []binance.Ticker24h
}

func (f *fakeMarket) Tickers(ctx context.Context) ([]binance.Ticker24h, error) {
	return f.tickers, nil
}

func (f *fakeMarket) BookTicker(ctx context.Context, symbol string) (*binance.BookTicker, error) {
	return &binance.BookTicker{Symbol: symbol, BidPrice: 99.95, AskPrice: 100.05}, nil
}

func (f *fakeMarket) Klines(ctx context.Context, symbol, interval string, limit int) ([]binance.Kline, error) {
	out := make([]binance.Kline, limit)
	for i := range out {
		out[i] = binance.Kline{Open: 100, High: 100.5, Low: 99.5, Close: 100, Volume: 1000, TradeCount: 500}
	}
	return out, nil
}

func (f *fakeMarket) SymbolFilters(ctx context.Context, symbol string) (*binance.SymbolFilters, error) {
	return &binance.SymbolFilters{Symbol: symbol, TickSize: 0.01, StepSize: 0.001}, nil
}

type fakeRegimes struct {
	composite regime.State
	perSymbol map[string]regime.State
}

func (f *fakeRegimes) Composite(ctx context.Context) regime.State {
	return f.composite
}

func (f *fakeRegimes) Regime(ctx context.Context, symbol, interval string) (regime.State, error) {
	if st, ok := f.perSymbol[symbol]; ok {
		return st, nil
	}
	return regime.Sideways, nil
}

func tickersFor(symbols ...string) []binance.Ticker24h {
	out := make([]binance.Ticker24h, len(symbols))
	for i, s := range symbols {
		out[i] = binance.Ticker24h{Symbol: s, LastPrice: 100, QuoteVolume: 20_000_000}
	}
	return out
}

// scoreBySymbol returns an evaluator stub that emits one candidate per
// listed symbol on the 1h timeframe, with the given score.
func scoreBySymbol(scores map[string]float64) EvalFunc {
	return func(in strategy.Input, p strategy.Profile, m strategy.Mode) *strategy.Candidate {
		score, ok := scores[in.Symbol]
		if !ok || in.Timeframe != "1h" {
			return nil
		}
		return &strategy.Candidate{
			Symbol:    in.Symbol,
			Timeframe: in.Timeframe,
			Strategy:  p.Kind,
			Entry:     in.Price,
			Score:     score,
			CreatedAt: time.Now(),
		}
	}
}

func newTestScanner(t *testing.T, market MarketData, regimes RegimeSource, cooldown *CooldownStore) *Scanner {
	t.Helper()
	ev := strategy.NewEvaluator(strategy.DefaultWeights, strategy.DefaultFees, zerolog.Nop())
	return New(market, regimes, cooldown, ev, Config{Workers: 4, MaxSignals: 5}, zerolog.Nop())
}

func TestScanRanksAndCaps(t *testing.T) {
	market := &fakeMarket{tickers: tickersFor("AUSDT", "BUSDT", "CUSDT", "DUSDT", "EUSDT", "FUSDT", "GUSDT")}
	cooldown := NewCooldownStore(45*time.Minute, zerolog.Nop())
	sc := newTestScanner(t, market, &fakeRegimes{composite: regime.Up}, cooldown)

	sc.SetEvaluator(scoreBySymbol(map[string]float64{
		"AUSDT": 5.0, "BUSDT": 7.5, "CUSDT": 6.0, "DUSDT": 4.5,
		"EUSDT": 8.0, "FUSDT": 5.5, "GUSDT": 9.0,
	}))

	res, err := sc.Scan(context.Background(), strategy.Breakout, mustMode(t, "retail"))
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Signals) != 5 {
		t.Fatalf("signals = %d, want the cap of 5", len(res.Signals))
	}
	if res.Signals[0].Symbol != "GUSDT" || res.Signals[0].Score != 9.0 {
		t.Errorf("top signal = %s (%.1f), want GUSDT (9.0)", res.Signals[0].Symbol, res.Signals[0].Score)
	}
	for i := 1; i < len(res.Signals); i++ {
		if res.Signals[i].Score > res.Signals[i-1].Score {
			t.Errorf("signals out of order at %d: %.1f > %.1f", i, res.Signals[i].Score, res.Signals[i-1].Score)
		}
	}
	// AUSDT (5.0) and DUSDT (4.5) are the two lowest and fall to the cap.
	for _, c := range res.Signals {
		if c.Symbol == "AUSDT" || c.Symbol == "DUSDT" {
			t.Errorf("%s should have been cut by the cap", c.Symbol)
		}
	}
	if res.Scanned != 7 {
		t.Errorf("Scanned = %d, want 7", res.Scanned)
	}
	if res.ScanID == "" {
		t.Error("scan id must be set")
	}
}

func TestScanMarksAndHonorsCooldown(t *testing.T) {
	market := &fakeMarket{tickers: tickersFor("AUSDT", "BUSDT")}
	now := time.Now()
	clock := func() time.Time { return now }
	cooldown := NewCooldownStoreWithClock(45*time.Minute, clock, zerolog.Nop())
	sc := newTestScanner(t, market, &fakeRegimes{composite: regime.Up}, cooldown)
	sc.SetEvaluator(scoreBySymbol(map[string]float64{"AUSDT": 6.0, "BUSDT": 5.0}))

	first, err := sc.Scan(context.Background(), strategy.Breakout, mustMode(t, "retail"))
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Signals) != 2 {
		t.Fatalf("first scan signals = %d, want 2", len(first.Signals))
	}

	// Within the window both pairs are suppressed.
	second, err := sc.Scan(context.Background(), strategy.Breakout, mustMode(t, "retail"))
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Signals) != 0 {
		t.Errorf("second scan signals = %d, want 0 under cooldown", len(second.Signals))
	}
	if second.Skipped != 2 {
		t.Errorf("second scan skipped = %d, want 2", second.Skipped)
	}

	// A different strategy is not suppressed by the breakout marks.
	other, err := sc.Scan(context.Background(), strategy.DipAccumulation, mustMode(t, "retail"))
	if err != nil {
		t.Fatal(err)
	}
	if len(other.Signals) != 2 {
		t.Errorf("other-strategy signals = %d, want 2", len(other.Signals))
	}

	// After the window the pairs come back.
	now = now.Add(46 * time.Minute)
	third, err := sc.Scan(context.Background(), strategy.Breakout, mustMode(t, "retail"))
	if err != nil {
		t.Fatal(err)
	}
	if len(third.Signals) != 2 {
		t.Errorf("post-expiry signals = %d, want 2", len(third.Signals))
	}
}

func TestScanFiltersUniverse(t *testing.T) {
	market := &fakeMarket{tickers: []binance.Ticker24h{
		{Symbol: "AUSDT", QuoteVolume: 20_000_000},
		{Symbol: "LOWUSDT", QuoteVolume: 1_000_000},    // below the breakout bar
		{Symbol: "ETHBTC", QuoteVolume: 50_000_000},    // not a USDT pair
		{Symbol: "XYZUPUSDT", QuoteVolume: 50_000_000}, // leveraged token
		{Symbol: "SKIPUSDT", QuoteVolume: 50_000_000},  // explicitly excluded
	}}
	cooldown := NewCooldownStore(45*time.Minute, zerolog.Nop())
	ev := strategy.NewEvaluator(strategy.DefaultWeights, strategy.DefaultFees, zerolog.Nop())
	sc := New(market, &fakeRegimes{composite: regime.Up}, cooldown, ev,
		Config{Workers: 2, Exclude: []string{"SKIPUSDT"}}, zerolog.Nop())
	sc.SetEvaluator(scoreBySymbol(map[string]float64{
		"AUSDT": 5, "LOWUSDT": 5, "ETHBTC": 5, "XYZUPUSDT": 5, "SKIPUSDT": 5,
	}))

	res, err := sc.Scan(context.Background(), strategy.Breakout, mustMode(t, "retail"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Scanned != 1 {
		t.Errorf("Scanned = %d, want only AUSDT", res.Scanned)
	}
	if len(res.Signals) != 1 || res.Signals[0].Symbol != "AUSDT" {
		t.Errorf("signals = %+v, want just AUSDT", res.Signals)
	}
}

func TestScanSkipsMeanReversionInDailyUptrend(t *testing.T) {
	market := &fakeMarket{tickers: tickersFor("AUSDT", "BUSDT")}
	regimes := &fakeRegimes{
		composite: regime.Sideways,
		perSymbol: map[string]regime.State{"AUSDT": regime.Up},
	}
	cooldown := NewCooldownStore(45*time.Minute, zerolog.Nop())
	sc := newTestScanner(t, market, regimes, cooldown)
	sc.SetEvaluator(scoreBySymbol(map[string]float64{"AUSDT": 6, "BUSDT": 5}))

	res, err := sc.Scan(context.Background(), strategy.DipAccumulation, mustMode(t, "retail"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Signals) != 1 || res.Signals[0].Symbol != "BUSDT" {
		t.Errorf("signals = %+v, want only BUSDT", res.Signals)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
}

func TestLastResultAndStatus(t *testing.T) {
	market := &fakeMarket{tickers: tickersFor("AUSDT")}
	cooldown := NewCooldownStore(45*time.Minute, zerolog.Nop())
	sc := newTestScanner(t, market, &fakeRegimes{composite: regime.Up}, cooldown)
	sc.SetEvaluator(scoreBySymbol(map[string]float64{"AUSDT": 6}))

	if sc.LastResult() != nil {
		t.Error("LastResult before any scan should be nil")
	}
	st := sc.Status()
	if st.Running || st.LastScanID != "" {
		t.Errorf("idle status = %+v", st)
	}

	res, err := sc.Scan(context.Background(), strategy.Breakout, mustMode(t, "retail"))
	if err != nil {
		t.Fatal(err)
	}

	if got := sc.LastResult(); got == nil || got.ScanID != res.ScanID {
		t.Error("LastResult should return the completed scan")
	}
	st = sc.Status()
	if st.LastScanID != res.ScanID || st.LastSignals != 1 {
		t.Errorf("status after scan = %+v", st)
	}
}

func mustMode(t *testing.T, name string) strategy.Mode {
	t.Helper()
	m, err := strategy.ParseMode(name)
	if err != nil {
		t.Fatal(err)
	}
	return m
}
