package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Client is a thin REST client for the Binance spot public endpoints.
// It performs no caching, retries or concurrency limiting; that is the
// Gateway's job.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a REST client against the given base URL
// (e.g. https://api.binance.com).
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("component", "binance").Logger(),
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response %s: %w", path, err)
	}
	return nil
}

// GetPrice fetches the last traded price for a symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var t priceTicker
	if err := c.get(ctx, "/api/v3/ticker/price", params, &t); err != nil {
		return 0, err
	}
	return t.Price, nil
}

// Get24hTickers fetches 24hr ticker statistics for every symbol on the
// exchange in a single call.
func (c *Client) Get24hTickers(ctx context.Context) ([]Ticker24h, error) {
	var tickers []Ticker24h
	if err := c.get(ctx, "/api/v3/ticker/24hr", nil, &tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

// Get24hTicker fetches 24hr ticker statistics for one symbol.
func (c *Client) Get24hTicker(ctx context.Context, symbol string) (*Ticker24h, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var t Ticker24h
	if err := c.get(ctx, "/api/v3/ticker/24hr", params, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetBookTicker fetches the current top-of-book bid/ask for a symbol.
func (c *Client) GetBookTicker(ctx context.Context, symbol string) (*BookTicker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var b BookTicker
	if err := c.get(ctx, "/api/v3/ticker/bookTicker", params, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetKlines fetches candlestick data, oldest first.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var raw [][]interface{}
	if err := c.get(ctx, "/api/v3/klines", params, &raw); err != nil {
		return nil, err
	}

	klines := make([]Kline, len(raw))
	for i, r := range raw {
		if len(r) < 9 {
			return nil, fmt.Errorf("malformed kline row for %s: %d fields", symbol, len(r))
		}
		klines[i] = Kline{
			OpenTime:    asInt64(r[0]),
			Open:        parseFloat(r[1]),
			High:        parseFloat(r[2]),
			Low:         parseFloat(r[3]),
			Close:       parseFloat(r[4]),
			Volume:      parseFloat(r[5]),
			CloseTime:   asInt64(r[6]),
			QuoteVolume: parseFloat(r[7]),
			TradeCount:  int(asInt64(r[8])),
		}
	}
	return klines, nil
}

// GetSymbolFilters fetches the trading filters (price tick, quantity step)
// for one symbol.
func (c *Client) GetSymbolFilters(ctx context.Context, symbol string) (*SymbolFilters, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var info exchangeInfo
	if err := c.get(ctx, "/api/v3/exchangeInfo", params, &info); err != nil {
		return nil, err
	}
	if len(info.Symbols) == 0 {
		return nil, fmt.Errorf("no exchange info for %s", symbol)
	}
	return filtersFromSymbol(info.Symbols[0]), nil
}

func filtersFromSymbol(s exchangeSymbol) *SymbolFilters {
	f := &SymbolFilters{Symbol: s.Symbol}
	for _, flt := range s.Filters {
		switch flt.FilterType {
		case "PRICE_FILTER":
			f.TickSize, _ = strconv.ParseFloat(flt.TickSize, 64)
		case "LOT_SIZE":
			f.StepSize, _ = strconv.ParseFloat(flt.StepSize, 64)
		}
	}
	return f
}

func parseFloat(v interface{}) float64 {
	switch x := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	case float64:
		return x
	}
	return 0
}

func asInt64(v interface{}) int64 {
	if f, ok := v.(float64); ok {
		return int64(f)
	}
	return 0
}
