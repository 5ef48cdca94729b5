package binance

// Kline represents a single OHLCV candlestick. A fetched window is ordered
// oldest to newest and is never mutated after it leaves the gateway.
type Kline struct {
	OpenTime    int64   `json:"openTime"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	CloseTime   int64   `json:"closeTime"`
	QuoteVolume float64 `json:"quoteVolume"`
	TradeCount  int     `json:"tradeCount"`
}

// Ticker24h represents 24hr rolling ticker statistics for one symbol.
type Ticker24h struct {
	Symbol             string  `json:"symbol"`
	LastPrice          float64 `json:"lastPrice,string"`
	QuoteVolume        float64 `json:"quoteVolume,string"`
	PriceChangePercent float64 `json:"priceChangePercent,string"`
}

// BookTicker represents the current best bid/ask for one symbol.
type BookTicker struct {
	Symbol   string  `json:"symbol"`
	BidPrice float64 `json:"bidPrice,string"`
	AskPrice float64 `json:"askPrice,string"`
}

// SpreadPercent returns the bid/ask spread as a percentage of the mid price.
// Returns 0 when the book is empty or crossed.
func (b BookTicker) SpreadPercent() float64 {
	if b.BidPrice <= 0 || b.AskPrice <= 0 || b.AskPrice < b.BidPrice {
		return 0
	}
	mid := (b.BidPrice + b.AskPrice) / 2
	if mid == 0 {
		return 0
	}
	return (b.AskPrice - b.BidPrice) / mid * 100
}

// SymbolFilters holds the trading filters needed to round emitted prices
// and quantities to exchange-valid precision.
type SymbolFilters struct {
	Symbol   string
	TickSize float64
	StepSize float64
}

// exchangeInfo mirrors the subset of GET /api/v3/exchangeInfo we consume.
type exchangeInfo struct {
	Symbols []exchangeSymbol `json:"symbols"`
}

type exchangeSymbol struct {
	Symbol     string           `json:"symbol"`
	Status     string           `json:"status"`
	QuoteAsset string           `json:"quoteAsset"`
	Filters    []exchangeFilter `json:"filters"`
}

type exchangeFilter struct {
	FilterType string `json:"filterType"`
	TickSize   string `json:"tickSize"`
	StepSize   string `json:"stepSize"`
}

// priceTicker mirrors GET /api/v3/ticker/price.
type priceTicker struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price,string"`
}
