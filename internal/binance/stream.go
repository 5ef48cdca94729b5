package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// miniTickerEvent mirrors one element of the !miniTicker@arr stream payload.
type miniTickerEvent struct {
	Symbol      string `json:"s"`
	ClosePrice  string `json:"c"`
	QuoteVolume string `json:"q"`
	OpenPrice   string `json:"o"`
}

// TickerStream keeps the gateway's price/ticker cache warm from the
// exchange-wide miniTicker websocket stream, cutting REST pressure during
// scans. Losing the stream only degrades to REST fetches, so reconnects
// are retried forever with a capped backoff.
type TickerStream struct {
	url     string
	gateway *Gateway
	log     zerolog.Logger
}

// NewTickerStream creates a stream against the given websocket URL
// (e.g. wss://stream.binance.com:9443/ws/!miniTicker@arr).
func NewTickerStream(url string, gw *Gateway, log zerolog.Logger) *TickerStream {
	return &TickerStream{
		url:     url,
		gateway: gw,
		log:     log.With().Str("component", "ticker-stream").Logger(),
	}
}

// Run connects and consumes the stream until ctx is cancelled.
func (s *TickerStream) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.consume(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Dur("backoff", backoff).Msg("stream disconnected, reconnecting")
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *TickerStream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Str("url", s.url).Msg("ticker stream connected")

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var events []miniTickerEvent
		if err := json.Unmarshal(msg, &events); err != nil {
			s.log.Debug().Err(err).Msg("skipping unparseable stream frame")
			continue
		}
		for _, ev := range events {
			if !IsUSDTPair(ev.Symbol) {
				continue
			}
			last, _ := strconv.ParseFloat(ev.ClosePrice, 64)
			qv, _ := strconv.ParseFloat(ev.QuoteVolume, 64)
			open, _ := strconv.ParseFloat(ev.OpenPrice, 64)
			changePct := 0.0
			if open > 0 {
				changePct = (last - open) / open * 100
			}
			s.gateway.WarmTicker(Ticker24h{
				Symbol:             ev.Symbol,
				LastPrice:          last,
				QuoteVolume:        qv,
				PriceChangePercent: changePct,
			})
		}
	}
}
