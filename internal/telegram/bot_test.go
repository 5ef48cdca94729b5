package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kakamigomarket/bot-scan/internal/scanner"
	"github.com/kakamigomarket/bot-scan/internal/strategy"
)

type stubRunner struct {
	mu    sync.Mutex
	calls []strategy.Kind
}

func (s *stubRunner) Scan(ctx context.Context, kind strategy.Kind, mode strategy.Mode) (*scanner.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, kind)
	return &scanner.ScanResult{ScanID: "test", Mode: mode.Name, MarketName: "UP"}, nil
}

func (s *stubRunner) kinds() []strategy.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]strategy.Kind{}, s.calls...)
}

// sentMessage captures one sendMessage payload.
type sentMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func captureServer(t *testing.T) (*httptest.Server, func() []sentMessage) {
	t.Helper()
	var mu sync.Mutex
	var sent []sentMessage

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			var msg sentMessage
			if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
				t.Errorf("bad sendMessage payload: %v", err)
			}
			mu.Lock()
			sent = append(sent, msg)
			mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	t.Cleanup(ts.Close)

	return ts, func() []sentMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]sentMessage{}, sent...)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestBotRejectsUnlistedUser(t *testing.T) {
	ts, sent := captureServer(t)
	runner := &stubRunner{}
	bot := New("token", []int64{1000}, runner, zerolog.Nop())
	bot.SetAPIBase(ts.URL)

	bot.handleMessage(context.Background(), 42, 999, btnRetail)

	msgs := sent()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "Akses ditolak") {
		t.Errorf("reply = %q, want access denied", msgs[0].Text)
	}
	if len(runner.kinds()) != 0 {
		t.Error("no scan should run for an unlisted user")
	}
}

func TestBotRunsAllStrategiesOnModeSelect(t *testing.T) {
	ts, sent := captureServer(t)
	runner := &stubRunner{}
	bot := New("token", []int64{1000}, runner, zerolog.Nop())
	bot.SetAPIBase(ts.URL)

	bot.handleMessage(context.Background(), 42, 1000, btnPro)

	waitFor(t, func() bool { return len(runner.kinds()) == 3 })

	kinds := runner.kinds()
	want := []strategy.Kind{strategy.DipAccumulation, strategy.ReversalSwing, strategy.Breakout}
	for i, k := range want {
		if kinds[i] != k {
			t.Errorf("scan %d ran %v, want %v", i, kinds[i], k)
		}
	}
	if got := bot.Mode(42); got != "pro" {
		t.Errorf("chat mode = %q, want pro", got)
	}

	// Ack plus one result message per strategy.
	waitFor(t, func() bool { return len(sent()) == 4 })
}

func TestBotOpenWhenNoAllowList(t *testing.T) {
	ts, _ := captureServer(t)
	runner := &stubRunner{}
	bot := New("token", nil, runner, zerolog.Nop())
	bot.SetAPIBase(ts.URL)

	bot.handleMessage(context.Background(), 42, 7, btnRetail)

	waitFor(t, func() bool { return len(runner.kinds()) == 3 })
}

func TestBotUnknownTextShowsKeyboard(t *testing.T) {
	ts, sent := captureServer(t)
	bot := New("token", nil, &stubRunner{}, zerolog.Nop())
	bot.SetAPIBase(ts.URL)

	bot.handleMessage(context.Background(), 42, 7, "apa ini")

	msgs := sent()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Gunakan menu") {
		t.Errorf("unexpected replies: %+v", msgs)
	}
}
