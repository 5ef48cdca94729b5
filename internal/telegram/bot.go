// Package telegram is the delivery surface: a long-polling bot that lets
// allow-listed users pick a screening mode and receive formatted scan
// results.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kakamigomarket/bot-scan/internal/scanner"
	"github.com/kakamigomarket/bot-scan/internal/strategy"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	pollTimeoutSec = 30
)

// Button labels. Kept verbatim; they double as the message-routing keys.
const (
	btnRetail = "🟢 Retail Mode"
	btnPro    = "🧠 Pro Mode"
	btnInfo   = "ℹ️ Info"
	btnHelp   = "🆘 Help"
)

var mainKeyboard = map[string]interface{}{
	"keyboard": [][]map[string]string{
		{{"text": btnRetail}, {"text": btnPro}},
		{{"text": btnInfo}, {"text": btnHelp}},
	},
	"resize_keyboard": true,
}

// scanRunner is the slice of the scanner the bot drives.
type scanRunner interface {
	Scan(ctx context.Context, kind strategy.Kind, mode strategy.Mode) (*scanner.ScanResult, error)
}

// Bot long-polls getUpdates and answers with the reply keyboard. One scan
// request runs all strategy families for the chosen mode.
type Bot struct {
	token   string
	apiBase string
	client  *http.Client
	runner  scanRunner
	allowed map[int64]bool
	log     zerolog.Logger

	mu         sync.Mutex
	modeByChat map[int64]string
}

// New creates a bot. allowedIDs empty means no allow-list (open bot).
func New(token string, allowedIDs []int64, runner scanRunner, log zerolog.Logger) *Bot {
	allowed := make(map[int64]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = true
	}
	return &Bot{
		token:   token,
		apiBase: defaultAPIBase,
		// Long polls hold the connection for pollTimeoutSec; leave headroom.
		client:     &http.Client{Timeout: (pollTimeoutSec + 10) * time.Second},
		runner:     runner,
		allowed:    allowed,
		modeByChat: make(map[int64]string),
		log:        log.With().Str("component", "telegram").Logger(),
	}
}

// SetAPIBase overrides the Telegram API endpoint. Test hook.
func (b *Bot) SetAPIBase(base string) {
	b.apiBase = base
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			ID int64 `json:"id"`
		} `json:"from"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

// Run long-polls until ctx is done. Poll failures back off and retry; they
// are never fatal.
func (b *Bot) Run(ctx context.Context) {
	b.log.Info().Msg("bot started")
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := b.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.Warn().Err(err).Msg("getUpdates failed")
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			b.handleMessage(ctx, u.Message.Chat.ID, u.Message.From.ID, u.Message.Text)
		}
	}
}

func (b *Bot) getUpdates(ctx context.Context, offset int64) ([]update, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d&offset=%d", b.apiBase, b.token, pollTimeoutSec, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("getUpdates status %d: %s", resp.StatusCode, body)
	}
	var out updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("getUpdates not ok")
	}
	return out.Result, nil
}

func (b *Bot) handleMessage(ctx context.Context, chatID, userID int64, text string) {
	switch text {
	case "/start":
		b.send(ctx, chatID, "🤖 Selamat datang di Bot Sinyal Trading Crypto!\nPilih menu di bawah ini:", mainKeyboard)
	case btnRetail:
		b.startScan(ctx, chatID, userID, "retail", "🔍 Memulai scan untuk Retail Mode...")
	case btnPro:
		b.startScan(ctx, chatID, userID, "pro", "🔍 Memulai scan untuk Pro Mode...")
	case btnInfo:
		b.send(ctx, chatID, infoText(), nil)
	case btnHelp:
		b.send(ctx, chatID, "💬 Hubungi admin @KikioOreo untuk bantuan atau aktivasi.", nil)
	default:
		b.send(ctx, chatID, "Gunakan menu di bawah ini:", mainKeyboard)
	}
}

func (b *Bot) startScan(ctx context.Context, chatID, userID int64, modeName, ack string) {
	if !b.authorized(userID) {
		b.send(ctx, chatID, "⛔ Akses ditolak. Kamu tidak terdaftar sebagai pengguna.", nil)
		return
	}
	mode, err := strategy.ParseMode(modeName)
	if err != nil {
		b.log.Error().Err(err).Str("mode", modeName).Msg("mode lookup failed")
		return
	}

	b.mu.Lock()
	b.modeByChat[chatID] = mode.Name
	b.mu.Unlock()

	b.send(ctx, chatID, ack, nil)

	go func() {
		for _, kind := range []strategy.Kind{strategy.DipAccumulation, strategy.ReversalSwing, strategy.Breakout} {
			res, err := b.runner.Scan(ctx, kind, mode)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				b.log.Warn().Err(err).Str("strategy", kind.String()).Msg("scan failed")
				b.send(ctx, chatID, fmt.Sprintf("⚠️ Scan %s gagal, coba lagi nanti.", kind.DisplayName()), nil)
				continue
			}
			b.send(ctx, chatID, FormatResult(res, kind), nil)
		}
	}()
}

func (b *Bot) authorized(userID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	return b.allowed[userID]
}

// Mode returns the last mode a chat selected, defaulting to retail.
func (b *Bot) Mode(chatID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.modeByChat[chatID]; ok {
		return m
	}
	return "retail"
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, replyMarkup map[string]interface{}) {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if replyMarkup != nil {
		payload["reply_markup"] = replyMarkup
	}
	body, err := json.Marshal(payload)
	if err != nil {
		b.log.Error().Err(err).Msg("marshal sendMessage payload")
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", b.apiBase, b.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		b.log.Error().Err(err).Msg("build sendMessage request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("sendMessage failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b.log.Warn().Int("status", resp.StatusCode).Int64("chat_id", chatID).Msg("sendMessage rejected")
	}
}

func infoText() string {
	return "📌 Jadwal Ideal Strategi:\n" +
		"🔴 Jemput Bola: 07.30–08.30 WIB\n" +
		"🟡 Rebound Swing: Siang–Sore\n" +
		"🟢 Scalping Breakout: Malam 19.00–22.00 WIB\n" +
		"Gunakan sesuai momentum pasar & arah BTC!"
}
