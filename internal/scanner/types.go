package scanner

import (
	"time"

	"github.com/kakamigomarket/bot-scan/internal/regime"
	"github.com/kakamigomarket/bot-scan/internal/strategy"
)

// ScanResult is the outcome of one full market pass.
type ScanResult struct {
	ScanID     string                `json:"scan_id"`
	Strategy   string                `json:"strategy"`
	Mode       string                `json:"mode"`
	Market     regime.State          `json:"-"`
	MarketName string                `json:"market_regime"`
	Signals    []*strategy.Candidate `json:"signals"`
	Scanned    int                   `json:"symbols_scanned"`
	Skipped    int                   `json:"symbols_skipped"`
	StartedAt  time.Time             `json:"started_at"`
	Duration   time.Duration         `json:"-"`
	DurationMS int64                 `json:"duration_ms"`
}

// Status is a point-in-time view of the scanner for the ops endpoints.
type Status struct {
	Running      bool       `json:"running"`
	LastScanID   string     `json:"last_scan_id,omitempty"`
	LastScanAt   *time.Time `json:"last_scan_at,omitempty"`
	LastSignals  int        `json:"last_signals"`
	CooldownSize int        `json:"cooldown_size"`
}
