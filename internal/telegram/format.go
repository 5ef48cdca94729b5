package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kakamigomarket/bot-scan/internal/scanner"
	"github.com/kakamigomarket/bot-scan/internal/strategy"
)

// FormatResult renders a scan result as a chat message. Prices come in
// already tick-rounded; formatPrice only trims trailing zeros.
func FormatResult(res *scanner.ScanResult, kind strategy.Kind) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s | Mode: %s | Market: %s\n", kind.DisplayName(), res.Mode, res.MarketName)

	if len(res.Signals) == 0 {
		sb.WriteString("Tidak ada sinyal yang lolos screening saat ini.")
		return sb.String()
	}

	for i, c := range res.Signals {
		fmt.Fprintf(&sb, "\n%d. %s (%s) — skor %.1f\n", i+1, c.Symbol, c.Timeframe, c.Score)
		fmt.Fprintf(&sb, "   Entry: %s\n", formatPrice(c.Entry))
		fmt.Fprintf(&sb, "   TP1: %s (+%.2f%%) | TP2: %s (+%.2f%%)\n",
			formatPrice(c.TP1), c.TP1Pct, formatPrice(c.TP2), c.TP2Pct)
		fmt.Fprintf(&sb, "   SL: %s (%.2f%%)\n", formatPrice(c.StopLoss), c.StopPct)
		if summary := c.Evidence.Summary(); len(summary) > 0 {
			fmt.Fprintf(&sb, "   Konfirmasi: %s\n", strings.Join(summary, ", "))
		}
	}

	fmt.Fprintf(&sb, "\n⏱ %d pair discan dalam %dms", res.Scanned, res.DurationMS)
	return sb.String()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
