package strategy

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"jemput-bola", DipAccumulation},
		{"dip", DipAccumulation},
		{"🔴 Jemput Bola", DipAccumulation},
		{"rebound-swing", ReversalSwing},
		{"Reversal", ReversalSwing},
		{"scalping breakout", Breakout},
		{"BREAKOUT", Breakout},
		{"🟢 Scalping Breakout", Breakout},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil {
			t.Errorf("ParseKind(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseKindUnknown(t *testing.T) {
	_, err := ParseKind("martingale")
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("ParseKind error = %v, want ErrUnknownStrategy", err)
	}
}

func TestParseMode(t *testing.T) {
	retail, err := ParseMode("retail")
	if err != nil {
		t.Fatalf("ParseMode(retail) error: %v", err)
	}
	if retail.RequireMultiTF {
		t.Error("retail mode must not require multi-timeframe confirmation")
	}

	pro, err := ParseMode(" PRO ")
	if err != nil {
		t.Fatalf("ParseMode(pro) error: %v", err)
	}
	if !pro.RequireMultiTF {
		t.Error("pro mode must require multi-timeframe confirmation")
	}
	if pro.ADXMin <= retail.ADXMin {
		t.Errorf("pro ADX bar %f should exceed retail %f", pro.ADXMin, retail.ADXMin)
	}

	if _, err := ParseMode("degen"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("ParseMode error = %v, want ErrUnknownMode", err)
	}
}

func TestMeanReversion(t *testing.T) {
	if !DipAccumulation.MeanReversion() || !ReversalSwing.MeanReversion() {
		t.Error("dip and reversal are counter-trend families")
	}
	if Breakout.MeanReversion() {
		t.Error("breakout is not a counter-trend family")
	}
}

func TestProfileVolumeBars(t *testing.T) {
	if bk, dip := ProfileFor(Breakout), ProfileFor(DipAccumulation); bk.MinQuoteVolume <= dip.MinQuoteVolume {
		t.Errorf("breakout volume bar %f should exceed dip %f", bk.MinQuoteVolume, dip.MinQuoteVolume)
	}
}
