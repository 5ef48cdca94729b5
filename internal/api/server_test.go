package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kakamigomarket/bot-scan/internal/scanner"
	"github.com/kakamigomarket/bot-scan/internal/strategy"
)

type stubScanner struct {
	last    *scanner.ScanResult
	scanErr error
}

func (s *stubScanner) Scan(ctx context.Context, kind strategy.Kind, mode strategy.Mode) (*scanner.ScanResult, error) {
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	res := &scanner.ScanResult{ScanID: "scan-1", Strategy: kind.String(), Mode: mode.Name}
	s.last = res
	return res, nil
}

func (s *stubScanner) LastResult() *scanner.ScanResult {
	return s.last
}

func (s *stubScanner) Status() scanner.Status {
	return scanner.Status{Running: false, CooldownSize: 3}
}

func newTestServer(sc ScannerAPI) *Server {
	return NewServer(":0", sc, true, zerolog.Nop())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&stubScanner{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestLatestBeforeAnyScan(t *testing.T) {
	srv := newTestServer(&stubScanner{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scan/latest", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestTriggerScan(t *testing.T) {
	stub := &stubScanner{}
	srv := newTestServer(stub)

	body := strings.NewReader(`{"strategy": "breakout", "mode": "pro"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", body)
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var res scanner.ScanResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Strategy != "scalping-breakout" || res.Mode != "pro" {
		t.Errorf("result = %+v", res)
	}

	// The result is now retrievable.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/scan/latest", nil)
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("latest after scan status = %d, want 200", w.Code)
	}
}

func TestTriggerScanBadStrategy(t *testing.T) {
	srv := newTestServer(&stubScanner{})

	body := strings.NewReader(`{"strategy": "martingale"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", body)
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTriggerScanConflict(t *testing.T) {
	srv := newTestServer(&stubScanner{scanErr: scanner.ErrScanInProgress})

	body := strings.NewReader(`{"strategy": "dip"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", body)
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(&stubScanner{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var st scanner.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.CooldownSize != 3 {
		t.Errorf("cooldown size = %d, want 3", st.CooldownSize)
	}
}
