package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/QwQ-dev/LiveStatus/internal/config"
	"github.com/QwQ-dev/LiveStatus/internal/models"
	"github.com/QwQ-dev/LiveStatus/internal/scheduler"
	"github.com/QwQ-dev/LiveStatus/internal/settings"
	"github.com/QwQ-dev/LiveStatus/pkg/status"
)

type fakeStats scheduler.Stats

func (f fakeStats) Stats() scheduler.Stats {
	return scheduler.Stats(f)
}

type fakeMessage string

func (f fakeMessage) Text() (string, time.Time) {
	return string(f), time.Now()
}

type fakeErrors struct {
	logs  []*models.ErrorLog
	err   error
	limit int
}

func (f *fakeErrors) RecentErrors(limit int) ([]*models.ErrorLog, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.logs) {
		return f.logs[:limit], nil
	}
	return f.logs, nil
}

func newTestMux(stats scheduler.Stats, errs ErrorReader) *http.ServeMux {
	store := settings.NewMemory(settings.Values{URL: "https://x", AuthKey: "k", UpdateIntervalSecs: 7})
	h := NewHandler(store, fakeStats(stats), fakeMessage("Reporting: Firefox"), errs)
	mux := http.NewServeMux()
	h.SetupRoutes(mux)
	return mux
}

func TestHandleStatus(t *testing.T) {
	lastTick := time.Now().Add(-90 * time.Second)
	mux := newTestMux(scheduler.Stats{
		Running:    true,
		Ticks:      12,
		LastTick:   lastTick,
		LastStatus: status.New("firefox", "Firefox"),
	}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	tests := []struct {
		key  string
		want interface{}
	}{
		{"running", true},
		{"configured", true},
		{"interval_secs", float64(7)},
		{"indicator", "Reporting: Firefox"},
		{"ticks", float64(12)},
		{"last_tick_ago", "1m"},
	}
	for _, tt := range tests {
		if body[tt.key] != tt.want {
			t.Errorf("%s = %v, want %v", tt.key, body[tt.key], tt.want)
		}
	}

	last, ok := body["last_status"].(map[string]interface{})
	if !ok {
		t.Fatalf("last_status = %v", body["last_status"])
	}
	if last["app_name"] != "Firefox" || last["os_name"] != status.Platform {
		t.Errorf("last_status = %v", last)
	}
}

func TestHandleStatusBeforeFirstTick(t *testing.T) {
	mux := newTestMux(scheduler.Stats{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["last_status"] != nil || body["last_tick"] != nil {
		t.Errorf("expected null last_status and last_tick, got %v", body)
	}
}

func TestHandleStatusMethod(t *testing.T) {
	mux := newTestMux(scheduler.Stats{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status code = %d, want 405", rec.Code)
	}
}

func TestHandleErrors(t *testing.T) {
	errs := &fakeErrors{logs: []*models.ErrorLog{
		{ID: 3, Kind: "rejected", StatusCode: 500},
		{ID: 2, Kind: "transport", ErrorMsg: "connection refused"},
		{ID: 1, Kind: "rejected", StatusCode: 401},
	}}
	mux := newTestMux(scheduler.Stats{}, errs)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLen   int
		wantLimit int
	}{
		{"default limit", "", http.StatusOK, 3, defaultErrorLimit},
		{"explicit limit", "?limit=2", http.StatusOK, 2, 2},
		{"capped limit", "?limit=100000", http.StatusOK, 3, maxErrorLimit},
		{"invalid limit", "?limit=abc", http.StatusBadRequest, 0, 0},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs.limit = 0
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/errors"+tt.query, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var logs []models.ErrorLog
			if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(logs) != tt.wantLen {
				t.Errorf("got %d logs, want %d", len(logs), tt.wantLen)
			}
			if errs.limit != tt.wantLimit {
				t.Errorf("repository limit = %d, want %d", errs.limit, tt.wantLimit)
			}
		})
	}
}

func TestHandleErrorsFailure(t *testing.T) {
	mux := newTestMux(scheduler.Stats{}, &fakeErrors{err: errors.New("database is locked")})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/errors", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want 500", rec.Code)
	}
}

func TestHandleErrorsWithoutDatabase(t *testing.T) {
	mux := newTestMux(scheduler.Stats{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/errors", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rec.Body.String())
	}
}

func TestHandleHealthAndIndex(t *testing.T) {
	mux := newTestMux(scheduler.Stats{Running: true}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("health body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), "Reporting: Firefox") {
		t.Errorf("index does not show the indicator")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rec.Code)
	}
}

func TestServerServe(t *testing.T) {
	cfg := config.Default()
	store := settings.NewMemory(settings.Defaults())
	srv := NewServer(cfg, NewHandler(store, fakeStats{}, fakeMessage(""), nil))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go srv.Serve(l)
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + l.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d", resp.StatusCode)
	}
}
