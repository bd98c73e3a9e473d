package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/QwQ-dev/LiveStatus/internal/models"
	"github.com/QwQ-dev/LiveStatus/internal/scheduler"
	"github.com/QwQ-dev/LiveStatus/internal/settings"
	"github.com/QwQ-dev/LiveStatus/pkg/utils"
)

const (
	defaultErrorLimit = 20
	maxErrorLimit     = 500
)

// StatsSource reports the scheduler's tick counters
type StatsSource interface {
	Stats() scheduler.Stats
}

// MessageSource returns the latest indicator message
type MessageSource interface {
	Text() (string, time.Time)
}

// ErrorReader reads the delivery failure log
type ErrorReader interface {
	RecentErrors(limit int) ([]*models.ErrorLog, error)
}

type Handler struct {
	settings  *settings.Store
	stats     StatsSource
	indicator MessageSource
	errors    ErrorReader
}

func NewHandler(store *settings.Store, stats StatsSource, ind MessageSource, errors ErrorReader) *Handler {
	return &Handler{
		settings:  store,
		stats:     stats,
		indicator: ind,
		errors:    errors,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/errors", h.handleErrors)

	mux.HandleFunc("/health", h.handleHealth)

	mux.HandleFunc("/", h.handleIndex)
}

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Running      bool        `json:"running"`
	Configured   bool        `json:"configured"`
	IntervalSecs int         `json:"interval_secs"`
	Indicator    string      `json:"indicator"`
	LastStatus   interface{} `json:"last_status"`
	Ticks        int64       `json:"ticks"`
	LastTick     *time.Time  `json:"last_tick"`
	LastTickAgo  string      `json:"last_tick_ago,omitempty"`
}

func (h *Handler) currentStatus() StatusResponse {
	stats := h.stats.Stats()
	text, _ := h.indicator.Text()

	resp := StatusResponse{
		Running:      stats.Running,
		Configured:   h.settings.IsConfigured(),
		IntervalSecs: h.settings.IntervalSecs(),
		Indicator:    text,
		Ticks:        stats.Ticks,
	}
	if stats.Ticks > 0 {
		resp.LastStatus = stats.LastStatus
		lastTick := stats.LastTick
		resp.LastTick = &lastTick
		resp.LastTickAgo = utils.Ago(lastTick)
	}
	return resp
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, h.currentStatus())
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultErrorLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 {
			http.Error(w, fmt.Sprintf("invalid limit: %s", limitStr), http.StatusBadRequest)
			return
		}
		limit = min(l, maxErrorLimit)
	}

	if h.errors == nil {
		respondJSON(w, []*models.ErrorLog{})
		return
	}

	logs, err := h.errors.RecentErrors(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch errors: %v", err), http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []*models.ErrorLog{}
	}

	respondJSON(w, logs)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta http-equiv="refresh" content="{{.IntervalSecs}}">
    <title>LiveStatus</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #f5f5f5; color: #333; padding: 20px; }
        .box { background: white; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); padding: 24px; max-width: 480px; }
        dt { color: #7f8c8d; margin-top: 8px; }
        dd { margin: 0; font-size: 1.1rem; }
    </style>
</head>
<body>
    <div class="box">
        <h1>LiveStatus</h1>
        <dl>
            <dt>Indicator</dt><dd>{{.Indicator}}</dd>
            <dt>Running</dt><dd>{{.Running}}</dd>
            <dt>Configured</dt><dd>{{.Configured}}</dd>
            <dt>Interval</dt><dd>{{.IntervalSecs}}s</dd>
            <dt>Ticks</dt><dd>{{.Ticks}}{{if .LastTickAgo}} (last {{.LastTickAgo}} ago){{end}}</dd>
        </dl>
    </div>
</body>
</html>`))

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, h.currentStatus()); err != nil {
		log.Printf("Error rendering index: %v", err)
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
