package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/focuslog/focuslog/internal/reporter"
	"github.com/focuslog/focuslog/internal/tracker"
	"github.com/focuslog/focuslog/internal/usage"
	"github.com/focuslog/focuslog/pkg/utils"
)

// Controller is the part of the tracking engine the API drives.
type Controller interface {
	Status() tracker.Status
	Snapshot() usage.Counter
	Pause() error
	Resume(ctx context.Context)
	Flush() error
}

type Handler struct {
	engine   Controller
	reporter *reporter.Reporter
	logger   zerolog.Logger
}

func NewHandler(engine Controller, rep *reporter.Reporter, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		reporter: rep,
		logger:   logger.With().Str("component", "web").Logger(),
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/today", h.handleToday)
	mux.HandleFunc("/api/report", h.handleReport)
	mux.HandleFunc("/api/pause", h.handlePause)
	mux.HandleFunc("/api/resume", h.handleResume)
	mux.HandleFunc("/api/flush", h.handleFlush)

	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", h.handleIndex)
}

type statusResponse struct {
	tracker.Status
	Line string `json:"line"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := h.engine.Status()
	respondJSON(w, statusResponse{Status: st, Line: st.Line()})
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := h.engine.Status()
	rows := h.engine.Snapshot().Sorted()

	if r.Header.Get("HX-Request") == "true" {
		h.respondTodayHTML(w, st, rows)
		return
	}

	var total int64
	for _, row := range rows {
		total += row.Seconds
	}
	respondJSON(w, map[string]any{
		"date":          st.Today,
		"apps":          rows,
		"total_seconds": total,
	})
}

func (h *Handler) respondTodayHTML(w http.ResponseWriter, st tracker.Status, rows []usage.AppTotal) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="current">%s</div>`, html.EscapeString(st.Line()))

	if len(rows) == 0 {
		b.WriteString(`<div class="loading">No data available</div>`)
		_, _ = w.Write([]byte(b.String()))
		return
	}

	var total int64
	for _, row := range rows {
		total += row.Seconds
	}

	b.WriteString(`<div class="listing">`)
	for _, row := range rows {
		pct := float64(row.Seconds) / float64(max(total, 1)) * 100
		fmt.Fprintf(&b, `
		<div class="app-item" style="--bar-width: %.1f%%">
			<span class="app-name">%s</span>
			<span class="app-time">%s</span>
		</div>`, pct, html.EscapeString(row.Application), utils.FormatDuration(row.Seconds))
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Total: %s</div>`, utils.FormatDuration(total))

	_, _ = w.Write([]byte(b.String()))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}
	switch periodType {
	case "day", "today", "week", "month":
	default:
		http.Error(w, fmt.Sprintf("invalid period type: %s (valid: day, week, month)", periodType), http.StatusBadRequest)
		return
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		h.logger.Error().Err(err).Str("period", periodType).Msg("Failed to generate report")
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, report)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.engine.Pause(); err != nil {
		// paused anyway; only the flush failed
		h.logger.Warn().Err(err).Msg("Pause flush failed")
	}
	st := h.engine.Status()
	respondJSON(w, statusResponse{Status: st, Line: st.Line()})
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.engine.Resume(r.Context())
	st := h.engine.Status()
	respondJSON(w, statusResponse{Status: st, Line: st.Line()})
}

func (h *Handler) handleFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.engine.Flush(); err != nil {
		http.Error(w, fmt.Sprintf("Failed to flush: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]string{"status": "flushed"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode JSON: %v", err), http.StatusInternalServerError)
	}
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>focuslog</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #f5f5f5; color: #333; padding: 2rem; }
        .box { background: white; border-radius: 8px; padding: 1.5rem; max-width: 640px; margin: auto; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .current { font-weight: 600; margin-bottom: 1rem; }
        .app-item { display: flex; justify-content: space-between; padding: .4rem 0; border-bottom: 1px solid #eee;
                    background: linear-gradient(to right, #e8f4fc var(--bar-width), transparent var(--bar-width)); }
        .total { margin-top: 1rem; font-weight: 600; text-align: right; }
        button { margin-right: .5rem; }
    </style>
</head>
<body>
    <div class="box">
        <h1>Today</h1>
        <div>
            <button hx-post="/api/pause" hx-swap="none">Pause</button>
            <button hx-post="/api/resume" hx-swap="none">Resume</button>
            <button hx-post="/api/flush" hx-swap="none">Flush</button>
        </div>
        <div hx-get="/api/today" hx-trigger="load, every 5s" hx-swap="innerHTML">
            <div class="loading">Loading...</div>
        </div>
    </div>
</body>
</html>`
