package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	msg "github.com/LeonardoBeccarini/pivot_orders/internal/model/messages"
)

// HandleMonitoring serves GET /dashboard/monitoring.
func (g *Gateway) HandleMonitoring(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	g.metrics.Requests.WithLabelValues("monitoring").Inc()

	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.HTTPTimeout)
	defer cancel()

	type res struct {
		key   string
		body  []byte
		stale bool
		err   error
	}
	ch := make(chan res, 2)
	go func() {
		b, stale, err := g.reports.Fetch(ctx)
		ch <- res{"reports", b, stale, err}
	}()
	go func() {
		b, stale, err := g.health.Fetch(ctx)
		ch <- res{"health", b, stale, err}
	}()

	var (
		reports    []msg.EfficiencyReportEvent
		tracker    = "unknown"
		stale      bool
		reportsErr error
	)
	for i := 0; i < 2; i++ {
		rv := <-ch
		switch rv.key {
		case "reports":
			reportsErr = rv.err
			stale = rv.stale
			if rv.err == nil {
				if err := json.Unmarshal(rv.body, &reports); err != nil {
					reportsErr = err
				}
			}
		case "health":
			var h struct {
				Status string `json:"status"`
			}
			if rv.err == nil && !rv.stale && json.Unmarshal(rv.body, &h) == nil && h.Status != "" {
				tracker = h.Status
			} else if rv.err != nil || rv.stale {
				tracker = "unreachable"
			}
		}
	}

	if reportsErr != nil {
		g.log.Warn("monitoring: no reports available", zap.Error(reportsErr))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "tracker unavailable"})
		return
	}

	data := buildDashboard(reports)
	data.Tracker = tracker
	data.Stale = stale
	data.GeneratedAt = g.now().UTC()
	if stale {
		g.metrics.ServedStale.Inc()
	}
	writeJSON(w, http.StatusOK, data)

	g.log.Info("GET /dashboard/monitoring",
		zap.Duration("took", time.Since(start)),
		zap.Stringer("cb_reports", g.reports.State()),
		zap.Int("in_progress", len(data.InProgress)),
		zap.Int("interrupted", len(data.Interrupted)),
		zap.Bool("stale", stale))
}

// Routes mounts the gateway handlers.
func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard/monitoring", g.HandleMonitoring)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
