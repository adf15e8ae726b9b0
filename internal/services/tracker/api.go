package tracker

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	"github.com/LeonardoBeccarini/pivot_orders/internal/pivotmetrics"
)

// API serves the tracker's reports and the angle calculators.
type API struct {
	svc     *Service
	history HistoryStore
	log     *zap.Logger
}

func NewAPI(svc *Service, history HistoryStore, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{svc: svc, history: history, log: log}
}

// Register mounts the routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /orders/efficiency", a.listReports)
	mux.HandleFunc("GET /orders/efficiency/history", a.listHistory)
	mux.HandleFunc("GET /orders/efficiency/{id}", a.getReport)
	mux.HandleFunc("GET /pivots/{id}/orders/efficiency", a.listPivotReports)
	mux.HandleFunc("GET /pivot/stage", a.stageForAngle)
	mux.HandleFunc("GET /pivot/angle", a.angleForStage)
	mux.HandleFunc("GET /pivot/percentage", a.percentageForAngle)
}

type apiError struct {
	Error string `json:"error"`
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, apiError{Error: msg})
}

func (a *API) listReports(w http.ResponseWriter, r *http.Request) {
	reports := a.svc.Reports()
	if pivot := strings.TrimSpace(r.URL.Query().Get("pivot_id")); pivot != "" {
		filtered := reports[:0]
		for _, rep := range reports {
			if rep.PivotID == pivot {
				filtered = append(filtered, rep)
			}
		}
		reports = filtered
	}
	writeJSON(w, http.StatusOK, reports)
}

func (a *API) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := a.svc.ReportFor(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, ErrUnknownOrder):
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
		return
	case err != nil:
		a.log.Warn("order lookup failed", zap.String("order_id", r.PathValue("id")), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GET /pivots/{id}/orders/efficiency
func (a *API) listPivotReports(w http.ResponseWriter, r *http.Request) {
	reports, err := a.svc.PivotReports(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, ErrNoLookup):
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: err.Error()})
		return
	case err != nil:
		a.log.Warn("pivot lookup failed", zap.String("pivot_id", r.PathValue("id")), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// intParam reads an integer query parameter clamped to [min,max].
func intParam(r *http.Request, key string, def, min, max int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// GET /orders/efficiency/history?order_id=&minutes=1440&limit=100
func (a *API) listHistory(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "history store not configured"})
		return
	}
	minutes := intParam(r, "minutes", 1440, 1, 30*24*60)
	limit := intParam(r, "limit", 100, 1, 1000)
	timeout := intParam(r, "timeout_ms", 2000, 200, 10000)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(timeout)*time.Millisecond)
	defer cancel()

	points, err := a.history.History(ctx, strings.TrimSpace(r.URL.Query().Get("order_id")), minutes, limit)
	if err != nil {
		a.log.Warn("history query failed", zap.Error(err))
		w.Header().Set("X-Error", "influx-query-error")
		if points == nil {
			points = []HistoryPoint{}
		}
	}
	writeJSON(w, http.StatusOK, points)
}

func zoneParam(r *http.Request) (entities.Zone, bool) {
	return entities.ParseZone(r.URL.Query().Get("zone"))
}

// GET /pivot/stage?angle=95&zone=UPPER_HALF
func (a *API) stageForAngle(w http.ResponseWriter, r *http.Request) {
	zone, ok := zoneParam(r)
	if !ok {
		badRequest(w, "unknown zone")
		return
	}
	angle, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("angle")))
	if err != nil {
		badRequest(w, "angle must be an integer")
		return
	}
	resp := struct {
		Angle int    `json:"angle"`
		Zone  string `json:"zone"`
		Stage string `json:"stage,omitempty"`
		Label string `json:"label,omitempty"`
		Found bool   `json:"found"`
	}{Angle: angle, Zone: string(zone)}
	if st, ok := pivotmetrics.ProgressForAngle(angle, zone); ok {
		resp.Stage, resp.Label, resp.Found = string(st), st.Label(), true
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /pivot/angle?stage=MIDDLE&zone=FULL&ref=200
func (a *API) angleForStage(w http.ResponseWriter, r *http.Request) {
	zone, ok := zoneParam(r)
	if !ok {
		badRequest(w, "unknown zone")
		return
	}
	stage, ok := entities.ParseStage(r.URL.Query().Get("stage"))
	if !ok {
		badRequest(w, "unknown stage")
		return
	}
	ref := intParam(r, "ref", 0, -1<<31, 0)
	angle, _ := pivotmetrics.AngleForProgress(stage, zone, ref)
	writeJSON(w, http.StatusOK, struct {
		Stage string `json:"stage"`
		Zone  string `json:"zone"`
		Angle int    `json:"angle"`
	}{string(stage), string(zone), angle})
}

// GET /pivot/percentage?angle=90&zone=UPPER_HALF
func (a *API) percentageForAngle(w http.ResponseWriter, r *http.Request) {
	zone, ok := zoneParam(r)
	if !ok {
		badRequest(w, "unknown zone")
		return
	}
	angle, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("angle")), 64)
	if err != nil {
		badRequest(w, "angle must be a number")
		return
	}
	pct, _ := pivotmetrics.PercentageForAngle(angle, zone)
	writeJSON(w, http.StatusOK, struct {
		Angle      float64 `json:"angle"`
		Zone       string  `json:"zone"`
		Percentage float64 `json:"percentage"`
	}{angle, string(zone), pct})
}
