package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// HistoryPoint is one stored efficiency sample.
type HistoryPoint struct {
	OrderID       string  `json:"order_id"`
	PivotID       string  `json:"pivot_id,omitempty"`
	Status        string  `json:"status,omitempty"`
	EfficiencyPct float64 `json:"efficiency_pct"`
	Time          string  `json:"time"` // RFC3339
}

type HistoryStore interface {
	History(ctx context.Context, orderID string, minutes, limit int) ([]HistoryPoint, error)
}

// InfluxHistory reads efficiency samples back with Flux.
type InfluxHistory struct {
	query  api.QueryAPI
	bucket string
}

func NewInfluxHistory(q api.QueryAPI, bucket string) *InfluxHistory {
	return &InfluxHistory{query: q, bucket: bucket}
}

func buildFlux(bucket, orderID string, minutes, limit int) string {
	orderFilter := ""
	if orderID != "" {
		orderFilter = fmt.Sprintf("\n  |> filter(fn: (r) => r.order_id == %q)", orderID)
	}
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r._field == "efficiency_pct")%s
  |> keep(columns: ["_time","_value","order_id","pivot_id","status"])
  |> group()
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, measurement, orderFilter, limit)
}

func (h *InfluxHistory) History(ctx context.Context, orderID string, minutes, limit int) ([]HistoryPoint, error) {
	res, err := h.query.Query(ctx, buildFlux(h.bucket, orderID, minutes, limit))
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer res.Close()

	out := make([]HistoryPoint, 0, limit)
	for res.Next() {
		rec := res.Record()
		out = append(out, HistoryPoint{
			OrderID:       tagValue(rec.ValueByKey("order_id")),
			PivotID:       tagValue(rec.ValueByKey("pivot_id")),
			Status:        tagValue(rec.ValueByKey("status")),
			EfficiencyPct: toFloat(rec.Value()),
			Time:          rec.Time().UTC().Format(time.RFC3339),
		})
	}
	if err := res.Err(); err != nil {
		return out, fmt.Errorf("influx iterate: %w", err)
	}
	return out, nil
}

func tagValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return 0
}
