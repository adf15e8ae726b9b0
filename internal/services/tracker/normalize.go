package tracker

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	msg "github.com/LeonardoBeccarini/pivot_orders/internal/model/messages"
)

const measurement = "order_efficiency"

// ReportToPoint maps a report to one InfluxDB point. Identifiers and enums
// are tags, figures are fields.
func ReportToPoint(r msg.EfficiencyReportEvent) *write.Point {
	tags := map[string]string{
		"order_id": r.OrderID,
		"pivot_id": r.PivotID,
		"status":   r.Status,
		"zone":     r.Zone,
		"band":     r.Band,
	}
	fields := map[string]interface{}{
		"efficiency_pct":         r.EfficiencyPct,
		"progress_pct":           r.ProgressPct,
		"angle":                  int64(r.Angle),
		"total_minutes":          int64(r.TotalMinutes),
		"irrigating_minutes":     int64(r.IrrigatingMinutes),
		"stopped_minutes":        int64(r.StoppedMinutes),
		"interruption_count":     int64(r.InterruptionCount),
		"average_resume_minutes": int64(r.AverageResumeMinutes),
		"clock_skew":             r.ClockSkew,
	}
	return influxdb2.NewPoint(measurement, tags, fields, r.EvaluatedAt)
}
