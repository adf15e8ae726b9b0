package app

import (
	"math"
	"sort"
	"time"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	msg "github.com/LeonardoBeccarini/pivot_orders/internal/model/messages"
)

// MonitoringRow is one line of the operations monitoring table.
type MonitoringRow struct {
	OrderID           string  `json:"order_id"`
	OrderNumber       string  `json:"order_number"`
	PivotID           string  `json:"pivot_id"`
	Operator          string  `json:"operator"`
	Status            string  `json:"status"`
	StatusLabel       string  `json:"status_label"`
	Position          string  `json:"position"`
	Angle             int     `json:"angle"`
	StageLabel        string  `json:"stage_label,omitempty"`
	ProgressPct       float64 `json:"progress_pct"`
	EfficiencyPct     float64 `json:"efficiency_pct"`
	Band              string  `json:"band"`
	IrrigatingTime    string  `json:"irrigating_time"`
	StoppedTime       string  `json:"stopped_time"`
	InterruptionCount int     `json:"interruption_count"`
}

type Stats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type DashboardData struct {
	InProgress  []MonitoringRow `json:"in_progress"`
	Interrupted []MonitoringRow `json:"interrupted"`
	Stats       Stats           `json:"stats"`
	Tracker     string          `json:"tracker_status"`
	Stale       bool            `json:"stale,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

func toRow(r msg.EfficiencyReportEvent) MonitoringRow {
	row := MonitoringRow{
		OrderID:           r.OrderID,
		OrderNumber:       r.OrderNumber,
		PivotID:           r.PivotID,
		Operator:          r.Operator,
		Status:            r.Status,
		StatusLabel:       entities.Status(r.Status).Label(),
		Position:          r.Position,
		Angle:             r.Angle,
		ProgressPct:       math.Round(r.ProgressPct*10) / 10,
		EfficiencyPct:     r.EfficiencyPct,
		Band:              r.Band,
		IrrigatingTime:    r.IrrigatingLabel,
		StoppedTime:       r.StoppedTime,
		InterruptionCount: r.InterruptionCount,
	}
	if st := entities.Stage(r.Stage); st.Valid() {
		row.StageLabel = st.Label()
	}
	return row
}

// buildDashboard splits active reports by status, sorts each group by pivot
// and computes efficiency stats over both groups. Other statuses are skipped.
func buildDashboard(reports []msg.EfficiencyReportEvent) DashboardData {
	data := DashboardData{
		InProgress:  []MonitoringRow{},
		Interrupted: []MonitoringRow{},
	}
	var sum float64
	for _, r := range reports {
		switch entities.Status(r.Status) {
		case entities.StatusInProgress:
			data.InProgress = append(data.InProgress, toRow(r))
		case entities.StatusInterrupted:
			data.Interrupted = append(data.Interrupted, toRow(r))
		default:
			continue
		}
		v := r.EfficiencyPct
		if data.Stats.Count == 0 || v < data.Stats.Min {
			data.Stats.Min = v
		}
		if data.Stats.Count == 0 || v > data.Stats.Max {
			data.Stats.Max = v
		}
		sum += v
		data.Stats.Count++
	}
	if data.Stats.Count > 0 {
		data.Stats.Mean = math.Round(sum/float64(data.Stats.Count)*10) / 10
	}
	byPivot := func(rows []MonitoringRow) {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].PivotID != rows[j].PivotID {
				return rows[i].PivotID < rows[j].PivotID
			}
			return rows[i].OrderNumber < rows[j].OrderNumber
		})
	}
	byPivot(data.InProgress)
	byPivot(data.Interrupted)
	return data
}
