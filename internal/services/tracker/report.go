package tracker

import (
	"time"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	msg "github.com/LeonardoBeccarini/pivot_orders/internal/model/messages"
	"github.com/LeonardoBeccarini/pivot_orders/internal/pivotmetrics"
)

// ReportTopic is where the report of one order is published.
func ReportTopic(pivotID, orderID string) string {
	return "event/efficiency/" + pivotID + "/" + orderID
}

// BuildReport evaluates o at now. It returns false for orders that have not
// started yet.
func BuildReport(o entities.ServiceOrder, now time.Time, id string) (msg.EfficiencyReportEvent, bool) {
	eff, ok := pivotmetrics.ComputeEfficiency(o, now)
	if !ok {
		return msg.EfficiencyReportEvent{}, false
	}
	irrigating, _ := pivotmetrics.IrrigatingElapsed(o, now)

	angle := sweepAngle(o)
	progress, _ := pivotmetrics.PercentageForAngle(float64(angle), o.Zone)
	stage := o.Stage
	if s, ok := pivotmetrics.ProgressForAngle(angle, o.Zone); ok {
		stage = s
	}
	position := pivotmetrics.HalfForAngle(angle).Letter()
	if angle == 360 {
		position = entities.ZoneLowerHalf.Letter()
	}

	return msg.EfficiencyReportEvent{
		ID:            id,
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		PivotID:       o.PivotID,
		Operator:      o.Operator,
		Status:        string(o.Status),
		Zone:          string(o.Zone),
		Position:      position,
		Angle:         o.CurrentAngle,
		Stage:         string(stage),
		ProgressPct:   progress,
		EfficiencyPct: eff.Percent,
		Band:          string(eff.Band),

		TotalMinutes:         eff.TotalMinutes,
		IrrigatingMinutes:    eff.IrrigatingMinutes,
		StoppedMinutes:       eff.StoppedMinutes,
		InterruptionCount:    eff.InterruptionCount,
		AverageResumeMinutes: eff.AverageResumeMinutes,

		TotalTime:       eff.TotalTime,
		IrrigatingTime:  eff.IrrigatingTime,
		StoppedTime:     eff.StoppedTime,
		AverageResume:   eff.AverageResumeTime,
		IrrigatingLabel: pivotmetrics.FormatHoursMinutes(irrigating),

		ClockSkew:   eff.ClockSkew,
		EvaluatedAt: now.UTC(),
	}, true
}

// sweepAngle undoes the wrap of the stored angle for arms that finished a
// sweep ending at 360: stored 0 means the end, not the start, once the order
// is completed or its stage reads END.
func sweepAngle(o entities.ServiceOrder) int {
	if o.CurrentAngle != 0 || o.Zone == entities.ZoneUpperHalf {
		return o.CurrentAngle
	}
	if o.Status == entities.StatusCompleted || o.Stage == entities.StageEnd {
		return 360
	}
	return 0
}
