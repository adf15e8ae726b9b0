package pivotmetrics

import (
	"time"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
)

// Band classifies an efficiency percentage for display.
type Band string

const (
	BandGood Band = "good" // >= 80
	BandFair Band = "fair" // >= 60
	BandPoor Band = "poor"
)

func EfficiencyBand(percent float64) Band {
	switch {
	case percent >= 80:
		return BandGood
	case percent >= 60:
		return BandFair
	}
	return BandPoor
}

// Efficiency is the operational summary of a started order.
// Minute figures are whole minutes; the *Time strings are FormatDuration labels.
type Efficiency struct {
	TotalMinutes         int     `json:"total_minutes"`
	IrrigatingMinutes    int     `json:"irrigating_minutes"`
	StoppedMinutes       int     `json:"stopped_minutes"`
	Percent              float64 `json:"efficiency_pct"`
	InterruptionCount    int     `json:"interruption_count"`
	AverageResumeMinutes int     `json:"average_resume_minutes"`

	TotalTime         string `json:"total_time"`
	IrrigatingTime    string `json:"irrigating_time"`
	StoppedTime       string `json:"stopped_time"`
	AverageResumeTime string `json:"average_resume_time"`

	Band Band `json:"band"`
	// ClockSkew is set when the end instant precedes the actual start.
	// The negative total is propagated, not clamped.
	ClockSkew bool `json:"clock_skew,omitempty"`
}

func minutesBetween(from, to time.Time) int {
	return int(roundHalfUp(to.Sub(from).Minutes()))
}

// ComputeEfficiency evaluates o at instant now. It returns false when the
// order has no actual start time yet.
//
// Malformed interruptions are not rejected: a stop resumed before it began
// contributes negative minutes. Use ServiceOrder.Validate to detect that.
func ComputeEfficiency(o entities.ServiceOrder, now time.Time) (Efficiency, bool) {
	if o.ActualStartTime == nil {
		return Efficiency{}, false
	}
	start := *o.ActualStartTime
	end := now
	if o.CompletionTime != nil {
		end = *o.CompletionTime
	}
	total := minutesBetween(start, end)

	stopped := 0
	closed, closedSum := 0, 0
	for _, rec := range o.Interruptions {
		stopEnd := rec.StoppedAt
		switch {
		case rec.ResumedAt != nil:
			stopEnd = *rec.ResumedAt
		case o.Status == entities.StatusInterrupted:
			stopEnd = now
		}
		// an open stop on an order that is no longer interrupted counts as zero
		stopped += minutesBetween(rec.StoppedAt, stopEnd)

		if rec.ResumedAt != nil {
			closed++
			closedSum += minutesBetween(rec.StoppedAt, *rec.ResumedAt)
		}
	}

	irrigating := total - stopped

	var pct float64
	if denom := irrigating + stopped; denom > 0 {
		pct = roundHalfUp(float64(irrigating)/float64(denom)*100*10) / 10
	}

	avg := 0
	if closed > 0 {
		avg = int(roundHalfUp(float64(closedSum) / float64(closed)))
	}

	return Efficiency{
		TotalMinutes:         total,
		IrrigatingMinutes:    irrigating,
		StoppedMinutes:       stopped,
		Percent:              pct,
		InterruptionCount:    len(o.Interruptions),
		AverageResumeMinutes: avg,
		TotalTime:            FormatDuration(float64(total)),
		IrrigatingTime:       FormatDuration(float64(irrigating)),
		StoppedTime:          FormatDuration(float64(stopped)),
		AverageResumeTime:    FormatDuration(float64(avg)),
		Band:                 EfficiencyBand(pct),
		ClockSkew:            total < 0,
	}, true
}

// IrrigatingElapsed is the "time irrigating" column of the monitoring table:
// elapsed time minus every stop, where an open stop runs until now whatever
// the order status. The result never goes below zero.
func IrrigatingElapsed(o entities.ServiceOrder, now time.Time) (int, bool) {
	if o.ActualStartTime == nil {
		return 0, false
	}
	end := now
	if o.CompletionTime != nil {
		end = *o.CompletionTime
	}
	m := minutesBetween(*o.ActualStartTime, end)
	for _, rec := range o.Interruptions {
		m -= InterruptionMinutes(rec, now)
	}
	if m < 0 {
		m = 0
	}
	return m, true
}

// InterruptionMinutes is the length of one stop; an open stop runs until now.
func InterruptionMinutes(rec entities.InterruptionRecord, now time.Time) int {
	end := now
	if rec.ResumedAt != nil {
		end = *rec.ResumedAt
	}
	return minutesBetween(rec.StoppedAt, end)
}
