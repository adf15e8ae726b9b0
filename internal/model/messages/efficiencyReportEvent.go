package messages

import "time"

// EfficiencyReportEvent is published by the tracker after each evaluation
// (topic "event/efficiency/{pivot}/{order}").
type EfficiencyReportEvent struct {
	ID            string  `json:"id"`
	OrderID       string  `json:"order_id"`
	OrderNumber   string  `json:"order_number,omitempty"`
	PivotID       string  `json:"pivot_id"`
	Operator      string  `json:"operator,omitempty"`
	Status        string  `json:"status"`
	Zone          string  `json:"zone"`
	Position      string  `json:"position"` // A | B
	Angle         int     `json:"angle"`
	Stage         string  `json:"stage,omitempty"`
	ProgressPct   float64 `json:"progress_pct"`
	EfficiencyPct float64 `json:"efficiency_pct"`
	Band          string  `json:"band"`

	TotalMinutes         int `json:"total_minutes"`
	IrrigatingMinutes    int `json:"irrigating_minutes"`
	StoppedMinutes       int `json:"stopped_minutes"`
	InterruptionCount    int `json:"interruption_count"`
	AverageResumeMinutes int `json:"average_resume_minutes"`

	TotalTime       string `json:"total_time"`
	IrrigatingTime  string `json:"irrigating_time"`
	StoppedTime     string `json:"stopped_time"`
	AverageResume   string `json:"average_resume_time"`
	IrrigatingLabel string `json:"irrigating_label"` // coarse "1h 5min" label

	ClockSkew   bool      `json:"clock_skew,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}
