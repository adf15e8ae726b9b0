package messages

import "time"

// PivotSummaryEvent rolls up the efficiency reports of one pivot over an
// aggregation window (topic "event/pivot-summary/{pivot}").
type PivotSummaryEvent struct {
	PivotID           string    `json:"pivot_id"`
	WindowStart       time.Time `json:"window_start"`
	WindowEnd         time.Time `json:"window_end"`
	Reports           int       `json:"reports"`
	Orders            int       `json:"orders"`
	Interrupted       int       `json:"interrupted"`
	MeanEfficiencyPct float64   `json:"mean_efficiency_pct"`
	MinEfficiencyPct  float64   `json:"min_efficiency_pct"`
	MaxEfficiencyPct  float64   `json:"max_efficiency_pct"`
	StoppedMinutes    int       `json:"stopped_minutes"`
}
