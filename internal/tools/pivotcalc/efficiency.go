package pivotcalc

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	"github.com/LeonardoBeccarini/pivot_orders/internal/pivotmetrics"
	"github.com/LeonardoBeccarini/pivot_orders/internal/services/backend"
)

var errNotStarted = errors.New("order has not started")

// loadOrder reads one backend row from a YAML or JSON file.
func loadOrder(path string) (entities.ServiceOrder, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return entities.ServiceOrder{}, err
	}
	var row backend.Row
	if err := yaml.Unmarshal(b, &row); err != nil {
		return entities.ServiceOrder{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return row.ToOrder()
}

type stopLine struct {
	Reason    string `json:"reason"`
	StoppedAt string `json:"stopped_at"`
	ResumedAt string `json:"resumed_at,omitempty"`
	Minutes   int    `json:"minutes"`
	Duration  string `json:"duration"`
}

type efficiencyResult struct {
	OrderID    string                  `json:"order_id"`
	Status     string                  `json:"status"`
	Efficiency pivotmetrics.Efficiency `json:"efficiency"`
	Irrigating string                  `json:"irrigating_label"`
	Stops      []stopLine              `json:"stops"`
	Warnings   []string                `json:"warnings,omitempty"`
}

func evaluate(o entities.ServiceOrder, now time.Time) (efficiencyResult, error) {
	eff, ok := pivotmetrics.ComputeEfficiency(o, now)
	if !ok {
		return efficiencyResult{}, fmt.Errorf("%s: %w", o.ID, errNotStarted)
	}
	irrigating, _ := pivotmetrics.IrrigatingElapsed(o, now)
	res := efficiencyResult{
		OrderID:    o.ID,
		Status:     o.Status.Label(),
		Efficiency: eff,
		Irrigating: pivotmetrics.FormatHoursMinutes(irrigating),
		Stops:      make([]stopLine, 0, len(o.Interruptions)),
	}
	for _, rec := range o.Interruptions {
		m := pivotmetrics.InterruptionMinutes(rec, now)
		line := stopLine{
			Reason:    rec.Reason,
			StoppedAt: rec.StoppedAt.Format(time.RFC3339),
			Minutes:   m,
			Duration:  pivotmetrics.FormatHoursMinutes(m),
		}
		if rec.ResumedAt != nil {
			line.ResumedAt = rec.ResumedAt.Format(time.RFC3339)
		}
		res.Stops = append(res.Stops, line)
	}
	for _, err := range multierr.Errors(o.Validate()) {
		res.Warnings = append(res.Warnings, err.Error())
	}
	return res, nil
}

func (o *options) printEfficiency(res efficiencyResult) error {
	if o.asJSON {
		return o.printJSON(res)
	}
	e := res.Efficiency
	o.printf("order %s (%s)\n", res.OrderID, res.Status)
	o.printf("  total:        %s\n", e.TotalTime)
	o.printf("  irrigating:   %s\n", e.IrrigatingTime)
	o.printf("  stopped:      %s\n", e.StoppedTime)
	o.printf("  efficiency:   %.1f%% (%s)\n", e.Percent, e.Band)
	o.printf("  stops:        %d, average resume %s\n", e.InterruptionCount, e.AverageResumeTime)
	for _, s := range res.Stops {
		end := "open"
		if s.ResumedAt != "" {
			end = s.ResumedAt
		}
		o.printf("    - %s: %s -> %s (%s)\n", s.Reason, s.StoppedAt, end, s.Duration)
	}
	if e.ClockSkew {
		o.printf("  warning: completion precedes start\n")
	}
	if o.verbose {
		for _, w := range res.Warnings {
			o.printf("  warning: %s\n", w)
		}
	}
	return nil
}

func newEfficiencyCmd(opts *options) *cobra.Command {
	var file, now string
	cmd := &cobra.Command{
		Use:   "efficiency",
		Short: "Compute the efficiency of an order saved as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := opts.parseNow(now)
			if err != nil {
				return err
			}
			o, err := loadOrder(file)
			if err != nil {
				return err
			}
			res, err := evaluate(o, at)
			if err != nil {
				return err
			}
			return opts.printEfficiency(res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Order file (backend row, YAML or JSON)")
	cmd.Flags().StringVar(&now, "now", "", "Evaluation instant, RFC3339 (default: current time)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
