package pivotcalc

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
)

// Scenario replays the life of one order.
type Scenario struct {
	Order struct {
		ID      string `yaml:"id"`
		PivotID string `yaml:"pivot_id"`
		Zone    string `yaml:"zone"`
		Angle   int    `yaml:"angle"`
	} `yaml:"order"`
	Events []ScenarioEvent `yaml:"events"`
	Now    string          `yaml:"now"`
}

type ScenarioEvent struct {
	At     string `yaml:"at"`
	Action string `yaml:"action"` // start | pause | resume | complete
	Reason string `yaml:"reason"`
	Detail string `yaml:"detail"`
	By     string `yaml:"by"`
	Angle  *int   `yaml:"angle"`
}

// Replay applies the scenario events in order. The first failing transition
// aborts the replay.
func (s Scenario) Replay() (entities.ServiceOrder, error) {
	zone, ok := entities.ParseZone(s.Order.Zone)
	if !ok {
		return entities.ServiceOrder{}, fmt.Errorf("unknown zone %q", s.Order.Zone)
	}
	o := entities.ServiceOrder{
		ID:           s.Order.ID,
		PivotID:      s.Order.PivotID,
		Status:       entities.StatusPending,
		Zone:         zone,
		CurrentAngle: entities.NormalizeAngle(s.Order.Angle),
	}
	for i, ev := range s.Events {
		at, err := time.Parse(time.RFC3339, ev.At)
		if err != nil {
			return o, fmt.Errorf("event %d: %w", i, err)
		}
		at = at.UTC()
		switch strings.ToLower(strings.TrimSpace(ev.Action)) {
		case "start":
			o, err = entities.Start(o, at)
		case "pause":
			o, err = entities.Pause(o, at, ev.Reason, ev.Detail)
		case "resume":
			o, err = entities.Resume(o, at, ev.By)
		case "complete":
			o, err = entities.Complete(o, at)
		default:
			err = fmt.Errorf("unknown action %q", ev.Action)
		}
		if err != nil {
			return o, fmt.Errorf("event %d (%s): %w", i, ev.Action, err)
		}
		if ev.Angle != nil {
			o.CurrentAngle = entities.NormalizeAngle(*ev.Angle)
		}
	}
	return o, nil
}

func newSimulateCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay start/pause/resume/complete events and report the efficiency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var sc Scenario
			if err := yaml.Unmarshal(b, &sc); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			o, err := sc.Replay()
			if err != nil {
				return err
			}
			at, err := opts.parseNow(sc.Now)
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
	cmd.Flags().StringVarP(&file, "file", "f", "", "Scenario file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
