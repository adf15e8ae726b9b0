// Package pivotcalc is the offline calculator behind the pivotcalc command:
// the same angle, progress and efficiency figures the services compute,
// run against a saved order or plain numbers.
package pivotcalc

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	out     io.Writer
	now     func() time.Time
	asJSON  bool
	verbose bool
}

// NewRootCmd builds the command tree. now is the clock used when --now is
// not given.
func NewRootCmd(out io.Writer, now func() time.Time) *cobra.Command {
	if now == nil {
		now = time.Now
	}
	opts := &options{out: out, now: now}

	root := &cobra.Command{
		Use:           "pivotcalc",
		Short:         "Center-pivot service order calculator",
		Long:          `Computes sector stages, progress percentages and operational efficiency of pivot service orders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print results as JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print validation warnings")

	root.AddCommand(
		newEfficiencyCmd(opts),
		newSimulateCmd(opts),
		newStageCmd(opts),
		newAngleCmd(opts),
		newPercentCmd(opts),
		newFormatCmd(opts),
	)
	return root
}

func (o *options) printJSON(v any) error {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *options) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format, args...)
}

// parseNow reads --now, falling back to the injected clock.
func (o *options) parseNow(raw string) (time.Time, error) {
	if raw == "" {
		return o.now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return t.UTC(), nil
}
