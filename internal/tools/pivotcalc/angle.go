package pivotcalc

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
	"github.com/LeonardoBeccarini/pivot_orders/internal/pivotmetrics"
)

func parseZone(raw string) (entities.Zone, error) {
	z, ok := entities.ParseZone(raw)
	if !ok {
		return "", fmt.Errorf("unknown zone %q", raw)
	}
	return z, nil
}

func newStageCmd(opts *options) *cobra.Command {
	var angle int
	var zone string
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Sector stage for an arm angle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			z, err := parseZone(zone)
			if err != nil {
				return err
			}
			st, ok := pivotmetrics.ProgressForAngle(angle, z)
			if opts.asJSON {
				return opts.printJSON(map[string]any{"angle": angle, "zone": z, "stage": st, "found": ok})
			}
			if !ok {
				opts.printf("angle %d is outside zone %s\n", angle, z)
				return nil
			}
			opts.printf("%s (%s)\n", st, st.Label())
			return nil
		},
	}
	cmd.Flags().IntVar(&angle, "angle", 0, "Arm angle in degrees")
	cmd.Flags().StringVar(&zone, "zone", "", "Zone: UPPER_HALF, LOWER_HALF or FULL (Alta/Baixa/Total accepted)")
	return cmd
}

func newAngleCmd(opts *options) *cobra.Command {
	var stage, zone string
	var ref int
	cmd := &cobra.Command{
		Use:   "angle",
		Short: "Representative angle of a stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			z, err := parseZone(zone)
			if err != nil {
				return err
			}
			st, ok := entities.ParseStage(stage)
			if !ok {
				return fmt.Errorf("unknown stage %q", stage)
			}
			a, _ := pivotmetrics.AngleForProgress(st, z, ref)
			if opts.asJSON {
				return opts.printJSON(map[string]any{"stage": st, "zone": z, "angle": a})
			}
			opts.printf("%d\n", a)
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "Stage: START, MIDDLE, END (Início/Meio/Fim accepted)")
	cmd.Flags().StringVar(&zone, "zone", "", "Zone")
	cmd.Flags().IntVar(&ref, "ref", 0, "Current angle, picks the half for FULL")
	_ = cmd.MarkFlagRequired("stage")
	return cmd
}

func newPercentCmd(opts *options) *cobra.Command {
	var angle float64
	var zone string
	var inverse bool
	cmd := &cobra.Command{
		Use:   "percent",
		Short: "Progress percentage for an angle (or the angle for a percentage with --inverse)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			z, err := parseZone(zone)
			if err != nil {
				return err
			}
			if inverse {
				a, _ := pivotmetrics.AngleForPercentage(angle, z)
				opts.printf("%s\n", strconv.FormatFloat(a, 'f', -1, 64))
				return nil
			}
			p, _ := pivotmetrics.PercentageForAngle(angle, z)
			if opts.asJSON {
				return opts.printJSON(map[string]any{"angle": angle, "zone": z, "percentage": p})
			}
			opts.printf("%.1f%%\n", p)
			return nil
		},
	}
	cmd.Flags().Float64Var(&angle, "angle", 0, "Arm angle in degrees (a percentage with --inverse)")
	cmd.Flags().StringVar(&zone, "zone", "", "Zone")
	cmd.Flags().BoolVar(&inverse, "inverse", false, "Map a percentage back to an angle")
	return cmd
}

func newFormatCmd(opts *options) *cobra.Command {
	var minutes float64
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Render a minute count as a duration label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.printf("%s\n", pivotmetrics.FormatDuration(minutes))
			return nil
		},
	}
	cmd.Flags().Float64Var(&minutes, "minutes", 0, "Minutes, fractions allowed")
	return cmd
}
