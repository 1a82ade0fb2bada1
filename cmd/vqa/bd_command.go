package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vqa/internal/bdrate"
)

func newBDCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "bd <baseline.json> <test.json>",
		Short: "Compute BD-Rate and BD-Metric between two rate-distortion curves",
		Long: `Each input file holds one curve as JSON:

  {"name": "x264-slow", "points": [{"bitrate": 1000, "quality": 38.0}, ...]}

Bitrates are in any consistent unit; quality is the metric score (PSNR, VMAF, ...).
At least four points per curve are required.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseline, err := readCurve(args[0])
			if err != nil {
				return err
			}
			test, err := readCurve(args[1])
			if err != nil {
				return err
			}

			delta, err := bdrate.Compute(baseline, test)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, delta)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "BD-Rate:   %+.2f%%\n", delta.RatePercent)
			fmt.Fprintf(out, "BD-Metric: %+.4f\n", delta.MetricDelta)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the result as JSON")
	return cmd
}

func readCurve(path string) (bdrate.Curve, error) {
	var curve bdrate.Curve
	raw, err := os.ReadFile(path)
	if err != nil {
		return curve, fmt.Errorf("read curve %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &curve); err != nil {
		return curve, fmt.Errorf("decode curve %s: %w", path, err)
	}
	return curve, nil
}
