package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vqa/internal/analysis"
	"vqa/internal/batch"
	"vqa/internal/media"
	"vqa/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <template>",
		Short: "Execute a stored template as a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tpl, err := store.GetTemplate(runCtx, args[0])
			if err != nil {
				return err
			}

			logger := ctx.newLogger()
			pipeline := analysis.NewPipeline(cfg, runner.New(logger), media.NewProber(cfg.FFprobeBinary()), store, logger)
			orch := batch.New(cfg, store, pipeline, logger)

			report, err := orch.RunTemplate(runCtx, tpl)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			renderBatchReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the batch report as JSON")
	return cmd
}

func renderBatchReport(cmd *cobra.Command, report *batch.Report) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	rows := make([][]string, 0, len(report.Results))
	for _, result := range report.Results {
		row := []string{
			result.Source,
			statusLabel(result.Status, colorize),
			"-", "-", "-", "-",
		}
		if result.Summary != nil {
			row[2] = formatChannelMean(result.Summary.PSNR)
			row[3] = formatChannelMean(result.Summary.SSIM)
			row[4] = formatAggregate(result.Summary.VMAF)
			row[5] = formatBitrate(result.Summary.BitRateBPS)
		} else if result.ErrorKind != "" {
			row[2] = result.ErrorKind
		}
		rows = append(rows, row)
	}

	fmt.Fprintln(out, renderTable(
		[]string{"SOURCE", "STATUS", "PSNR", "SSIM", "VMAF", "BITRATE"},
		rows, 2, 3, 4, 5))
	fmt.Fprintf(out, "%d file(s): %d completed, %d failed, %d cancelled\n",
		report.TotalFiles, report.Successful, report.Failed, report.Cancelled)
	for _, warning := range report.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
}
