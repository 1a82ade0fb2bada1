package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"vqa/internal/analysis"
	"vqa/internal/jobs"
	"vqa/internal/media"
	"vqa/internal/runner"
	"vqa/internal/services"
)

// newCompareCommand runs an ad-hoc dual-file job: measure an existing encoded
// file against its reference without encoding anything.
func newCompareCommand(ctx *commandContext) *cobra.Command {
	var (
		metricNames []string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "compare <distorted> <reference>",
		Short: "Measure an encoded file against a reference",
		Args:  cobra.ExactArgs(2),
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

			job := &jobs.Job{
				Mode:      jobs.ModeDualFile,
				Source:    args[0],
				Reference: args[1],
			}
			if err := store.CreateJob(runCtx, job); err != nil {
				return err
			}
			job.JobDir = filepath.Join(cfg.Paths.JobsRoot, "jobs", job.ID)
			if err := store.MarkRunning(runCtx, job.ID); err != nil {
				return err
			}

			logger := ctx.newLogger()
			pipeline := analysis.NewPipeline(cfg, runner.New(logger), media.NewProber(cfg.FFprobeBinary()), store, logger)

			// Status updates must land even if the run was cancelled.
			storeCtx := context.WithoutCancel(cmd.Context())

			summary, execErr := pipeline.Execute(runCtx, job, analysis.Params{Metrics: metricNames})
			if execErr != nil {
				kind := services.Kind(execErr)
				if kind == services.KindCancelled {
					_ = store.MarkCancelled(storeCtx, job.ID)
				} else {
					_ = store.MarkFailed(storeCtx, job.ID, kind, execErr.Error())
				}
				return execErr
			}
			if err := store.MarkCompleted(storeCtx, job.ID, summary); err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			job.Summary = summary
			job.Status = jobs.StatusCompleted
			renderJobSummary(cmd, job)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&metricNames, "metrics", []string{"psnr", "ssim", "vmaf"}, "Metrics to compute")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the summary as JSON")
	return cmd
}
