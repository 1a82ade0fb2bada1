package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vqa/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect analysis jobs",
	}
	cmd.AddCommand(newJobsListCommand(ctx))
	cmd.AddCommand(newJobsShowCommand(ctx))
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFilter string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []jobs.Status
			if statusFilter != "" {
				status := jobs.Status(strings.ToLower(statusFilter))
				if !status.Valid() {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				statuses = append(statuses, status)
			}

			list, err := store.ListJobs(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no jobs")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					job.ID,
					string(job.Mode),
					job.Template,
					job.Source,
					statusLabel(job.Status, colorize),
					formatTimestamp(&job.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "MODE", "TEMPLATE", "SOURCE", "STATUS", "CREATED"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, running, completed, failed, cancelled)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit jobs as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, job)
			}
			renderJobSummary(cmd, job)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the job as JSON")
	return cmd
}

func renderJobSummary(cmd *cobra.Command, job *jobs.Job) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "ID:        %s\n", job.ID)
	fmt.Fprintf(out, "Mode:      %s\n", job.Mode)
	if job.Template != "" {
		fmt.Fprintf(out, "Template:  %s\n", job.Template)
	}
	fmt.Fprintf(out, "Source:    %s\n", job.Source)
	if job.Reference != "" {
		fmt.Fprintf(out, "Reference: %s\n", job.Reference)
	}
	fmt.Fprintf(out, "Status:    %s\n", statusLabel(job.Status, colorize))
	fmt.Fprintf(out, "Created:   %s\n", formatTimestamp(&job.CreatedAt))
	fmt.Fprintf(out, "Started:   %s\n", formatTimestamp(job.StartedAt))
	fmt.Fprintf(out, "Finished:  %s\n", formatTimestamp(job.FinishedAt))

	if job.ErrorKind != "" {
		fmt.Fprintf(out, "Error:     [%s] %s\n", job.ErrorKind, job.ErrorMessage)
	}
	if summary := job.Summary; summary != nil {
		fmt.Fprintf(out, "Frames:    %d\n", summary.FrameCount)
		fmt.Fprintf(out, "PSNR:      %s\n", formatChannelMean(summary.PSNR))
		fmt.Fprintf(out, "SSIM:      %s\n", formatChannelMean(summary.SSIM))
		fmt.Fprintf(out, "VMAF:      %s\n", formatAggregate(summary.VMAF))
		fmt.Fprintf(out, "Bitrate:   %s\n", formatBitrate(summary.BitRateBPS))
	}
	if len(job.CommandLog) > 0 {
		fmt.Fprintln(out, "Commands:")
		for _, entry := range job.CommandLog {
			fmt.Fprintf(out, "  [%s] %s %s\n", entry.Status, entry.Type, strings.Join(entry.Argv, " "))
		}
	}
}
