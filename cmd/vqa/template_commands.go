package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vqa/internal/analysis"
	"vqa/internal/jobs"
)

func newTemplateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage analysis templates",
	}
	cmd.AddCommand(newTemplateAddCommand(ctx))
	cmd.AddCommand(newTemplateListCommand(ctx))
	cmd.AddCommand(newTemplateRemoveCommand(ctx))
	return cmd
}

func newTemplateAddCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceSpec    string
		encoder       string
		encoderParams string
		metricNames   []string
		outputDir     string
		parallel      int
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create or update a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !analysis.ValidEncoder(analysis.Encoder(encoder)) {
				return fmt.Errorf("unsupported encoder %q (ffmpeg, x264, x265, vvenc)", encoder)
			}
			valid, unknown := analysis.NormalizeMetrics(metricNames)
			if len(unknown) > 0 {
				return fmt.Errorf("unknown metrics %v (psnr, ssim, vmaf)", unknown)
			}
			if len(valid) == 0 {
				return fmt.Errorf("at least one metric is required")
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			tpl := &jobs.Template{
				Name:          args[0],
				SourceSpec:    sourceSpec,
				Encoder:       encoder,
				EncoderParams: encoderParams,
				Metrics:       valid,
				OutputDir:     outputDir,
				ParallelJobs:  parallel,
			}
			if err := store.SaveTemplate(cmd.Context(), tpl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "template %s saved\n", tpl.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceSpec, "source", "", "Source spec: file list, file, directory, or glob")
	cmd.Flags().StringVar(&encoder, "encoder", "ffmpeg", "Encoder: ffmpeg, x264, x265, or vvenc")
	cmd.Flags().StringVar(&encoderParams, "params", "", "Extra encoder parameters")
	cmd.Flags().StringSliceVar(&metricNames, "metrics", []string{"psnr", "ssim", "vmaf"}, "Metrics to compute")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Override the configured output directory")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "Worker pool size for this template")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newTemplateListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no templates")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, tpl := range list {
				rows = append(rows, []string{
					tpl.Name,
					tpl.Encoder,
					strings.Join(tpl.Metrics, ","),
					tpl.SourceSpec,
					strconv.Itoa(tpl.ParallelJobs),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"NAME", "ENCODER", "METRICS", "SOURCE", "PARALLEL"}, rows, 4))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit templates as JSON")
	return cmd
}

func newTemplateRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a template (historical jobs are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.RemoveTemplate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "template %s removed\n", args[0])
			return nil
		},
	}
}
