package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vqa/internal/sources"
)

func newResolveCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "resolve <spec>",
		Short: "Show which files a source spec resolves to",
		Long: `A source spec is one of: a comma-separated file list, a single file,
a directory (scanned for video files), or a glob pattern.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolution := sources.Resolve(args[0])

			if jsonOutput {
				return writeJSON(cmd, resolution)
			}

			out := cmd.OutOrStdout()
			if len(resolution.Files) == 0 {
				fmt.Fprintln(out, "no files resolved")
			} else {
				rows := make([][]string, 0, len(resolution.Files))
				for _, file := range resolution.Files {
					rows = append(rows, []string{
						file.Path,
						string(file.ResolvedFrom),
						strconv.FormatInt(file.Size, 10),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"PATH", "RESOLVED FROM", "SIZE"}, rows, 2))
			}
			for _, warning := range resolution.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the resolution as JSON")
	return cmd
}
