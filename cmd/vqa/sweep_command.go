package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var olderThanDays int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired terminal jobs and their job directories",
		Args:  cobra.NoArgs,
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

			retention := cfg.Retention()
			if olderThanDays > 0 {
				retention = time.Duration(olderThanDays) * 24 * time.Hour
			}
			cutoff := time.Now().Add(-retention)

			removed, err := store.SweepExpired(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d job(s) finished before %s\n",
				removed, cutoff.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Override the configured retention window, in days")
	return cmd
}
