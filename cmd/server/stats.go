package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/godilite/milestone-server/internal/app"
)

func newStatsCmd(rt *runtime) *cobra.Command {
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Maintain the population statistics",
	}

	var full bool
	update := &cobra.Command{
		Use:   "update",
		Short: "Fold completed answer sessions into the statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withBackend(cmd.Context(), func(b *app.Backend) error {
				result, err := b.Service.RunStatisticsUpdate(cmd.Context(), !full)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
				return nil
			})
		},
	}
	update.Flags().BoolVar(&full, "full", false, "rebuild the statistics from every qualifying session")

	stats.AddCommand(update)
	return stats
}
