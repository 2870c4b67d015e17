package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/milestone-server/internal/app"
)

func newExportCmd(rt *runtime) *cobra.Command {
	var (
		out           string
		researchGroup int64
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the research export as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var group *int64
			if cmd.Flags().Changed("research-group") {
				group = &researchGroup
			}

			return rt.withBackend(cmd.Context(), func(b *app.Backend) error {
				table, err := b.Service.ExtractResearchData(cmd.Context(), group)
				if err != nil {
					return err
				}

				var w io.Writer = cmd.OutOrStdout()
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("create %s: %w", out, err)
					}
					defer f.Close()
					w = f
				}
				if err := table.WriteCSV(w); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				rt.logger.Info("research export written",
					zap.String("out", out),
					zap.Int("rows", len(table.Rows)))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().Int64Var(&researchGroup, "research-group", 0, "only export respondents of this research group")
	return cmd
}
