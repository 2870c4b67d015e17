package main

import (
	"github.com/spf13/cobra"

	"github.com/godilite/milestone-server/internal/app"
)

func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC server and the statistics scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.NewApp(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}
}
