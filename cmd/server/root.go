package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/milestone-server/internal/app"
	"github.com/godilite/milestone-server/internal/config"
)

// runtime is the configuration and logger shared by every subcommand.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:           "milestone-server",
		Short:         "Child development milestone scoring service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			rt.cfg, rt.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	serve := newServeCmd(rt)
	root.RunE = serve.RunE
	root.AddCommand(serve, newStatsCmd(rt), newExportCmd(rt))
	return root
}

// withBackend opens the database for a one-shot command.
func (rt *runtime) withBackend(ctx context.Context, fn func(b *app.Backend) error) error {
	b, err := app.OpenBackend(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			rt.logger.Error("database shutdown error", zap.Error(err))
		}
	}()
	return fn(b)
}
