package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evmobile/internal/app"
)

// Version is set at build time.
var Version = "dev"

func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Short:   "Run the client daemon in the foreground",
		GroupID: gDaemon,
		Long: `Run the client daemon in the foreground.

The daemon keeps the event feed open, reconciles the active charging session and,
when status.port is set, serves the local status API used by scan, stop and state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.App, logger *zap.Logger) error {
				logger.Info("evmobile daemon starting", zap.String("version", Version))
				if err := a.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				logger.Info("evmobile daemon stopped")
				return nil
			})
		},
	}
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("evmobile %s\n", Version)
		},
	}
}
