package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evmobile/internal/app"
	"evmobile/internal/clients"
	"evmobile/internal/config"
	"evmobile/libs/logging"
)

var (
	logLevel   = ""
	configPath = ""
	daemonAddr = "http://127.0.0.1:8090"
)

var (
	gAccount  = "Account:"
	gCharging = "Charging:"
	gDaemon   = "Daemon:"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: evmobile daemon is not reachable")
		fmt.Fprintln(os.Stderr, "Start it with 'evmobile run' and set status.port, or pass --daemon-addr")
	case clients.IsBusiness(err), clients.IsTransport(err):
		fmt.Fprintln(os.Stderr, "\n"+clients.UserMessage(err))
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "evmobile",
		Short:        "evmobile is a headless EV charging client",
		SilenceUsage: true,
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error), defaults to LOG_LEVEL or info")
	globalFlags.StringVar(&configPath, "config", "", "config file path, defaults to EVM_CONFIG_FILE")
	globalFlags.StringVar(&daemonAddr, "daemon-addr", daemonAddr, "status API address of a running daemon")

	for _, g := range []string{gAccount, gCharging, gDaemon} {
		cmd.AddGroup(&cobra.Group{ID: g, Title: g})
	}

	cmd.AddCommand(
		NewRunCommand(),
		NewVersionCommand(),
		NewLoginCommand(),
		NewLogoutCommand(),
		NewTopupCommand(),
		NewHistoryCommand(),
		NewStationsCommand(),
		NewScanCommand(),
		NewRescanCommand(),
		NewStopCommand(),
		NewDismissCommand(),
		NewStateCommand(),
	)

	return cmd
}

// setup loads configuration and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(logLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withApp runs fn against a freshly wired application.
func withApp(fn func(a *app.App, logger *zap.Logger) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() // best-effort flush

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()
	return fn(application, logger)
}
