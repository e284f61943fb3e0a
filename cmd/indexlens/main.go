package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/guillermoBallester/indexlens/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "indexlens",
		Short:         "Index utilization scoring and drop simulation advisor",
		Long:          "indexlens scores the indexes of a PostgreSQL or MySQL table, flags drop candidates and simulates their removal without touching the schema.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Without a subcommand the MCP server starts, as with "serve".
		RunE: runServe,
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(), newReportCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis tools over MCP (stdio or streamable HTTP)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

// loadConfig resolves configuration from the environment and the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	overrides, err := overridesFromFlags(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger.Info("starting indexlens",
		slog.String("version", version),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.String("db.system", string(cfg.Dialect)),
		slog.String("database_url", redactDSN(cfg.DatabaseURL)),
		slog.String("transport", cfg.Transport),
		slog.String("simulator", cfg.Simulator),
		slog.String("calibration_store", cfg.CalibrationStore),
		slog.String("query_timeout", cfg.QueryTimeout.String()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpServer := a.mcpServer()
	switch cfg.Transport {
	case "http":
		err = serveHTTP(ctx, cfg, mcpServer, logger)
	default:
		err = serveStdio(ctx, mcpServer, logger)
	}
	if err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
