package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/crashguard/internal/control"
	"github.com/vietddude/crashguard/internal/core/config"
	"github.com/vietddude/crashguard/internal/debug/fault"
	"github.com/vietddude/crashguard/internal/debug/hook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	// Load Configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(fault.ExitConfig)
	}

	setupLogging(cfg.Logging)

	proc := hook.NewProcess()
	defer proc.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := control.NewApp(ctx, cfg, proc)
	if err != nil {
		slog.Error("Failed to initialize crashguard", "error", err)
		os.Exit(fault.ExitDatabase)
	}

	slog.Info("Crashguard started",
		"config", cfgPath,
		"environment", cfg.Environment,
		"reports", cfg.Reports.Backend,
		"handlers", cfg.ErrorHandling.Handlers,
	)

	if err := app.Run(ctx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		proc.Exit(fault.ExitError)
	}
	proc.Shutdown()
}
