package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vietddude/crashguard/internal/control"
	"github.com/vietddude/crashguard/internal/core/config"
	"github.com/vietddude/crashguard/internal/debug/fault"
)

var reportsLimit int

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Show the most recent failure reports",
	Run:   runReports,
}

func init() {
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 20, "number of reports to show")
	rootCmd.AddCommand(reportsCmd)
}

func runReports(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(fault.ExitConfig)
	}
	if cfg.Reports.Backend == config.BackendMemory {
		fmt.Println("Reports are kept in memory by the running service; query its /reports endpoint instead.")
		return
	}

	ctx := context.Background()
	store, err := control.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open report storage", "error", err)
		os.Exit(fault.ExitDatabase)
	}
	defer func() {
		_ = store.Close()
	}()

	reports, err := store.Reports.Recent(ctx, reportsLimit)
	if err != nil {
		slog.Error("Failed to query reports", "error", err)
		os.Exit(fault.ExitDatabase)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CREATED\tORIGIN\tSTATUS\tKIND\tMESSAGE\tLOCATION")

	for _, r := range reports {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s:%d\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.Origin, r.StatusCode, r.Kind, r.Message, r.File, r.Line)
	}
	_ = w.Flush()
}
