package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pable/atlas-metrics/internal/config"
	"github.com/pable/atlas-metrics/internal/logger"
)

// Persistent flags. Empty or zero values keep the configured default.
var (
	dbPath   string
	dataDir  string
	logLevel string
	workers  int
)

// cfg is resolved once before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "atlasmetrics",
	Short: "Atlas Conquest match statistics pipeline",
	Long: `Fetch raw match records, clean them into a local game cache and publish
the pre-aggregated statistics consumed by the analytics site.

Configuration is read from ATLAS_* environment variables and an optional .env
file; the flags below override it.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite game cache (default $ATLAS_CACHE_PATH)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "output directory for JSON files (default $ATLAS_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "trace, debug, info, warn or error")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "slices aggregated in parallel")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(cardlistCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	spec, err := config.LoadSpec()
	if err != nil {
		return err
	}
	if dbPath != "" {
		spec.CachePath = dbPath
	}
	if dataDir != "" {
		spec.DataDir = dataDir
	}
	if logLevel != "" {
		spec.LogLevel = logLevel
	}
	if workers > 0 {
		spec.Workers = workers
	}

	c, err := config.New(spec)
	if err != nil {
		return err
	}
	cfg = c
	dbPath = cfg.CachePath
	logger.Configure(cfg.LogLevel, cfg.LogFile)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
