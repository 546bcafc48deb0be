package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/atlas-metrics/internal/report"
	"github.com/pable/atlas-metrics/internal/storage"
)

var summaryRuns int

// summaryCmd is the cobra command for displaying a high-level cache overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the game cache",
	Long: `Display aggregate statistics about the cached games: total count, date
range, map breakdown and the most recent pipeline runs.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().IntVar(&summaryRuns, "runs", 10, "number of recent runs to list")
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	ov, err := db.Overview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.Total == 0 {
		fmt.Fprintln(os.Stdout, "No games cached yet. Run 'atlasmetrics fetch' to add some.")
		return nil
	}
	runs, err := db.ListRuns(summaryRuns)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	report.PrintOverview(os.Stdout, ov, runs)
	return nil
}
