package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/atlas-metrics/internal/daily"
	"github.com/pable/atlas-metrics/internal/output"
	"github.com/pable/atlas-metrics/internal/report"
	"github.com/pable/atlas-metrics/internal/storage"
)

// daily command flags.
var (
	// dailyDate overrides the summarised day (YYYY-MM-DD); default is yesterday (UTC).
	dailyDate string
	// dailyOut receives the Discord message, for the workflow to post.
	dailyOut string
	// dailyJSON writes the summary document into the data directory.
	dailyJSON bool
	// dailyTable prints the summary as a table instead of the message.
	dailyTable bool
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Summarise yesterday's games for the Discord channel",
	Long: `Build the daily digest of games played on one UTC day: total games,
unique players, average length and the three most-picked commanders.
The Discord message is printed to stdout and optionally written to a file.`,
	Args: cobra.NoArgs,
	RunE: runDaily,
}

func init() {
	dailyCmd.Flags().StringVar(&dailyDate, "date", "", "day to summarise, YYYY-MM-DD (default yesterday UTC)")
	dailyCmd.Flags().StringVarP(&dailyOut, "out", "o", "", "also write the message to this file")
	dailyCmd.Flags().BoolVar(&dailyJSON, "json", false, "write daily_summary.json into the data directory")
	dailyCmd.Flags().BoolVar(&dailyTable, "table", false, "print a table instead of the message")
}

func runDaily(cmd *cobra.Command, args []string) error {
	day := daily.Yesterday(time.Now())
	if dailyDate != "" {
		d, err := time.Parse("2006-01-02", dailyDate)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
		day = d
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	games, err := db.LoadGames()
	if err != nil {
		return fmt.Errorf("load games: %w", err)
	}
	summary := daily.Summarize(daily.OnDay(games, day), day, 3)
	message := daily.Message(summary, cfg.SiteURL)

	if dailyTable {
		report.PrintDailySummary(os.Stdout, summary)
	} else {
		fmt.Fprintln(os.Stdout, message)
	}
	if dailyOut != "" {
		if err := os.WriteFile(dailyOut, []byte(message), 0o644); err != nil {
			return fmt.Errorf("write message: %w", err)
		}
	}
	if dailyJSON {
		w, err := output.NewWriter(cfg.DataDir, false)
		if err != nil {
			return fmt.Errorf("create writer: %w", err)
		}
		defer w.Close()
		if _, err := w.WriteJSON("daily_summary.json", summary, false); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}
