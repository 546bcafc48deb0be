package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/atlas-metrics/internal/report"
	"github.com/pable/atlas-metrics/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the game cache",
	Long: `Run an arbitrary SQL query against the game cache and print results as a table.

Schema overview:
  games(game_id, datetime, map, format, first_player, num_players,
    duration_minutes, commanders, winner, payload BLOB, fetched_at)
  runs(run_id, started_at, finished_at, fetched, accepted, rejected,
    total_games, files_written)

datetime is stored as text (YYYY-MM-DDTHH:MM:SS, UTC). commanders is the
" vs "-joined commander list and winner the winning commander.
Example: atlasmetrics sql "SELECT map, COUNT(*) FROM games GROUP BY map"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	report.PrintQuery(os.Stdout, cols, rows)
	return nil
}
