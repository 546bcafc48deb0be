package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/atlas-metrics/internal/report"
	"github.com/pable/atlas-metrics/internal/storage"
)

var (
	listMap   string
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached games, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listMap, "map", "", "only games on this map")
	listCmd.Flags().IntVar(&listLimit, "limit", 25, "maximum rows (0 for all)")
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	games, err := db.ListGames(listMap, listLimit)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	if len(games) == 0 {
		fmt.Fprintln(os.Stdout, "No games cached yet. Run 'atlasmetrics fetch' to add some.")
		return nil
	}
	report.PrintGameList(os.Stdout, games)
	return nil
}
