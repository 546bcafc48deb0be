package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/atlas-metrics/internal/report"
	"github.com/pable/atlas-metrics/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <game-id-prefix>",
	Short: "Show a cached game by id prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	game, err := db.GetGameByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query game: %w", err)
	}
	if game == nil {
		fmt.Fprintf(os.Stderr, "No game found with id prefix %q\n", prefix)
		return nil
	}
	report.PrintGame(os.Stdout, game)
	return nil
}
