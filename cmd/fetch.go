package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/atlas-metrics/internal/cleaner"
	"github.com/pable/atlas-metrics/internal/report"
	"github.com/pable/atlas-metrics/internal/storage"
)

// fetchRecords reads raw records from a JSON export instead of DynamoDB.
var fetchRecords string

// fetchCmd is the cobra command for refreshing the game cache without aggregating.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and clean new games into the cache",
	Long: `Scan the games table for records whose id is not cached yet, clean them
and store the accepted games. Nothing is aggregated or written to the data
directory; use 'atlasmetrics run' for that.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchRecords, "records", "", "read raw records from a JSON file instead of DynamoDB")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	cl, err := cleaner.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("build cleaner: %w", err)
	}
	src, err := openSource(ctx, false, fetchRecords)
	if err != nil {
		return err
	}

	known, err := db.KnownIDs()
	if err != nil {
		return fmt.Errorf("read cached ids: %w", err)
	}
	raws, err := src.Scan(ctx, known)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	batch := cl.Batch(raws)
	if err := db.SaveGames(batch.Games, time.Now().UTC()); err != nil {
		return fmt.Errorf("save games: %w", err)
	}
	total, err := db.CountGames()
	if err != nil {
		return fmt.Errorf("count games: %w", err)
	}

	report.Done(os.Stdout, "Fetched %d new records: %d accepted, %d rejected. Cache holds %d games.",
		len(raws), len(batch.Games), batch.Rejected.Total(), total)
	if batch.Rejected.Total() > 0 {
		report.PrintRejections(os.Stdout, batch.Rejected)
	}
	return nil
}
