package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/atlas-metrics/internal/pipeline"
	"github.com/pable/atlas-metrics/internal/refdata"
	"github.com/pable/atlas-metrics/internal/report"
	"github.com/pable/atlas-metrics/internal/storage"
)

// aggregate command flags.
var (
	aggPeriod string
	aggMap    string
	aggTop    int
)

// aggregateCmd computes every slice from the cache and prints one of them.
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate the cached games and print one slice",
	Long: `Compute every period × map slice from the game cache, run the structural
checks, and print the commander and card tables of the selected slice.
No file is written.`,
	Args: cobra.NoArgs,
	RunE: runAggregate,
}

func init() {
	aggregateCmd.Flags().StringVar(&aggPeriod, "period", "all", "period key (e.g. all, 6m, 3m, 1m)")
	aggregateCmd.Flags().StringVar(&aggMap, "map", "all", "map name or 'all'")
	aggregateCmd.Flags().IntVar(&aggTop, "top", 15, "rows per table (0 for all)")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	games, err := db.LoadGames()
	if err != nil {
		return fmt.Errorf("load games: %w", err)
	}
	ref, err := refdata.LoaderFromConfig(cfg).Load()
	if err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}

	res, err := pipeline.Build(ctx, games, ref, cfg, time.Now().UTC())
	if err != nil {
		printBuildErrors(err)
		return fmt.Errorf("aggregate: %w", err)
	}

	s := res.Slice(aggPeriod, aggMap)
	if s == nil {
		return fmt.Errorf("no slice %s/%s (periods %v, maps %v)", aggPeriod, aggMap, res.Periods, res.Maps)
	}

	report.PrintSliceGrid(os.Stdout, res)
	fmt.Fprintf(os.Stdout, "\n=== %s / %s: %d games, %d players ===\n\n", aggPeriod, aggMap, s.Games, s.Metadata.TotalPlayers)
	report.PrintCommanderTable(os.Stdout, s.CommanderStats, aggTop)
	report.PrintFirstTurn(os.Stdout, s.FirstTurn)
	fmt.Fprintln(os.Stdout)
	report.PrintCardTable(os.Stdout, s.CardStats.Cards, aggTop)
	return nil
}
