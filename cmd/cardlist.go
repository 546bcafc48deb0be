package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/atlas-metrics/internal/cardlist"
	"github.com/pable/atlas-metrics/internal/config"
	"github.com/pable/atlas-metrics/internal/output"
	"github.com/pable/atlas-metrics/internal/report"
)

var (
	cardlistAsset   string
	cardlistVersion string
)

var cardlistCmd = &cobra.Command{
	Use:   "cardlist",
	Short: "Extract cardlist.json from the game's FullCardList asset",
	Long: `Read the ordered card name list from the Unity FullCardList.asset and write
cardlist.json ({version, total, cards[{id, name}], legacy_names}) into the
data directory. Run this when the game adds new cards.`,
	Args: cobra.NoArgs,
	RunE: runCardlist,
}

func init() {
	cardlistCmd.Flags().StringVar(&cardlistAsset, "asset", "", "path to FullCardList.asset (default $ATLAS_CARD_LIST_ASSET)")
	cardlistCmd.Flags().StringVar(&cardlistVersion, "version", "", "version stamp (default today's date)")
}

func runCardlist(cmd *cobra.Command, args []string) error {
	asset := cardlistAsset
	if asset == "" {
		asset = cfg.CardListAsset
	}
	version := cardlistVersion
	if version == "" {
		version = time.Now().UTC().Format("2006-01-02")
	}

	names, err := cardlist.ExtractFile(asset)
	if err != nil {
		return fmt.Errorf("extract card list: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no card names found in %s", asset)
	}

	w, err := output.NewWriter(cfg.DataDir, false)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	defer w.Close()

	doc := cardlist.Build(names, version, config.DefaultCommanderRenames())
	if _, err := w.WriteJSON("cardlist.json", doc, false); err != nil {
		return fmt.Errorf("write cardlist: %w", err)
	}
	report.Done(os.Stdout, "Wrote %d cards to %s/cardlist.json", doc.Total, cfg.DataDir)
	return nil
}
