package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/atlas-metrics/internal/output"
	"github.com/pable/atlas-metrics/internal/pipeline"
	"github.com/pable/atlas-metrics/internal/refdata"
	"github.com/pable/atlas-metrics/internal/report"
	"github.com/pable/atlas-metrics/internal/source"
	"github.com/pable/atlas-metrics/internal/storage"
)

// run command flags.
var (
	// runSkipFetch aggregates the cache without contacting the source.
	runSkipFetch bool
	// runRecords reads raw records from a JSON export instead of DynamoDB.
	runRecords string
	// runNoPublish keeps the output local even when a bucket is configured.
	runNoPublish bool
	// runCompress writes a .zst sibling next to each JSON file.
	runCompress bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch new games and regenerate every statistics file",
	Long: `Run the full pipeline: scan the games table for records not yet cached,
clean them, merge them into the cache, aggregate every period × map slice and
write the JSON files the site reads. Files whose content did not change are
left untouched. When ATLAS_S3_BUCKET is set, changed files are uploaded.

Examples:
  atlasmetrics run
  atlasmetrics run --skip-fetch
  atlasmetrics run --records export.json --no-publish`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runSkipFetch, "skip-fetch", false, "aggregate cached games only")
	runCmd.Flags().StringVar(&runRecords, "records", "", "read raw records from a JSON file instead of DynamoDB")
	runCmd.Flags().BoolVar(&runNoPublish, "no-publish", false, "do not upload to S3")
	runCmd.Flags().BoolVar(&runCompress, "compress", false, "also write zstd-compressed copies (default $ATLAS_COMPRESS)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	src, err := openSource(ctx, runSkipFetch, runRecords)
	if err != nil {
		return err
	}

	writer, err := output.NewWriter(cfg.DataDir, cfg.Compress || runCompress)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	defer writer.Close()

	runner := &pipeline.Runner{
		Config: cfg,
		Source: src,
		Cache:  db,
		Refs:   refdata.LoaderFromConfig(cfg),
		Writer: writer,
	}
	if !runNoPublish {
		pub, err := output.S3FromConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		if pub != nil {
			runner.Publisher = pub
		}
	}

	sum, err := runner.Run(ctx)
	if err != nil {
		printBuildErrors(err)
		return fmt.Errorf("run %s: %w", sum.RunID, err)
	}
	report.PrintRunSummary(os.Stdout, sum)
	return nil
}

// openSource picks the raw-record source. A nil source skips fetching.
func openSource(ctx context.Context, skip bool, records string) (source.Source, error) {
	switch {
	case skip:
		return nil, nil
	case records != "":
		s, err := source.LoadStatic(records)
		if err != nil {
			return nil, fmt.Errorf("load records: %w", err)
		}
		return s, nil
	default:
		d, err := source.DynamoFromConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to dynamodb: %w", err)
		}
		return d, nil
	}
}

// printBuildErrors lists every structural violation of a failed build.
func printBuildErrors(err error) {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return
	}
	var structural []error
	for _, e := range joined.Unwrap() {
		var se *pipeline.StructuralError
		var sl *pipeline.SliceError
		if errors.As(e, &se) || errors.As(e, &sl) {
			structural = append(structural, e)
		}
	}
	report.PrintStructuralErrors(os.Stderr, structural)
}
