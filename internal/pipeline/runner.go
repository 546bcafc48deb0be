package pipeline

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/pable/atlas-metrics/internal/cleaner"
	"github.com/pable/atlas-metrics/internal/config"
	"github.com/pable/atlas-metrics/internal/metrics"
	"github.com/pable/atlas-metrics/internal/model"
	"github.com/pable/atlas-metrics/internal/output"
	"github.com/pable/atlas-metrics/internal/source"
	"github.com/pable/atlas-metrics/internal/storage"
)

// Reference table file names, written next to the per-slice files.
const (
	FileCards      = "cards.json"
	FileCommanders = "commanders.json"
)

// Cache is the incremental game store.
type Cache interface {
	LoadGames() ([]model.Game, error)
	KnownIDs() (map[string]struct{}, error)
	SaveGames(games []model.Game, fetchedAt time.Time) error
	InsertRun(r storage.RunRecord) error
}

// RefLoader loads the card and commander tables.
type RefLoader interface {
	Load() (*model.RefData, error)
}

// Writer persists one output document.
type Writer interface {
	WriteJSON(name string, v any, compact bool) (output.File, error)
}

// Publisher mirrors written files to remote storage.
type Publisher interface {
	Publish(ctx context.Context, dir string, files []output.File) (int, error)
}

// Runner drives one full pipeline run. Source and Publisher are optional:
// a nil Source aggregates the cache as it is, a nil Publisher keeps the
// output local.
type Runner struct {
	Config    *config.Config
	Source    source.Source
	Cache     Cache
	Refs      RefLoader
	Writer    Writer
	Publisher Publisher
	Now       func() time.Time
}

// RunSummary describes what a run did.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Fetched    int
	Accepted   int
	Rejected   cleaner.Tally
	TotalGames int

	Files    []output.File
	Uploaded int
	Result   *Result
}

// Written counts the files whose content changed.
func (s *RunSummary) Written() int {
	return lo.CountBy(s.Files, func(f output.File) bool { return f.Changed })
}

// Run fetches new records, cleans them, merges them into the cache and
// writes every aggregation. Structural violations abort the run before any
// file is written.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	now := time.Now().UTC()
	if r.Now != nil {
		now = r.Now()
	}
	sum := &RunSummary{
		RunID:     ulid.Make().String(),
		StartedAt: now,
		Rejected:  cleaner.Tally{},
	}
	logger := log.With().Str("module", "pipeline").Str("run_id", sum.RunID).Logger()
	logger.Info().Msg("run started")

	cl, err := cleaner.FromConfig(r.Config)
	if err != nil {
		return sum, errors.Wrap(err, "failed to build cleaner")
	}

	cached, err := r.Cache.LoadGames()
	if err != nil {
		return sum, errors.Wrap(err, "failed to load cached games")
	}
	logger.Info().Int("cached", len(cached)).Msg("loaded game cache")

	games := cached
	if r.Source != nil {
		fresh, err := r.fetch(ctx, cl, now, sum, &logger)
		if err != nil {
			return sum, err
		}
		// A refetched id replaces its cached copy.
		games = lo.UniqBy(append(fresh, cached...), func(g model.Game) string { return g.GameID })
	}
	sum.TotalGames = len(games)
	metrics.CachedGames.Set(float64(len(games)))

	ref, err := r.Refs.Load()
	if err != nil {
		return sum, errors.Wrap(err, "failed to load reference data")
	}

	res, err := Build(ctx, games, ref, r.Config, now)
	if err != nil {
		return sum, err
	}
	sum.Result = res

	if err := r.write(res, ref, sum); err != nil {
		return sum, err
	}
	if r.Publisher != nil {
		n, err := r.Publisher.Publish(ctx, r.Config.DataDir, sum.Files)
		sum.Uploaded = n
		if err != nil {
			return sum, errors.Wrap(err, "failed to publish output")
		}
	}

	sum.FinishedAt = time.Now().UTC()
	if r.Now != nil {
		sum.FinishedAt = r.Now()
	}
	metrics.LastSuccess.Set(float64(sum.FinishedAt.Unix()))
	if err := metrics.WriteTextfile(r.Config.MetricsFile); err != nil {
		logger.Warn().Err(err).Msg("metrics not flushed")
	}
	if err := r.Cache.InsertRun(storage.RunRecord{
		RunID:        sum.RunID,
		StartedAt:    sum.StartedAt,
		FinishedAt:   sum.FinishedAt,
		Fetched:      sum.Fetched,
		Accepted:     sum.Accepted,
		Rejected:     sum.Rejected.Total(),
		TotalGames:   sum.TotalGames,
		FilesWritten: sum.Written(),
	}); err != nil {
		logger.Warn().Err(err).Msg("run history not recorded")
	}

	logger.Info().
		Int("games", sum.TotalGames).
		Int("written", sum.Written()).
		Int("uploaded", sum.Uploaded).
		Msg("run finished")
	return sum, nil
}

func (r *Runner) fetch(ctx context.Context, cl *cleaner.Cleaner, now time.Time, sum *RunSummary, logger *zerolog.Logger) ([]model.Game, error) {
	known, err := r.Cache.KnownIDs()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read cached ids")
	}
	raws, err := r.Source.Scan(ctx, known)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch records")
	}
	sum.Fetched = len(raws)

	batch := cl.Batch(raws)
	sum.Accepted = len(batch.Games)
	sum.Rejected = batch.Rejected
	metrics.GamesAccepted.Add(float64(len(batch.Games)))
	for reason, n := range batch.Rejected {
		metrics.GamesRejected.WithLabelValues(string(reason)).Add(float64(n))
	}
	logger.Info().
		Int("fetched", sum.Fetched).
		Int("accepted", sum.Accepted).
		Int("rejected", batch.Rejected.Total()).
		Msg("cleaned new records")

	if err := r.Cache.SaveGames(batch.Games, now); err != nil {
		return nil, errors.Wrap(err, "failed to save games")
	}
	return batch.Games, nil
}

func (r *Runner) write(res *Result, ref *model.RefData, sum *RunSummary) error {
	put := func(name string, v any, compact bool) error {
		f, err := r.Writer.WriteJSON(name, v, compact)
		if err != nil {
			return err
		}
		sum.Files = append(sum.Files, f)
		return nil
	}

	if err := put(FileCards, ref.Cards, false); err != nil {
		return err
	}
	if err := put(FileCommanders, ref.Commanders, false); err != nil {
		return err
	}
	files := res.Files()
	for _, name := range FileNames {
		if err := put(name, files[name], Compact(name)); err != nil {
			return err
		}
	}
	return nil
}
