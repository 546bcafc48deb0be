// Package pipeline runs every aggregator over the period × map cross
// product and assembles the nested per-file output.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pable/atlas-metrics/internal/aggregator"
	"github.com/pable/atlas-metrics/internal/config"
	"github.com/pable/atlas-metrics/internal/filter"
	"github.com/pable/atlas-metrics/internal/metrics"
	"github.com/pable/atlas-metrics/internal/model"
)

// SliceKey identifies one period × map cell.
type SliceKey struct {
	Period string
	Map    string
}

// Slice holds every aggregation of one cell.
type Slice struct {
	Games int

	Metadata               aggregator.Metadata
	CommanderStats         []aggregator.CommanderStat
	Matchups               aggregator.MatchupTable
	MatchupDetails         []aggregator.MatchupDetail
	CardStats              aggregator.CardStatsResult
	Trends                 aggregator.FactionTrends
	Distributions          aggregator.Distributions
	DeckComposition        map[string]aggregator.DeckComp
	FirstTurn              aggregator.FirstTurn
	CommanderTrends        aggregator.CommanderTrends
	DurationWinrates       aggregator.BucketWinrates
	ActionWinrates         aggregator.BucketWinrates
	TurnWinrates           aggregator.BucketWinrates
	CommanderCardStats     map[string][]aggregator.CommanderCard
	CommanderWinrateTrends aggregator.CommanderWinrateTrends
	MulliganStats          []aggregator.MulliganStat
	CommanderMulligan      map[string][]aggregator.MulliganStat
}

// Result is the outcome of Build.
type Result struct {
	Periods     []string
	Maps        []string
	GeneratedAt time.Time
	Slices      map[SliceKey]*Slice
}

// Slice returns the cell for period and map, or nil.
func (r *Result) Slice(period, mapName string) *Slice {
	return r.Slices[SliceKey{period, mapName}]
}

// SliceError reports an aggregator that failed on one slice.
type SliceError struct {
	Aggregator string
	Period     string
	Map        string
	Cause      any
}

func (e *SliceError) Error() string {
	return fmt.Sprintf("aggregator %s failed on slice %s/%s: %v", e.Aggregator, e.Period, e.Map, e.Cause)
}

// Build computes all slices concurrently, bounded by cfg.Workers. Each
// slice is filtered and aggregated independently from the shared,
// read-only games. A failing slice does not stop the others; all failures
// are returned together once every slice has finished, followed by the
// structural checks of Verify.
func Build(ctx context.Context, games []model.Game, ref *model.RefData, cfg *config.Config, now time.Time) (*Result, error) {
	all := filter.Refs(games)
	opts := aggregator.OptionsFrom(cfg)

	res := &Result{
		Maps:        cfg.Maps,
		GeneratedAt: now,
		Slices:      make(map[SliceKey]*Slice, len(cfg.PeriodList)*len(cfg.Maps)),
	}
	for _, p := range cfg.PeriodList {
		res.Periods = append(res.Periods, p.Key)
	}

	keys := make([]SliceKey, 0, len(cfg.PeriodList)*len(cfg.Maps))
	for _, p := range cfg.PeriodList {
		for _, m := range cfg.Maps {
			keys = append(keys, SliceKey{p.Key, m})
		}
	}
	slots := make([]*Slice, len(keys))
	failures := make([][]error, len(keys))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Workers)
	for i, p := range cfg.PeriodList {
		for j := range cfg.Maps {
			n := i*len(cfg.Maps) + j
			days := p.Days
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				key := keys[n]
				in := sliceInput{
					games: filter.ByMap(filter.ByPeriod(all, days, now), key.Map),
					ref:   ref,
					opts:  opts,
					now:   now,
				}
				slots[n], failures[n] = buildSlice(key, in, sliceSteps)
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var errs []error
	for n, key := range keys {
		res.Slices[key] = slots[n]
		errs = append(errs, failures[n]...)
		metrics.SliceGames.WithLabelValues(key.Period, key.Map).Set(float64(slots[n].Games))
	}
	if len(errs) > 0 {
		return res, joinErrors(errs)
	}
	return res, Verify(res)
}

// sliceInput is what every aggregator of one slice reads.
type sliceInput struct {
	games []*model.Game
	ref   *model.RefData
	opts  aggregator.Options
	now   time.Time
}

// sliceStep fills one field of a Slice.
type sliceStep struct {
	name string
	run  func(s *Slice, in sliceInput)
}

var sliceSteps = []sliceStep{
	{FileMetadata, func(s *Slice, in sliceInput) { s.Metadata = aggregator.SliceMetadata(in.games, in.now) }},
	{FileCommanderStats, func(s *Slice, in sliceInput) { s.CommanderStats = aggregator.CommanderStats(in.games, in.ref) }},
	{FileMatchups, func(s *Slice, in sliceInput) { s.Matchups = aggregator.Matchups(in.games) }},
	{FileMatchupDetails, func(s *Slice, in sliceInput) { s.MatchupDetails = aggregator.MatchupDetails(in.games, in.opts) }},
	{FileCardStats, func(s *Slice, in sliceInput) { s.CardStats = aggregator.CardStats(in.games, in.ref) }},
	{FileTrends, func(s *Slice, in sliceInput) { s.Trends = aggregator.Trends(in.games, in.ref, in.opts) }},
	{FileDistributions, func(s *Slice, in sliceInput) { s.Distributions = aggregator.GameDistributions(in.games) }},
	{FileDeckComposition, func(s *Slice, in sliceInput) { s.DeckComposition = aggregator.DeckComposition(in.games, in.ref) }},
	{FileFirstTurn, func(s *Slice, in sliceInput) { s.FirstTurn = aggregator.FirstTurnAdvantage(in.games) }},
	{FileCommanderTrends, func(s *Slice, in sliceInput) { s.CommanderTrends = aggregator.CommanderPopularity(in.games, in.opts) }},
	{FileDurationWinrates, func(s *Slice, in sliceInput) { s.DurationWinrates = aggregator.DurationWinrates(in.games) }},
	{FileActionWinrates, func(s *Slice, in sliceInput) { s.ActionWinrates = aggregator.ActionWinrates(in.games) }},
	{FileTurnWinrates, func(s *Slice, in sliceInput) { s.TurnWinrates = aggregator.TurnWinrates(in.games) }},
	{FileCommanderCardStats, func(s *Slice, in sliceInput) { s.CommanderCardStats = aggregator.CommanderCardStats(in.games) }},
	{FileCommanderWinrateTrends, func(s *Slice, in sliceInput) {
		s.CommanderWinrateTrends = aggregator.CommanderWinrates(in.games, in.opts)
	}},
	{FileMulliganStats, func(s *Slice, in sliceInput) { s.MulliganStats = aggregator.MulliganStats(in.games, in.ref, in.opts) }},
	{FileCommanderMulligan, func(s *Slice, in sliceInput) {
		s.CommanderMulligan = aggregator.CommanderMulliganStats(in.games, in.ref, in.opts)
	}},
}

// buildSlice runs every step in turn. A panicking step leaves its field
// at the zero value and is reported as a SliceError; later steps still run.
func buildSlice(key SliceKey, in sliceInput, steps []sliceStep) (*Slice, []error) {
	s := &Slice{Games: len(in.games)}
	var errs []error
	for _, st := range steps {
		if err := runStep(key, st, s, in); err != nil {
			errs = append(errs, err)
		}
	}
	return s, errs
}

func runStep(key SliceKey, st sliceStep, s *Slice, in sliceInput) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("module", "pipeline").
				Str("aggregator", st.name).
				Str("period", key.Period).
				Str("map", key.Map).
				Bytes("stack", debug.Stack()).
				Msgf("aggregator panic: %v", r)
			err = &SliceError{Aggregator: st.name, Period: key.Period, Map: key.Map, Cause: r}
		}
	}()
	start := time.Now()
	st.run(s, in)
	metrics.AggregateDuration.WithLabelValues(st.name).Observe(time.Since(start).Seconds())
	return nil
}
