package pipeline

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pable/atlas-metrics/internal/aggregator"
)

// StructuralError is a broken output invariant on one slice. It signals a
// logic defect and aborts the run.
type StructuralError struct {
	Period string
	Map    string
	Err    error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("slice %s/%s: %v", e.Period, e.Map, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// Verify runs the structural checks of every aggregation in every slice and
// returns all violations joined, or nil. Card funnel anomalies are logged
// only.
func Verify(res *Result) error {
	var errs []error
	for _, period := range res.Periods {
		for _, m := range res.Maps {
			s := res.Slice(period, m)
			if s == nil {
				errs = append(errs, &StructuralError{Period: period, Map: m, Err: errors.New("slice missing")})
				continue
			}
			for _, err := range s.check() {
				errs = append(errs, &StructuralError{Period: period, Map: m, Err: err})
			}
			if names := s.CardStats.FunnelAnomalies(); len(names) > 0 {
				log.Warn().
					Str("module", "pipeline").
					Str("period", period).
					Str("map", m).
					Strs("cards", names).
					Msg("cards played or drawn more often than included")
			}
		}
	}
	return joinErrors(errs)
}

func (s *Slice) check() []error {
	checks := []error{
		aggregator.CheckCommanderStats(s.CommanderStats),
		s.Matchups.Check(),
		aggregator.CheckMatchupDetails(s.MatchupDetails),
		s.CardStats.Check(),
		s.Trends.Check(),
		s.Distributions.Check(),
		aggregator.CheckDeckComposition(s.DeckComposition),
		s.FirstTurn.Check(),
		s.CommanderTrends.Check(),
		s.DurationWinrates.Check(),
		s.ActionWinrates.Check(),
		s.TurnWinrates.Check(),
		aggregator.CheckCommanderCardStats(s.CommanderCardStats),
		s.CommanderWinrateTrends.Check(),
		aggregator.CheckMulliganStats(s.MulliganStats),
	}
	for cmd, rows := range s.CommanderMulligan {
		if err := aggregator.CheckMulliganStats(rows); err != nil {
			checks = append(checks, fmt.Errorf("commander %s: %w", cmd, err))
		}
	}
	if s.Metadata.TotalMatches != s.Games {
		checks = append(checks, fmt.Errorf("metadata: total_matches %d != slice games %d", s.Metadata.TotalMatches, s.Games))
	}

	var out []error
	for _, err := range checks {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
