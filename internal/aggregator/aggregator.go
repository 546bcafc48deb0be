// Package aggregator computes the statistical projections published for a
// slice of cleaned games. Every function is pure: it reads the games it is
// given, never mutates them, and returns a fresh value. An empty slice
// yields a structurally valid, empty result.
package aggregator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/config"
	"github.com/pable/atlas-metrics/internal/filter"
	"github.com/pable/atlas-metrics/internal/model"
)

// Options carries the tunable thresholds used by the aggregators.
type Options struct {
	// TrendMinPicks drops trend weeks with fewer picks (or games) than this.
	TrendMinPicks int
	// MatchupCardMinPlays is the minimum play count for a matchup card entry.
	MatchupCardMinPlays int
	// MatchupTopCards caps the card lists of a matchup direction.
	MatchupTopCards int
	// MulliganBaseline selects the expected keep rate policy.
	MulliganBaseline string
}

// DefaultOptions returns the thresholds the site was built around.
func DefaultOptions() Options {
	return Options{
		TrendMinPicks:       4,
		MatchupCardMinPlays: 3,
		MatchupTopCards:     10,
		MulliganBaseline:    config.BaselineHand,
	}
}

// OptionsFrom extracts aggregator thresholds from the run configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		TrendMinPicks:       cfg.TrendMinPicks,
		MatchupCardMinPlays: cfg.MatchupCardMinPlays,
		MatchupTopCards:     cfg.MatchupTopCards,
		MulliganBaseline:    cfg.MulliganBaseline,
	}
}

// ContractError reports a broken structural invariant in an aggregation
// result. It signals a logic defect, not bad input data.
type ContractError struct {
	Aggregator string
	Detail     string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", e.Aggregator, e.Detail)
}

func violation(agg, format string, args ...any) error {
	return &ContractError{Aggregator: agg, Detail: fmt.Sprintf(format, args...)}
}

// round rounds half away from zero to the given number of decimals.
func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// rate is n/d rounded to 4 decimals, 0 when d is 0.
func rate(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return round(float64(n)/float64(d), 4)
}

// winrate is wins/total rounded to 4 decimals, null when total is 0.
func winrate(wins, total int) null.Float {
	if total == 0 {
		return null.Float{}
	}
	return null.FloatFrom(round(float64(wins)/float64(total), 4))
}

// pct is n/d as a percentage rounded to 1 decimal, 0 when d is 0.
func pct(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return round(float64(n)/float64(d)*100, 1)
}

// WeekKey formats t as "YYYY-Www" where ww counts Monday-started weeks and
// days before the first Monday of the year fall in week 00.
func WeekKey(t time.Time) string {
	monday0 := (int(t.Weekday()) + 6) % 7
	week := (t.YearDay() - 1 + 7 - monday0) / 7
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

// gameWeek returns the week key of a dated game.
func gameWeek(g *model.Game) (string, bool) {
	if !g.Datetime.Valid {
		return "", false
	}
	t, ok := filter.ParseDatetime(g.Datetime.String)
	if !ok {
		return "", false
	}
	return WeekKey(t), true
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// headsUp returns both players of a two-player game.
func headsUp(g *model.Game) (*model.Player, *model.Player, bool) {
	if !g.IsHeadsUp() {
		return nil, nil, false
	}
	return &g.Players[0], &g.Players[1], true
}
