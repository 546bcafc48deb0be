package aggregator

import (
	"sort"

	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/config"
	"github.com/pable/atlas-metrics/internal/model"
)

// MulliganStat is one card row of mulligan_stats.json.
type MulliganStat struct {
	Name          string     `json:"name"`
	KeptCount     int        `json:"kept_count"`
	ReturnedCount int        `json:"returned_count"`
	TotalSeen     int        `json:"total_seen"`
	KeepRate      float64    `json:"keep_rate"`
	NormKeepDelta null.Float `json:"norm_keep_delta"`
	KeepWinrate   null.Float `json:"keep_winrate"`
	ReturnWinrate null.Float `json:"return_winrate"`
	WinrateDelta  null.Float `json:"winrate_delta"`
	MulliganGames int        `json:"mulligan_games"`
}

type mulliganAcc struct {
	kept, keptWins         int
	returned, returnedWins int
	appearances            int
	expectedSum            float64
}

type mulliganTally struct {
	cards map[string]*mulliganAcc
	games int
}

func newMulliganTally() *mulliganTally {
	return &mulliganTally{cards: map[string]*mulliganAcc{}}
}

// expectedKeepRate is the keep rate a card would show if it were kept as
// often as an average card of the same opening hand.
//
// The hand policy uses the player's own keep fraction for that hand. The
// intellect policy treats the commander's intellect as the number of cards
// the player may keep and falls back to the hand policy when it is unknown.
func expectedKeepRate(policy string, kept, returned, intellect int) float64 {
	seen := kept + returned
	if seen == 0 {
		return 0
	}
	if policy == config.BaselineIntellect && intellect > 0 {
		return min(float64(intellect)/float64(seen), 1)
	}
	return float64(kept) / float64(seen)
}

func (t *mulliganTally) add(p *model.Player, policy string, ref *model.RefData) {
	if !p.HasMulligan() {
		return
	}
	t.games++

	kept := listCounts(p.MulliganKept)
	returned := listCounts(p.MulliganReturned)
	keptTotal, returnedTotal := 0, 0
	for _, n := range kept {
		keptTotal += n
	}
	for _, n := range returned {
		returnedTotal += n
	}
	expected := expectedKeepRate(policy, keptTotal, returnedTotal, ref.CommanderIntellect(p.Commander))

	get := func(name string) *mulliganAcc {
		a := t.cards[name]
		if a == nil {
			a = &mulliganAcc{}
			t.cards[name] = a
		}
		return a
	}
	won := 0
	if p.Winner {
		won = 1
	}
	for name, n := range kept {
		a := get(name)
		a.kept += n
		a.keptWins += n * won
	}
	for name, n := range returned {
		a := get(name)
		a.returned += n
		a.returnedWins += n * won
	}

	seen := make(map[string]struct{}, len(kept)+len(returned))
	for name := range kept {
		seen[name] = struct{}{}
	}
	for name := range returned {
		seen[name] = struct{}{}
	}
	for name := range seen {
		a := get(name)
		a.appearances++
		a.expectedSum += expected
	}
}

func (t *mulliganTally) rows() []MulliganStat {
	out := make([]MulliganStat, 0, len(t.cards))
	for name, a := range t.cards {
		seen := a.kept + a.returned
		if seen == 0 {
			continue
		}
		keepRate := rate(a.kept, seen)
		row := MulliganStat{
			Name:          name,
			KeptCount:     a.kept,
			ReturnedCount: a.returned,
			TotalSeen:     seen,
			KeepRate:      keepRate,
			KeepWinrate:   winrate(a.keptWins, a.kept),
			ReturnWinrate: winrate(a.returnedWins, a.returned),
			MulliganGames: t.games,
		}
		if row.KeepWinrate.Valid && row.ReturnWinrate.Valid {
			row.WinrateDelta = null.FloatFrom(round(row.KeepWinrate.Float64-row.ReturnWinrate.Float64, 4))
		}
		if a.appearances > 0 {
			row.NormKeepDelta = null.FloatFrom(round(keepRate-a.expectedSum/float64(a.appearances), 4))
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSeen != out[j].TotalSeen {
			return out[i].TotalSeen > out[j].TotalSeen
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MulliganStats computes per-card keep/return counts and winrates over
// appearances that recorded an opening-hand decision. Rows are ordered by
// total_seen desc, then name.
func MulliganStats(games []*model.Game, ref *model.RefData, opts Options) []MulliganStat {
	t := newMulliganTally()
	for _, g := range games {
		for i := range g.Players {
			t.add(&g.Players[i], opts.MulliganBaseline, ref)
		}
	}
	return t.rows()
}

// CommanderMulliganStats is MulliganStats split by commander.
func CommanderMulliganStats(games []*model.Game, ref *model.RefData, opts Options) map[string][]MulliganStat {
	by := make(map[string]*mulliganTally)
	for _, g := range games {
		for i := range g.Players {
			p := &g.Players[i]
			if p.Commander == "" || !p.HasMulligan() {
				continue
			}
			t := by[p.Commander]
			if t == nil {
				t = newMulliganTally()
				by[p.Commander] = t
			}
			t.add(p, opts.MulliganBaseline, ref)
		}
	}
	out := make(map[string][]MulliganStat, len(by))
	for cmd, t := range by {
		out[cmd] = t.rows()
	}
	return out
}

// CheckMulliganStats verifies keep rates stay in [0,1] and counts reconcile.
func CheckMulliganStats(rows []MulliganStat) error {
	for _, r := range rows {
		if r.KeptCount+r.ReturnedCount != r.TotalSeen {
			return violation("mulligan_stats", "%s: kept+returned %d != total_seen %d", r.Name, r.KeptCount+r.ReturnedCount, r.TotalSeen)
		}
		if r.KeepRate < 0 || r.KeepRate > 1 {
			return violation("mulligan_stats", "%s: keep rate %v outside [0,1]", r.Name, r.KeepRate)
		}
	}
	return nil
}
