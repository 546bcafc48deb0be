package aggregator

import (
	"github.com/pable/atlas-metrics/internal/model"
)

// pairKey identifies an ordered (commander, opponent) pair.
type pairKey struct {
	commander, opponent string
}

type winLoss struct{ wins, losses int }

// Matchup is one directed cell of the matchup matrix.
type Matchup struct {
	Commander string  `json:"commander"`
	Opponent  string  `json:"opponent"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Total     int     `json:"total"`
	Winrate   float64 `json:"winrate"`
}

// MatchupTable is the content of matchups.json for one slice.
type MatchupTable struct {
	Commanders []string  `json:"commanders"`
	Matchups   []Matchup `json:"matchups"`
}

// Matchups builds the directed win/loss matrix from two-player games where
// both commanders are known. Games with any other player count are skipped.
// A win for A over B is recorded as a loss for B against A in the same step.
func Matchups(games []*model.Game) MatchupTable {
	cells := make(map[pairKey]*winLoss)
	cell := func(k pairKey) *winLoss {
		c := cells[k]
		if c == nil {
			c = &winLoss{}
			cells[k] = c
		}
		return c
	}

	for _, g := range games {
		p1, p2, ok := headsUp(g)
		if !ok || p1.Commander == "" || p2.Commander == "" {
			continue
		}
		c1, c2 := p1.Commander, p2.Commander
		switch {
		case p1.Winner:
			cell(pairKey{c1, c2}).wins++
			cell(pairKey{c2, c1}).losses++
		case p2.Winner:
			cell(pairKey{c2, c1}).wins++
			cell(pairKey{c1, c2}).losses++
		}
	}

	seen := make(map[string]struct{})
	for k := range cells {
		seen[k.commander] = struct{}{}
	}
	commanders := sortedKeys(seen)

	out := MatchupTable{Commanders: commanders, Matchups: make([]Matchup, 0, len(cells))}
	for _, a := range commanders {
		for _, b := range commanders {
			c := cells[pairKey{a, b}]
			if c == nil || c.wins+c.losses == 0 {
				continue
			}
			total := c.wins + c.losses
			out.Matchups = append(out.Matchups, Matchup{
				Commander: a,
				Opponent:  b,
				Wins:      c.wins,
				Losses:    c.losses,
				Total:     total,
				Winrate:   rate(c.wins, total),
			})
		}
	}
	return out
}

// Check verifies that every cell has a mirror with swapped wins and losses.
func (t MatchupTable) Check() error {
	idx := make(map[pairKey]Matchup, len(t.Matchups))
	for _, m := range t.Matchups {
		idx[pairKey{m.Commander, m.Opponent}] = m
	}
	for _, m := range t.Matchups {
		if m.Wins+m.Losses != m.Total {
			return violation("matchups", "%s vs %s: wins+losses %d != total %d", m.Commander, m.Opponent, m.Wins+m.Losses, m.Total)
		}
		r, ok := idx[pairKey{m.Opponent, m.Commander}]
		if !ok {
			return violation("matchups", "%s vs %s has no mirror cell", m.Commander, m.Opponent)
		}
		if m.Wins != r.Losses || m.Losses != r.Wins || m.Total != r.Total {
			return violation("matchups", "%s vs %s (%d-%d) does not mirror %s vs %s (%d-%d)",
				m.Commander, m.Opponent, m.Wins, m.Losses, r.Commander, r.Opponent, r.Wins, r.Losses)
		}
	}
	return nil
}
