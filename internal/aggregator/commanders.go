package aggregator

import (
	"sort"

	"github.com/pable/atlas-metrics/internal/model"
)

// CommanderStat is one row of commander_stats.json.
type CommanderStat struct {
	Name    string  `json:"name"`
	Faction string  `json:"faction"`
	Matches int     `json:"matches"`
	Wins    int     `json:"wins"`
	Winrate float64 `json:"winrate"`
}

// CommanderStats counts appearances and wins per commander. Appearances
// without a commander are ignored. Rows are ordered by matches desc, then name.
func CommanderStats(games []*model.Game, ref *model.RefData) []CommanderStat {
	type acc struct{ matches, wins int }
	by := make(map[string]*acc)
	for _, g := range games {
		for i := range g.Players {
			p := &g.Players[i]
			if p.Commander == "" {
				continue
			}
			a := by[p.Commander]
			if a == nil {
				a = &acc{}
				by[p.Commander] = a
			}
			a.matches++
			if p.Winner {
				a.wins++
			}
		}
	}

	out := make([]CommanderStat, 0, len(by))
	for name, a := range by {
		out = append(out, CommanderStat{
			Name:    name,
			Faction: ref.CommanderFaction(name),
			Matches: a.matches,
			Wins:    a.wins,
			Winrate: rate(a.wins, a.matches),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Matches != out[j].Matches {
			return out[i].Matches > out[j].Matches
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CheckCommanderStats verifies wins never exceed matches and winrates stay in [0,1].
func CheckCommanderStats(rows []CommanderStat) error {
	for _, r := range rows {
		if r.Wins < 0 || r.Wins > r.Matches {
			return violation("commander_stats", "%s: wins %d outside [0, %d]", r.Name, r.Wins, r.Matches)
		}
		if r.Winrate < 0 || r.Winrate > 1 {
			return violation("commander_stats", "%s: winrate %v outside [0,1]", r.Name, r.Winrate)
		}
	}
	return nil
}
