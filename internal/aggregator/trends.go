package aggregator

import (
	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/model"
)

// FactionOrder is the fixed faction order of trends.json.
var FactionOrder = []string{"skaal", "grenalia", "lucia", "neutral", "shadis", "archaeon"}

// weeklyPicks counts commander picks per week.
type weeklyPicks struct {
	picks  map[string]map[string]int // week -> commander -> picks
	totals map[string]int
}

func countWeeklyPicks(games []*model.Game) weeklyPicks {
	w := weeklyPicks{picks: map[string]map[string]int{}, totals: map[string]int{}}
	for _, g := range games {
		week, ok := gameWeek(g)
		if !ok {
			continue
		}
		for i := range g.Players {
			cmd := g.Players[i].Commander
			if cmd == "" {
				continue
			}
			if w.picks[week] == nil {
				w.picks[week] = map[string]int{}
			}
			w.picks[week][cmd]++
			w.totals[week]++
		}
	}
	return w
}

// FactionTrends is the content of trends.json for one slice. Percentages
// are rounded to 1 decimal; Picks and Totals hold the underlying counts.
type FactionTrends struct {
	Dates    []string             `json:"dates"`
	Factions map[string][]float64 `json:"factions"`
	Picks    map[string][]int     `json:"picks"`
	Totals   []int                `json:"totals"`
}

// Trends computes weekly faction popularity. Weeks with fewer than
// opts.TrendMinPicks picks are dropped. Commanders whose faction is not in
// FactionOrder count as neutral.
func Trends(games []*model.Game, ref *model.RefData, opts Options) FactionTrends {
	w := countWeeklyPicks(games)
	out := FactionTrends{
		Dates:    []string{},
		Factions: map[string][]float64{},
		Picks:    map[string][]int{},
		Totals:   []int{},
	}

	known := make(map[string]bool, len(FactionOrder))
	for _, f := range FactionOrder {
		known[f] = true
	}

	for _, week := range sortedKeys(w.totals) {
		total := w.totals[week]
		if total < opts.TrendMinPicks {
			continue
		}
		out.Dates = append(out.Dates, week)
		out.Totals = append(out.Totals, total)

		byFaction := make(map[string]int, len(FactionOrder))
		for cmd, n := range w.picks[week] {
			f := ref.CommanderFaction(cmd)
			if !known[f] {
				f = model.NeutralFaction
			}
			byFaction[f] += n
		}
		for _, f := range FactionOrder {
			out.Factions[f] = append(out.Factions[f], pct(byFaction[f], total))
			out.Picks[f] = append(out.Picks[f], byFaction[f])
		}
	}
	return out
}

// Check verifies that every included week's faction picks add up to its total.
func (t FactionTrends) Check() error {
	if len(t.Totals) != len(t.Dates) {
		return violation("trends", "%d totals for %d weeks", len(t.Totals), len(t.Dates))
	}
	for i, week := range t.Dates {
		sum := 0
		for _, f := range FactionOrder {
			series := t.Picks[f]
			if len(series) != len(t.Dates) || len(t.Factions[f]) != len(t.Dates) {
				return violation("trends", "faction %s has %d points for %d weeks", f, len(series), len(t.Dates))
			}
			sum += series[i]
		}
		if sum != t.Totals[i] {
			return violation("trends", "week %s: faction picks %d != total %d", week, sum, t.Totals[i])
		}
	}
	return nil
}

// CommanderTrends is the content of commander_trends.json for one slice.
type CommanderTrends struct {
	Dates      []string             `json:"dates"`
	Commanders map[string][]float64 `json:"commanders"`
	Totals     []int                `json:"totals"`

	picks map[string][]int
}

// CommanderPopularity computes weekly pick share per commander. Every
// commander seen in any week gets a point for every included week.
func CommanderPopularity(games []*model.Game, opts Options) CommanderTrends {
	w := countWeeklyPicks(games)
	out := CommanderTrends{
		Dates:      []string{},
		Commanders: map[string][]float64{},
		Totals:     []int{},
		picks:      map[string][]int{},
	}

	all := map[string]struct{}{}
	for _, byCmd := range w.picks {
		for cmd := range byCmd {
			all[cmd] = struct{}{}
		}
	}
	commanders := sortedKeys(all)

	for _, week := range sortedKeys(w.totals) {
		total := w.totals[week]
		if total < opts.TrendMinPicks {
			continue
		}
		out.Dates = append(out.Dates, week)
		out.Totals = append(out.Totals, total)
		for _, cmd := range commanders {
			n := w.picks[week][cmd]
			out.Commanders[cmd] = append(out.Commanders[cmd], pct(n, total))
			out.picks[cmd] = append(out.picks[cmd], n)
		}
	}
	return out
}

// Check verifies that every included week's commander picks add up to its total.
func (t CommanderTrends) Check() error {
	for i, week := range t.Dates {
		sum := 0
		for cmd, series := range t.picks {
			if len(series) != len(t.Dates) || len(t.Commanders[cmd]) != len(t.Dates) {
				return violation("commander_trends", "%s has %d points for %d weeks", cmd, len(series), len(t.Dates))
			}
			sum += series[i]
		}
		if sum != t.Totals[i] {
			return violation("commander_trends", "week %s: commander picks %d != total %d", week, sum, t.Totals[i])
		}
	}
	return nil
}

// WinrateSeries is one commander's weekly winrate series.
type WinrateSeries struct {
	Winrate         []null.Float `json:"winrate"`
	Games           []int        `json:"games"`
	WinrateNoMirror []null.Float `json:"winrate_no_mirror"`
	GamesNoMirror   []int        `json:"games_no_mirror"`
}

// CommanderWinrateTrends is the content of commander_winrate_trends.json.
type CommanderWinrateTrends struct {
	Dates      []string                  `json:"dates"`
	Commanders map[string]*WinrateSeries `json:"commanders"`
}

type weekRecord struct {
	wins, games           int
	winsNoMirror, gamesNM int
}

// CommanderWinrates computes weekly winrate percentages per commander over
// two-player games, with and without mirror matches. Weeks with fewer than
// opts.TrendMinPicks games are dropped; an empty week is null.
func CommanderWinrates(games []*model.Game, opts Options) CommanderWinrateTrends {
	type key struct{ week, cmd string }
	recs := make(map[key]*weekRecord)
	weekGames := make(map[string]int)
	all := make(map[string]struct{})

	for _, g := range games {
		week, ok := gameWeek(g)
		if !ok {
			continue
		}
		p1, p2, ok := headsUp(g)
		if !ok {
			continue
		}
		mirror := p1.Commander == p2.Commander
		weekGames[week]++
		for _, p := range []*model.Player{p1, p2} {
			if p.Commander == "" {
				continue
			}
			all[p.Commander] = struct{}{}
			k := key{week, p.Commander}
			r := recs[k]
			if r == nil {
				r = &weekRecord{}
				recs[k] = r
			}
			r.games++
			if p.Winner {
				r.wins++
			}
			if !mirror {
				r.gamesNM++
				if p.Winner {
					r.winsNoMirror++
				}
			}
		}
	}

	commanders := sortedKeys(all)
	out := CommanderWinrateTrends{Dates: []string{}, Commanders: make(map[string]*WinrateSeries, len(commanders))}
	for _, cmd := range commanders {
		out.Commanders[cmd] = &WinrateSeries{
			Winrate:         []null.Float{},
			Games:           []int{},
			WinrateNoMirror: []null.Float{},
			GamesNoMirror:   []int{},
		}
	}

	for _, week := range sortedKeys(weekGames) {
		if weekGames[week] < opts.TrendMinPicks {
			continue
		}
		out.Dates = append(out.Dates, week)
		for _, cmd := range commanders {
			r := recs[key{week, cmd}]
			if r == nil {
				r = &weekRecord{}
			}
			s := out.Commanders[cmd]
			s.Winrate = append(s.Winrate, pctOrNull(r.wins, r.games))
			s.Games = append(s.Games, r.games)
			s.WinrateNoMirror = append(s.WinrateNoMirror, pctOrNull(r.winsNoMirror, r.gamesNM))
			s.GamesNoMirror = append(s.GamesNoMirror, r.gamesNM)
		}
	}
	return out
}

func pctOrNull(n, d int) null.Float {
	if d == 0 {
		return null.Float{}
	}
	return null.FloatFrom(pct(n, d))
}

// Check verifies series lengths and that no-mirror games never exceed games.
func (t CommanderWinrateTrends) Check() error {
	for cmd, s := range t.Commanders {
		n := len(t.Dates)
		if len(s.Winrate) != n || len(s.Games) != n || len(s.WinrateNoMirror) != n || len(s.GamesNoMirror) != n {
			return violation("commander_winrate_trends", "%s series length differs from %d weeks", cmd, n)
		}
		for i := range s.Games {
			if s.GamesNoMirror[i] > s.Games[i] {
				return violation("commander_winrate_trends", "%s week %s: %d no-mirror games > %d games",
					cmd, t.Dates[i], s.GamesNoMirror[i], s.Games[i])
			}
		}
	}
	return nil
}
