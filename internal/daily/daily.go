// Package daily summarises one UTC day of games for the community
// announcement channel.
package daily

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/filter"
	"github.com/pable/atlas-metrics/internal/model"
)

const dateLayout = "2006-01-02"

// TopCommander is one entry of the most-picked list.
type TopCommander struct {
	Name    string `json:"name"`
	Picks   int    `json:"picks"`
	Winrate int    `json:"winrate"`
}

// Summary is the day's digest.
type Summary struct {
	Date             string         `json:"date"`
	TotalGames       int            `json:"total_games"`
	UniquePlayers    int            `json:"unique_players"`
	AvgDurationMin   null.Float     `json:"avg_duration_min"`
	TopCommanders    []TopCommander `json:"top_commanders"`
	MostPopular      null.String    `json:"most_popular"`
	MostPopularPicks int            `json:"most_popular_picks"`
}

// Yesterday returns the UTC calendar day before now.
func Yesterday(now time.Time) time.Time {
	y, m, d := now.UTC().AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OnDay keeps the games whose datetime falls on day (UTC). Undated games
// and unparseable timestamps are dropped.
func OnDay(games []model.Game, day time.Time) []*model.Game {
	want := day.UTC().Format(dateLayout)
	var out []*model.Game
	for i := range games {
		g := &games[i]
		if !g.Datetime.Valid {
			continue
		}
		t, ok := filter.ParseDatetime(g.Datetime.String)
		if !ok || t.Format(dateLayout) != want {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Summarize builds the digest of games played on day. Commanders tied on
// picks keep the order in which they were first seen.
func Summarize(games []*model.Game, day time.Time, top int) Summary {
	s := Summary{
		Date:          day.UTC().Format(dateLayout),
		TotalGames:    len(games),
		TopCommanders: []TopCommander{},
	}
	if len(games) == 0 {
		return s
	}

	type pick struct {
		name        string
		picks, wins int
		seen        int
	}
	players := make(map[string]struct{})
	picks := make(map[string]*pick)
	var durations []float64

	for _, g := range games {
		if g.DurationMinutes.Valid && g.DurationMinutes.Float64 != 0 {
			durations = append(durations, g.DurationMinutes.Float64)
		}
		for _, p := range g.Players {
			players[p.Name] = struct{}{}
			if p.Commander == "" {
				continue
			}
			c := picks[p.Commander]
			if c == nil {
				c = &pick{name: p.Commander, seen: len(picks)}
				picks[p.Commander] = c
			}
			c.picks++
			if p.Winner {
				c.wins++
			}
		}
	}
	s.UniquePlayers = len(players)

	if len(durations) > 0 {
		sum := 0.0
		for _, d := range durations {
			sum += d
		}
		s.AvgDurationMin = null.FloatFrom(math.Round(sum/float64(len(durations))*10) / 10)
	}

	ranked := make([]*pick, 0, len(picks))
	for _, c := range picks {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].picks != ranked[j].picks {
			return ranked[i].picks > ranked[j].picks
		}
		return ranked[i].seen < ranked[j].seen
	})
	if len(ranked) > 0 {
		s.MostPopular = null.StringFrom(ranked[0].name)
		s.MostPopularPicks = ranked[0].picks
	}
	for i, c := range ranked {
		if i == top {
			break
		}
		s.TopCommanders = append(s.TopCommanders, TopCommander{
			Name:    c.name,
			Picks:   c.picks,
			Winrate: int(math.Round(float64(c.wins) / float64(c.picks) * 100)),
		})
	}
	return s
}

// Message renders the summary as a Discord markdown post linking to siteURL.
func Message(s Summary, siteURL string) string {
	if !strings.HasSuffix(siteURL, "/") {
		siteURL += "/"
	}
	if s.TotalGames == 0 {
		return fmt.Sprintf("**Daily Update** (%s)\nNo games recorded yesterday. Data refreshed.\n%s", s.Date, siteURL)
	}

	lines := []string{
		fmt.Sprintf("**Daily Update** — %s", s.Date),
		"",
		fmt.Sprintf("**%d** games played by **%d** unique players", s.TotalGames, s.UniquePlayers),
	}
	if s.AvgDurationMin.Valid && s.AvgDurationMin.Float64 != 0 {
		lines = append(lines, fmt.Sprintf("Avg game length: **%.1f min**", s.AvgDurationMin.Float64))
	}
	if len(s.TopCommanders) > 0 {
		lines = append(lines, "", "**Top Commanders**")
		for i, c := range s.TopCommanders {
			lines = append(lines, fmt.Sprintf("%d. %s — %d picks (%d%% WR)", i+1, c.Name, c.Picks, c.Winrate))
		}
	}
	lines = append(lines, "", siteURL+"meta.html")
	return strings.Join(lines, "\n")
}
