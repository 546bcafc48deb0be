package daily

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/model"
)

const site = "https://example.org/atlas/"

var now = time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)

func game(datetime string, duration float64, players ...model.Player) model.Game {
	g := model.Game{GameID: datetime, Players: players}
	if datetime != "" {
		g.Datetime = null.StringFrom(datetime)
	}
	if duration > 0 {
		g.DurationMinutes = null.FloatFrom(duration)
	}
	return g
}

func p(name, commander string, winner bool) model.Player {
	return model.Player{Name: name, Commander: commander, Winner: winner}
}

func TestYesterday(t *testing.T) {
	assert.Equal(t, time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC), Yesterday(now))
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), Yesterday(time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC)))
}

func TestOnDay(t *testing.T) {
	games := []model.Game{
		game("2026-03-30T00:00:00", 10),
		game("2026-03-30T23:59:59", 10),
		game("2026-03-31T00:00:00", 10),
		game("2026-03-29T23:59:59", 10),
		game("", 10),
		game("not a date", 10),
	}
	got := OnDay(games, Yesterday(now))
	require.Len(t, got, 2)
	assert.Equal(t, "2026-03-30T00:00:00", got[0].GameID)
}

func TestSummarize(t *testing.T) {
	games := []model.Game{
		game("2026-03-30T10:00:00", 10, p("alice", "Alpha", true), p("bob", "Beta", false)),
		game("2026-03-30T11:00:00", 15, p("alice", "Alpha", false), p("carol", "Gamma", true)),
		game("2026-03-30T12:00:00", 0, p("dave", "Beta", true), p("bob", "Alpha", false)),
		game("2026-03-30T13:00:00", 20, p("erin", "Delta", true), p("bob", "", false)),
	}
	s := Summarize(OnDay(games, Yesterday(now)), Yesterday(now), 3)

	assert.Equal(t, "2026-03-30", s.Date)
	assert.Equal(t, 4, s.TotalGames)
	assert.Equal(t, 5, s.UniquePlayers)
	assert.Equal(t, null.FloatFrom(15), s.AvgDurationMin, "games without a duration are not averaged")
	assert.Equal(t, "Alpha", s.MostPopular.String)
	assert.Equal(t, 3, s.MostPopularPicks)

	require.Len(t, s.TopCommanders, 3)
	assert.Equal(t, TopCommander{Name: "Alpha", Picks: 3, Winrate: 33}, s.TopCommanders[0])
	assert.Equal(t, TopCommander{Name: "Beta", Picks: 2, Winrate: 50}, s.TopCommanders[1])
	assert.Equal(t, "Gamma", s.TopCommanders[2].Name, "ties keep first-seen order")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, Yesterday(now), 3)
	assert.Equal(t, 0, s.TotalGames)
	assert.False(t, s.AvgDurationMin.Valid)
	assert.False(t, s.MostPopular.Valid)
	assert.Empty(t, s.TopCommanders)
}

func TestMessage(t *testing.T) {
	s := Summary{
		Date:           "2026-03-30",
		TotalGames:     4,
		UniquePlayers:  5,
		AvgDurationMin: null.FloatFrom(15),
		TopCommanders:  []TopCommander{{Name: "Alpha", Picks: 3, Winrate: 33}},
	}
	want := strings.Join([]string{
		"**Daily Update** — 2026-03-30",
		"",
		"**4** games played by **5** unique players",
		"Avg game length: **15.0 min**",
		"",
		"**Top Commanders**",
		"1. Alpha — 3 picks (33% WR)",
		"",
		"https://example.org/atlas/meta.html",
	}, "\n")
	assert.Equal(t, want, Message(s, site))
}

func TestMessageNoGames(t *testing.T) {
	msg := Message(Summary{Date: "2026-03-30"}, "https://example.org/atlas")
	assert.Equal(t, "**Daily Update** (2026-03-30)\nNo games recorded yesterday. Data refreshed.\nhttps://example.org/atlas/", msg)
}
