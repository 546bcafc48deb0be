package aggregator

import (
	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/model"
)

// FirstTurnCommander splits one commander's record by turn order.
type FirstTurnCommander struct {
	FirstGames    int        `json:"first_games"`
	FirstWins     int        `json:"first_wins"`
	FirstWinrate  null.Float `json:"first_winrate"`
	SecondGames   int        `json:"second_games"`
	SecondWins    int        `json:"second_wins"`
	SecondWinrate null.Float `json:"second_winrate"`
}

// FirstTurn is the content of first_turn.json for one slice.
type FirstTurn struct {
	TotalGames         int                           `json:"total_games"`
	FirstPlayerWins    int                           `json:"first_player_wins"`
	FirstPlayerWinrate null.Float                    `json:"first_player_winrate"`
	PerCommander       map[string]FirstTurnCommander `json:"per_commander"`

	appearances map[string]int
}

// FirstTurnAdvantage measures the edge of acting first. Only two-player
// games with an explicit first player of "1" or "2" are eligible; random
// or missing turn order is excluded here and nowhere else.
func FirstTurnAdvantage(games []*model.Game) FirstTurn {
	out := FirstTurn{PerCommander: map[string]FirstTurnCommander{}, appearances: map[string]int{}}

	type acc struct{ firstGames, firstWins, secondGames, secondWins int }
	by := make(map[string]*acc)
	get := func(cmd string) *acc {
		a := by[cmd]
		if a == nil {
			a = &acc{}
			by[cmd] = a
		}
		return a
	}

	for _, g := range games {
		idx := g.FirstIndex()
		if idx < 0 || !g.IsHeadsUp() {
			continue
		}
		first, second := &g.Players[idx], &g.Players[1-idx]
		out.TotalGames++
		if first.Winner {
			out.FirstPlayerWins++
		}
		if first.Commander != "" {
			a := get(first.Commander)
			a.firstGames++
			if first.Winner {
				a.firstWins++
			}
			out.appearances[first.Commander]++
		}
		if second.Commander != "" {
			a := get(second.Commander)
			a.secondGames++
			if second.Winner {
				a.secondWins++
			}
			out.appearances[second.Commander]++
		}
	}

	out.FirstPlayerWinrate = winrate(out.FirstPlayerWins, out.TotalGames)
	for cmd, a := range by {
		out.PerCommander[cmd] = FirstTurnCommander{
			FirstGames:    a.firstGames,
			FirstWins:     a.firstWins,
			FirstWinrate:  winrate(a.firstWins, a.firstGames),
			SecondGames:   a.secondGames,
			SecondWins:    a.secondWins,
			SecondWinrate: winrate(a.secondWins, a.secondGames),
		}
	}
	return out
}

// Check verifies first_games + second_games equals each commander's
// eligible appearances.
func (f FirstTurn) Check() error {
	if f.FirstPlayerWins > f.TotalGames {
		return violation("first_turn", "first player wins %d > games %d", f.FirstPlayerWins, f.TotalGames)
	}
	for cmd, s := range f.PerCommander {
		if got, want := s.FirstGames+s.SecondGames, f.appearances[cmd]; got != want {
			return violation("first_turn", "%s: first+second games %d != eligible appearances %d", cmd, got, want)
		}
		if s.FirstGames > f.TotalGames || s.SecondGames > f.TotalGames {
			return violation("first_turn", "%s: more games than eligible total %d", cmd, f.TotalGames)
		}
	}
	return nil
}
