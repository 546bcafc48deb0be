package aggregator

import (
	"sort"

	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/model"
)

// MatchupFirstTurn splits a matchup by who acted first.
type MatchupFirstTurn struct {
	CmdFirstGames int `json:"cmd_first_games"`
	CmdFirstWins  int `json:"cmd_first_wins"`
	OppFirstGames int `json:"opp_first_games"`
	OppFirstWins  int `json:"opp_first_wins"`
}

// MatchupCard is one ranked card of a matchup direction.
type MatchupCard struct {
	Name          string     `json:"name"`
	Played        int        `json:"played"`
	PlayedWinrate float64    `json:"played_winrate"`
	Drawn         int        `json:"drawn"`
	DrawnWinrate  null.Float `json:"drawn_winrate"`
}

// MatchupDetail is one entry of matchup_details.json.
type MatchupDetail struct {
	Commander string           `json:"commander"`
	Opponent  string           `json:"opponent"`
	Wins      int              `json:"wins"`
	Losses    int              `json:"losses"`
	Total     int              `json:"total"`
	Winrate   float64          `json:"winrate"`
	FirstTurn MatchupFirstTurn `json:"first_turn"`
	CmdCards  []MatchupCard    `json:"cmd_cards"`
	OppCards  []MatchupCard    `json:"opp_cards"`
}

type cardTally struct {
	played, playedWins int
	drawn, drawnWins   int
}

type detailAcc struct {
	winLoss
	first    MatchupFirstTurn
	cmdCards map[string]*cardTally
	oppCards map[string]*cardTally
}

func tallyOf(m map[string]*cardTally, name string) *cardTally {
	t := m[name]
	if t == nil {
		t = &cardTally{}
		m[name] = t
	}
	return t
}

// MatchupDetails extends Matchups with first-turn splits and, per direction,
// the top cards by played winrate. Cards need opts.MatchupCardMinPlays plays
// to qualify; ties break on play count desc, then name.
func MatchupDetails(games []*model.Game, opts Options) []MatchupDetail {
	accs := make(map[pairKey]*detailAcc)
	acc := func(k pairKey) *detailAcc {
		a := accs[k]
		if a == nil {
			a = &detailAcc{cmdCards: map[string]*cardTally{}, oppCards: map[string]*cardTally{}}
			accs[k] = a
		}
		return a
	}

	for _, g := range games {
		p1, p2, ok := headsUp(g)
		if !ok || p1.Commander == "" || p2.Commander == "" {
			continue
		}
		k1 := acc(pairKey{p1.Commander, p2.Commander})
		k2 := acc(pairKey{p2.Commander, p1.Commander})

		switch {
		case p1.Winner:
			k1.wins++
			k2.losses++
		case p2.Winner:
			k2.wins++
			k1.losses++
		}

		switch g.FirstIndex() {
		case 0:
			k1.first.CmdFirstGames++
			k2.first.OppFirstGames++
			if p1.Winner {
				k1.first.CmdFirstWins++
				k2.first.OppFirstWins++
			}
		case 1:
			k1.first.OppFirstGames++
			k2.first.CmdFirstGames++
			if p2.Winner {
				k1.first.OppFirstWins++
				k2.first.CmdFirstWins++
			}
		}

		trackCards(p1, k1.cmdCards, k2.oppCards)
		trackCards(p2, k2.cmdCards, k1.oppCards)
	}

	out := make([]MatchupDetail, 0, len(accs))
	for k, a := range accs {
		total := a.wins + a.losses
		if total < 1 {
			continue
		}
		out = append(out, MatchupDetail{
			Commander: k.commander,
			Opponent:  k.opponent,
			Wins:      a.wins,
			Losses:    a.losses,
			Total:     total,
			Winrate:   rate(a.wins, total),
			FirstTurn: a.first,
			CmdCards:  topCards(a.cmdCards, opts.MatchupTopCards, opts.MatchupCardMinPlays),
			OppCards:  topCards(a.oppCards, opts.MatchupTopCards, opts.MatchupCardMinPlays),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Commander != out[j].Commander {
			return out[i].Commander < out[j].Commander
		}
		return out[i].Opponent < out[j].Opponent
	})
	return out
}

// trackCards credits p's drawn and played cards to both views of the matchup.
func trackCards(p *model.Player, views ...map[string]*cardTally) {
	for name := range listCounts(p.CardsPlayed) {
		for _, v := range views {
			t := tallyOf(v, name)
			t.played++
			if p.Winner {
				t.playedWins++
			}
		}
	}
	for name := range listCounts(p.CardsDrawn) {
		for _, v := range views {
			t := tallyOf(v, name)
			t.drawn++
			if p.Winner {
				t.drawnWins++
			}
		}
	}
}

func topCards(cards map[string]*cardTally, limit, minPlays int) []MatchupCard {
	out := make([]MatchupCard, 0)
	for name, t := range cards {
		if t.played < minPlays || t.played == 0 {
			continue
		}
		out = append(out, MatchupCard{
			Name:          name,
			Played:        t.played,
			PlayedWinrate: rate(t.playedWins, t.played),
			Drawn:         t.drawn,
			DrawnWinrate:  winrate(t.drawnWins, t.drawn),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayedWinrate != out[j].PlayedWinrate {
			return out[i].PlayedWinrate > out[j].PlayedWinrate
		}
		if out[i].Played != out[j].Played {
			return out[i].Played > out[j].Played
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CheckMatchupDetails verifies mirrored directions agree on wins, losses
// and first-turn splits.
func CheckMatchupDetails(details []MatchupDetail) error {
	idx := make(map[pairKey]*MatchupDetail, len(details))
	for i := range details {
		idx[pairKey{details[i].Commander, details[i].Opponent}] = &details[i]
	}
	for _, d := range details {
		r, ok := idx[pairKey{d.Opponent, d.Commander}]
		if !ok {
			return violation("matchup_details", "%s vs %s has no mirror entry", d.Commander, d.Opponent)
		}
		if d.Wins != r.Losses || d.Total != r.Total {
			return violation("matchup_details", "%s vs %s does not mirror its reverse", d.Commander, d.Opponent)
		}
		if d.Commander != d.Opponent && (d.FirstTurn.CmdFirstGames != r.FirstTurn.OppFirstGames ||
			d.FirstTurn.CmdFirstWins != r.FirstTurn.OppFirstWins) {
			return violation("matchup_details", "%s vs %s first-turn split does not mirror", d.Commander, d.Opponent)
		}
	}
	return nil
}
