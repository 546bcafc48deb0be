package aggregator

import (
	"sort"

	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/model"
)

// CommanderCard is one card row of commander_card_stats.json.
type CommanderCard struct {
	Name            string     `json:"name"`
	InclusionRate   float64    `json:"inclusion_rate"`
	DrawnRate       float64    `json:"drawn_rate"`
	DrawnWinrate    null.Float `json:"drawn_winrate"`
	PlayedRate      float64    `json:"played_rate"`
	PlayedWinrate   null.Float `json:"played_winrate"`
	DrawnCount      int        `json:"drawn_count"`
	PlayedCount     int        `json:"played_count"`
	DrawnInstances  int        `json:"drawn_instances"`
	PlayedInstances int        `json:"played_instances"`
	AvgCopies       float64    `json:"avg_copies"`
	DeckCount       int        `json:"deck_count"`
	Games           int        `json:"games"`
}

// CommanderCardStats computes card usage per commander, with rates relative
// to that commander's appearances. Each list is ordered by inclusion rate
// desc, then name.
func CommanderCardStats(games []*model.Game) map[string][]CommanderCard {
	usage := make(map[string]map[string]*cardUsage)
	apps := make(map[string]int)
	for _, g := range games {
		for i := range g.Players {
			p := &g.Players[i]
			if p.Commander == "" {
				continue
			}
			apps[p.Commander]++
			if usage[p.Commander] == nil {
				usage[p.Commander] = map[string]*cardUsage{}
			}
			addUsage(usage[p.Commander], p)
		}
	}

	out := make(map[string][]CommanderCard, len(usage))
	for cmd, cards := range usage {
		if len(cards) == 0 {
			continue
		}
		total := apps[cmd]
		list := make([]CommanderCard, 0, len(cards))
		for name, u := range cards {
			list = append(list, CommanderCard{
				Name:            name,
				InclusionRate:   rate(u.deck, total),
				DrawnRate:       rate(u.drawn, total),
				DrawnWinrate:    winrate(u.drawnWins, u.drawn),
				PlayedRate:      rate(u.played, total),
				PlayedWinrate:   winrate(u.playedWins, u.played),
				DrawnCount:      u.drawn,
				PlayedCount:     u.played,
				DrawnInstances:  u.drawnInstances,
				PlayedInstances: u.playedInstances,
				AvgCopies:       avgCopies(u),
				DeckCount:       u.deck,
				Games:           total,
			})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].InclusionRate != list[j].InclusionRate {
				return list[i].InclusionRate > list[j].InclusionRate
			}
			return list[i].Name < list[j].Name
		})
		out[cmd] = list
	}
	return out
}

// CheckCommanderCardStats verifies every rate stays within [0,1].
func CheckCommanderCardStats(stats map[string][]CommanderCard) error {
	for cmd, cards := range stats {
		for _, c := range cards {
			for _, v := range []float64{c.InclusionRate, c.DrawnRate, c.PlayedRate} {
				if v < 0 || v > 1 {
					return violation("commander_card_stats", "%s/%s: rate %v outside [0,1]", cmd, c.Name, v)
				}
			}
		}
	}
	return nil
}
