package aggregator

import (
	"sort"

	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/model"
)

// CardStat is one row of card_stats.json.
type CardStat struct {
	Name            string     `json:"name"`
	Faction         string     `json:"faction"`
	Type            string     `json:"type"`
	DeckCount       int        `json:"deck_count"`
	DeckRate        float64    `json:"deck_rate"`
	DeckWinrate     null.Float `json:"deck_winrate"`
	DrawnCount      int        `json:"drawn_count"`
	DrawnRate       float64    `json:"drawn_rate"`
	DrawnWinrate    null.Float `json:"drawn_winrate"`
	PlayedCount     int        `json:"played_count"`
	PlayedRate      float64    `json:"played_rate"`
	PlayedWinrate   null.Float `json:"played_winrate"`
	AvgCopies       float64    `json:"avg_copies"`
	DrawnInstances  int        `json:"drawn_instances"`
	PlayedInstances int        `json:"played_instances"`
}

// CardStatsResult always carries the per-card rows together with the
// appearance count the rates are relative to (0 for an empty slice).
type CardStatsResult struct {
	Cards            []CardStat
	TotalPlayerGames int
}

// cardUsage accumulates one card's usage over a set of appearances.
type cardUsage struct {
	deck, deckWins     int
	drawn, drawnWins   int
	played, playedWins int
	copies             int
	drawnInstances     int
	playedInstances    int
}

// addUsage credits one player-appearance. A card counts once per list per
// appearance towards the game counts and by Count towards the instance totals.
func addUsage(usage map[string]*cardUsage, p *model.Player) {
	get := func(name string) *cardUsage {
		u := usage[name]
		if u == nil {
			u = &cardUsage{}
			usage[name] = u
		}
		return u
	}
	won := 0
	if p.Winner {
		won = 1
	}
	for name, n := range listCounts(p.CardsInDeck) {
		u := get(name)
		u.deck++
		u.deckWins += won
		u.copies += n
	}
	for name, n := range listCounts(p.CardsDrawn) {
		u := get(name)
		u.drawn++
		u.drawnWins += won
		u.drawnInstances += n
	}
	for name, n := range listCounts(p.CardsPlayed) {
		u := get(name)
		u.played++
		u.playedWins += won
		u.playedInstances += n
	}
}

// listCounts folds repeated entries of a card list into one total per name.
func listCounts(list []model.CardCount) map[string]int {
	out := make(map[string]int, len(list))
	for _, c := range list {
		out[c.Name] += c.Count
	}
	return out
}

func avgCopies(u *cardUsage) float64 {
	if u.deck == 0 {
		return 0
	}
	return round(float64(u.copies)/float64(u.deck), 2)
}

// CardStats computes per-card inclusion, draw and play counts with their
// rates over every player-appearance in the slice. Rows are ordered by
// deck_count desc, then name.
func CardStats(games []*model.Game, ref *model.RefData) CardStatsResult {
	usage := make(map[string]*cardUsage)
	appearances := 0
	for _, g := range games {
		for i := range g.Players {
			appearances++
			addUsage(usage, &g.Players[i])
		}
	}

	res := CardStatsResult{Cards: make([]CardStat, 0, len(usage)), TotalPlayerGames: appearances}
	for name, u := range usage {
		info := ref.Card(name)
		res.Cards = append(res.Cards, CardStat{
			Name:            name,
			Faction:         info.Faction,
			Type:            info.Type,
			DeckCount:       u.deck,
			DeckRate:        rate(u.deck, appearances),
			DeckWinrate:     winrate(u.deckWins, u.deck),
			DrawnCount:      u.drawn,
			DrawnRate:       rate(u.drawn, appearances),
			DrawnWinrate:    winrate(u.drawnWins, u.drawn),
			PlayedCount:     u.played,
			PlayedRate:      rate(u.played, appearances),
			PlayedWinrate:   winrate(u.playedWins, u.played),
			AvgCopies:       avgCopies(u),
			DrawnInstances:  u.drawnInstances,
			PlayedInstances: u.playedInstances,
		})
	}
	sort.Slice(res.Cards, func(i, j int) bool {
		if res.Cards[i].DeckCount != res.Cards[j].DeckCount {
			return res.Cards[i].DeckCount > res.Cards[j].DeckCount
		}
		return res.Cards[i].Name < res.Cards[j].Name
	})
	return res
}

// FunnelAnomalies lists cards where played_count > drawn_count or
// drawn_count > deck_count, sorted by name. Play and draw logs may carry
// cards created during the game that no deck list holds, so these are
// reported and not treated as violations.
func (r CardStatsResult) FunnelAnomalies() []string {
	var out []string
	for _, c := range r.Cards {
		if c.PlayedCount > c.DrawnCount || c.DrawnCount > c.DeckCount {
			out = append(out, c.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Check verifies ordering and that rates stay within [0,1].
func (r CardStatsResult) Check() error {
	for i, c := range r.Cards {
		if i > 0 && r.Cards[i-1].DeckCount < c.DeckCount {
			return violation("card_stats", "rows not ordered by deck_count at %s", c.Name)
		}
		for _, v := range []float64{c.DeckRate, c.DrawnRate, c.PlayedRate} {
			if v < 0 || v > 1 {
				return violation("card_stats", "%s: rate %v outside [0,1]", c.Name, v)
			}
		}
	}
	if len(r.Cards) > 0 && r.TotalPlayerGames == 0 {
		return violation("card_stats", "%d cards with zero player games", len(r.Cards))
	}
	return nil
}
