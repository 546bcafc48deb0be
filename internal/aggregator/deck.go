package aggregator

import (
	"strconv"

	"github.com/pable/atlas-metrics/internal/model"
)

// CostLabels are the mana-cost curve buckets; the last absorbs 12 and up.
var CostLabels = func() []string {
	labels := make([]string, 0, 13)
	for i := 0; i < 12; i++ {
		labels = append(labels, strconv.Itoa(i))
	}
	return append(labels, "12+")
}()

// CostHistogram holds averaged curves for all, winning and losing decks.
type CostHistogram struct {
	Labels       []string  `json:"labels"`
	AllDecks     []float64 `json:"all_decks"`
	WinningDecks []float64 `json:"winning_decks"`
	LosingDecks  []float64 `json:"losing_decks"`
}

// DeckComp is one commander's entry of deck_composition.json.
type DeckComp struct {
	Faction            string        `json:"faction"`
	DeckCount          int           `json:"deck_count"`
	AvgCost            float64       `json:"avg_cost"`
	CostHistogram      CostHistogram `json:"cost_histogram"`
	AvgMinionCount     float64       `json:"avg_minion_count"`
	AvgSpellCount      float64       `json:"avg_spell_count"`
	AvgPatronCards     float64       `json:"avg_patron_cards"`
	AvgNeutralCards    float64       `json:"avg_neutral_cards"`
	AvgOtherCards      float64       `json:"avg_other_cards"`
	WinAvgMinionCount  float64       `json:"win_avg_minion_count"`
	WinAvgSpellCount   float64       `json:"win_avg_spell_count"`
	LossAvgMinionCount float64       `json:"loss_avg_minion_count"`
	LossAvgSpellCount  float64       `json:"loss_avg_spell_count"`
}

// deckProfile summarises one deck list.
type deckProfile struct {
	avgCost                     float64
	curve                       []int
	minions, spells             int
	patron, neutral, otherCards int
}

func profileDeck(p *model.Player, faction string, ref *model.RefData) deckProfile {
	d := deckProfile{curve: make([]int, len(CostLabels))}
	weighted, cards := 0, 0
	for _, c := range p.CardsInDeck {
		info := ref.Card(c.Name)
		if info.Cost != nil {
			cost := max(*info.Cost, 0)
			weighted += cost * c.Count
			d.curve[min(cost, len(CostLabels)-1)] += c.Count
		}
		cards += c.Count

		switch info.Type {
		case "Minion":
			d.minions += c.Count
		case "Spell":
			d.spells += c.Count
		}

		switch info.Faction {
		case faction:
			d.patron += c.Count
		case model.NeutralFaction:
			d.neutral += c.Count
		default:
			d.otherCards += c.Count
		}
	}
	if cards > 0 {
		d.avgCost = float64(weighted) / float64(cards)
	}
	return d
}

type deckGroup []deckProfile

func (g deckGroup) avg(field func(deckProfile) float64) float64 {
	if len(g) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range g {
		sum += field(d)
	}
	return round(sum/float64(len(g)), 2)
}

func (g deckGroup) curve() []float64 {
	out := make([]float64, len(CostLabels))
	if len(g) == 0 {
		return out
	}
	for i := range out {
		sum := 0
		for _, d := range g {
			sum += d.curve[i]
		}
		out[i] = round(float64(sum)/float64(len(g)), 2)
	}
	return out
}

func minions(d deckProfile) float64 { return float64(d.minions) }
func spells(d deckProfile) float64  { return float64(d.spells) }

// DeckComposition profiles every deck per commander: average cost, cost
// curve, minion/spell counts and patron/neutral/off-faction splits, for all
// decks and separately for winning and losing ones. A card matches the
// patron split when its faction equals the commander's.
func DeckComposition(games []*model.Game, ref *model.RefData) map[string]DeckComp {
	type groups struct{ all, win, loss deckGroup }
	by := make(map[string]*groups)

	for _, g := range games {
		for i := range g.Players {
			p := &g.Players[i]
			if p.Commander == "" {
				continue
			}
			gr := by[p.Commander]
			if gr == nil {
				gr = &groups{}
				by[p.Commander] = gr
			}
			d := profileDeck(p, ref.CommanderFaction(p.Commander), ref)
			gr.all = append(gr.all, d)
			if p.Winner {
				gr.win = append(gr.win, d)
			} else {
				gr.loss = append(gr.loss, d)
			}
		}
	}

	out := make(map[string]DeckComp, len(by))
	for cmd, gr := range by {
		out[cmd] = DeckComp{
			Faction:   ref.CommanderFaction(cmd),
			DeckCount: len(gr.all),
			AvgCost:   gr.all.avg(func(d deckProfile) float64 { return d.avgCost }),
			CostHistogram: CostHistogram{
				Labels:       CostLabels,
				AllDecks:     gr.all.curve(),
				WinningDecks: gr.win.curve(),
				LosingDecks:  gr.loss.curve(),
			},
			AvgMinionCount:     gr.all.avg(minions),
			AvgSpellCount:      gr.all.avg(spells),
			AvgPatronCards:     gr.all.avg(func(d deckProfile) float64 { return float64(d.patron) }),
			AvgNeutralCards:    gr.all.avg(func(d deckProfile) float64 { return float64(d.neutral) }),
			AvgOtherCards:      gr.all.avg(func(d deckProfile) float64 { return float64(d.otherCards) }),
			WinAvgMinionCount:  gr.win.avg(minions),
			WinAvgSpellCount:   gr.win.avg(spells),
			LossAvgMinionCount: gr.loss.avg(minions),
			LossAvgSpellCount:  gr.loss.avg(spells),
		}
	}
	return out
}

// CheckDeckComposition verifies every curve has one point per cost label.
func CheckDeckComposition(comp map[string]DeckComp) error {
	for cmd, d := range comp {
		h := d.CostHistogram
		for _, series := range [][]float64{h.AllDecks, h.WinningDecks, h.LosingDecks} {
			if len(series) != len(h.Labels) {
				return violation("deck_composition", "%s: curve has %d points for %d labels", cmd, len(series), len(h.Labels))
			}
		}
	}
	return nil
}
