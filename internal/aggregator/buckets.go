package aggregator

import (
	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/model"
)

// Bucket labels for the winrate-by-dimension files.
var (
	DurationBuckets = []string{"0-10", "10-20", "20-30", "30+"}
	ActionBuckets   = []string{"0-30", "30-60", "60-90", "90-120", "120+"}
	TurnBuckets     = []string{"1-5", "5-8", "8-11", "11-14", "14+"}
)

// Lower bounds of every bucket after the first.
var (
	durationEdges = []float64{10, 20, 30}
	actionEdges   = []float64{30, 60, 90, 120}
	turnEdges     = []float64{5, 8, 11, 14}
)

// BucketCell is one bucket of one commander.
type BucketCell struct {
	Winrate null.Float `json:"winrate"`
	Games   int        `json:"games"`
}

// BucketWinrates is the content of a *_winrates.json file for one slice.
type BucketWinrates struct {
	Buckets    []string                `json:"buckets"`
	Commanders map[string][]BucketCell `json:"commanders"`

	name        string
	appearances map[string]int
}

// bucketOf returns the index of the half-open bucket v falls into.
func bucketOf(v float64, edges []float64) int {
	for i, e := range edges {
		if v < e {
			return i
		}
	}
	return len(edges)
}

type bucketAcc struct {
	name   string
	labels []string
	edges  []float64
	wins   map[string][]int
	totals map[string][]int
	apps   map[string]int
}

func newBucketAcc(name string, labels []string, edges []float64) *bucketAcc {
	return &bucketAcc{
		name:   name,
		labels: labels,
		edges:  edges,
		wins:   map[string][]int{},
		totals: map[string][]int{},
		apps:   map[string]int{},
	}
}

func (b *bucketAcc) add(p *model.Player, v float64) {
	if p.Commander == "" {
		return
	}
	if b.totals[p.Commander] == nil {
		b.wins[p.Commander] = make([]int, len(b.labels))
		b.totals[p.Commander] = make([]int, len(b.labels))
	}
	i := bucketOf(v, b.edges)
	b.totals[p.Commander][i]++
	if p.Winner {
		b.wins[p.Commander][i]++
	}
	b.apps[p.Commander]++
}

func (b *bucketAcc) result() BucketWinrates {
	out := BucketWinrates{
		Buckets:     b.labels,
		Commanders:  make(map[string][]BucketCell, len(b.totals)),
		name:        b.name,
		appearances: b.apps,
	}
	for cmd, totals := range b.totals {
		cells := make([]BucketCell, len(totals))
		for i, n := range totals {
			cells[i] = BucketCell{Winrate: winrate(b.wins[cmd][i], n), Games: n}
		}
		out.Commanders[cmd] = cells
	}
	return out
}

// DurationWinrates buckets commander appearances by game length in minutes.
// Games without a duration are skipped.
func DurationWinrates(games []*model.Game) BucketWinrates {
	acc := newBucketAcc("duration_winrates", DurationBuckets, durationEdges)
	for _, g := range games {
		if !g.DurationMinutes.Valid {
			continue
		}
		for i := range g.Players {
			acc.add(&g.Players[i], g.DurationMinutes.Float64)
		}
	}
	return acc.result()
}

// ActionWinrates buckets commander appearances by the player's action
// count. Appearances with zero actions are skipped.
func ActionWinrates(games []*model.Game) BucketWinrates {
	acc := newBucketAcc("action_winrates", ActionBuckets, actionEdges)
	for _, g := range games {
		for i := range g.Players {
			p := &g.Players[i]
			if p.Actions == 0 {
				continue
			}
			acc.add(p, float64(p.Actions))
		}
	}
	return acc.result()
}

// TurnWinrates buckets commander appearances by the player's turn count.
// Appearances with zero turns are skipped.
func TurnWinrates(games []*model.Game) BucketWinrates {
	acc := newBucketAcc("turn_winrates", TurnBuckets, turnEdges)
	for _, g := range games {
		for i := range g.Players {
			p := &g.Players[i]
			if p.Turns == 0 {
				continue
			}
			acc.add(p, float64(p.Turns))
		}
	}
	return acc.result()
}

// Check verifies that each commander's bucket games add up to its
// qualifying appearances.
func (b BucketWinrates) Check() error {
	for cmd, cells := range b.Commanders {
		if len(cells) != len(b.Buckets) {
			return violation(b.name, "%s has %d buckets, want %d", cmd, len(cells), len(b.Buckets))
		}
		sum := 0
		for _, c := range cells {
			sum += c.Games
		}
		if sum != b.appearances[cmd] {
			return violation(b.name, "%s: bucket games %d != appearances %d", cmd, sum, b.appearances[cmd])
		}
	}
	return nil
}
