package aggregator

import (
	"fmt"

	"github.com/pable/atlas-metrics/internal/model"
)

// Histogram is a fixed-width histogram whose last bucket absorbs overflow.
type Histogram struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
	Total  int      `json:"total"`

	width float64
}

func newHistogram(width, maxValue int) Histogram {
	h := Histogram{Labels: []string{}, Counts: []int{}, width: float64(width)}
	for lo := 0; lo < maxValue; lo += width {
		h.Labels = append(h.Labels, fmt.Sprintf("%d-%d", lo, lo+width))
		h.Counts = append(h.Counts, 0)
	}
	return h
}

func (h *Histogram) add(v float64) {
	i := int(v / h.width)
	if i < 0 {
		i = 0
	}
	if i > len(h.Counts)-1 {
		i = len(h.Counts) - 1
	}
	h.Counts[i]++
	h.Total++
}

// Distributions is the content of game_distributions.json for one slice.
type Distributions struct {
	Duration Histogram `json:"duration"`
	Turns    Histogram `json:"turns"`
	Actions  Histogram `json:"actions"`
}

// GameDistributions histograms game duration (2-minute buckets up to 50),
// total turns (2-turn buckets up to 42) and total actions (20-action buckets
// up to 240). Games without a duration only count towards turns and actions.
func GameDistributions(games []*model.Game) Distributions {
	d := Distributions{
		Duration: newHistogram(2, 50),
		Turns:    newHistogram(2, 42),
		Actions:  newHistogram(20, 240),
	}
	for _, g := range games {
		if g.DurationMinutes.Valid && g.DurationMinutes.Float64 >= 0 {
			d.Duration.add(g.DurationMinutes.Float64)
		}
		d.Turns.add(float64(g.TotalTurns()))
		d.Actions.add(float64(g.TotalActions()))
	}
	return d
}

// Check verifies that every histogram's counts add up to its total.
func (d Distributions) Check() error {
	for name, h := range map[string]Histogram{"duration": d.Duration, "turns": d.Turns, "actions": d.Actions} {
		sum := 0
		for _, c := range h.Counts {
			sum += c
		}
		if sum != h.Total || len(h.Counts) != len(h.Labels) {
			return violation("game_distributions", "%s: counts sum %d != total %d", name, sum, h.Total)
		}
	}
	return nil
}
