package cleaner

import (
	"sort"

	"github.com/pable/atlas-metrics/internal/model"
)

// Tally counts rejections by reason.
type Tally map[model.Reason]int

// Total returns the number of rejected records.
func (t Tally) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// ReasonCount is one row of a sorted tally.
type ReasonCount struct {
	Reason model.Reason
	Count  int
}

// Sorted returns the tally ordered by count desc, then reason.
func (t Tally) Sorted() []ReasonCount {
	out := make([]ReasonCount, 0, len(t))
	for r, c := range t {
		out = append(out, ReasonCount{Reason: r, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// BatchResult is the outcome of cleaning a batch of raw records.
type BatchResult struct {
	Games    []model.Game
	Rejected Tally
}

// Batch cleans every record. A malformed record is tallied, never fatal.
// Records that repeat an already accepted game id within the batch are
// dropped silently.
func (c *Cleaner) Batch(raws []model.RawRecord) BatchResult {
	res := BatchResult{Rejected: Tally{}}
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		g, rej := c.Clean(raw)
		if rej != nil {
			res.Rejected[rej.Reason]++
			continue
		}
		if g.GameID != "" {
			if _, dup := seen[g.GameID]; dup {
				continue
			}
			seen[g.GameID] = struct{}{}
		}
		res.Games = append(res.Games, *g)
	}
	return res
}
