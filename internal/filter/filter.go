// Package filter narrows a game collection to one period/map slice.
// Filters never copy or mutate games; they return pointers into the input.
package filter

import (
	"time"

	"github.com/pable/atlas-metrics/internal/model"
)

// AllMaps is the map sentinel that disables map filtering.
const AllMaps = "all"

// ParseDatetime parses a cleaned game timestamp. Naive timestamps are UTC.
func ParseDatetime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Refs returns a pointer view over games.
func Refs(games []model.Game) []*model.Game {
	out := make([]*model.Game, len(games))
	for i := range games {
		out[i] = &games[i]
	}
	return out
}

// ByPeriod keeps games whose datetime lies in [now-days, now]. A nil days
// keeps everything, including undated games; a bounded window drops them.
func ByPeriod(games []*model.Game, days *int, now time.Time) []*model.Game {
	if days == nil {
		return games
	}
	now = now.UTC()
	cutoff := now.AddDate(0, 0, -*days)
	out := make([]*model.Game, 0, len(games))
	for _, g := range games {
		if !g.Datetime.Valid {
			continue
		}
		t, ok := ParseDatetime(g.Datetime.String)
		if !ok {
			continue
		}
		if t.Before(cutoff) || t.After(now) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// ByMap keeps games played on mapName, or all games for AllMaps.
func ByMap(games []*model.Game, mapName string) []*model.Game {
	if mapName == AllMaps {
		return games
	}
	out := make([]*model.Game, 0, len(games))
	for _, g := range games {
		if g.Map == mapName {
			out = append(out, g)
		}
	}
	return out
}
