package aggregator

import (
	"time"

	"github.com/samber/lo"

	"github.com/pable/atlas-metrics/internal/config"
	"github.com/pable/atlas-metrics/internal/model"
)

// Metadata is the content of metadata.json for one slice.
type Metadata struct {
	LastUpdated  string `json:"last_updated"`
	TotalMatches int    `json:"total_matches"`
	TotalPlayers int    `json:"total_players"`
	DataVersion  string `json:"data_version"`
}

// SliceMetadata counts matches and distinct player names in the slice.
func SliceMetadata(games []*model.Game, now time.Time) Metadata {
	names := lo.Uniq(lo.FlatMap(games, func(g *model.Game, _ int) []string {
		return lo.Map(g.Players, func(p model.Player, _ int) string { return p.Name })
	}))
	return Metadata{
		LastUpdated:  now.UTC().Format("2006-01-02T15:04:05.000000-07:00"),
		TotalMatches: len(games),
		TotalPlayers: len(names),
		DataVersion:  config.DataVersion,
	}
}
