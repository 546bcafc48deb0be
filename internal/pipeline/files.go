package pipeline

// Output file names, one per aggregation.
const (
	FileMetadata               = "metadata.json"
	FileCommanderStats         = "commander_stats.json"
	FileMatchups               = "matchups.json"
	FileMatchupDetails         = "matchup_details.json"
	FileCardStats              = "card_stats.json"
	FileTrends                 = "trends.json"
	FileDistributions          = "game_distributions.json"
	FileDeckComposition        = "deck_composition.json"
	FileFirstTurn              = "first_turn.json"
	FileCommanderTrends        = "commander_trends.json"
	FileDurationWinrates       = "duration_winrates.json"
	FileActionWinrates         = "action_winrates.json"
	FileTurnWinrates           = "turn_winrates.json"
	FileCommanderCardStats     = "commander_card_stats.json"
	FileCommanderWinrateTrends = "commander_winrate_trends.json"
	FileMulliganStats          = "mulligan_stats.json"
	FileCommanderMulligan      = "commander_mulligan_stats.json"
)

// FileNames lists the per-slice files in write order.
var FileNames = []string{
	FileMetadata,
	FileCommanderStats,
	FileMatchups,
	FileMatchupDetails,
	FileCardStats,
	FileTrends,
	FileDistributions,
	FileDeckComposition,
	FileFirstTurn,
	FileCommanderTrends,
	FileDurationWinrates,
	FileActionWinrates,
	FileTurnWinrates,
	FileCommanderCardStats,
	FileCommanderWinrateTrends,
	FileMulliganStats,
	FileCommanderMulligan,
}

// Compact reports whether a file is written without indentation.
func Compact(name string) bool {
	return name == FileMatchupDetails
}

// Nested is the on-disk shape of every per-slice file: period -> map -> value.
type Nested map[string]map[string]any

// value returns the slice's payload for one output file.
func (s *Slice) value(name string) any {
	switch name {
	case FileMetadata:
		return s.Metadata
	case FileCommanderStats:
		return s.CommanderStats
	case FileMatchups:
		return s.Matchups
	case FileMatchupDetails:
		return s.MatchupDetails
	case FileCardStats:
		return s.CardStats.Cards
	case FileTrends:
		return s.Trends
	case FileDistributions:
		return s.Distributions
	case FileDeckComposition:
		return s.DeckComposition
	case FileFirstTurn:
		return s.FirstTurn
	case FileCommanderTrends:
		return s.CommanderTrends
	case FileDurationWinrates:
		return s.DurationWinrates
	case FileActionWinrates:
		return s.ActionWinrates
	case FileTurnWinrates:
		return s.TurnWinrates
	case FileCommanderCardStats:
		return s.CommanderCardStats
	case FileCommanderWinrateTrends:
		return s.CommanderWinrateTrends
	case FileMulliganStats:
		return s.MulliganStats
	case FileCommanderMulligan:
		return s.CommanderMulligan
	}
	return nil
}

// Files regroups the slices by output file.
func (r *Result) Files() map[string]Nested {
	out := make(map[string]Nested, len(FileNames))
	for _, name := range FileNames {
		nested := make(Nested, len(r.Periods))
		for _, period := range r.Periods {
			byMap := make(map[string]any, len(r.Maps))
			for _, m := range r.Maps {
				if s := r.Slice(period, m); s != nil {
					byMap[m] = s.value(name)
				}
			}
			nested[period] = byMap
		}
		out[name] = nested
	}
	return out
}
