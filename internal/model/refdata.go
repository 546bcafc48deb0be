package model

// CardInfo is one row of the card reference table.
type CardInfo struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Text      string  `json:"text"`
	Subtype   string  `json:"subtype"`
	Cost      *int    `json:"cost"`
	Attack    *int    `json:"attack"`
	Speed     *int    `json:"speed"`
	Health    *int    `json:"health"`
	Legendary bool    `json:"legendary"`
	Faction   string  `json:"faction"`
	Art       *string `json:"art"`
}

// CommanderInfo is one row of the commander reference table.
type CommanderInfo struct {
	Name      string  `json:"name"`
	Text      string  `json:"text"`
	Subtype   string  `json:"subtype"`
	Dominion  int     `json:"dominion"`
	Intellect int     `json:"intellect"`
	Speed     int     `json:"speed"`
	Health    int     `json:"health"`
	Faction   string  `json:"faction"`
	Art       *string `json:"art"`
}

// RefData holds the read-only reference tables keyed by canonical name.
// Lookups tolerate missing entries.
type RefData struct {
	Cards      []CardInfo
	Commanders []CommanderInfo

	cardIdx      map[string]int
	commanderIdx map[string]int
}

// NewRefData indexes the given tables. Later duplicates win.
func NewRefData(cards []CardInfo, commanders []CommanderInfo) *RefData {
	r := &RefData{
		Cards:        cards,
		Commanders:   commanders,
		cardIdx:      make(map[string]int, len(cards)),
		commanderIdx: make(map[string]int, len(commanders)),
	}
	for i, c := range cards {
		r.cardIdx[c.Name] = i
	}
	for i, c := range commanders {
		r.commanderIdx[c.Name] = i
	}
	return r
}

// Card returns the card definition, or a neutral stub when unknown.
func (r *RefData) Card(name string) CardInfo {
	if r != nil {
		if i, ok := r.cardIdx[name]; ok {
			return r.Cards[i]
		}
	}
	return CardInfo{Name: name, Faction: NeutralFaction}
}

// CommanderFaction returns the commander's faction, or neutral when unknown.
func (r *RefData) CommanderFaction(name string) string {
	if r != nil {
		if i, ok := r.commanderIdx[name]; ok && r.Commanders[i].Faction != "" {
			return r.Commanders[i].Faction
		}
	}
	return NeutralFaction
}

// CommanderIntellect returns the commander's intellect stat, or 0 when unknown.
func (r *RefData) CommanderIntellect(name string) int {
	if r != nil {
		if i, ok := r.commanderIdx[name]; ok {
			return r.Commanders[i].Intellect
		}
	}
	return 0
}
