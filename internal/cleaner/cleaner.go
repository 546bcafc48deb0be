// Package cleaner turns loosely-typed raw match records into validated
// model.Game values, or tags them with a rejection reason.
package cleaner

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/config"
	"github.com/pable/atlas-metrics/internal/model"
	"github.com/pable/atlas-metrics/internal/normalize"
)

// Upstream timestamps are "MM/DD/YYYY HH:MM:SS"; single-digit fields are tolerated.
const (
	rawTimeLayout = "1/2/2006 15:4:5"
	isoLayout     = "2006-01-02T15:04:05"
)

// Cleaner validates raw records. It is safe for concurrent use.
type Cleaner struct {
	minTurns int
	names    *normalize.Normalizer
	rules    *Rules
}

// Option customises a Cleaner.
type Option func(*Cleaner)

// WithRules enables operator reject rules, evaluated after the built-in gates.
func WithRules(r *Rules) Option {
	return func(c *Cleaner) { c.rules = r }
}

// New returns a Cleaner that requires every player to have taken at least
// minTurns turns.
func New(minTurns int, names *normalize.Normalizer, opts ...Option) *Cleaner {
	if names == nil {
		names = &normalize.Normalizer{}
	}
	c := &Cleaner{minTurns: minTurns, names: names}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig builds the Cleaner described by cfg: its turn threshold,
// rename tables and reject rules.
func FromConfig(cfg *config.Config) (*Cleaner, error) {
	rules, err := CompileRules(cfg.Rules)
	if err != nil {
		return nil, err
	}
	names := normalize.New(cfg.CommanderRenames, cfg.CardRenames)
	return New(cfg.MinTurns, names, WithRules(rules)), nil
}

// Clean converts one raw record. Exactly one of the results is non-nil.
// The first failing gate decides the rejection reason.
func (c *Cleaner) Clean(raw model.RawRecord) (*model.Game, *model.Rejection) {
	gameID := raw.GameID()
	reject := func(reason model.Reason, detail string) (*model.Game, *model.Rejection) {
		return nil, &model.Rejection{GameID: gameID, Reason: reason, Detail: detail}
	}

	firstPlayer := model.FirstPlayerNotDone
	if v, ok := raw["firstPlayer"]; ok && v != nil {
		firstPlayer = model.AttrString(v)
	}
	if firstPlayer == model.FirstPlayerNotDone {
		return reject(model.ReasonNotStarted, "")
	}

	payload, ok := decodePayload(raw["players"])
	if !ok {
		return reject(model.ReasonPayloadDecode, "")
	}
	players := payload.Get("players")
	if !players.Exists() {
		return reject(model.ReasonMissingPlayers, "")
	}
	if n := coerceInt(payload.Get("numPlayers")); n < 2 {
		return reject(model.ReasonNumPlayers, fmt.Sprintf("numPlayers=%d", n))
	}
	list := players.Array()
	if len(list) < 2 {
		return reject(model.ReasonPlayerCount, fmt.Sprintf("players=%d", len(list)))
	}
	for i, p := range list {
		if turns := coerceInt(p.Get("turnsTaken")); turns < c.minTurns {
			return reject(model.ReasonMinTurns, fmt.Sprintf("player %d took %d turns", i+1, turns))
		}
	}

	g := &model.Game{
		GameID:      gameID,
		Map:         raw.Attr("map"),
		Format:      raw.Attr("format"),
		FirstPlayer: firstPlayer,
		Players:     make([]model.Player, 0, len(list)),
	}

	end, endOK := parseTime(raw["datetime"])
	start, startOK := parseTime(raw["datetimeStarted"])
	if endOK {
		g.Datetime = null.StringFrom(end.Format(isoLayout))
	}
	if startOK {
		g.DatetimeStarted = null.StringFrom(start.Format(isoLayout))
	}
	if endOK && startOK {
		if diff := end.Sub(start); diff > 0 {
			g.DurationMinutes = null.FloatFrom(math.Round(diff.Minutes()*10) / 10)
		}
	}

	for _, p := range list {
		g.Players = append(g.Players, c.player(p))
	}

	if matched := c.rules.Match(g); matched != "" {
		return reject(model.ReasonRejectRule, matched)
	}
	return g, nil
}

func (c *Cleaner) player(p gjson.Result) model.Player {
	deck := p.Get("decklist")

	name := "Unknown"
	if n := p.Get("name"); n.Exists() && n.Type != gjson.Null {
		name = n.String()
	}

	return model.Player{
		Name:             name,
		Winner:           coerceBool(p.Get("winner")),
		Commander:        c.names.Commander(deck.Get("_commander").String()),
		DeckName:         deck.Get("_name").String(),
		Turns:            coerceInt(p.Get("turnsTaken")),
		Actions:          max(coerceInt(p.Get("actionsTaken")), 0),
		CardsInDeck:      c.cards(deck.Get("_cards")),
		CardsDrawn:       c.cards(p.Get("cardsDrawn")),
		CardsPlayed:      c.cards(p.Get("cardsPlayed")),
		MulliganKept:     c.cards(p.Get("mulliganKept")),
		MulliganReturned: c.cards(p.Get("mulliganReturned")),
	}
}

// cards extracts {CardName, Count} entries, normalizing names and dropping
// entries whose name is empty after normalization.
func (c *Cleaner) cards(arr gjson.Result) []model.CardCount {
	if !arr.IsArray() {
		return nil
	}
	var out []model.CardCount
	for _, e := range arr.Array() {
		name := c.names.Card(e.Get("CardName").String())
		if name == "" {
			continue
		}
		out = append(out, model.CardCount{Name: name, Count: coerceCount(e.Get("Count"))})
	}
	return out
}

func parseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(rawTimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
