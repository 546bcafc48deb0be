package model

import (
	"math"
	"strconv"

	"gopkg.in/guregu/null.v3"
)

// First-player values as recorded upstream.
const (
	FirstPlayerOne     = "1"
	FirstPlayerTwo     = "2"
	FirstPlayerRandom  = "99"
	FirstPlayerNotDone = "0"
)

// NeutralFaction is the fallback faction for unknown cards and commanders.
const NeutralFaction = "neutral"

// ---- Raw records as delivered by the store ----

// RawRecord is one loosely-typed item from the games table. Values may be
// strings, numbers or booleans for the same logical field across records.
type RawRecord map[string]any

// GameID returns the upstream identifier, or "" when absent. Numeric ids
// are rendered the way AttrString does.
func (r RawRecord) GameID() string {
	return r.Attr("gameid")
}

// Attr returns the attribute key as a string.
func (r RawRecord) Attr(key string) string {
	return AttrString(r[key])
}

// AttrString renders a raw attribute as the upstream would stringify it:
// integral numbers without a decimal point, booleans as "True"/"False".
func AttrString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return AttrString(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case interface{ String() string }:
		return t.String()
	default:
		return ""
	}
}

// ---- Cleaned games ----

// CardCount is one entry of a deck list, draw list or play list.
type CardCount struct {
	Name  string `json:"name" msgpack:"name"`
	Count int    `json:"count" msgpack:"count"`
}

// Player is one participant of a cleaned game. Immutable after cleaning.
type Player struct {
	Name      string `json:"name" msgpack:"name"`
	Winner    bool   `json:"winner" msgpack:"winner"`
	Commander string `json:"commander" msgpack:"commander"`
	DeckName  string `json:"deck_name" msgpack:"deck_name"`
	Turns     int    `json:"turns" msgpack:"turns"`
	Actions   int    `json:"actions" msgpack:"actions"`

	CardsInDeck []CardCount `json:"cards_in_deck" msgpack:"cards_in_deck"`
	CardsDrawn  []CardCount `json:"cards_drawn" msgpack:"cards_drawn"`
	CardsPlayed []CardCount `json:"cards_played" msgpack:"cards_played"`

	// Opening-hand decisions; empty for clients that did not record them.
	MulliganKept     []CardCount `json:"mulligan_kept,omitempty" msgpack:"mulligan_kept,omitempty"`
	MulliganReturned []CardCount `json:"mulligan_returned,omitempty" msgpack:"mulligan_returned,omitempty"`
}

// HasMulligan reports whether the player recorded an opening-hand decision.
func (p *Player) HasMulligan() bool {
	return len(p.MulliganKept) > 0 || len(p.MulliganReturned) > 0
}

// Game is the canonical cleaned match record.
type Game struct {
	GameID          string      `json:"game_id" msgpack:"game_id"`
	Datetime        null.String `json:"datetime" msgpack:"datetime"`
	DatetimeStarted null.String `json:"datetime_started" msgpack:"datetime_started"`
	DurationMinutes null.Float  `json:"duration_minutes" msgpack:"duration_minutes"`
	Map             string      `json:"map" msgpack:"map"`
	Format          string      `json:"format" msgpack:"format"`
	FirstPlayer     string      `json:"first_player" msgpack:"first_player"`
	Players         []Player    `json:"players" msgpack:"players"`
}

// IsHeadsUp reports whether the game has exactly two participants.
func (g *Game) IsHeadsUp() bool {
	return len(g.Players) == 2
}

// FirstIndex returns the 0-based index of the player who acted first, or -1
// when the first player is random, unknown or absent.
func (g *Game) FirstIndex() int {
	switch g.FirstPlayer {
	case FirstPlayerOne:
		return 0
	case FirstPlayerTwo:
		return 1
	default:
		return -1
	}
}

// TotalTurns sums turns across all players.
func (g *Game) TotalTurns() int {
	n := 0
	for i := range g.Players {
		n += g.Players[i].Turns
	}
	return n
}

// TotalActions sums actions across all players.
func (g *Game) TotalActions() int {
	n := 0
	for i := range g.Players {
		n += g.Players[i].Actions
	}
	return n
}

// ---- Rejections ----

// Reason tags why a raw record did not become a Game.
type Reason string

const (
	ReasonNotStarted     Reason = "not_started"
	ReasonPayloadDecode  Reason = "payload_decode"
	ReasonMissingPlayers Reason = "missing_players"
	ReasonNumPlayers     Reason = "num_players"
	ReasonPlayerCount    Reason = "player_count"
	ReasonMinTurns       Reason = "min_turns"
	ReasonRejectRule     Reason = "reject_rule"
)

// Rejection is returned by the cleaner instead of a Game.
type Rejection struct {
	GameID string
	Reason Reason
	Detail string
}

func (r *Rejection) String() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return string(r.Reason) + ": " + r.Detail
}
