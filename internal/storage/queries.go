package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/model"
)

const timeLayout = time.RFC3339

// GameRow is the indexed summary of one cached game.
type GameRow struct {
	GameID          string
	Datetime        null.String
	Map             string
	Format          string
	FirstPlayer     string
	NumPlayers      int
	DurationMinutes null.Float
	Commanders      string
	Winner          string
}

// SaveGames upserts games in a transaction. The full game is stored as a
// msgpack payload next to a few indexed columns for ad-hoc queries.
func (db *DB) SaveGames(games []model.Game, fetchedAt time.Time) error {
	if len(games) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO games(
			game_id, datetime, map, format, first_player, num_players,
			duration_minutes, commanders, winner, payload, fetched_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	fetched := fetchedAt.UTC().Format(timeLayout)
	for i := range games {
		g := &games[i]
		payload, err := msgpack.Marshal(g)
		if err != nil {
			return errors.Wrapf(err, "failed to encode game %s", g.GameID)
		}
		_, err = stmt.Exec(
			g.GameID, g.Datetime, g.Map, g.Format, g.FirstPlayer, len(g.Players),
			g.DurationMinutes, commanderLine(g), winnerLine(g), payload, fetched,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert game %s", g.GameID)
		}
	}
	return tx.Commit()
}

// LoadGames decodes every cached game, oldest first.
func (db *DB) LoadGames() ([]model.Game, error) {
	rows, err := db.conn.Query(`SELECT game_id, payload FROM games ORDER BY datetime, game_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Game
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var g model.Game
		if err := msgpack.Unmarshal(payload, &g); err != nil {
			return nil, errors.Wrapf(err, "failed to decode cached game %s", id)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// KnownIDs returns the set of cached game ids.
func (db *DB) KnownIDs() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT game_id FROM games`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// CountGames returns the number of cached games.
func (db *DB) CountGames() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(1) FROM games`).Scan(&n)
	return n, err
}

// ListGames returns the newest cached games first. limit <= 0 returns all.
func (db *DB) ListGames(mapName string, limit int) ([]GameRow, error) {
	q := `
		SELECT game_id, datetime, map, format, first_player, num_players,
		       duration_minutes, commanders, winner
		FROM games`
	var args []any
	if mapName != "" && mapName != "all" {
		q += ` WHERE map = ?`
		args = append(args, mapName)
	}
	q += ` ORDER BY datetime DESC, game_id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameRow
	for rows.Next() {
		var r GameRow
		if err := rows.Scan(&r.GameID, &r.Datetime, &r.Map, &r.Format, &r.FirstPlayer,
			&r.NumPlayers, &r.DurationMinutes, &r.Commanders, &r.Winner); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetGameByPrefix finds the first game whose id starts with the given prefix.
func (db *DB) GetGameByPrefix(prefix string) (*model.Game, error) {
	var payload []byte
	err := db.conn.QueryRow(`
		SELECT payload FROM games WHERE game_id LIKE ? ORDER BY game_id LIMIT 1`, prefix+"%").
		Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g model.Game
	if err := msgpack.Unmarshal(payload, &g); err != nil {
		return nil, errors.Wrap(err, "failed to decode cached game")
	}
	return &g, nil
}

// MapCount is the number of cached games on one map.
type MapCount struct {
	Map   string
	Games int
}

// Overview summarises the cache contents.
type Overview struct {
	Total  int
	Oldest null.String
	Newest null.String
	Maps   []MapCount
}

// Overview returns totals, the dated range and per-map counts.
func (db *DB) Overview() (Overview, error) {
	var o Overview
	err := db.conn.QueryRow(`SELECT COUNT(1), MIN(datetime), MAX(datetime) FROM games`).
		Scan(&o.Total, &o.Oldest, &o.Newest)
	if err != nil {
		return o, err
	}

	rows, err := db.conn.Query(`SELECT map, COUNT(1) FROM games GROUP BY map ORDER BY COUNT(1) DESC, map`)
	if err != nil {
		return o, err
	}
	defer rows.Close()
	for rows.Next() {
		var m MapCount
		if err := rows.Scan(&m.Map, &m.Games); err != nil {
			return o, err
		}
		o.Maps = append(o.Maps, m)
	}
	return o, rows.Err()
}

// RunRecord is one row of the run history.
type RunRecord struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Fetched      int
	Accepted     int
	Rejected     int
	TotalGames   int
	FilesWritten int
}

// InsertRun records a finished pipeline run.
func (db *DB) InsertRun(r RunRecord) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO runs(run_id, started_at, finished_at, fetched, accepted, rejected, total_games, files_written)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
		r.Fetched, r.Accepted, r.Rejected, r.TotalGames, r.FilesWritten,
	)
	return err
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, started_at, finished_at, fetched, accepted, rejected, total_games, files_written
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.RunID, &started, &finished, &r.Fetched, &r.Accepted,
			&r.Rejected, &r.TotalGames, &r.FilesWritten); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary read query and returns every value as text.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query failed")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, lo.Map(vals, func(v any, _ int) string { return cellString(v) }))
	}
	return cols, out, rows.Err()
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(x))
	case time.Time:
		return x.UTC().Format(timeLayout)
	default:
		return fmt.Sprint(x)
	}
}

func commanderLine(g *model.Game) string {
	return strings.Join(lo.Map(g.Players, func(p model.Player, _ int) string { return p.Commander }), " vs ")
}

func winnerLine(g *model.Game) string {
	p, ok := lo.Find(g.Players, func(p model.Player) bool { return p.Winner })
	if !ok {
		return ""
	}
	return p.Commander
}
