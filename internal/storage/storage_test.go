package storage

import (
	"reflect"
	"testing"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var fetchedAt = time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)

func makeGame(id, datetime, mapName string) model.Game {
	return model.Game{
		GameID:          id,
		Datetime:        null.StringFrom(datetime),
		DatetimeStarted: null.StringFrom("2026-03-30T09:45:00"),
		DurationMinutes: null.FloatFrom(15.5),
		Map:             mapName,
		Format:          "Standard",
		FirstPlayer:     "2",
		Players: []model.Player{
			{
				Name: "alice", Winner: true, Commander: "Alpha", DeckName: "aggro",
				Turns: 7, Actions: 51,
				CardsInDeck:  []model.CardCount{{Name: "Firebolt", Count: 2}, {Name: "Wolf", Count: 1}},
				CardsDrawn:   []model.CardCount{{Name: "Firebolt", Count: 1}},
				CardsPlayed:  []model.CardCount{{Name: "Firebolt", Count: 1}},
				MulliganKept: []model.CardCount{{Name: "Wolf", Count: 1}},
			},
			{
				Name: "bob", Commander: "Beta", Turns: 6, Actions: 40,
				CardsInDeck: []model.CardCount{{Name: "Ward", Count: 3}},
			},
		},
	}
}

// ---- Game cache tests ----

func TestSaveAndLoadRoundTrip(t *testing.T) {
	db := openMemDB(t)

	want := makeGame("g-001", "2026-03-30T10:00:00", "Dunes")
	undated := makeGame("g-000", "", "Tropics")
	undated.Datetime = null.String{}
	undated.DurationMinutes = null.Float{}

	if err := db.SaveGames([]model.Game{want, undated}, fetchedAt); err != nil {
		t.Fatalf("SaveGames: %v", err)
	}

	games, err := db.LoadGames()
	if err != nil {
		t.Fatalf("LoadGames: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	// NULL datetimes sort first.
	if games[0].GameID != "g-000" {
		t.Errorf("expected undated game first, got %s", games[0].GameID)
	}
	if games[0].Datetime.Valid || games[0].DurationMinutes.Valid {
		t.Errorf("expected null datetime and duration, got %+v", games[0])
	}
	if !reflect.DeepEqual(games[1], want) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", games[1], want)
	}
}

func TestSaveGamesIsIdempotent(t *testing.T) {
	db := openMemDB(t)

	g := makeGame("g-001", "2026-03-30T10:00:00", "Dunes")
	for i := 0; i < 2; i++ {
		if err := db.SaveGames([]model.Game{g}, fetchedAt); err != nil {
			t.Fatalf("SaveGames: %v", err)
		}
	}
	n, err := db.CountGames()
	if err != nil {
		t.Fatalf("CountGames: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 game after duplicate save, got %d", n)
	}
	if err := db.SaveGames(nil, fetchedAt); err != nil {
		t.Errorf("empty save: %v", err)
	}
}

func TestKnownIDs(t *testing.T) {
	db := openMemDB(t)
	db.SaveGames([]model.Game{
		makeGame("a", "2026-03-30T10:00:00", "Dunes"),
		makeGame("b", "2026-03-30T11:00:00", "Dunes"),
	}, fetchedAt)

	ids, err := db.KnownIDs()
	if err != nil {
		t.Fatalf("KnownIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if _, ok := ids["a"]; !ok {
		t.Error("expected id a")
	}
}

func TestListGames(t *testing.T) {
	db := openMemDB(t)
	db.SaveGames([]model.Game{
		makeGame("old", "2026-03-01T10:00:00", "Dunes"),
		makeGame("new", "2026-03-30T10:00:00", "Dunes"),
		makeGame("snow", "2026-03-15T10:00:00", "Snowmelt"),
	}, fetchedAt)

	rows, err := db.ListGames("", 0)
	if err != nil {
		t.Fatalf("ListGames: %v", err)
	}
	if len(rows) != 3 || rows[0].GameID != "new" {
		t.Fatalf("expected newest first, got %+v", rows)
	}
	if rows[0].Commanders != "Alpha vs Beta" || rows[0].Winner != "Alpha" || rows[0].NumPlayers != 2 {
		t.Errorf("indexed columns: got %+v", rows[0])
	}

	dunes, _ := db.ListGames("Dunes", 1)
	if len(dunes) != 1 || dunes[0].GameID != "new" {
		t.Errorf("expected one Dunes game, got %+v", dunes)
	}
	all, _ := db.ListGames("all", 0)
	if len(all) != 3 {
		t.Errorf("expected all maps, got %d", len(all))
	}
}

func TestGetGameByPrefix(t *testing.T) {
	db := openMemDB(t)
	db.SaveGames([]model.Game{makeGame("deadbeef1234", "2026-03-30T10:00:00", "Dunes")}, fetchedAt)

	g, err := db.GetGameByPrefix("deadbeef")
	if err != nil {
		t.Fatalf("GetGameByPrefix: %v", err)
	}
	if g == nil {
		t.Fatal("expected game, got nil")
	}
	if g.Players[0].CardsInDeck[0].Name != "Firebolt" {
		t.Errorf("payload not decoded: %+v", g.Players[0])
	}

	none, err := db.GetGameByPrefix("nope")
	if err != nil {
		t.Fatalf("GetGameByPrefix(nope): %v", err)
	}
	if none != nil {
		t.Errorf("expected nil for unknown prefix, got %+v", none)
	}
}

func TestOverview(t *testing.T) {
	db := openMemDB(t)
	db.SaveGames([]model.Game{
		makeGame("a", "2026-03-01T10:00:00", "Dunes"),
		makeGame("b", "2026-03-30T10:00:00", "Dunes"),
		makeGame("c", "2026-03-15T10:00:00", "Snowmelt"),
	}, fetchedAt)

	o, err := db.Overview()
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if o.Total != 3 {
		t.Errorf("expected 3 games, got %d", o.Total)
	}
	if o.Oldest.String != "2026-03-01T10:00:00" || o.Newest.String != "2026-03-30T10:00:00" {
		t.Errorf("range: got %v .. %v", o.Oldest, o.Newest)
	}
	if len(o.Maps) != 2 || o.Maps[0].Map != "Dunes" || o.Maps[0].Games != 2 {
		t.Errorf("maps: got %+v", o.Maps)
	}
}

// ---- Run history tests ----

func TestRunHistory(t *testing.T) {
	db := openMemDB(t)
	first := RunRecord{RunID: "01A", StartedAt: fetchedAt, FinishedAt: fetchedAt.Add(time.Minute), Fetched: 5, Accepted: 4, Rejected: 1, TotalGames: 40, FilesWritten: 17}
	second := first
	second.RunID = "01B"
	second.StartedAt = fetchedAt.Add(time.Hour)

	for _, r := range []RunRecord{first, second} {
		if err := db.InsertRun(r); err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
	}
	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "01B" {
		t.Fatalf("expected newest run first, got %+v", runs)
	}
	if runs[1].Accepted != 4 || !runs[1].StartedAt.Equal(fetchedAt) {
		t.Errorf("run fields: got %+v", runs[1])
	}
}

// ---- Raw query tests ----

func TestQueryRaw(t *testing.T) {
	db := openMemDB(t)
	db.SaveGames([]model.Game{makeGame("a", "2026-03-01T10:00:00", "Dunes")}, fetchedAt)

	cols, rows, err := db.QueryRaw("SELECT map, num_players, duration_minutes, NULL AS \"nothing\" FROM games")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(cols) != 4 || cols[0] != "map" {
		t.Errorf("columns: got %v", cols)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	want := []string{"Dunes", "2", "15.5", "NULL"}
	if !reflect.DeepEqual(rows[0], want) {
		t.Errorf("row: got %v, want %v", rows[0], want)
	}

	if _, _, err := db.QueryRaw("SELECT * FROM nope"); err == nil {
		t.Error("expected error for unknown table")
	}
}
