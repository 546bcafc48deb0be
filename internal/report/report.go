// Package report renders run results and cache contents as terminal tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/guregu/null.v3"

	"github.com/pable/atlas-metrics/internal/aggregator"
	"github.com/pable/atlas-metrics/internal/cleaner"
	"github.com/pable/atlas-metrics/internal/daily"
	"github.com/pable/atlas-metrics/internal/model"
	"github.com/pable/atlas-metrics/internal/pipeline"
	"github.com/pable/atlas-metrics/internal/storage"
)

var (
	cHeader = color.New(color.FgCyan, color.Bold)
	cMuted  = color.New(color.Faint)
	cWarn   = color.New(color.FgYellow)
	cGood   = color.New(color.FgGreen)
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func section(w io.Writer, title string) {
	cHeader.Fprintf(w, "\n--- %s ---\n\n", title)
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func nullPct(v null.Float) string {
	if !v.Valid {
		return "—"
	}
	return pct(v.Float64)
}

// PrintRunSummary prints the counters of a finished run and the slice grid.
func PrintRunSummary(w io.Writer, s *pipeline.RunSummary) {
	cHeader.Fprintf(w, "\n=== Run %s ===\n\n", s.RunID)
	fmt.Fprintf(w, "  Fetched        : %d\n", s.Fetched)
	fmt.Fprintf(w, "  Accepted       : %d\n", s.Accepted)
	fmt.Fprintf(w, "  Rejected       : %d\n", s.Rejected.Total())
	fmt.Fprintf(w, "  Games in cache : %d\n", s.TotalGames)
	fmt.Fprintf(w, "  Files written  : %d of %d\n", s.Written(), len(s.Files))
	if s.Uploaded > 0 {
		fmt.Fprintf(w, "  Uploaded       : %d\n", s.Uploaded)
	}
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  Took           : %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}

	if s.Rejected.Total() > 0 {
		PrintRejections(w, s.Rejected)
	}
	if s.Result != nil {
		PrintSliceGrid(w, s.Result)
	}
}

// PrintRejections prints the skip count by reason, largest first.
func PrintRejections(w io.Writer, t cleaner.Tally) {
	section(w, "Rejected records")
	table := newTable(w)
	table.Header("REASON", "RECORDS")
	for _, rc := range t.Sorted() {
		table.Append(string(rc.Reason), strconv.Itoa(rc.Count))
	}
	table.Render()
}

// PrintSliceGrid prints the game count of every period × map slice.
func PrintSliceGrid(w io.Writer, res *pipeline.Result) {
	section(w, "Games per slice")
	table := newTable(w)
	header := []any{"PERIOD"}
	for _, m := range res.Maps {
		header = append(header, m)
	}
	table.Header(header...)
	for _, p := range res.Periods {
		row := []any{p}
		for _, m := range res.Maps {
			n := 0
			if s := res.Slice(p, m); s != nil {
				n = s.Games
			}
			row = append(row, strconv.Itoa(n))
		}
		table.Append(row...)
	}
	table.Render()
}

// PrintCommanderTable prints commander pick and win counts. limit <= 0
// prints every row.
func PrintCommanderTable(w io.Writer, rows []aggregator.CommanderStat, limit int) {
	if len(rows) == 0 {
		cMuted.Fprintln(w, "no commander appearances in this slice")
		return
	}
	table := newTable(w)
	table.Header("#", "COMMANDER", "FACTION", "MATCHES", "WINS", "WIN%")
	for i, r := range rows {
		if limit > 0 && i == limit {
			break
		}
		table.Append(
			strconv.Itoa(i+1),
			r.Name,
			r.Faction,
			strconv.Itoa(r.Matches),
			strconv.Itoa(r.Wins),
			pct(r.Winrate),
		)
	}
	table.Render()
}

// PrintCardTable prints the most included cards with their winrates.
func PrintCardTable(w io.Writer, rows []aggregator.CardStat, limit int) {
	if len(rows) == 0 {
		return
	}
	table := newTable(w)
	table.Header("CARD", "FACTION", "TYPE", "DECKS", "DECK%", "DECK_WR", "PLAYED", "PLAYED_WR", "COPIES")
	for i, r := range rows {
		if limit > 0 && i == limit {
			break
		}
		table.Append(
			r.Name,
			r.Faction,
			r.Type,
			strconv.Itoa(r.DeckCount),
			pct(r.DeckRate),
			nullPct(r.DeckWinrate),
			strconv.Itoa(r.PlayedCount),
			nullPct(r.PlayedWinrate),
			fmt.Sprintf("%.2f", r.AvgCopies),
		)
	}
	table.Render()
}

// PrintFirstTurn prints the first-player advantage line of a slice.
func PrintFirstTurn(w io.Writer, f aggregator.FirstTurn) {
	if f.TotalGames == 0 {
		return
	}
	fmt.Fprintf(w, "\n  First player won %d of %d games (%s)\n", f.FirstPlayerWins, f.TotalGames, nullPct(f.FirstPlayerWinrate))
}

// PrintOverview prints the cache totals, the map breakdown and recent runs.
func PrintOverview(w io.Writer, ov storage.Overview, runs []storage.RunRecord) {
	cHeader.Fprintf(w, "\n=== Game Cache ===\n\n")
	fmt.Fprintf(w, "  Games stored : %d\n", ov.Total)
	fmt.Fprintf(w, "  Date range   : %s → %s\n", ov.Oldest.ValueOrZero(), ov.Newest.ValueOrZero())

	if len(ov.Maps) > 0 {
		section(w, "Maps")
		mt := newTable(w)
		mt.Header("MAP", "GAMES", "SHARE")
		for _, m := range ov.Maps {
			share := 0.0
			if ov.Total > 0 {
				share = float64(m.Games) / float64(ov.Total)
			}
			name := m.Map
			if name == "" {
				name = "(none)"
			}
			mt.Append(name, strconv.Itoa(m.Games), pct(share))
		}
		mt.Render()
	}

	if len(runs) > 0 {
		section(w, "Recent Runs")
		rt := newTable(w)
		rt.Header("RUN", "STARTED", "FETCHED", "ACCEPTED", "REJECTED", "GAMES", "FILES")
		for _, r := range runs {
			rt.Append(
				r.RunID,
				r.StartedAt.Format("2006-01-02 15:04"),
				strconv.Itoa(r.Fetched),
				strconv.Itoa(r.Accepted),
				strconv.Itoa(r.Rejected),
				strconv.Itoa(r.TotalGames),
				strconv.Itoa(r.FilesWritten),
			)
		}
		rt.Render()
	}
}

// PrintGameList prints one line per cached game.
func PrintGameList(w io.Writer, rows []storage.GameRow) {
	table := newTable(w)
	table.Header("ID", "DATE", "MAP", "FORMAT", "FIRST", "MIN", "COMMANDERS", "WINNER")
	for _, r := range rows {
		dur := "—"
		if r.DurationMinutes.Valid {
			dur = fmt.Sprintf("%.1f", r.DurationMinutes.Float64)
		}
		table.Append(
			shortID(r.GameID),
			r.Datetime.ValueOrZero(),
			r.Map,
			r.Format,
			r.FirstPlayer,
			dur,
			r.Commanders,
			r.Winner,
		)
	}
	table.Render()
}

// PrintGame prints one cached game with its per-player lines.
func PrintGame(w io.Writer, g *model.Game) {
	cHeader.Fprintf(w, "\nGame %s\n", g.GameID)
	fmt.Fprintf(w, "  Date: %s  |  Map: %s  |  Format: %s  |  First player: %s",
		g.Datetime.ValueOrZero(), g.Map, g.Format, g.FirstPlayer)
	if g.DurationMinutes.Valid {
		fmt.Fprintf(w, "  |  %.1f min", g.DurationMinutes.Float64)
	}
	fmt.Fprint(w, "\n\n")

	table := newTable(w)
	table.Header(" ", "PLAYER", "COMMANDER", "DECK", "TURNS", "ACTIONS", "DECK_CARDS", "DRAWN", "PLAYED", "MULLIGAN")
	for _, p := range g.Players {
		marker := " "
		if p.Winner {
			marker = "W"
		}
		mull := "—"
		if p.HasMulligan() {
			mull = fmt.Sprintf("%d/%d", total(p.MulliganKept), total(p.MulliganKept)+total(p.MulliganReturned))
		}
		table.Append(
			marker,
			p.Name,
			p.Commander,
			p.DeckName,
			strconv.Itoa(p.Turns),
			strconv.Itoa(p.Actions),
			strconv.Itoa(total(p.CardsInDeck)),
			strconv.Itoa(total(p.CardsDrawn)),
			strconv.Itoa(total(p.CardsPlayed)),
			mull,
		)
	}
	table.Render()
}

// PrintDailySummary prints the day's digest as a table.
func PrintDailySummary(w io.Writer, s daily.Summary) {
	cHeader.Fprintf(w, "\n=== %s ===\n\n", s.Date)
	if s.TotalGames == 0 {
		cWarn.Fprintln(w, "  no games recorded")
		return
	}
	fmt.Fprintf(w, "  Games          : %d\n", s.TotalGames)
	fmt.Fprintf(w, "  Unique players : %d\n", s.UniquePlayers)
	if s.AvgDurationMin.Valid {
		fmt.Fprintf(w, "  Avg length     : %.1f min\n", s.AvgDurationMin.Float64)
	}
	if len(s.TopCommanders) > 0 {
		section(w, "Top Commanders")
		table := newTable(w)
		table.Header("#", "COMMANDER", "PICKS", "WIN%")
		for i, c := range s.TopCommanders {
			table.Append(strconv.Itoa(i+1), c.Name, strconv.Itoa(c.Picks), fmt.Sprintf("%d%%", c.Winrate))
		}
		table.Render()
	}
}

// PrintQuery prints the result of an ad-hoc query.
func PrintQuery(w io.Writer, cols []string, rows [][]string) {
	if len(rows) == 0 {
		cMuted.Fprintln(w, "(no rows)")
		return
	}
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, r := range rows {
		cells := make([]any, len(r))
		for i, c := range r {
			cells[i] = c
		}
		table.Append(cells...)
	}
	table.Render()
	cMuted.Fprintf(w, "(%d rows)\n", len(rows))
}

// PrintStructuralErrors lists broken invariants after a failed build.
func PrintStructuralErrors(w io.Writer, errs []error) {
	for _, err := range errs {
		cWarn.Fprintf(w, "  ✗ %v\n", err)
	}
}

// Done prints a green confirmation line.
func Done(w io.Writer, format string, args ...any) {
	cGood.Fprintf(w, format+"\n", args...)
}

func total(list []model.CardCount) int {
	n := 0
	for _, c := range list {
		n += c.Count
	}
	return n
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
