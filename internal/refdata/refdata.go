// Package refdata loads the card and commander reference tables exported
// from the game's design spreadsheets.
package refdata

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/pable/atlas-metrics/internal/config"
	"github.com/pable/atlas-metrics/internal/model"
	"github.com/pable/atlas-metrics/internal/normalize"
)

// Site-relative prefixes of the art paths written into cards.json and
// commanders.json.
const (
	cardArtURL      = "CardScreenshots/"
	commanderArtURL = "assets/commanders/"
)

// patronFactions maps the spreadsheet's Patron column to faction keys.
var patronFactions = map[string]string{
	"Skaal":    "skaal",
	"Grenalia": "grenalia",
	"Lucia":    "lucia",
	"Neutral":  "neutral",
	"Shadis":   "shadis",
	"Archaeon": "archaeon",
}

// Loader reads both CSV files. Art directories are probed on disk so the
// published tables only reference images that exist.
type Loader struct {
	CardsCSV        string
	CommandersCSV   string
	CardArtDir      string
	CommanderArtDir string
	Names           *normalize.Normalizer
}

// LoaderFromConfig returns the Loader for cfg's paths and rename tables.
func LoaderFromConfig(cfg *config.Config) *Loader {
	return &Loader{
		CardsCSV:        cfg.CardsCSV,
		CommandersCSV:   cfg.CommandersCSV,
		CardArtDir:      cfg.CardArtDir,
		CommanderArtDir: cfg.CommanderArtDir,
		Names:           normalize.New(cfg.CommanderRenames, cfg.CardRenames),
	}
}

// Load reads both tables. A missing file yields an empty table and a warning.
func (l *Loader) Load() (*model.RefData, error) {
	cards, err := l.Cards()
	if err != nil {
		return nil, err
	}
	commanders, err := l.Commanders()
	if err != nil {
		return nil, err
	}
	return model.NewRefData(cards, commanders), nil
}

// Cards reads the card table. Rows without a name are skipped.
func (l *Loader) Cards() ([]model.CardInfo, error) {
	rows, err := readRows(l.CardsCSV)
	if err != nil || rows == nil {
		return []model.CardInfo{}, err
	}
	cards := make([]model.CardInfo, 0, len(rows))
	for _, r := range rows {
		name := r.get("Name")
		if name == "" {
			continue
		}
		cards = append(cards, model.CardInfo{
			Name:      name,
			Type:      r.get("Type"),
			Text:      r.get("TextBox"),
			Subtype:   subtype(r.get("Subtype")),
			Cost:      digits(r.raw("Cost")),
			Attack:    digits(r.raw("Attack")),
			Speed:     digits(r.raw("Speed")),
			Health:    digits(r.raw("Health")),
			Legendary: strings.ToLower(r.get("Legendary")) == "true",
			Faction:   faction(r),
			Art:       artPath(l.CardArtDir, cardArtURL, artSlug(name)+".png"),
		})
	}
	log.Info().Str("module", "refdata").Int("cards", len(cards)).Msg("loaded card table")
	return cards, nil
}

// Commanders reads the commander table. Names are canonicalised.
func (l *Loader) Commanders() ([]model.CommanderInfo, error) {
	rows, err := readRows(l.CommandersCSV)
	if err != nil || rows == nil {
		return []model.CommanderInfo{}, err
	}
	names := l.Names
	if names == nil {
		names = &normalize.Normalizer{}
	}
	commanders := make([]model.CommanderInfo, 0, len(rows))
	for _, r := range rows {
		name := names.Commander(r.get("Name"))
		if name == "" {
			continue
		}
		commanders = append(commanders, model.CommanderInfo{
			Name:      name,
			Text:      r.get("TextBox"),
			Subtype:   subtype(r.get("Subtype")),
			Dominion:  intOrZero(r.get("Dominion")),
			Intellect: intOrZero(r.get("Intellect")),
			Speed:     intOrZero(r.get("Speed")),
			Health:    intOrZero(r.get("Health")),
			Faction:   faction(r),
			Art:       artPath(l.CommanderArtDir, commanderArtURL, strings.ToLower(artSlug(name))+".jpg"),
		})
	}
	log.Info().Str("module", "refdata").Int("commanders", len(commanders)).Msg("loaded commander table")
	return commanders, nil
}

// row is one CSV record addressed by header name.
type row map[string]string

func (r row) raw(col string) string { return r[col] }
func (r row) get(col string) string { return strings.TrimSpace(r[col]) }

// readRows returns nil rows without error when path does not exist.
func readRows(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("module", "refdata").Str("path", path).Msg("reference table not found, skipping")
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to open reference table")
	}
	defer f.Close()
	return parseRows(f)
}

func parseRows(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return []row{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read csv record")
		}
		rw := make(row, len(header))
		for i, col := range header {
			if i < len(rec) {
				rw[col] = rec[i]
			}
		}
		rows = append(rows, rw)
	}
	return rows, nil
}

func subtype(s string) string {
	if s == "None" {
		return ""
	}
	return s
}

func faction(r row) string {
	patron := r.get("Patron")
	if patron == "" {
		patron = "Neutral"
	}
	if f, ok := patronFactions[patron]; ok {
		return f
	}
	return model.NeutralFaction
}

// digits parses an unsigned decimal; anything else, including the empty
// string, "X" and negative values, is nil.
func digits(s string) *int {
	if s == "" {
		return nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func intOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Warn().Str("module", "refdata").Str("value", s).Msg("non-numeric commander stat, using 0")
		return 0
	}
	return n
}

// artSlug turns "Card Name, Title's" into "Card-Name-Titles".
func artSlug(name string) string {
	return strings.NewReplacer(" ", "-", ",", "", "'", "").Replace(name)
}

func artPath(dir, urlPrefix, file string) *string {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
		return nil
	}
	p := urlPrefix + file
	return &p
}
