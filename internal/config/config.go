// Package config builds the immutable run configuration from the
// environment, an optional .env file and command-line overrides.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "atlas"

// Mulligan baseline policies.
const (
	BaselineHand      = "hand"
	BaselineIntellect = "intellect"
)

// DataVersion is stamped into metadata.json.
const DataVersion = "3.0.0"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Spec is the environment-facing configuration. Field names map to
// ATLAS_<SPLIT_WORDS> variables.
type Spec struct {
	// AWSRegion is the region of the games table and the publish bucket.
	AWSRegion string `split_words:"true" default:"us-east-2" validate:"required"`

	// AWSAccessKeyID and AWSSecretAccessKey switch the AWS clients to static
	// credentials. Leaving them empty uses the default credential chain.
	AWSAccessKeyID     string `split_words:"true"`
	AWSSecretAccessKey string `split_words:"true"`

	DynamoTable string `split_words:"true" default:"games" validate:"required"`

	// DataDir receives every generated JSON file.
	DataDir   string `split_words:"true" default:"site/data" validate:"required"`
	CachePath string `split_words:"true" default:"data/games.db" validate:"required"`

	CardsCSV      string `envconfig:"CARDS_CSV" default:"StandardFormatCards.csv"`
	CommandersCSV string `envconfig:"COMMANDERS_CSV" default:"StandardFormatCommanders.csv"`

	CardArtDir      string `split_words:"true" default:"CardScreenshots"`
	CommanderArtDir string `split_words:"true" default:"site/assets/commanders"`
	CardListAsset   string `split_words:"true" default:"Formats/FullCardList.asset"`

	MinTurns int `split_words:"true" default:"3" validate:"min=1"`
	Workers  int `split_words:"true" default:"4" validate:"min=1,max=64"`

	TrendMinPicks       int `split_words:"true" default:"4" validate:"min=0"`
	MatchupCardMinPlays int `split_words:"true" default:"3" validate:"min=1"`
	MatchupTopCards     int `split_words:"true" default:"10" validate:"min=1"`

	MulliganBaseline string `split_words:"true" default:"hand" validate:"oneof=hand intellect"`

	// Periods is a comma-separated list of key:days windows. A bare key is unbounded.
	Periods []string `default:"all,6m:180,3m:90,1m:30" validate:"min=1"`
	Maps    []string `default:"all,Dunes,Snowmelt,Tropics" validate:"min=1"`

	// RenamesFile points at a JSON document {"commanders":{...},"cards":{...}}
	// merged over the built-in rename tables.
	RenamesFile string `split_words:"true"`

	// RejectRules is a ';'-separated list of boolean expressions over a cleaned game.
	RejectRules string `split_words:"true"`

	S3Bucket string `split_words:"true"`
	S3Prefix string `split_words:"true" default:"data/"`

	Compress    bool   `default:"false"`
	MetricsFile string `split_words:"true"`

	LogLevel string `split_words:"true" default:"info" validate:"oneof=trace debug info warn error"`
	LogFile  string `split_words:"true"`

	SiteURL string `split_words:"true" default:"https://rossfw.github.io/atlas-conquest-analytics/" validate:"url"`
}

// Period is one named recency window. Days is nil for the unbounded window.
type Period struct {
	Key  string
	Days *int
}

// Config is the resolved configuration. It is built once per process and
// never mutated afterwards.
type Config struct {
	Spec

	PeriodList       []Period
	CommanderRenames map[string]string
	CardRenames      map[string]string
	Rules            []string
}

// DefaultCommanderRenames maps legacy commander names to their canonical form.
func DefaultCommanderRenames() map[string]string {
	return map[string]string{
		"Elber, Jungle Emmisary":       "Elber, Jungle Emissary",
		"Layna, Soulcatcher":           "Soultaker Viessa",
		"Lyre, Tactician of the Order": "Elyse of the Order",
	}
}

// DefaultCardRenames maps legacy card names to their canonical form.
func DefaultCardRenames() map[string]string {
	return map[string]string{}
}

// Load reads .env (when present) and the ATLAS_* environment.
func Load() (*Config, error) {
	spec, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	return New(spec)
}

// LoadSpec reads the raw environment configuration without validating it,
// so that command-line overrides can be applied before New.
func LoadSpec() (Spec, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	var spec Spec
	if err := envconfig.Process(EnvPrefix, &spec); err != nil {
		_ = envconfig.Usage(EnvPrefix, &spec)
		return spec, errors.Wrap(err, "failed to parse configuration")
	}
	return spec, nil
}

// Default returns the configuration produced by an empty environment.
func Default() *Config {
	var spec Spec
	if err := envconfig.Process("atlas_default_unset", &spec); err != nil {
		panic(err)
	}
	cfg, err := New(spec)
	if err != nil {
		panic(err)
	}
	return cfg
}

// New validates spec and resolves the derived fields.
func New(spec Spec) (*Config, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	periods, err := ParsePeriods(spec.Periods)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Spec:             spec,
		PeriodList:       periods,
		CommanderRenames: DefaultCommanderRenames(),
		CardRenames:      DefaultCardRenames(),
		Rules:            splitRules(spec.RejectRules),
	}

	if spec.RenamesFile != "" {
		if err := cfg.mergeRenames(spec.RenamesFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ParsePeriods parses "key:days" entries. A key without days is unbounded.
func ParsePeriods(raw []string) ([]Period, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]Period, 0, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, daysStr, bounded := strings.Cut(entry, ":")
		if seen[key] {
			return nil, errors.Errorf("duplicate period %q", key)
		}
		seen[key] = true

		p := Period{Key: key}
		if bounded {
			days, err := strconv.Atoi(daysStr)
			if err != nil || days <= 0 {
				return nil, errors.Errorf("period %q: invalid day count %q", key, daysStr)
			}
			p.Days = &days
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, errors.New("no periods configured")
	}
	return out, nil
}

func splitRules(raw string) []string {
	var rules []string
	for _, r := range strings.Split(raw, ";") {
		if r = strings.TrimSpace(r); r != "" {
			rules = append(rules, r)
		}
	}
	return rules
}

type renamesDoc struct {
	Commanders map[string]string `json:"commanders"`
	Cards      map[string]string `json:"cards"`
}

func (c *Config) mergeRenames(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read renames file")
	}
	var doc renamesDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return errors.Wrapf(err, "failed to parse renames file %s", path)
	}
	for k, v := range doc.Commanders {
		c.CommanderRenames[k] = v
	}
	for k, v := range doc.Cards {
		c.CardRenames[k] = v
	}
	return nil
}
