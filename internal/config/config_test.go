package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.MinTurns)
	assert.Equal(t, "games", cfg.DynamoTable)
	assert.Equal(t, "us-east-2", cfg.AWSRegion)
	assert.Equal(t, BaselineHand, cfg.MulliganBaseline)
	assert.Equal(t, []string{"all", "Dunes", "Snowmelt", "Tropics"}, cfg.Maps)

	require.Len(t, cfg.PeriodList, 4)
	assert.Equal(t, "all", cfg.PeriodList[0].Key)
	assert.Nil(t, cfg.PeriodList[0].Days)
	assert.Equal(t, "6m", cfg.PeriodList[1].Key)
	assert.Equal(t, 180, *cfg.PeriodList[1].Days)
	assert.Equal(t, 30, *cfg.PeriodList[3].Days)

	assert.Equal(t, "Elber, Jungle Emissary", cfg.CommanderRenames["Elber, Jungle Emmisary"])
	assert.Empty(t, cfg.CardRenames)
}

func TestParsePeriods(t *testing.T) {
	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := ParsePeriods([]string{"all", "all"})
		require.Error(t, err)
	})
	t.Run("rejects bad day counts", func(t *testing.T) {
		_, err := ParsePeriods([]string{"1w:seven"})
		require.Error(t, err)
		_, err = ParsePeriods([]string{"neg:-3"})
		require.Error(t, err)
	})
	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParsePeriods([]string{" "})
		require.Error(t, err)
	})
	t.Run("keeps order", func(t *testing.T) {
		ps, err := ParsePeriods([]string{"1w:7", "all"})
		require.NoError(t, err)
		require.Len(t, ps, 2)
		assert.Equal(t, "1w", ps[0].Key)
		assert.Equal(t, 7, *ps[0].Days)
		assert.Nil(t, ps[1].Days)
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ATLAS_MIN_TURNS", "2")
	t.Setenv("ATLAS_MAPS", "all,Dunes")
	t.Setenv("ATLAS_REJECT_RULES", `Format == "Draft"; Map == "Test"`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MinTurns)
	assert.Equal(t, []string{"all", "Dunes"}, cfg.Maps)
	assert.Equal(t, []string{`Format == "Draft"`, `Map == "Test"`}, cfg.Rules)
}

func TestNewValidates(t *testing.T) {
	spec := Default().Spec
	spec.MulliganBaseline = "vibes"
	_, err := New(spec)
	require.Error(t, err)

	spec = Default().Spec
	spec.MinTurns = 0
	_, err = New(spec)
	require.Error(t, err)
}

func TestRenamesFileMerges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renames.json")
	doc := `{"commanders":{"Old Boss":"New Boss"},"cards":{"Fireball ":"Fireball"}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	spec := Default().Spec
	spec.RenamesFile = path
	cfg, err := New(spec)
	require.NoError(t, err)

	assert.Equal(t, "New Boss", cfg.CommanderRenames["Old Boss"])
	assert.Equal(t, "Soultaker Viessa", cfg.CommanderRenames["Layna, Soulcatcher"])
	assert.Equal(t, "Fireball", cfg.CardRenames["Fireball "])
}
