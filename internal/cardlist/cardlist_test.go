package cardlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asset = `%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!114 &11400000
MonoBehaviour:
  m_Name: FullCardList
  _cardNameOrderedList:
  - Firebolt
  - Grenn's Guard, Elite
  -  Spaced
  _otherField: 3
  - Not A Card
`

func TestExtract(t *testing.T) {
	names, err := Extract(strings.NewReader(asset))
	require.NoError(t, err)
	assert.Equal(t, []string{"Firebolt", "Grenn's Guard, Elite", " Spaced"}, names)
}

func TestExtractNoList(t *testing.T) {
	names, err := Extract(strings.NewReader("MonoBehaviour:\n  m_Name: x\n"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "FullCardList.asset")
	require.NoError(t, os.WriteFile(path, []byte(asset), 0o644))
	names, err := ExtractFile(path)
	require.NoError(t, err)
	assert.Len(t, names, 3)

	_, err = ExtractFile(filepath.Join(t.TempDir(), "missing.asset"))
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	doc := Build([]string{"A", "B"}, "2026-03-01", nil)
	assert.Equal(t, 2, doc.Total)
	assert.Equal(t, Card{ID: 1, Name: "B"}, doc.Cards[1])
	assert.NotNil(t, doc.LegacyNames)
	assert.Equal(t, "2026-03-01", doc.Version)
}
