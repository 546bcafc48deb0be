package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	GamesRejected.WithLabelValues("min_turns").Add(3)
	RecordsFetched.Inc()

	path := filepath.Join(t.TempDir(), "atlas.prom")
	require.NoError(t, WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `atlasmetrics_cleaner_rejected_total{reason="min_turns"}`)
	assert.Contains(t, string(b), "atlasmetrics_source_records_fetched_total")
	assert.GreaterOrEqual(t, testutil.ToFloat64(GamesRejected.WithLabelValues("min_turns")), 3.0)
}

func TestWriteTextfileNoPath(t *testing.T) {
	assert.NoError(t, WriteTextfile(""))
}
