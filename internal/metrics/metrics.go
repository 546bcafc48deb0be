// Package metrics holds the Prometheus collectors of a pipeline run. A batch
// run has no scrape endpoint, so the registry is flushed to a node-exporter
// textfile at the end of the run.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "atlasmetrics"

// Registry collects every metric below. It is private to the process and
// does not include the default Go runtime collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	RecordsFetched = factory.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(Namespace, "source", "records_fetched_total"),
		Help: "Raw records returned by the source that were not already cached",
	})
	ScanRetries = factory.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(Namespace, "source", "throttle_retries_total"),
		Help: "Scan pages retried after a throttling error",
	})
	GamesAccepted = factory.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(Namespace, "cleaner", "accepted_total"),
		Help: "Raw records accepted as games",
	})
	GamesRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(Namespace, "cleaner", "rejected_total"),
		Help: "Raw records rejected by the cleaner",
	}, []string{"reason"})
	CachedGames = factory.NewGauge(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(Namespace, "storage", "cached_games"),
		Help: "Games held in the incremental cache after the run",
	})
	SliceGames = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(Namespace, "pipeline", "slice_games"),
		Help: "Games in each period and map slice",
	}, []string{"period", "map"})
	AggregateDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(Namespace, "pipeline", "aggregate_duration_seconds"),
		Help:    "Duration of one aggregator over one slice in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"aggregator"})
	FilesWritten = factory.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(Namespace, "output", "files_total"),
		Help: "Output files handled, by outcome",
	}, []string{"outcome"})
	LastSuccess = factory.NewGauge(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(Namespace, "run", "last_success_timestamp_seconds"),
		Help: "Unix time of the last run that completed without error",
	})
)

// WriteTextfile flushes the registry to path. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return errors.Wrap(err, "failed to write metrics textfile")
	}
	return nil
}
