package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Parsed records handed to the store per cycle. Watch for: flatlining
	// during the day (station or feed down).
	RecordsReceivedTotal prometheus.Counter

	// Records newly written. written < received is normal on re-ingestion
	// of a partially covered day; 0 all day means nothing new arrived.
	RecordsWrittenTotal prometheus.Counter

	// Feed lines dropped by the parser. Watch for: a sudden jump, which
	// usually means the upstream changed its column layout.
	LinesSkippedTotal prometheus.Counter

	// Feed fetches by outcome (ok|error).
	FeedFetchesTotal *prometheus.CounterVec

	// Feed fetch latency. The station endpoint is slow and remote; p95
	// creeping toward the client timeout is the early warning.
	FeedFetchDuration prometheus.Histogram

	// Query operations served, by operation name.
	QueriesTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	RecordsReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "awslogRecordsReceivedTotal",
		Help: "Total records parsed from the feed and handed to the store",
	})
	RecordsWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "awslogRecordsWrittenTotal",
		Help: "Total records newly written (duplicates excluded)",
	})
	LinesSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "awslogLinesSkippedTotal",
		Help: "Total feed lines skipped by the parser",
	})
	FeedFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awslogFeedFetchesTotal",
			Help: "Total feed fetch attempts by outcome",
		},
		[]string{"status"},
	)
	FeedFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "awslogFeedFetchDurationSeconds",
		Help:    "Feed fetch latency in seconds",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
	})
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awslogQueriesTotal",
			Help: "Query operations served, by operation",
		},
		[]string{"operation"},
	)

	registry.MustRegister(
		RecordsReceivedTotal, RecordsWrittenTotal, LinesSkippedTotal,
		FeedFetchesTotal, FeedFetchDuration,
		QueriesTotal,
	)
}

// Handler exposes the private registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
