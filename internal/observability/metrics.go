package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for ingestion runs.
type Metrics struct {
	// Registry is the private registry the collectors live in. A batch job
	// pushes it to a Pushgateway instead of serving the default registry.
	Registry *prometheus.Registry

	RunsTotal            *prometheus.CounterVec // labels: outcome={success,failure}
	RunDuration          prometheus.Histogram
	RowsWritten          prometheus.Counter
	BytesWritten         prometheus.Counter
	LastSuccessTimestamp prometheus.Gauge
	SourceDuration       prometheus.Histogram
}

// NewMetrics creates all run metrics and registers them with a fresh registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.Registry = prometheus.NewRegistry()
	m.Registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RowsWritten,
		m.BytesWritten,
		m.LastSuccessTimestamp,
		m.SourceDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_etl",
			Name:      "runs_total",
			Help:      "Ingestion runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_etl",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one ingestion run, fetch through write.",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_etl",
			Name:      "rows_written_total",
			Help:      "Event rows written to the data lake.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_etl",
			Name:      "bytes_written_total",
			Help:      "Compressed bytes written to the data lake (native engine only).",
		}),
		LastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		SourceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_etl",
			Name:      "source_request_duration_seconds",
			Help:      "USGS API request duration in seconds (native engine only).",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}
