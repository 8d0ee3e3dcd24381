package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vessel_data"

// Metrics holds the Prometheus counters, histograms, and gauges for the vessel data service.
type Metrics struct {
	// Store access metrics.
	StoreRequests *prometheus.CounterVec   // labels: operation, outcome={success,empty,error}
	StoreDuration *prometheus.HistogramVec // labels: operation
	BreakerState  prometheus.Gauge

	// Request queue metrics.
	QueueDepth      prometheus.Gauge
	QueueInFlight   prometheus.Gauge
	QueueOperations *prometheus.CounterVec // labels: outcome={success,error,closed}
	QueueWait       prometheus.Histogram

	// Cache metrics.
	CacheLookups *prometheus.CounterVec // labels: region={latest,date,range,historical}, result={hit,miss}

	NormalizeErrors prometheus.Counter
	DateFallbacks   prometheus.Counter

	RefreshRunning     prometheus.Gauge
	SnapshotsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.StoreRequests,
		m.StoreDuration,
		m.BreakerState,
		m.QueueDepth,
		m.QueueInFlight,
		m.QueueOperations,
		m.QueueWait,
		m.CacheLookups,
		m.NormalizeErrors,
		m.DateFallbacks,
		m.RefreshRunning,
		m.SnapshotsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		StoreRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_total",
			Help:      "Backing store queries by operation and outcome.",
		}, []string{"operation", "outcome"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_request_duration_seconds",
			Help:      "Backing store query duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"operation"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Fetch operations waiting to start.",
		}),
		QueueInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_in_flight",
			Help:      "Fetch operations currently running.",
		}),
		QueueOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_operations_total",
			Help:      "Completed fetch operations by outcome.",
		}, []string{"outcome"}),
		QueueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Time a fetch operation spent queued before starting.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.3, 0.6, 1, 2.5, 5},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by region and result.",
		}, []string{"region", "result"}),
		NormalizeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_errors_total",
			Help:      "Raw records dropped as malformed.",
		}),
		DateFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "date_fallbacks_total",
			Help:      "Raw records whose date could not be parsed.",
		}),
		RefreshRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_running",
			Help:      "1 when the background refresh loop is active, 0 when shut down.",
		}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Latest-state snapshots published by outcome.",
		}, []string{"outcome"}),
	}
}
