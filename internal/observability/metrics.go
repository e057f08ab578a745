package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"neargrid/internal/domain"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the feed engine.
type Metrics struct {
	SnapshotsApplied   *prometheus.CounterVec // labels: collection
	SubscriptionErrors *prometheus.CounterVec // labels: collection
	VisibleRecords     *prometheus.GaugeVec   // labels: collection
	ProjectionDuration prometheus.Histogram

	// Render metrics.
	RenderOps *prometheus.CounterVec // labels: collection, op={add,remove}

	// Submission metrics.
	Submissions *prometheus.CounterVec // labels: collection, outcome={success,error,rejected}

	// Connectivity is 1 for the current aggregate sync status and 0 for the others.
	Connectivity *prometheus.GaugeVec // labels: status
}

// NewMetrics creates and registers all feed metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()

	prometheus.MustRegister(
		m.SnapshotsApplied,
		m.SubscriptionErrors,
		m.VisibleRecords,
		m.ProjectionDuration,
		m.RenderOps,
		m.Submissions,
		m.Connectivity,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SnapshotsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neargrid",
			Name:      "snapshots_applied_total",
			Help:      "Snapshots applied to the record store by collection.",
		}, []string{"collection"}),
		SubscriptionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neargrid",
			Name:      "subscription_errors_total",
			Help:      "Subscription failures by collection.",
		}, []string{"collection"}),
		VisibleRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "neargrid",
			Name:      "visible_records",
			Help:      "Records in the current projection by collection.",
		}, []string{"collection"}),
		ProjectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neargrid",
			Name:      "projection_duration_seconds",
			Help:      "Duration of a projection and reconciliation cycle.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		RenderOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neargrid",
			Name:      "render_operations_total",
			Help:      "Cards and markers added or removed by collection.",
		}, []string{"collection", "op"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neargrid",
			Name:      "submissions_total",
			Help:      "Record submissions by collection and outcome.",
		}, []string{"collection", "outcome"}),
		Connectivity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "neargrid",
			Name:      "connectivity",
			Help:      "1 for the current aggregate sync status.",
		}, []string{"status"}),
	}
}

// SetConnectivity marks status as the current aggregate sync status.
func (m *Metrics) SetConnectivity(status domain.SyncStatus) {
	for _, s := range []domain.SyncStatus{
		domain.SyncStatusConnecting,
		domain.SyncStatusSynced,
		domain.SyncStatusError,
		domain.SyncStatusOffline,
	} {
		v := 0.0
		if s == status {
			v = 1
		}
		m.Connectivity.WithLabelValues(s.String()).Set(v)
	}
}
