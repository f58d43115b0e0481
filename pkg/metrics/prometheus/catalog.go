// Package prometheus contains the Prometheus implementations of the
// metrics interfaces. Importing this package registers the constructors
// with pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/driveos/filecore/pkg/metrics"
)

func init() {
	metrics.RegisterCatalogMetricsConstructor(newCatalogMetrics)
}

// catalogMetrics is the Prometheus implementation of CatalogMetrics.
type catalogMetrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	versionsPruned    prometheus.Counter
	sharesExpired     prometheus.Counter
	quotaDenied       prometheus.Counter
}

func newCatalogMetrics() metrics.CatalogMetrics {
	reg := metrics.GetRegistry()

	return &catalogMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filecore_catalog_operations_total",
				Help: "Total catalog operations by operation and outcome",
			},
			[]string{"operation", "outcome"}, // outcome: "ok", "error"
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filecore_catalog_operation_duration_seconds",
				Help:    "Catalog operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		versionsPruned: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filecore_versions_pruned_total",
				Help: "Total file versions removed by retention pruning",
			},
		),
		sharesExpired: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filecore_shares_expired_total",
				Help: "Total shares removed by the expiry sweep",
			},
		),
		quotaDenied: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filecore_quota_denied_total",
				Help: "Total uploads rejected by the quota service",
			},
		),
	}
}

func (m *catalogMetrics) RecordOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *catalogMetrics) RecordVersionsPruned(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.versionsPruned.Add(float64(count))
}

func (m *catalogMetrics) RecordSharesExpired(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sharesExpired.Add(float64(count))
}

func (m *catalogMetrics) RecordQuotaDenied() {
	if m == nil {
		return
	}
	m.quotaDenied.Inc()
}
