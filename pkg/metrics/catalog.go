package metrics

import "time"

// CatalogMetrics records catalog service operations.
//
// A nil CatalogMetrics is valid and records nothing; services should
// check for nil before recording.
type CatalogMetrics interface {
	// RecordOperation records one catalog operation with its outcome
	// ("ok" or "error") and duration.
	RecordOperation(operation, outcome string, duration time.Duration)

	// RecordVersionsPruned records versions removed by retention pruning.
	RecordVersionsPruned(count int)

	// RecordSharesExpired records shares removed by the expiry sweep.
	RecordSharesExpired(count int)

	// RecordQuotaDenied records an upload rejected by the quota service.
	RecordQuotaDenied()
}

// NewCatalogMetrics creates a new Prometheus-backed CatalogMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCatalogMetrics() CatalogMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusCatalogMetrics()
}

// newPrometheusCatalogMetrics is implemented in pkg/metrics/prometheus.
// The indirection avoids an import cycle between the interface package
// and the Prometheus implementation.
var newPrometheusCatalogMetrics func() CatalogMetrics

// RegisterCatalogMetricsConstructor registers the Prometheus catalog
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterCatalogMetricsConstructor(constructor func() CatalogMetrics) {
	newPrometheusCatalogMetrics = constructor
}
