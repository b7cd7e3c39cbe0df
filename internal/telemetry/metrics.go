package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	CourierRequests        *prometheus.CounterVec
	CourierRequestDuration *prometheus.HistogramVec
	CourierErrors          *prometheus.CounterVec
	SyncRuns               prometheus.Counter
	SyncShipments          *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CourierRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivro_courier_requests_total",
				Help: "Total number of courier API calls by operation, courier type, and status",
			},
			[]string{"operation", "courier", "status"},
		),
		CourierRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delivro_courier_request_duration_seconds",
				Help:    "Courier API call duration in seconds by operation and courier type",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "courier"},
		),
		CourierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivro_courier_errors_total",
				Help: "Total courier API errors by courier type and error type",
			},
			[]string{"courier", "error_type"},
		),
		SyncRuns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "delivro_sync_runs_total",
				Help: "Total number of reconciliation passes",
			},
		),
		SyncShipments: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivro_sync_shipments_total",
				Help: "Total shipments processed by reconciliation passes, by result",
			},
			[]string{"result"},
		),
	}
}

// RecordCourierRequest records a courier API call metric.
func (m *Metrics) RecordCourierRequest(operation, courier, status string, duration float64) {
	m.CourierRequests.WithLabelValues(operation, courier, status).Inc()
	m.CourierRequestDuration.WithLabelValues(operation, courier).Observe(duration)
}

// RecordCourierError records a courier API error metric.
func (m *Metrics) RecordCourierError(courier, errorType string) {
	m.CourierErrors.WithLabelValues(courier, errorType).Inc()
}

// RecordSyncRun records the outcome tallies of one reconciliation pass.
func (m *Metrics) RecordSyncRun(synced, failed int) {
	m.SyncRuns.Inc()
	m.SyncShipments.WithLabelValues("synced").Add(float64(synced))
	m.SyncShipments.WithLabelValues("failed").Add(float64(failed))
}
