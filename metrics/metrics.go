// Package metrics defines the Prometheus instrumentation surface for the
// server: request/response counts, error counts, counters of packfile
// bytes and objects written, and a histogram of operation latency.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/histogram exposed by the server.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	ResponsesTotal      *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
	PackBytesTotal      *prometheus.CounterVec
	ObjectsWrittenTotal *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
}

// New builds a Metrics and registers it with reg. Passing nil registers
// against prometheus.DefaultRegisterer, matching the process-wide registry
// used outside of tests; tests should pass a prometheus.NewRegistry()
// instead to avoid collisions across repeated registration.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsmartd_requests_total",
			Help: "HTTP requests received by repo and operation",
		}, []string{"repo", "operation"}),
		ResponsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsmartd_responses_total",
			Help: "HTTP responses sent by repo, operation and status",
		}, []string{"repo", "operation", "status"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsmartd_errors_total",
			Help: "errors by repo, operation and kind",
		}, []string{"repo", "operation", "kind"}),
		PackBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsmartd_pack_bytes_total",
			Help: "packfile bytes transferred by repo and direction",
		}, []string{"repo", "direction"}),
		ObjectsWrittenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsmartd_objects_written_total",
			Help: "loose objects written by repo",
		}, []string{"repo"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gitsmartd_operation_duration_seconds",
			Help:    "operation latency by repo and operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"repo", "operation"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.ResponsesTotal,
		m.ErrorsTotal,
		m.PackBytesTotal,
		m.ObjectsWrittenTotal,
		m.OperationDuration,
	)

	return m
}
