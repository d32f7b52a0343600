package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultAllowed      = "allowed"
	ResultBlocked      = "blocked"
	ResultUnrecognized = "unrecognized"
)

var (
	// ValidationsTotal counts file name decisions by result (allowed, blocked, unrecognized)
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extfilter_validations_total",
			Help: "Total number of file extension validations",
		},
		[]string{"result"},
	)

	// RegistryMutationsTotal counts registry writes by registry, operation and outcome
	RegistryMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extfilter_registry_mutations_total",
			Help: "Total number of extension registry mutations",
		},
		[]string{"registry", "operation", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extfilter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extfilter_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
)

func RecordMutation(registry, operation, status string) {
	RegistryMutationsTotal.WithLabelValues(registry, operation, status).Inc()
}
