package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const OutcomeSuccess = "success"

// AuthOperations counts façade calls by operation and outcome, where the
// outcome is "success" or the error kind.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chatdesk_auth_operations_total",
		Help: "Total number of auth operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// ExpiredPurged counts rows removed by expiry maintenance.
var ExpiredPurged = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chatdesk_expired_rows_purged_total",
		Help: "Total number of expired sessions and reset requests removed",
	},
	[]string{"table"},
)

var HTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "chatdesk_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// RegisterMetrics registers the package collectors with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(ExpiredPurged)
	reg.MustRegister(HTTPDuration)
}

func RecordAuth(operation, outcome string) {
	AuthOperations.WithLabelValues(operation, outcome).Inc()
}

func RecordPurged(table string, n int64) {
	if n > 0 {
		ExpiredPurged.WithLabelValues(table).Add(float64(n))
	}
}
