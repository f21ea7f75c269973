package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "membrane",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests against the admin/introspection surface.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "membrane",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	trapInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "membrane",
			Subsystem: "trap",
			Name:      "invocations_total",
			Help:      "Trap invocations mediated by a graph handler.",
		},
		[]string{"graph", "trap", "outcome"},
	)
	trapDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "membrane",
			Subsystem: "trap",
			Name:      "duration_seconds",
			Help:      "Trap invocation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"graph", "trap", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, trapInvocations, trapDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordTrapInvocation records one mediated trap call, labeled by graph
// name, trap name, and outcome ("ok", "error", "disabled", "revoked").
func RecordTrapInvocation(graph, trap, outcome string, duration time.Duration) {
	RegisterMetrics()
	trapInvocations.WithLabelValues(graph, trap, outcome).Inc()
	trapDuration.WithLabelValues(graph, trap, outcome).Observe(duration.Seconds())
}
