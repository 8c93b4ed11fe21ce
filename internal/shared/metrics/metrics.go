package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobapply_analyses_total",
			Help: "Match analyses produced, by source (generated or basic)",
		},
		[]string{"source"},
	)

	emailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobapply_emails_composed_total",
			Help: "Application emails composed, by origin (generated or template)",
		},
		[]string{"origin"},
	)

	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobapply_dispatch_total",
			Help: "Mail provider dispatches, by action and status",
		},
		[]string{"action", "status"},
	)

	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobapply_generation_duration_seconds",
			Help:    "Text generation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
		},
		[]string{"operation", "status"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobapply_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by route group",
		},
		[]string{"group"},
	)

	panicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobapply_panics_total",
			Help: "Handler panics recovered, by route",
		},
		[]string{"route"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobapply_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"method", "path", "status"},
	)
)

// IncRateLimited counts a request turned away with 429.
func IncRateLimited(group string) {
	rateLimitedTotal.WithLabelValues(group).Inc()
}

// IncPanic counts a recovered panic.
func IncPanic(route string) {
	panicsTotal.WithLabelValues(route).Inc()
}

// IncAnalysis counts a completed analysis.
func IncAnalysis(source string) {
	analysesTotal.WithLabelValues(source).Inc()
}

// IncEmailComposed counts a composed email.
func IncEmailComposed(origin string) {
	emailsTotal.WithLabelValues(origin).Inc()
}

// IncDispatch counts a dispatch attempt outcome.
func IncDispatch(action, status string) {
	dispatchTotal.WithLabelValues(action, status).Inc()
}

// ObserveGeneration records how long a generation call took.
func ObserveGeneration(operation, status string, d time.Duration) {
	generationDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

// ObserveHTTPRequest records an HTTP request duration.
func ObserveHTTPRequest(method, path, status string, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
