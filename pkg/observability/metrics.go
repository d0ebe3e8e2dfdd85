// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring vector-view.
package observability

import "github.com/prometheus/client_golang/prometheus"

// RequestBuckets suit interactive HTTP and database calls, from 5ms to 10s.
var RequestBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// EmbeddingBuckets suit embedding model calls, from 10ms to 60s.
var EmbeddingBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

var (
	// RequestsTotal counts HTTP requests by method, route pattern and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vectorview_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vectorview_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: RequestBuckets,
		},
		[]string{"method", "route"},
	)

	// SessionConnected is 1 while a session is open, 0 otherwise.
	SessionConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vectorview_session_connected",
			Help: "Whether a database session is open",
		},
	)

	// ConnectTotal counts connect attempts by outcome (ok, not_found, error).
	ConnectTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vectorview_connect_total",
			Help: "Connect attempts",
		},
		[]string{"outcome"},
	)

	// QueryDuration records query façade operation latency in seconds.
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vectorview_query_duration_seconds",
			Help:    "Query operation duration",
			Buckets: RequestBuckets,
		},
		[]string{"operation", "status"},
	)

	// EmbeddingRequestsTotal counts calls to embedding providers.
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vectorview_embedding_requests_total",
			Help: "Embedding provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// EmbeddingLatency records embedding provider latency in seconds.
	EmbeddingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vectorview_embedding_latency_seconds",
			Help:    "Embedding provider latency",
			Buckets: EmbeddingBuckets,
		},
		[]string{"provider", "model"},
	)

	// EmbeddingCacheTotal counts embedding cache lookups by result (hit, miss).
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vectorview_embedding_cache_total",
			Help: "Embedding cache lookups",
		},
		[]string{"result"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vectorview_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		SessionConnected,
		ConnectTotal,
		QueryDuration,
		EmbeddingRequestsTotal,
		EmbeddingLatency,
		EmbeddingCacheTotal,
		RateLimitRejectedTotal,
	)
}

// StatusLabel returns "ok" for a nil error and "error" otherwise.
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
