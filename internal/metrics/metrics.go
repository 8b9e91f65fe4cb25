package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed metrics
	FetchCyclesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytenews_fetch_cycles_started_total",
			Help: "Total number of fetch cycles started",
		},
		[]string{"mode"},
	)

	FetchCyclesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytenews_fetch_cycles_discarded_total",
			Help: "Fetch cycles whose results were dropped because a newer cycle had started",
		},
	)

	ContentQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytenews_content_queries_total",
			Help: "Content queries issued, by outcome",
		},
		[]string{"kind", "status"},
	)

	ContentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytenews_content_cache_lookups_total",
			Help: "Content cache lookups, by result",
		},
		[]string{"result"},
	)

	// Chat metrics
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytenews_chat_requests_total",
			Help: "Chat questions sent, by outcome",
		},
		[]string{"status"},
	)

	// Session metrics
	SessionExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytenews_session_expirations_total",
			Help: "Authentication failures that invalidated the session",
		},
	)

	// HTTP metrics for the stub service
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code", "service"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "service"},
	)
)
