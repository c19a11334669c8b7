// Package observability provides structured logging and Prometheus metrics
// for the helpdesk service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "helpdesk"

var (
	// HTTPRequestsTotal counts requests by path, method and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"path", "method", "status"},
	)

	// HTTPRequestDuration measures request handling time.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time to handle an HTTP request in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"path", "method"},
	)

	// HTTPErrorsTotal counts requests that ended in a domain error.
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of requests rejected with a domain error",
		},
		[]string{"path", "method", "code"},
	)

	// NotificationsEmittedTotal counts notification rows written, by type.
	NotificationsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_emitted_total",
			Help:      "Total number of notifications recorded",
		},
		[]string{"type"},
	)

	// NotificationFailuresTotal counts swallowed notification errors.
	NotificationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Total number of notification writes that failed and were dropped",
		},
	)

	// ReportRenderDuration measures chart plus PDF assembly time.
	ReportRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_render_duration_seconds",
			Help:      "Time to render a report artifact in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"artifact"},
	)

	// ReportCacheHitsTotal counts aggregate cache hits and misses.
	ReportCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_requests_total",
			Help:      "Report aggregate cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)
