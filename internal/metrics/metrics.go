// Package metrics exposes Prometheus collectors for the extraction service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	cacheLookupsTotal          *prometheus.CounterVec
	upstreamCallsTotal         *prometheus.CounterVec
	accountsAvailable          prometheus.Gauge
	limiterRejectionsTotal     prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediagrab_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediagrab_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediagrab_cache_lookups_total",
				Help: "Total cache lookups, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		upstreamCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediagrab_upstream_calls_total",
				Help: "Total upstream scrape calls, labeled by target kind and status.",
			},
			[]string{"kind", "status"},
		)

		accountsAvailable = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediagrab_accounts_available",
				Help: "Number of pool accounts currently usable for rotation.",
			},
		)

		limiterRejectionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mediagrab_ratelimit_rejections_total",
				Help: "Total inbound requests rejected by the sliding-window limiter.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveCacheLookup records one cache lookup outcome, "hit" or "miss".
func ObserveCacheLookup(outcome string) {
	cacheLookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstreamCall records one upstream scrape call.
func ObserveUpstreamCall(kind, status string) {
	upstreamCallsTotal.WithLabelValues(kind, status).Inc()
}

// SetAccountsAvailable updates the available-accounts gauge.
func SetAccountsAvailable(n int) {
	accountsAvailable.Set(float64(n))
}

// ObserveLimiterRejection increments the limiter rejection counter.
func ObserveLimiterRejection() {
	limiterRejectionsTotal.Inc()
}
