// Package metrics provides Prometheus instrumentation for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider holds the service metrics and the registry they live in.
type Provider struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Parse pipeline metrics
	PagesFetched    *prometheus.CounterVec
	ParseFailures   *prometheus.CounterVec
	ParseDuration   prometheus.Histogram
	FallbackRetries prometheus.Counter

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewProvider initializes all service metrics in a fresh registry.
func NewProvider() *Provider {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Provider{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "apod_requests_total",
			Help: "Total API requests by route and status code",
		}, []string{"route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apod_request_duration_seconds",
			Help:    "API request latency by route",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"route"}),

		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "apod_pages_fetched_total",
			Help: "Upstream page fetches by outcome (ok, missing, error)",
		}, []string{"outcome"}),

		ParseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "apod_parse_failures_total",
			Help: "Parses that failed with an unsupported page schema, by field",
		}, []string{"field"}),

		ParseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "apod_parse_duration_seconds",
			Help:    "Time to fetch and parse a single page",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),

		FallbackRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "apod_fallback_retries_total",
			Help: "Times a missing today page was retried as yesterday",
		}),

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "apod_cache_hits_total",
			Help: "Record cache hits",
		}),

		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "apod_cache_misses_total",
			Help: "Record cache misses",
		}),
	}
}

// Handler returns the HTTP handler serving this provider's registry.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route.
func (p *Provider) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		p.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		p.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
