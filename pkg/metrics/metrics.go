// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SuggestLatency       prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter

	TasksSubmitted *prometheus.CounterVec
	TasksRejected  *prometheus.CounterVec
	TaskTimeouts   *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	QueueDepth     prometheus.Gauge

	IndexDocuments      prometheus.Gauge
	IndexTerms          prometheus.Gauge
	PersistShardsTotal  *prometheus.CounterVec
	SkippedTermsTotal   prometheus.Counter
	AutocompleteTerms   prometheus.Gauge
	IndexReloadsTotal   *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
	RetriesTotal        *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SuggestLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "autocomplete_latency_seconds",
				Help:    "Prefix suggestion latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		TasksSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpool_tasks_submitted_total",
				Help: "Tasks accepted into the worker pool queue.",
			},
			[]string{"task_type"},
		),
		TasksRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpool_tasks_rejected_total",
				Help: "Tasks rejected at submission by reason (queue_full, stopping, canceled).",
			},
			[]string{"task_type", "reason"},
		),
		TaskTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpool_task_timeouts_total",
				Help: "Tasks whose deadline elapsed before they resolved.",
			},
			[]string{"task_type"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskpool_task_duration_seconds",
				Help:    "Wall time from worker pickup to completion.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 12),
			},
			[]string{"task_type"},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskpool_queue_depth",
				Help: "Tasks waiting for a worker.",
			},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_documents",
				Help: "Documents in the published forward index.",
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Distinct terms in the published inverted index.",
			},
		),
		PersistShardsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_persist_shards_total",
				Help: "Inverted-index persistence shards by status.",
			},
			[]string{"status"},
		),
		SkippedTermsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_skipped_terms_total",
				Help: "Oversized terms dropped during persistence.",
			},
		),
		AutocompleteTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "autocomplete_terms",
				Help: "Terms inserted into the current prefix index.",
			},
		),
		IndexReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_reloads_total",
				Help: "Index reload attempts by status.",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retries_total",
				Help: "Retried attempts of transient failures by operation.",
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SuggestLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.TasksSubmitted,
		m.TasksRejected,
		m.TaskTimeouts,
		m.TaskDuration,
		m.QueueDepth,
		m.IndexDocuments,
		m.IndexTerms,
		m.PersistShardsTotal,
		m.SkippedTermsTotal,
		m.AutocompleteTerms,
		m.IndexReloadsTotal,
		m.CircuitBreakerState,
		m.RetriesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
