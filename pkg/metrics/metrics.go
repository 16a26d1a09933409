// Package metrics defines the Prometheus collectors used by the categorizer
// runs and the lookup server, and exposes an HTTP handler for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInFlight   prometheus.Gauge
	CategorizationsTotal   *prometheus.CounterVec
	DiscrepanciesTotal     *prometheus.CounterVec
	CategorizeDuration     prometheus.Histogram
	RecordCacheHitsTotal   prometheus.Counter
	RecordCacheMissesTotal prometheus.Counter
	ArchiveRecordsTotal    *prometheus.CounterVec
	SinkWritesTotal        *prometheus.CounterVec
	CircuitBreakerState    *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status code.",
			},
			[]string{"method", "path", "code"},
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
		CategorizationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "food_categorizations_total",
				Help: "Foods categorized by resulting diet category and source.",
			},
			[]string{"category", "source"},
		),
		DiscrepanciesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "food_category_discrepancies_total",
				Help: "Reference samples that disagree with the heuristic.",
			},
			[]string{"known_failure"},
		),
		CategorizeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "food_categorize_run_seconds",
				Help:    "Duration of a full categorization run.",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		RecordCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "record_cache_hits_total",
				Help: "Total number of record cache hits.",
			},
		),
		RecordCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "record_cache_misses_total",
				Help: "Total number of record cache misses.",
			},
		),
		ArchiveRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archive_records_written_total",
				Help: "Food records written to archives by dataset.",
			},
			[]string{"dataset"},
		),
		SinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sink_writes_total",
				Help: "Result sink writes by sink and status.",
			},
			[]string{"sink", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.CategorizationsTotal,
		m.DiscrepanciesTotal,
		m.CategorizeDuration,
		m.RecordCacheHitsTotal,
		m.RecordCacheMissesTotal,
		m.ArchiveRecordsTotal,
		m.SinkWritesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// CacheObserver counts record cache lookups.
func (m *Metrics) CacheObserver() func(hit bool) {
	return func(hit bool) {
		if hit {
			m.RecordCacheHitsTotal.Inc()
			return
		}
		m.RecordCacheMissesTotal.Inc()
	}
}

