package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the loader. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Fetch metrics
	FetchesTotal  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Script execution metrics
	ScriptsExecuted *prometheus.CounterVec
	ScriptErrors    *prometheus.CounterVec
}

// New creates a metrics collector registered on its own registry.
func New() *Metrics {
	return NewWith(prometheus.NewRegistry())
}

// NewWith creates a metrics collector registered on the given registerer.
// Pass prometheus.DefaultRegisterer to expose the metrics through the
// standard /metrics handler.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "htmlentry_fetches_total",
			Help: "Resource fetches by kind and outcome",
		}, []string{"kind", "outcome"}),

		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "htmlentry_fetch_duration_seconds",
			Help:    "Resource fetch latency by kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "htmlentry_cache_hits_total",
			Help: "Resource cache hits by kind",
		}, []string{"kind"}),

		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "htmlentry_cache_misses_total",
			Help: "Resource cache misses by kind",
		}, []string{"kind"}),

		ScriptsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "htmlentry_scripts_executed_total",
			Help: "Scripts executed by role and outcome",
		}, []string{"role", "outcome"}),

		ScriptErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "htmlentry_script_errors_total",
			Help: "Script execution errors by role",
		}, []string{"role"}),
	}
}

// RecordFetch records one fetch attempt.
func (m *Metrics) RecordFetch(kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.FetchesTotal.WithLabelValues(kind, outcome).Inc()
	m.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// RecordCacheHit records a cache hit for the given resource kind.
func (m *Metrics) RecordCacheHit(kind string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a cache miss for the given resource kind.
func (m *Metrics) RecordCacheMiss(kind string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(kind).Inc()
}

// RecordScript records one script execution.
func (m *Metrics) RecordScript(role string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		m.ScriptErrors.WithLabelValues(role).Inc()
	}
	m.ScriptsExecuted.WithLabelValues(role, outcome).Inc()
}
