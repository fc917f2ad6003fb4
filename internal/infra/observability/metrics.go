package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the yield assistant.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	saveFlushes     *prometheus.CounterVec
	scansTotal      *prometheus.CounterVec
	calculations    prometheus.Counter
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yield_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yield_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		saveFlushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yield_save_flushes_total",
				Help: "Total debounced save flushes per stream.",
			},
			[]string{"stream"},
		),
		scansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yield_scans_total",
				Help: "Total OCR scans by outcome.",
			},
			[]string{"outcome"},
		),
		calculations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "yield_calculations_total",
				Help: "Total session calculations performed.",
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yield_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yield_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrSaveFlush increments the flush counter for a save stream
// ("registry" or "account").
func (m *Metrics) IncrSaveFlush(stream string) {
	m.saveFlushes.WithLabelValues(stream).Inc()
}

// IncrScan increments the scan counter ("success" or "error").
func (m *Metrics) IncrScan(outcome string) {
	m.scansTotal.WithLabelValues(outcome).Inc()
}

// IncrCalculation increments the calculation counter.
func (m *Metrics) IncrCalculation() {
	m.calculations.Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetSummary returns a snapshot of the core counters suitable for the
// GET /v1/metrics/summary endpoint.
func (m *Metrics) GetSummary() *domain.MetricsSummary {
	scansOK := getCounterValue(m.scansTotal, "success")
	scanErrs := getCounterValue(m.scansTotal, "error")
	hits := getCounterValue(m.cacheHits, "ledger")
	misses := getCounterValue(m.cacheMisses, "ledger")

	extErrs := getCounterValue(m.externalErrors, "statestore") +
		getCounterValue(m.externalErrors, "ocr")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.MetricsSummary{
		Calculations:   int64(counterValue(m.calculations)),
		Scans:          int64(scansOK + scanErrs),
		ScanErrors:     int64(scanErrs),
		RegistrySaves:  int64(getCounterValue(m.saveFlushes, "registry")),
		AccountSaves:   int64(getCounterValue(m.saveFlushes, "account")),
		ExternalErrors: int64(extErrs),
		CacheHitRate:   hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
