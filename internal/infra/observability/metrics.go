package observability

import (
	"time"

	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metric label values shared by the services.
const (
	CacheVehicles = "vehicles"
	ServiceStore  = "store"
)

// Metrics holds all Prometheus metrics for the fleet API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	externalErrors      *prometheus.CounterVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	processed           *prometheus.CounterVec
	historyFetches      prometheus.Counter
	historyFetchesSaved prometheus.Counter
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
				Name:    "fleetsight_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleetsight_external_errors_total",
				Help: "Total errors from storage backends.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleetsight_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleetsight_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		processed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleetsight_transactions_processed_total",
				Help: "Transactions run through preprocessing, by kind.",
			},
			[]string{"kind"},
		),
		historyFetches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fleetsight_history_fetches_total",
				Help: "Vehicle history reads issued for preprocessing.",
			},
		),
		historyFetchesSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fleetsight_history_fetches_saved_total",
				Help: "Vehicle history reads avoided by batch de-duplication.",
			},
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

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrProcessed counts one preprocessed transaction of the given kind.
func (m *Metrics) IncrProcessed(kind domain.TransactionKind) {
	m.processed.WithLabelValues(string(kind)).Inc()
}

// RecordHistoryFetches records n history reads issued and saved reads
// avoided because several transactions shared a vehicle.
func (m *Metrics) RecordHistoryFetches(n, saved int) {
	m.historyFetches.Add(float64(n))
	m.historyFetchesSaved.Add(float64(saved))
}

// GetProcessingSnapshot returns the counters behind GET /v1/metrics/processing.
func (m *Metrics) GetProcessingSnapshot() *domain.ProcessingMetrics {
	byKind := make(map[string]int64, 3)
	var total int64
	for _, k := range []domain.TransactionKind{domain.KindGeneric, domain.KindFuel, domain.KindMaintenance} {
		n := int64(getCounterValue(m.processed.WithLabelValues(string(k))))
		byKind[string(k)] = n
		total += n
	}

	externalErrors := getCounterValue(m.externalErrors.WithLabelValues(ServiceStore))

	cacheHits := getCounterValue(m.cacheHits.WithLabelValues(CacheVehicles))
	cacheMisses := getCounterValue(m.cacheMisses.WithLabelValues(CacheVehicles))
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.ProcessingMetrics{
		ProcessedTotal:      total,
		ProcessedByKind:     byKind,
		HistoryFetches:      int64(getCounterValue(m.historyFetches)),
		HistoryFetchesSaved: int64(getCounterValue(m.historyFetchesSaved)),
		ExternalErrors:      int64(externalErrors),
		CacheHitRate:        cacheHitRate,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value of a counter.
func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
