package kaspa

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the Prometheus instrumentation surface for the UTXO
// manager: cache behavior, the lock table, selection latency by
// strategy, and consolidation activity.
type Metrics struct {
	cacheSize          prometheus.Gauge
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	lockTableSize      prometheus.Gauge
	selectionDuration  *prometheus.HistogramVec
	selectionFailures  prometheus.Counter
	consolidationCount prometheus.Counter
	fetchRetries       prometheus.Counter
}

// NewMetrics registers and returns a fresh Metrics instance. Calling
// this more than once against the default registry will panic on the
// duplicate registration, same as any promauto metric.
func NewMetrics() *Metrics {
	return &Metrics{
		cacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "utxocore_cache_size",
			Help: "Number of entries currently held in the UTXO cache",
		}),
		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "utxocore_cache_hits_total",
			Help: "Total cache lookups served without a chain fetch",
		}),
		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "utxocore_cache_misses_total",
			Help: "Total cache lookups that required a chain fetch",
		}),
		lockTableSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "utxocore_lock_table_size",
			Help: "Number of outpoints currently held in the advisory lock table",
		}),
		selectionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "utxocore_selection_duration_seconds",
			Help:    "Selection latency by winning strategy",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}, []string{"strategy"}),
		selectionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "utxocore_selection_failures_total",
			Help: "Total selections that exhausted every strategy",
		}),
		consolidationCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "utxocore_consolidations_total",
			Help: "Total consolidation transactions submitted",
		}),
		fetchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "utxocore_fetch_retries_total",
			Help: "Total retry attempts made against the UTXO-list endpoint",
		}),
	}
}

// ObserveSelection records a completed selection's duration against
// the strategy that satisfied it.
func (m *Metrics) ObserveSelection(strategyName string, d time.Duration) {
	m.selectionDuration.WithLabelValues(strategyName).Observe(d.Seconds())
}

// ObserveCacheLookup records a single Get/Has call as a hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// SetCacheSize reports the cache's current entry count.
func (m *Metrics) SetCacheSize(n uint32) {
	m.cacheSize.Set(float64(n))
}

// SetLockTableSize reports the lock table's current entry count.
func (m *Metrics) SetLockTableSize(n uint32) {
	m.lockTableSize.Set(float64(n))
}

// IncSelectionFailure records one selection that exhausted every
// strategy.
func (m *Metrics) IncSelectionFailure() {
	m.selectionFailures.Inc()
}

// IncConsolidation records one submitted consolidation transaction.
func (m *Metrics) IncConsolidation() {
	m.consolidationCount.Inc()
}

// IncFetchRetry records one retry attempt against the UTXO-list
// endpoint.
func (m *Metrics) IncFetchRetry() {
	m.fetchRetries.Inc()
}
