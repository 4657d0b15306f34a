// Package metrics provides Prometheus metrics for the daily leaderboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Outcome labels for results added to a daily leaderboard.
const (
	OutcomeRanked      = "ranked"
	OutcomeNotRetained = "not_retained"
	OutcomeSkipped     = "skipped"
)

// Lookup labels for registry lookups.
const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupRejected = "rejected"
)

// Ingest labels for asynchronous submissions.
const (
	IngestAccepted  = "accepted"
	IngestDuplicate = "duplicate"
	IngestRejected  = "rejected"
	IngestOK        = "ok"
	IngestFailed    = "failed"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Leaderboard outcomes
	resultsAdded *prometheus.CounterVec
	failOpen     *prometheus.CounterVec

	// Ranked store
	storeErrors    *prometheus.CounterVec
	storeLatency   *prometheus.HistogramVec
	storeEvictions prometheus.Counter
	storeKeys      prometheus.Gauge
	storeConnected prometheus.Gauge

	// Handle registry
	registryLookups   *prometheus.CounterVec
	registryEvictions prometheus.Counter
	registrySize      prometheus.Gauge

	// Async ingest
	ingestEnqueued      *prometheus.CounterVec
	ingestProcessed     *prometheus.CounterVec
	ingestLatency       prometheus.Histogram
	ingestQueueSize     prometheus.Gauge
	ingestQueueCapacity prometheus.Gauge
	ingestWorkers       prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "dailyboard",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric family
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.resultsAdded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "results_added_total",
		Help:        "Results offered to a daily leaderboard, by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.failOpen = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fail_open_total",
		Help:        "Operations answered with an empty sentinel because the store was unavailable",
		ConstLabels: constLabels,
	}, []string{"operation"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_errors_total",
		Help:        "Ranked store command failures by operation",
		ConstLabels: constLabels,
	}, []string{"operation"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_latency_milliseconds",
		Help:        "Ranked store round trip latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"operation"})

	m.storeEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_evictions_total",
		Help:        "Members evicted from a partition because it exceeded max results",
		ConstLabels: constLabels,
	})

	m.storeKeys = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_keys",
		Help:        "Live keys held by the in-memory ranked store",
		ConstLabels: constLabels,
	})

	m.storeConnected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_connected",
		Help:        "1 when the ranked store answered its last health check",
		ConstLabels: constLabels,
	})

	m.registryLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "registry_lookups_total",
		Help:        "Leaderboard handle lookups by result",
		ConstLabels: constLabels,
	}, []string{"result"})

	m.registryEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "registry_evictions_total",
		Help:        "Leaderboard handles evicted from the LRU registry",
		ConstLabels: constLabels,
	})

	m.registrySize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "registry_size",
		Help:        "Leaderboard handles currently cached",
		ConstLabels: constLabels,
	})

	m.ingestEnqueued = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingest_enqueued_total",
		Help:        "Asynchronous submissions by admission result",
		ConstLabels: constLabels,
	}, []string{"result"})

	m.ingestProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingest_processed_total",
		Help:        "Asynchronous submissions applied by ingest workers",
		ConstLabels: constLabels,
	}, []string{"result"})

	m.ingestLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingest_latency_milliseconds",
		Help:        "Time from dequeue to applied submission in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.ingestQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingest_queue_size",
		Help:        "Submissions waiting in the ingest queue",
		ConstLabels: constLabels,
	})

	m.ingestQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingest_queue_capacity",
		Help:        "Capacity of the ingest queue",
		ConstLabels: constLabels,
	})

	m.ingestWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingest_workers",
		Help:        "Running ingest workers",
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "HTTP errors by endpoint, method and error type",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})
}

// RecordResultAdded counts a result offered to a leaderboard.
func RecordResultAdded(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.resultsAdded.WithLabelValues(outcome).Inc()
}

// RecordFailOpen counts an operation degraded to its empty sentinel.
func RecordFailOpen(operation string) {
	if !globalManager.enabled {
		return
	}
	globalManager.failOpen.WithLabelValues(operation).Inc()
}

// RecordStoreError counts a failed store command.
func RecordStoreError(operation string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordStoreLatency records a store round trip in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreEvictions adds n evicted partition members.
func RecordStoreEvictions(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.storeEvictions.Add(float64(n))
}

// UpdateStoreKeys sets the number of live in-memory keys.
func UpdateStoreKeys(count int) {
	globalManager.storeKeys.Set(float64(count))
}

// UpdateStoreConnected records the latest store health check result.
func UpdateStoreConnected(ok bool) {
	if ok {
		globalManager.storeConnected.Set(1)
		return
	}
	globalManager.storeConnected.Set(0)
}

// RecordRegistryLookup counts a registry lookup by result.
func RecordRegistryLookup(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.registryLookups.WithLabelValues(result).Inc()
}

// RecordRegistryEviction counts a handle evicted from the registry.
func RecordRegistryEviction() {
	if !globalManager.enabled {
		return
	}
	globalManager.registryEvictions.Inc()
}

// UpdateRegistrySize sets the number of cached handles.
func UpdateRegistrySize(size int) {
	globalManager.registrySize.Set(float64(size))
}

// RecordIngestEnqueued counts an asynchronous submission by admission result.
func RecordIngestEnqueued(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.ingestEnqueued.WithLabelValues(result).Inc()
}

// RecordIngestProcessed counts a submission applied by a worker.
func RecordIngestProcessed(result string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.ingestProcessed.WithLabelValues(result).Inc()
	globalManager.ingestLatency.Observe(latencyMs)
}

// UpdateIngestQueue sets the ingest queue gauges.
func UpdateIngestQueue(size, capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.ingestQueueSize.Set(float64(size))
	globalManager.ingestQueueCapacity.Set(float64(capacity))
}

// UpdateIngestWorkers sets the running worker gauge.
func UpdateIngestWorkers(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.ingestWorkers.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RefreshInterval returns how often gauges are expected to be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
