// Package metrics provides Prometheus metrics for the kanvass coverage
// engine.
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

// Manager owns every Prometheus collector for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Ingest metrics.
	visitsIngested  prometheus.Counter
	malformedDates  prometheus.Counter
	decodeWarnings  prometheus.Counter
	coverageRefresh prometheus.Counter
	visitsTracked   prometheus.Gauge
	repsTracked     prometheus.Gauge

	// Transition metrics.
	transitionsCommitted prometheus.Counter
	transitionsRejected  prometheus.Counter
	transitionsReverted  prometheus.Counter

	// Remote collaborator metrics.
	remoteMutationLatency prometheus.Histogram
	remoteMutationErrors  prometheus.Counter
	sourceFetches         prometheus.Counter
	sourceFetchErrors     prometheus.Counter

	// Store metrics.
	storeUpdateLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram

	// Queue metrics.
	queueCapacity          prometheus.Gauge
	queueSize              prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker metrics.
	workerActiveCount prometheus.Gauge
	workerErrorRate   prometheus.Counter

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking.
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics.
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kanvass",
		subsystem:        "coverage",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.visitsIngested = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "visits_ingested_total",
		Help: "Visit records accepted into the store.",
	})
	m.malformedDates = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "malformed_dates_total",
		Help: "Records excluded from aggregation because their scheduled date could not be normalized.",
	})
	m.decodeWarnings = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "decode_warnings_total",
		Help: "Records skipped at the collaborator boundary because they could not be decoded.",
	})
	m.coverageRefresh = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "coverage_refreshes_total",
		Help: "Batch refreshes of the coverage aggregates.",
	})
	m.visitsTracked = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "visits_tracked",
		Help: "Visit records currently held in the store.",
	})
	m.repsTracked = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reps_tracked",
		Help: "Distinct representatives currently held in the store.",
	})

	m.transitionsCommitted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "transitions_committed_total",
		Help: "Status transitions confirmed by the remote endpoint.",
	})
	m.transitionsRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "transitions_rejected_total",
		Help: "Status transitions rejected before any remote effect.",
	})
	m.transitionsReverted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "transitions_reverted_total",
		Help: "Optimistic updates rolled back after a remote failure.",
	})

	m.remoteMutationLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "remote_mutation_latency_ms",
		Help:    "Latency of remote status mutation calls in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.remoteMutationErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "remote_mutation_errors_total",
		Help: "Failed or timed-out remote status mutation calls.",
	})
	m.sourceFetches = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "source_fetches_total",
		Help: "Successful visit-record source batch fetches.",
	})
	m.sourceFetchErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "source_fetch_errors_total",
		Help: "Failed visit-record source batch fetches.",
	})

	m.storeUpdateLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "store_update_latency_ms",
		Help:    "Latency of store writes in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.storeQueryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "store_query_latency_ms",
		Help:    "Latency of store reads in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_capacity",
		Help: "Configured transition queue capacity.",
	})
	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_size",
		Help: "Transition jobs currently queued.",
	})
	m.queueUtilization = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_utilization",
		Help: "Queue size over capacity.",
	})
	m.queueEnqueueRate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueues_total",
		Help: "Jobs accepted by the queue.",
	})
	m.queueDequeueRate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_dequeues_total",
		Help: "Jobs handed to workers.",
	})
	m.queueEnqueueErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueue_errors_total",
		Help: "Enqueue attempts refused by the queue.",
	})
	m.queueProcessingLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "queue_processing_latency_ms",
		Help:    "Enqueue handling latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.workerActiveCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_active_count",
		Help: "Workers currently running.",
	})
	m.workerErrorRate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_errors_total",
		Help: "Unexpected worker-side failures.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.errorRateByComponent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_component_total",
		Help: "Errors by component and reason.",
	}, []string{"component", "reason"})
	m.errorRateByType = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_type_total",
		Help: "Errors by type and severity.",
	}, []string{"type", "severity"})
	m.errorRateByEndpoint = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_endpoint_total",
		Help: "HTTP errors by endpoint, method and type.",
	}, []string{"endpoint", "method", "type"})
	m.errorLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "error_latency_ms",
		Help:    "Latency of failed operations in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"component", "type"})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_memory_bytes",
		Help: "Heap bytes currently allocated.",
	})
	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_goroutines",
		Help: "Goroutines currently running.",
	})
	m.systemGCPauseTime = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "system_gc_pause_ms",
		Help:    "Average GC pause time in milliseconds.",
		Buckets: m.histogramBuckets,
	})
}

// GetRegistry returns the registry backing the global manager, for
// serving /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Ingest metrics.

func RecordVisitsIngested(n int) { globalManager.visitsIngested.Add(float64(n)) }
func RecordMalformedDate() { globalManager.malformedDates.Inc() }
func RecordDecodeWarning() { globalManager.decodeWarnings.Inc() }
func RecordCoverageRefresh() { globalManager.coverageRefresh.Inc() }
func UpdateVisitsTracked(n int) { globalManager.visitsTracked.Set(float64(n)) }
func UpdateRepsTracked(n int) { globalManager.repsTracked.Set(float64(n)) }

// Transition metrics.

func RecordTransitionCommitted() { globalManager.transitionsCommitted.Inc() }
func RecordTransitionRejected() { globalManager.transitionsRejected.Inc() }
func RecordTransitionReverted() { globalManager.transitionsReverted.Inc() }

// Remote collaborator metrics.

func RecordRemoteMutationLatency(ms float64) { globalManager.remoteMutationLatency.Observe(ms) }
func RecordRemoteMutationError() { globalManager.remoteMutationErrors.Inc() }
func RecordSourceFetch() { globalManager.sourceFetches.Inc() }
func RecordSourceFetchError() { globalManager.sourceFetchErrors.Inc() }

// Store metrics.

func RecordStoreUpdateLatency(ms float64) { globalManager.storeUpdateLatency.Observe(ms) }
func RecordStoreQueryLatency(ms float64) { globalManager.storeQueryLatency.Observe(ms) }

// Queue metrics.

func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }
func UpdateQueueSize(n int) { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueUtilization(u float64) { globalManager.queueUtilization.Set(u) }
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }
func RecordQueueProcessingLatency(ms float64) { globalManager.queueProcessingLatency.Observe(ms) }

// Worker metrics.

func UpdateWorkerActiveCount(n int) { globalManager.workerActiveCount.Set(float64(n)) }
func RecordWorkerError() { globalManager.workerErrorRate.Inc() }

// HTTP metrics.

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

// Error tracking.

func RecordErrorByComponent(component, reason string) {
	globalManager.errorRateByComponent.WithLabelValues(component, reason).Inc()
}

func RecordErrorByType(errType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errType, severity).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errType).Inc()
}

func RecordErrorLatency(component, errType string, ms float64) {
	globalManager.errorLatency.WithLabelValues(component, errType).Observe(ms)
}

// System metrics.

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPauseTime.Observe(ms) }
