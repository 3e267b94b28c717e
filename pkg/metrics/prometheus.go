// Package metrics provides Prometheus metrics for the award engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the award engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Batch input and classification
	resultsLoaded     prometheus.Counter
	resultsClassified *prometheus.CounterVec
	definitionsLoaded prometheus.Gauge

	// Award issuance
	awards         *prometheus.CounterVec
	skips          *prometheus.CounterVec
	renderLatency  prometheus.Histogram
	storageRetries *prometheus.CounterVec

	// Batch lifecycle
	batchDuration    prometheus.Histogram
	batchLastSuccess prometheus.Gauge
	batchRuns        *prometheus.CounterVec
	workerCount      prometheus.Gauge

	// Job queue
	queueSize     prometheus.Gauge
	queueRejected *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System Metrics
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

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "accolade",
		subsystem:        "awards",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.resultsLoaded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_loaded_total",
		Help:      "Competition results read by batch runs",
	})

	m.resultsClassified = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "results_classified_total",
			Help:      "Results assigned to a group",
		},
		[]string{"group"},
	)

	m.definitionsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "definitions_active",
		Help:      "Active achievement definitions seen by the last batch",
	})

	m.awards = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "issued_total",
			Help:      "Award outcomes by group and status",
		},
		[]string{"group", "status"},
	)

	m.skips = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "skipped_total",
			Help:      "Awards skipped by reason",
		},
		[]string{"reason"},
	)

	m.renderLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "render_latency_milliseconds",
		Help:      "Time to composite one award image",
		Buckets:   m.histogramBuckets,
	})

	m.storageRetries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "storage_retries_total",
			Help:      "Retried storage operations",
		},
		[]string{"operation"},
	)

	m.batchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_duration_seconds",
		Help:      "Wall time of a batch run",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	})

	m.batchLastSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_last_success_unixtime",
		Help:      "Completion time of the last batch that loaded its inputs",
	})

	m.batchRuns = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "batch_runs_total",
			Help:      "Batch runs by kind and result",
		},
		[]string{"kind", "result"},
	)

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Issuance workers used by the current batch",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Award jobs waiting for a worker",
	})

	m.queueRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "queue_rejected_total",
			Help:      "Award jobs the queue refused",
		},
		[]string{"reason"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Heap memory in use",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_time_milliseconds",
		Help:      "Garbage collection pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordResultsLoaded adds n to the loaded results counter.
func RecordResultsLoaded(n int) {
	globalManager.resultsLoaded.Add(float64(n))
}

// RecordResultClassified counts a result assigned to group.
func RecordResultClassified(group string, n int) {
	globalManager.resultsClassified.WithLabelValues(group).Add(float64(n))
}

// UpdateDefinitionsLoaded sets the active definitions gauge.
func UpdateDefinitionsLoaded(n int) {
	globalManager.definitionsLoaded.Set(float64(n))
}

// RecordAward counts one award outcome.
func RecordAward(group, status string) {
	globalManager.awards.WithLabelValues(group, status).Inc()
}

// RecordSkip counts one skipped award.
func RecordSkip(reason string) {
	globalManager.skips.WithLabelValues(reason).Inc()
}

// RecordRenderLatency records image compositing latency in milliseconds.
func RecordRenderLatency(latencyMs float64) {
	globalManager.renderLatency.Observe(latencyMs)
}

// RecordStorageRetry counts a retried storage operation.
func RecordStorageRetry(operation string) {
	globalManager.storageRetries.WithLabelValues(operation).Inc()
}

// RecordBatch records a finished batch run.
func RecordBatch(kind, result string, d time.Duration) {
	globalManager.batchRuns.WithLabelValues(kind, result).Inc()
	globalManager.batchDuration.Observe(d.Seconds())
	if result == "ok" {
		globalManager.batchLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateQueueSize sets the number of queued jobs.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueRejected counts a job the queue refused.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the heap memory gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
