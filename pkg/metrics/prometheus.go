// Package metrics provides Prometheus metrics for pagekit.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for pagekit.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Client metrics - persist calls issued by pkg/persist
	persistRequests *prometheus.CounterVec
	persistLatency  *prometheus.HistogramVec

	// HTTP metrics - the /get and /set endpoints
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// Store metrics
	storeKeys       prometheus.Gauge
	storeOperations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// process is the default manager together with the registry it writes to.
type process struct {
	manager  *Manager
	registry *prometheus.Registry
}

var current atomic.Pointer[process] //nolint:gochecknoglobals // process-wide default manager

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Init()
}

// Init replaces the default manager with one built from opts on a fresh
// custom registry, so Go runtime collectors stay out of the output. Any
// WithPrometheusRegistry among opts is overridden. Handlers built from
// GetRegistry before the call keep serving the old registry.
func Init(opts ...Option) *Manager {
	registry := prometheus.NewRegistry()
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, WithPrometheusRegistry(registry))
	m := NewManager(all...)
	current.Store(&process{manager: m, registry: registry})
	return m
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pagekit",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
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

// RefreshInterval reports how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether observations are recorded.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.persistRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("client"),
		Name:        "persist_requests_total",
		Help:        "Persist calls issued by the client, by method and outcome",
		ConstLabels: labels,
	}, []string{"method", "outcome"})

	m.persistLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("client"),
		Name:        "persist_latency_milliseconds",
		Help:        "Round-trip latency of persist calls in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"method"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("http"),
		Name:        "requests_total",
		Help:        "Total number of HTTP requests",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("http"),
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("http"),
		Name:        "errors_by_endpoint_total",
		Help:        "Total number of errors by endpoint",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("http"),
		Name:        "errors_by_type_total",
		Help:        "Total number of errors by type",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.storeKeys = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("store"),
		Name:        "keys",
		Help:        "Number of keys held by the store",
		ConstLabels: labels,
	})

	m.storeOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("store"),
		Name:        "operations_total",
		Help:        "Store operations by name and outcome",
		ConstLabels: labels,
	}, []string{"operation", "outcome"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("store"),
		Name:        "operation_latency_milliseconds",
		Help:        "Store operation latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"operation"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("system"),
		Name:        "memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("system"),
		Name:        "goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.sub("system"),
		Name:        "gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// sub joins the configured subsystem with a component name.
func (m *Manager) sub(component string) string {
	if m.subsystem == "" {
		return component
	}
	return m.subsystem + "_" + component
}

// RecordPersist records one client persist call.
func (m *Manager) RecordPersist(method, outcome string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.persistRequests.WithLabelValues(method, outcome).Inc()
	m.persistLatency.WithLabelValues(method).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records a failed HTTP request.
func (m *Manager) RecordHTTPError(endpoint, method, errorType, severity string) {
	if !m.enabled {
		return
	}
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordStoreOperation records a store call.
func (m *Manager) RecordStoreOperation(operation, outcome string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.storeOperations.WithLabelValues(operation, outcome).Inc()
	m.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateStoreKeys sets the number of stored keys.
func (m *Manager) UpdateStoreKeys(count int) {
	if !m.enabled {
		return
	}
	m.storeKeys.Set(float64(count))
}

// UpdateSystem records memory, goroutine and GC pause figures.
func (m *Manager) UpdateSystem(memBytes uint64, goroutines int, gcPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if gcPauseMs > 0 {
		m.systemGCPauseTime.Observe(gcPauseMs)
	}
}

// Default returns the process-wide manager backed by the custom registry.
func Default() *Manager {
	return current.Load().manager
}

// RecordPersist records a client persist call on the default manager.
func RecordPersist(method, outcome string, latencyMs float64) {
	Default().RecordPersist(method, outcome, latencyMs)
}

// RecordHTTPRequest records an HTTP request on the default manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	Default().RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordHTTPError records an HTTP error on the default manager.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	Default().RecordHTTPError(endpoint, method, errorType, severity)
}

// RecordStoreOperation records a store call on the default manager.
func RecordStoreOperation(operation, outcome string, latencyMs float64) {
	Default().RecordStoreOperation(operation, outcome, latencyMs)
}

// UpdateStoreKeys sets the key gauge on the default manager.
func UpdateStoreKeys(count int) {
	Default().UpdateStoreKeys(count)
}

// UpdateSystem records system figures on the default manager.
func UpdateSystem(memBytes uint64, goroutines int, gcPauseMs float64) {
	Default().UpdateSystem(memBytes, goroutines, gcPauseMs)
}

// Since returns the elapsed time since start in milliseconds.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}
