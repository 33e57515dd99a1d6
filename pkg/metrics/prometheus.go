// Package metrics provides Prometheus metrics for Stormlight Hub.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every metric the hub exports. All methods are safe on a nil
// *Manager, which turns recording into a no-op.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry
	withRuntime      bool

	// Upstream calls
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec

	// Stats pipeline
	statsFetches  *prometheus.CounterVec
	discoverySize prometheus.Gauge

	// Activity collector
	activityBatches       prometheus.Counter
	activityBatchDuration prometheus.Histogram
	activityEvents        *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager on its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stormlight",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	if m.withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.upstreamRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Requests sent to external game services by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	m.upstreamDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of requests to external game services",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint"})

	m.statsFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "stats",
		Name:      "fetches_total",
		Help:      "Player stats fetches by outcome",
	}, []string{"outcome"})

	m.discoverySize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "stats",
		Name:      "discovered_players",
		Help:      "Number of usernames in the discovery ledger",
	})

	m.activityBatches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "activity",
		Name:      "batches_total",
		Help:      "Roster batches processed by the activity collector",
	})

	m.activityBatchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "activity",
		Name:      "batch_duration_seconds",
		Help:      "Time to fan out and join one roster batch",
		Buckets:   m.histogramBuckets,
	})

	m.activityEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "activity",
		Name:      "events_total",
		Help:      "Activity events seen, by whether they were kept",
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served",
	}, []string{"method", "route", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   m.histogramBuckets,
	}, []string{"route"})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordUpstream records one call to an external endpoint.
func (m *Manager) RecordUpstream(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.upstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordStatsFetch records the outcome of one player stats fetch.
func (m *Manager) RecordStatsFetch(outcome string) {
	if m == nil {
		return
	}
	m.statsFetches.WithLabelValues(outcome).Inc()
}

// SetDiscoverySize publishes the current ledger size.
func (m *Manager) SetDiscoverySize(n int) {
	if m == nil {
		return
	}
	m.discoverySize.Set(float64(n))
}

// RecordActivityBatch records one finished roster batch.
func (m *Manager) RecordActivityBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.activityBatches.Inc()
	m.activityBatchDuration.Observe(d.Seconds())
}

// RecordActivityEvents adds n events under result (kept, outside_window, unparseable).
func (m *Manager) RecordActivityEvents(result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.activityEvents.WithLabelValues(result).Add(float64(n))
}

// RecordHTTPRequest records one served HTTP request.
func (m *Manager) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
