package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "assetwatch"

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// PrometheusRecorder exports metrics through a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	metricsRecorded      *prometheus.CounterVec
	bufferSize           prometheus.Gauge
	alertsOpened         *prometheus.CounterVec
	alertsResolved       *prometheus.CounterVec
	activeAlerts         prometheus.Gauge
	alertCheckDuration   prometheus.Histogram
	alertDeliveries      *prometheus.CounterVec
	invalidations        *prometheus.CounterVec
	invalidationDuration prometheus.Histogram
	batchSize            prometheus.Histogram
	ingestEvents         *prometheus.CounterVec
	ingestQueueDepth     prometheus.Gauge
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// NewPrometheus creates a Recorder backed by a fresh Prometheus registry.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		metricsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "metrics_total",
			Help:      "Performance metrics offered to the sampler by outcome",
		}, []string{"status"}),
		bufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "buffer_size",
			Help:      "Number of metrics currently retained",
		}),
		alertsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "opened_total",
			Help:      "Alerts opened by type",
		}, []string{"type"}),
		alertsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "resolved_total",
			Help:      "Alerts resolved by type",
		}, []string{"type"}),
		activeAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "active",
			Help:      "Unresolved alerts in the alert log",
		}),
		alertCheckDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "check_duration_seconds",
			Help:      "Latency of alert evaluations",
			Buckets:   durationBuckets,
		}),
		alertDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "deliveries_total",
			Help:      "Alert notifications handed to downstream sinks by outcome",
		}, []string{"sink", "status"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invalidation",
			Name:      "paths_total",
			Help:      "Path invalidations by outcome",
		}, []string{"status"}),
		invalidationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "invalidation",
			Name:      "duration_seconds",
			Help:      "Latency of single path invalidations",
			Buckets:   durationBuckets,
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "invalidation",
			Name:      "batch_size",
			Help:      "Paths per batch invalidation",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		ingestEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Stream events consumed by outcome",
		}, []string{"status"}),
		ingestQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "queue_depth",
			Help:      "Pending plus unread entries in the metric stream",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   durationBuckets,
		}, []string{"method", "route"}),
	}

	p.registry.MustRegister(
		p.metricsRecorded,
		p.bufferSize,
		p.alertsOpened,
		p.alertsResolved,
		p.activeAlerts,
		p.alertCheckDuration,
		p.alertDeliveries,
		p.invalidations,
		p.invalidationDuration,
		p.batchSize,
		p.ingestEvents,
		p.ingestQueueDepth,
		p.httpRequests,
		p.httpDuration,
	)
	return p
}

// Handler returns the exposition endpoint for this registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncMetricRecorded(status string) {
	p.metricsRecorded.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) SetBufferSize(size int) {
	p.bufferSize.Set(float64(size))
}

func (p *PrometheusRecorder) IncAlertOpened(alertType string) {
	p.alertsOpened.WithLabelValues(alertType).Inc()
}

func (p *PrometheusRecorder) IncAlertResolved(alertType string) {
	p.alertsResolved.WithLabelValues(alertType).Inc()
}

func (p *PrometheusRecorder) SetActiveAlerts(count int) {
	p.activeAlerts.Set(float64(count))
}

func (p *PrometheusRecorder) ObserveAlertCheckDuration(duration time.Duration) {
	p.alertCheckDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncAlertDelivery(sink, status string) {
	p.alertDeliveries.WithLabelValues(sink, status).Inc()
}

func (p *PrometheusRecorder) IncInvalidation(status string) {
	p.invalidations.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveInvalidationDuration(duration time.Duration) {
	p.invalidationDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveBatchSize(size int) {
	p.batchSize.Observe(float64(size))
}

func (p *PrometheusRecorder) IncIngestEvent(status string) {
	p.ingestEvents.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) SetIngestQueueDepth(depth int64) {
	p.ingestQueueDepth.Set(float64(depth))
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
