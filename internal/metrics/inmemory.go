package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	MetricsRetained             uint64
	MetricsSampledOut           uint64
	MetricsDisabled             uint64
	BufferSize                  int64
	AlertsOpened                uint64
	AlertsResolved              uint64
	ActiveAlerts                int64
	AlertChecks                 uint64
	InvalidationsSucceeded      uint64
	InvalidationsFailed         uint64
	InvalidationDurationTotalNs int64
	Batches                     uint64
	AlertDeliveries             uint64
	AlertDeliveryFailures       uint64
	IngestPublished             uint64
	IngestDropped               uint64
	IngestSucceeded             uint64
	IngestDeadLettered          uint64
	IngestQueueDepth            int64
	HTTPRequests                uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	metricsRetained             uint64
	metricsSampledOut           uint64
	metricsDisabled             uint64
	bufferSize                  int64
	alertsOpened                uint64
	alertsResolved              uint64
	activeAlerts                int64
	alertChecks                 uint64
	invalidationsSucceeded      uint64
	invalidationsFailed         uint64
	invalidationDurationTotalNs int64
	batches                     uint64
	alertDeliveries             uint64
	alertDeliveryFailures       uint64
	ingestPublished             uint64
	ingestDropped               uint64
	ingestSucceeded             uint64
	ingestDeadLettered          uint64
	ingestQueueDepth            int64
	httpRequests                uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		MetricsRetained:             atomic.LoadUint64(&m.metricsRetained),
		MetricsSampledOut:           atomic.LoadUint64(&m.metricsSampledOut),
		MetricsDisabled:             atomic.LoadUint64(&m.metricsDisabled),
		BufferSize:                  atomic.LoadInt64(&m.bufferSize),
		AlertsOpened:                atomic.LoadUint64(&m.alertsOpened),
		AlertsResolved:              atomic.LoadUint64(&m.alertsResolved),
		ActiveAlerts:                atomic.LoadInt64(&m.activeAlerts),
		AlertChecks:                 atomic.LoadUint64(&m.alertChecks),
		InvalidationsSucceeded:      atomic.LoadUint64(&m.invalidationsSucceeded),
		InvalidationsFailed:         atomic.LoadUint64(&m.invalidationsFailed),
		InvalidationDurationTotalNs: atomic.LoadInt64(&m.invalidationDurationTotalNs),
		Batches:                     atomic.LoadUint64(&m.batches),
		AlertDeliveries:             atomic.LoadUint64(&m.alertDeliveries),
		AlertDeliveryFailures:       atomic.LoadUint64(&m.alertDeliveryFailures),
		IngestPublished:             atomic.LoadUint64(&m.ingestPublished),
		IngestDropped:               atomic.LoadUint64(&m.ingestDropped),
		IngestSucceeded:             atomic.LoadUint64(&m.ingestSucceeded),
		IngestDeadLettered:          atomic.LoadUint64(&m.ingestDeadLettered),
		IngestQueueDepth:            atomic.LoadInt64(&m.ingestQueueDepth),
		HTTPRequests:                atomic.LoadUint64(&m.httpRequests),
	}
}

// IncMetricRecorded counts sampler outcomes.
func (m *InMemoryRecorder) IncMetricRecorded(status string) {
	switch status {
	case "retained":
		atomic.AddUint64(&m.metricsRetained, 1)
	case "sampled_out":
		atomic.AddUint64(&m.metricsSampledOut, 1)
	case "disabled":
		atomic.AddUint64(&m.metricsDisabled, 1)
	}
}

// SetBufferSize stores the current buffer length.
func (m *InMemoryRecorder) SetBufferSize(size int) {
	atomic.StoreInt64(&m.bufferSize, int64(size))
}

// IncAlertOpened increments the opened alert counter.
func (m *InMemoryRecorder) IncAlertOpened(alertType string) {
	atomic.AddUint64(&m.alertsOpened, 1)
}

// IncAlertResolved increments the resolved alert counter.
func (m *InMemoryRecorder) IncAlertResolved(alertType string) {
	atomic.AddUint64(&m.alertsResolved, 1)
}

// SetActiveAlerts stores the number of open alerts.
func (m *InMemoryRecorder) SetActiveAlerts(count int) {
	atomic.StoreInt64(&m.activeAlerts, int64(count))
}

// ObserveAlertCheckDuration counts alert evaluations.
func (m *InMemoryRecorder) ObserveAlertCheckDuration(duration time.Duration) {
	atomic.AddUint64(&m.alertChecks, 1)
}

// IncInvalidation counts invalidation outcomes.
func (m *InMemoryRecorder) IncInvalidation(status string) {
	if status == "success" {
		atomic.AddUint64(&m.invalidationsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.invalidationsFailed, 1)
}

// ObserveInvalidationDuration records purge duration.
func (m *InMemoryRecorder) ObserveInvalidationDuration(duration time.Duration) {
	atomic.AddInt64(&m.invalidationDurationTotalNs, duration.Nanoseconds())
}

// ObserveBatchSize counts batches.
func (m *InMemoryRecorder) ObserveBatchSize(size int) {
	atomic.AddUint64(&m.batches, 1)
}

// IncAlertDelivery counts notifier deliveries.
func (m *InMemoryRecorder) IncAlertDelivery(sink, status string) {
	if status == "success" {
		atomic.AddUint64(&m.alertDeliveries, 1)
		return
	}
	atomic.AddUint64(&m.alertDeliveryFailures, 1)
}

// IncIngestEvent counts ingest outcomes.
func (m *InMemoryRecorder) IncIngestEvent(status string) {
	switch status {
	case "published":
		atomic.AddUint64(&m.ingestPublished, 1)
	case "dropped":
		atomic.AddUint64(&m.ingestDropped, 1)
	case "success":
		atomic.AddUint64(&m.ingestSucceeded, 1)
	case "dead_lettered":
		atomic.AddUint64(&m.ingestDeadLettered, 1)
	}
}

// SetIngestQueueDepth stores the stream backlog.
func (m *InMemoryRecorder) SetIngestQueueDepth(depth int64) {
	atomic.StoreInt64(&m.ingestQueueDepth, depth)
}

// ObserveHTTPRequest counts served requests.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}
