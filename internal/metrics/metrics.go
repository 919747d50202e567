// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Sampler metrics
	IncMetricRecorded(status string) // status: "retained", "sampled_out", "disabled"
	SetBufferSize(size int)

	// Alert engine metrics
	IncAlertOpened(alertType string)
	IncAlertResolved(alertType string)
	SetActiveAlerts(count int)
	ObserveAlertCheckDuration(duration time.Duration)
	IncAlertDelivery(sink, status string) // status: "success" or "failed"

	// Invalidation metrics
	IncInvalidation(status string) // status: "success" or "failed"
	ObserveInvalidationDuration(duration time.Duration)
	ObserveBatchSize(size int)

	// Ingest pipeline metrics
	IncIngestEvent(status string) // status: "published", "dropped", "success", "dead_lettered"
	SetIngestQueueDepth(depth int64)

	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
