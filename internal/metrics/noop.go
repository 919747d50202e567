package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncMetricRecorded is a no-op.
func (n *NoopRecorder) IncMetricRecorded(status string) {}

// SetBufferSize is a no-op.
func (n *NoopRecorder) SetBufferSize(size int) {}

// IncAlertOpened is a no-op.
func (n *NoopRecorder) IncAlertOpened(alertType string) {}

// IncAlertResolved is a no-op.
func (n *NoopRecorder) IncAlertResolved(alertType string) {}

// SetActiveAlerts is a no-op.
func (n *NoopRecorder) SetActiveAlerts(count int) {}

// ObserveAlertCheckDuration is a no-op.
func (n *NoopRecorder) ObserveAlertCheckDuration(duration time.Duration) {}

// IncInvalidation is a no-op.
func (n *NoopRecorder) IncInvalidation(status string) {}

// ObserveInvalidationDuration is a no-op.
func (n *NoopRecorder) ObserveInvalidationDuration(duration time.Duration) {}

// ObserveBatchSize is a no-op.
func (n *NoopRecorder) ObserveBatchSize(size int) {}

// IncIngestEvent is a no-op.
func (n *NoopRecorder) IncIngestEvent(status string) {}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

// IncAlertDelivery is a no-op.
func (n *NoopRecorder) IncAlertDelivery(sink, status string) {}

// SetIngestQueueDepth is a no-op.
func (n *NoopRecorder) SetIngestQueueDepth(depth int64) {}
