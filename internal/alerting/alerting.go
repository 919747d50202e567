// Package alerting delivers alert lifecycle events outside the process.
//
// Every notifier here is non-blocking: deliveries run on their own goroutine
// with a timeout, failures are logged and counted, and Drain waits for the
// in-flight ones during shutdown.
package alerting

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/assetwatch/assetwatch/internal/metrics"
	"github.com/assetwatch/assetwatch/internal/model"
)

// Event names carried with each delivery.
const (
	EventOpened   = "opened"
	EventResolved = "resolved"
)

// DefaultDeliveryTimeout bounds a single delivery.
const DefaultDeliveryTimeout = 2 * time.Second

// Notifier receives alert lifecycle events. monitor.Monitor accepts any
// value of this shape.
type Notifier interface {
	AlertOpened(alert model.Alert)
	AlertResolved(alert model.Alert)
}

// dispatcher runs deliveries in the background and tracks them for Drain.
type dispatcher struct {
	sink    string
	timeout time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder

	mu      sync.Mutex
	drained bool
	wg      sync.WaitGroup
}

func newDispatcher(sink string, logger *slog.Logger, recorder metrics.Recorder) *dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &dispatcher{
		sink:    sink,
		timeout: DefaultDeliveryTimeout,
		logger:  logger.With("component", "alerting."+sink),
		metrics: recorder,
	}
}

func (d *dispatcher) dispatch(event string, alert model.Alert, deliver func(ctx context.Context) error) {
	d.mu.Lock()
	if d.drained {
		d.mu.Unlock()
		d.logger.Warn("alert delivery dropped after drain", "alert_id", alert.ID, "event", event)
		d.metrics.IncAlertDelivery(d.sink, "failed")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("alert delivery panicked", "alert_id", alert.ID, "panic", r)
				d.metrics.IncAlertDelivery(d.sink, "failed")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := deliver(ctx); err != nil {
			d.logger.Warn("failed to deliver alert",
				"alert_id", alert.ID,
				"event", event,
				"error", err,
			)
			d.metrics.IncAlertDelivery(d.sink, "failed")
			return
		}
		d.metrics.IncAlertDelivery(d.sink, "success")
	}()
}

// Drain stops accepting deliveries and waits for in-flight ones or until
// ctx is done. Events arriving afterwards are dropped and counted as failed.
func (d *dispatcher) Drain(ctx context.Context) error {
	d.mu.Lock()
	d.drained = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
