package monitor

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyStarted is returned by Start while the ticker is running.
var ErrAlreadyStarted = errors.New("monitor already started")

// Start runs CheckAlerts every ReportingInterval until Stop is called or ctx
// is cancelled. A zero interval disables periodic checks.
func (m *Monitor) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.done != nil {
		select {
		case <-m.done:
			// previous loop exited on its own (parent ctx cancelled)
		default:
			return ErrAlreadyStarted
		}
	}

	interval := m.Config().ReportingInterval
	if interval <= 0 {
		m.logger.Info("periodic alert checks disabled", "reporting_interval", interval)
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go m.run(runCtx, interval, done)

	m.logger.Info("alert checker started", "reporting_interval", interval)
	return nil
}

func (m *Monitor) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// a tick and a cancellation can be ready together
			if ctx.Err() != nil {
				return
			}
			m.CheckAlerts()
		}
	}
}

// Stop halts the ticker and waits for an in-flight check to finish. No check
// runs after Stop returns. It is safe to call repeatedly or before Start.
func (m *Monitor) Stop() {
	_ = m.Shutdown(context.Background())
}

// Shutdown is Stop bounded by ctx.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		m.logger.Info("alert checker stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("alert checker shutdown timed out")
		return ctx.Err()
	}
}
