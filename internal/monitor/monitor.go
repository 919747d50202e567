// Package monitor records asset load telemetry, aggregates it into rolling
// statistics and raises alerts when configured thresholds are breached.
//
// A Monitor is safe for concurrent use. Record may be called from any number
// of request goroutines while GetStats and CheckAlerts run on a timer.
package monitor

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/assetwatch/assetwatch/internal/metrics"
	"github.com/assetwatch/assetwatch/internal/model"
)

// Notifier receives alert lifecycle events. Implementations must not block;
// they are called after the monitor lock is released.
type Notifier interface {
	AlertOpened(alert model.Alert)
	AlertResolved(alert model.Alert)
}

// Monitor is the in-process collection and alerting engine.
type Monitor struct {
	mu     sync.RWMutex
	cfg    model.MonitoringConfig
	buffer *ringBuffer
	alerts []*model.Alert
	rng    *rand.Rand // guarded by mu

	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
	metrics  metrics.Recorder
	notifier Notifier

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRand overrides the sampling random source.
func WithRand(r *rand.Rand) Option {
	return func(m *Monitor) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(m *Monitor) {
		if recorder != nil {
			m.metrics = recorder
		}
	}
}

// WithNotifier sets the alert notifier.
func WithNotifier(n Notifier) Option {
	return func(m *Monitor) {
		m.notifier = n
	}
}

// WithIDGenerator overrides alert id generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *Monitor) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// New creates a Monitor with the given configuration.
func New(cfg model.MonitoringConfig, opts ...Option) *Monitor {
	cfg = cfg.Sanitize()
	m := &Monitor{
		cfg:     cfg,
		buffer:  newRingBuffer(cfg.MaxMetrics),
		now:     time.Now,
		newID:   func() string { return ulid.Make().String() },
		logger:  slog.Default(),
		metrics: metrics.NewNoop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(m.now().UnixNano()))
	}
	m.logger = m.logger.With("component", "monitor")
	return m
}

// Record offers a metric to the sampler. It never blocks on I/O and never
// fails: disabled monitoring and sampled-out metrics are silently dropped,
// and the oldest metric is evicted once MaxMetrics is exceeded.
func (m *Monitor) Record(metric model.PerformanceMetric) {
	m.mu.Lock()
	if !m.cfg.Enabled {
		m.mu.Unlock()
		m.metrics.IncMetricRecorded("disabled")
		return
	}
	if m.rng.Float64() >= m.cfg.SampleRate {
		m.mu.Unlock()
		m.metrics.IncMetricRecorded("sampled_out")
		return
	}
	metric.Normalize(m.now())
	m.buffer.push(metric)
	size := m.buffer.len()
	m.mu.Unlock()

	m.metrics.IncMetricRecorded("retained")
	m.metrics.SetBufferSize(size)
}

// Config returns the current configuration.
func (m *Monitor) Config() model.MonitoringConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// SetConfig replaces the configuration wholesale. The buffer is re-bounded to
// the new MaxMetrics, keeping the newest metrics. The reporting interval of a
// running ticker is only picked up on the next Start.
func (m *Monitor) SetConfig(cfg model.MonitoringConfig) {
	cfg = cfg.Sanitize()

	m.mu.Lock()
	m.cfg = cfg
	m.buffer.resize(cfg.MaxMetrics)
	m.trimAlertsLocked()
	size := m.buffer.len()
	m.mu.Unlock()

	m.metrics.SetBufferSize(size)
	m.logger.Info("monitoring config replaced",
		"enabled", cfg.Enabled,
		"sample_rate", cfg.SampleRate,
		"max_metrics", cfg.MaxMetrics,
	)
}

// Len returns the number of retained metrics.
func (m *Monitor) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buffer.len()
}

// Metrics returns a copy of the retained metrics, oldest first.
func (m *Monitor) Metrics() []model.PerformanceMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buffer.snapshot()
}

// Clear drops all retained metrics. Alerts are kept.
func (m *Monitor) Clear() {
	m.mu.Lock()
	m.buffer.reset()
	m.mu.Unlock()
	m.metrics.SetBufferSize(0)
}
