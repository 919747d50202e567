package monitor

import (
	"context"

	"github.com/assetwatch/assetwatch/internal/model"
)

// LoadFunc performs the real asset fetch or upload.
type LoadFunc func(ctx context.Context) error

// TrackOption annotates the metric produced by Track.
type TrackOption func(*model.PerformanceMetric)

// WithCacheHit marks whether the load was served from cache.
func WithCacheHit(hit bool) TrackOption {
	return func(m *model.PerformanceMetric) {
		m.CacheHit = &hit
	}
}

// WithCDNHit marks whether the load was served by the CDN edge.
func WithCDNHit(hit bool) TrackOption {
	return func(m *model.PerformanceMetric) {
		m.CDNHit = &hit
	}
}

// WithClientContext attaches a user agent, referrer or connection class.
func WithClientContext(clientContext string) TrackOption {
	return func(m *model.PerformanceMetric) {
		m.ClientContext = clientContext
	}
}

// Track times load, records the outcome for path and returns load's error
// unchanged.
func (m *Monitor) Track(ctx context.Context, path string, load LoadFunc, opts ...TrackOption) error {
	start := m.now()
	err := load(ctx)
	end := m.now()

	metric := model.PerformanceMetric{
		Path:       path,
		LoadTimeMs: float64(end.Sub(start).Microseconds()) / 1000,
		Success:    err == nil,
		Timestamp:  end,
	}
	if err != nil {
		metric.Error = err.Error()
	}
	for _, opt := range opts {
		opt(&metric)
	}

	m.Record(metric)
	return err
}
