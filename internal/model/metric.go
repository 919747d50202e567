// Package model defines domain entities for the application.
package model

import (
	"math"
	"time"
)

// PerformanceMetric is one observation of a single asset load attempt.
// Error is set iff Success is false.
type PerformanceMetric struct {
	Path          string    `json:"path"`
	LoadTimeMs    float64   `json:"load_time_ms"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	CacheHit      *bool     `json:"cache_hit,omitempty"`
	CDNHit        *bool     `json:"cdn_hit,omitempty"`
	ClientContext string    `json:"client_context,omitempty"` // user agent, referrer or connection class
}

// UnknownError is stored on failed metrics that arrive without a reason.
const UnknownError = "unknown error"

// Normalize enforces the metric invariants in place.
// now is used when the metric has no timestamp.
func (m *PerformanceMetric) Normalize(now time.Time) {
	if m.LoadTimeMs < 0 {
		m.LoadTimeMs = 0
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = now
	}
	if m.Success {
		m.Error = ""
	} else if m.Error == "" {
		m.Error = UnknownError
	}
}

// IsCacheHit reports whether the cache hit flag is set and true.
func (m *PerformanceMetric) IsCacheHit() bool {
	return m.CacheHit != nil && *m.CacheHit
}

// IsCDNHit reports whether the CDN hit flag is set and true.
func (m *PerformanceMetric) IsCDNHit() bool {
	return m.CDNHit != nil && *m.CDNHit
}

// AlertThresholds are the bounds evaluated by the alert engine.
// A zero or negative threshold disables its rule.
type AlertThresholds struct {
	LoadTimeMs          float64 `json:"load_time_ms"`
	ErrorRatePercent    float64 `json:"error_rate_percent"`
	AvailabilityPercent float64 `json:"availability_percent"`
}

// MonitoringConfig is replaced wholesale, never mutated in place.
type MonitoringConfig struct {
	Enabled           bool            `json:"enabled"`
	SampleRate        float64         `json:"sample_rate"`
	AlertThresholds   AlertThresholds `json:"alert_thresholds"`
	ReportingInterval time.Duration   `json:"reporting_interval"`
	MaxMetrics        int             `json:"max_metrics"`
	MaxAlerts         int             `json:"max_alerts"`
	DeduplicateAlerts bool            `json:"deduplicate_alerts"`
}

// Defaults applied by Sanitize when a bound is missing.
const (
	DefaultMaxMetrics = 1000
	DefaultMaxAlerts  = 100
)

// DefaultMonitoringConfig returns the configuration used when none is supplied.
func DefaultMonitoringConfig() MonitoringConfig {
	return MonitoringConfig{
		Enabled:    true,
		SampleRate: 1,
		AlertThresholds: AlertThresholds{
			LoadTimeMs:          3000,
			ErrorRatePercent:    5,
			AvailabilityPercent: 95,
		},
		ReportingInterval: time.Minute,
		MaxMetrics:        DefaultMaxMetrics,
		MaxAlerts:         DefaultMaxAlerts,
	}
}

// Sanitize clamps SampleRate into [0,1] and repairs out-of-range bounds.
func (c MonitoringConfig) Sanitize() MonitoringConfig {
	switch {
	case math.IsNaN(c.SampleRate):
		c.SampleRate = 0
	case c.SampleRate < 0:
		c.SampleRate = 0
	case c.SampleRate > 1:
		c.SampleRate = 1
	}
	if c.MaxMetrics < 1 {
		c.MaxMetrics = 1
	}
	if c.MaxAlerts < 1 {
		c.MaxAlerts = DefaultMaxAlerts
	}
	if c.ReportingInterval < 0 {
		c.ReportingInterval = 0
	}
	return c
}

// TimeRange is an inclusive [Start, End] window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, bounds included.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// LastDay returns the 24 hours ending at now.
func LastDay(now time.Time) TimeRange {
	return TimeRange{Start: now.Add(-24 * time.Hour), End: now}
}

// MonitoringStats is a read-only snapshot over a time range.
type MonitoringStats struct {
	TotalRequests       int       `json:"total_requests"`
	SuccessfulRequests  int       `json:"successful_requests"`
	FailedRequests      int       `json:"failed_requests"`
	AverageLoadTimeMs   float64   `json:"average_load_time_ms"`
	P95LoadTimeMs       float64   `json:"p95_load_time_ms"`
	P99LoadTimeMs       float64   `json:"p99_load_time_ms"`
	ErrorRatePercent    float64   `json:"error_rate_percent"`
	AvailabilityPercent float64   `json:"availability_percent"`
	CacheHitRatePercent float64   `json:"cache_hit_rate_percent"`
	CDNHitRatePercent   float64   `json:"cdn_hit_rate_percent"`
	TimeRange           TimeRange `json:"time_range"`
}
