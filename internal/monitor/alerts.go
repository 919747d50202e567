package monitor

import (
	"fmt"
	"math"
	"time"

	"github.com/assetwatch/assetwatch/internal/model"
)

// breach is a rule that fired during a check.
type breach struct {
	alertType model.AlertType
	severity  model.AlertSeverity
	value     float64
	threshold float64
	message   string
}

// validThreshold rejects missing, negative and non-finite bounds so a bad
// config value disables its rule instead of firing.
func validThreshold(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// evaluateRules checks the three rules independently.
func evaluateRules(stats model.MonitoringStats, t model.AlertThresholds) []breach {
	var out []breach

	if validThreshold(t.LoadTimeMs) {
		switch {
		case stats.AverageLoadTimeMs > t.LoadTimeMs:
			out = append(out, breach{
				alertType: model.AlertTypePerformance,
				severity:  model.SeverityMedium,
				value:     stats.AverageLoadTimeMs,
				threshold: t.LoadTimeMs,
				message: fmt.Sprintf("Average load time %.2fms exceeds threshold %.0fms",
					stats.AverageLoadTimeMs, t.LoadTimeMs),
			})
		case stats.P95LoadTimeMs > t.LoadTimeMs:
			// slow tail hidden by a fast average
			out = append(out, breach{
				alertType: model.AlertTypePerformance,
				severity:  model.SeverityMedium,
				value:     stats.P95LoadTimeMs,
				threshold: t.LoadTimeMs,
				message: fmt.Sprintf("p95 load time %.2fms exceeds threshold %.0fms (average %.2fms)",
					stats.P95LoadTimeMs, t.LoadTimeMs, stats.AverageLoadTimeMs),
			})
		}
	}

	if validThreshold(t.ErrorRatePercent) && stats.ErrorRatePercent > t.ErrorRatePercent {
		out = append(out, breach{
			alertType: model.AlertTypeError,
			severity:  model.SeverityHigh,
			value:     stats.ErrorRatePercent,
			threshold: t.ErrorRatePercent,
			message: fmt.Sprintf("Error rate %.2f%% exceeds threshold %.2f%%",
				stats.ErrorRatePercent, t.ErrorRatePercent),
		})
	}

	if validThreshold(t.AvailabilityPercent) && t.AvailabilityPercent <= 100 &&
		stats.AvailabilityPercent < t.AvailabilityPercent {
		out = append(out, breach{
			alertType: model.AlertTypeAvailability,
			severity:  model.SeverityCritical,
			value:     stats.AvailabilityPercent,
			threshold: t.AvailabilityPercent,
			message: fmt.Sprintf("Availability %.2f%% below threshold %.2f%%",
				stats.AvailabilityPercent, t.AvailabilityPercent),
		})
	}

	return out
}

// CheckAlerts evaluates a fresh default-window snapshot against the configured
// thresholds and returns the alerts it opened. With DeduplicateAlerts set, a
// rule whose type already has an unresolved alert opens nothing.
func (m *Monitor) CheckAlerts() []model.Alert {
	start := time.Now()
	cfg := m.Config()
	stats := m.GetStats(nil)
	breaches := evaluateRules(stats, cfg.AlertThresholds)

	var opened []model.Alert
	if len(breaches) > 0 {
		now := m.now()

		m.mu.Lock()
		supporting := m.buffer.last(model.MaxSupportingMetrics)
		for _, b := range breaches {
			if cfg.DeduplicateAlerts && m.hasActiveLocked(b.alertType) {
				continue
			}
			alert := &model.Alert{
				ID:                m.newID(),
				Type:              b.alertType,
				Severity:          b.severity,
				Message:           b.message,
				Value:             b.value,
				Threshold:         b.threshold,
				SupportingMetrics: append([]model.PerformanceMetric(nil), supporting...),
				CreatedAt:         now,
			}
			m.alerts = append(m.alerts, alert)
			opened = append(opened, alert.Clone())
		}
		m.trimAlertsLocked()
		active := m.countActiveLocked()
		m.mu.Unlock()

		m.metrics.SetActiveAlerts(active)
	}

	for _, alert := range opened {
		m.logger.Warn("alert opened",
			"alert_id", alert.ID,
			"type", alert.Type,
			"severity", alert.Severity,
			"value", alert.Value,
			"threshold", alert.Threshold,
			"message", alert.Message,
		)
		m.metrics.IncAlertOpened(string(alert.Type))
		m.notify(func(n Notifier) { n.AlertOpened(alert) })
	}

	m.metrics.ObserveAlertCheckDuration(time.Since(start))
	return opened
}

// ResolveAlert closes the alert with the given id. It returns false, changing
// nothing, when the id is unknown or the alert is already resolved.
func (m *Monitor) ResolveAlert(id string) bool {
	m.mu.Lock()
	var resolved *model.Alert
	for _, alert := range m.alerts {
		if alert.ID != id {
			continue
		}
		if alert.Resolved {
			break
		}
		now := m.now()
		alert.Resolved = true
		alert.ResolvedAt = &now
		resolved = alert
		break
	}
	if resolved == nil {
		m.mu.Unlock()
		return false
	}
	snapshot := resolved.Clone()
	active := m.countActiveLocked()
	m.mu.Unlock()

	m.logger.Info("alert resolved", "alert_id", id, "type", snapshot.Type)
	m.metrics.IncAlertResolved(string(snapshot.Type))
	m.metrics.SetActiveAlerts(active)
	m.notify(func(n Notifier) { n.AlertResolved(snapshot) })
	return true
}

// GetActiveAlerts returns unresolved alerts in insertion order, oldest first.
func (m *Monitor) GetActiveAlerts() []model.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		if alert.IsActive() {
			out = append(out, alert.Clone())
		}
	}
	return out
}

// GetAlerts returns every retained alert in insertion order.
func (m *Monitor) GetAlerts() []model.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Alert, len(m.alerts))
	for i, alert := range m.alerts {
		out[i] = alert.Clone()
	}
	return out
}

// GetAlert looks up a retained alert by id.
func (m *Monitor) GetAlert(id string) (model.Alert, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, alert := range m.alerts {
		if alert.ID == id {
			return alert.Clone(), true
		}
	}
	return model.Alert{}, false
}

// GetAlertStats partitions the retained alerts by type, severity and state.
func (m *Monitor) GetAlertStats() model.AlertStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := model.AlertStats{
		Total:      len(m.alerts),
		ByType:     make(map[model.AlertType]int),
		BySeverity: make(map[model.AlertSeverity]int),
	}
	for _, alert := range m.alerts {
		stats.ByType[alert.Type]++
		stats.BySeverity[alert.Severity]++
		if alert.Resolved {
			stats.Resolved++
		} else {
			stats.Active++
		}
	}
	return stats
}

func (m *Monitor) hasActiveLocked(t model.AlertType) bool {
	for _, alert := range m.alerts {
		if alert.Type == t && !alert.Resolved {
			return true
		}
	}
	return false
}

func (m *Monitor) countActiveLocked() int {
	n := 0
	for _, alert := range m.alerts {
		if !alert.Resolved {
			n++
		}
	}
	return n
}

// trimAlertsLocked drops the oldest alerts beyond MaxAlerts.
func (m *Monitor) trimAlertsLocked() {
	excess := len(m.alerts) - m.cfg.MaxAlerts
	if excess <= 0 {
		return
	}
	kept := make([]*model.Alert, len(m.alerts)-excess)
	copy(kept, m.alerts[excess:])
	m.alerts = kept
}

// notify shields the engine from a misbehaving notifier.
func (m *Monitor) notify(fn func(Notifier)) {
	if m.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("alert notifier panicked", "panic", r)
		}
	}()
	fn(m.notifier)
}
