package model

import "time"

// AlertType identifies the rule that opened an alert.
type AlertType string

const (
	AlertTypePerformance  AlertType = "performance"
	AlertTypeError        AlertType = "error"
	AlertTypeAvailability AlertType = "availability"
)

// AlertSeverity ranks alerts for routing.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// MaxSupportingMetrics bounds the sample attached to each alert.
const MaxSupportingMetrics = 10

// Alert records a threshold breach. Lifecycle is OPEN -> RESOLVED, and a
// resolved alert is never modified again.
type Alert struct {
	ID                string              `json:"id"` // ULID (time-sortable)
	Type              AlertType           `json:"type"`
	Severity          AlertSeverity       `json:"severity"`
	Message           string              `json:"message"`
	Value             float64             `json:"value"`
	Threshold         float64             `json:"threshold"`
	SupportingMetrics []PerformanceMetric `json:"supporting_metrics"`
	CreatedAt         time.Time           `json:"created_at"`
	Resolved          bool                `json:"resolved"`
	ResolvedAt        *time.Time          `json:"resolved_at,omitempty"`
}

// IsActive returns true while the alert is unresolved.
func (a *Alert) IsActive() bool {
	return !a.Resolved
}

// Clone returns a deep copy safe to hand outside the engine.
func (a *Alert) Clone() Alert {
	c := *a
	if a.SupportingMetrics != nil {
		c.SupportingMetrics = append([]PerformanceMetric(nil), a.SupportingMetrics...)
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return c
}

// AlertStats partitions the retained alert log.
type AlertStats struct {
	Total      int                   `json:"total"`
	Active     int                   `json:"active"`
	Resolved   int                   `json:"resolved"`
	ByType     map[AlertType]int     `json:"by_type"`
	BySeverity map[AlertSeverity]int `json:"by_severity"`
}
