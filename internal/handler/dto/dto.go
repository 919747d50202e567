// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/assetwatch/assetwatch/internal/model"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RecordMetricRequest is the body of POST /api/v1/metrics.
type RecordMetricRequest struct {
	Path          string     `json:"path"`
	LoadTimeMs    float64    `json:"load_time_ms"`
	Success       bool       `json:"success"`
	Error         string     `json:"error,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	CacheHit      *bool      `json:"cache_hit,omitempty"`
	CDNHit        *bool      `json:"cdn_hit,omitempty"`
	ClientContext string     `json:"client_context,omitempty"`
}

// ToMetric converts the request. A missing timestamp stays zero and is
// filled in by the recorder.
func (r RecordMetricRequest) ToMetric() model.PerformanceMetric {
	m := model.PerformanceMetric{
		Path:          r.Path,
		LoadTimeMs:    r.LoadTimeMs,
		Success:       r.Success,
		Error:         r.Error,
		CacheHit:      r.CacheHit,
		CDNHit:        r.CDNHit,
		ClientContext: r.ClientContext,
	}
	if r.Timestamp != nil {
		m.Timestamp = *r.Timestamp
	}
	return m
}

// AcceptedResponse acknowledges an asynchronous write.
type AcceptedResponse struct {
	Status string `json:"status"`
}

// AlertListResponse wraps a list of alerts.
type AlertListResponse struct {
	Data []model.Alert `json:"data"`
}

// ResolveAlertResponse confirms a resolution.
type ResolveAlertResponse struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
}

// ResolveVersionRequest is the body of POST /api/v1/versions/resolve.
type ResolveVersionRequest struct {
	Path     string `json:"path"`
	Strategy string `json:"strategy"`
	Version  string `json:"version,omitempty"`
}

// CompareResponse reports the ordering of two tokens.
type CompareResponse struct {
	A      string           `json:"a"`
	B      string           `json:"b"`
	Result model.Comparison `json:"result"`
}

// InvalidateRequest is the body of POST /api/v1/invalidations.
type InvalidateRequest struct {
	Paths []string `json:"paths"`
}

// BatchResultResponse reports a batch invalidation.
type BatchResultResponse struct {
	Successful []string `json:"successful"`
	Failed     []string `json:"failed"`
	Total      int      `json:"total"`
}

// ToBatchResultResponse converts a batch result.
func ToBatchResultResponse(r model.BatchResult) BatchResultResponse {
	return BatchResultResponse{
		Successful: r.Successful,
		Failed:     r.Failed,
		Total:      r.Total(),
	}
}

// SmartInvalidateRequest is the body of POST /api/v1/invalidations/smart.
// MaxAge is a Go duration string such as "1h".
type SmartInvalidateRequest struct {
	Path   string `json:"path"`
	MaxAge string `json:"max_age,omitempty"`
	Force  bool   `json:"force,omitempty"`
}

// SmartInvalidateResponse reports whether a purge happened and succeeded.
type SmartInvalidateResponse struct {
	Path        string `json:"path"`
	Invalidated bool   `json:"invalidated"`
}
