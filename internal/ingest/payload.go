package ingest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/assetwatch/assetwatch/internal/model"
)

const (
	maxPathLength  = 2048
	maxErrorLength = 500
	maxMetaLength  = 500
)

// MetricPayload is the compact stream encoding of a PerformanceMetric.
type MetricPayload struct {
	Path       string  `json:"p"`
	LoadTimeMs float64 `json:"lt"`
	Success    bool    `json:"ok"`
	Error      string  `json:"e,omitempty"`
	Timestamp  int64   `json:"t"` // Unix milliseconds
	CacheHit   *bool   `json:"ch,omitempty"`
	CDNHit     *bool   `json:"cdn,omitempty"`
	Client     string  `json:"c,omitempty"`
}

// PayloadFromMetric encodes m for the stream. Oversized free-text fields
// are truncated.
func PayloadFromMetric(m model.PerformanceMetric) MetricPayload {
	return MetricPayload{
		Path:       m.Path,
		LoadTimeMs: m.LoadTimeMs,
		Success:    m.Success,
		Error:      truncate(m.Error, maxErrorLength),
		Timestamp:  m.Timestamp.UnixMilli(),
		CacheHit:   m.CacheHit,
		CDNHit:     m.CDNHit,
		Client:     truncate(m.ClientContext, maxMetaLength),
	}
}

// Metric decodes the payload.
func (p MetricPayload) Metric() model.PerformanceMetric {
	return model.PerformanceMetric{
		Path:          p.Path,
		LoadTimeMs:    p.LoadTimeMs,
		Success:       p.Success,
		Error:         p.Error,
		Timestamp:     time.UnixMilli(p.Timestamp).UTC(),
		CacheHit:      p.CacheHit,
		CDNHit:        p.CDNHit,
		ClientContext: p.Client,
	}
}

// ValidatePayload rejects payloads that cannot be recorded.
func ValidatePayload(p MetricPayload) error {
	if p.Path == "" {
		return errors.New("path is required")
	}
	if len(p.Path) > maxPathLength {
		return fmt.Errorf("path longer than %d bytes", maxPathLength)
	}
	if math.IsNaN(p.LoadTimeMs) || math.IsInf(p.LoadTimeMs, 0) {
		return errors.New("load time must be finite")
	}
	if p.LoadTimeMs < 0 {
		return errors.New("load time must not be negative")
	}
	if p.Timestamp <= 0 {
		return errors.New("timestamp must be set")
	}
	if len(p.Error) > maxErrorLength {
		return errors.New("error too long")
	}
	if len(p.Client) > maxMetaLength {
		return errors.New("client context too long")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
