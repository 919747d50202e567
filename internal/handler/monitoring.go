package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/assetwatch/assetwatch/internal/handler/dto"
	"github.com/assetwatch/assetwatch/internal/middleware"
	"github.com/assetwatch/assetwatch/internal/model"
)

// MetricSink accepts performance metrics. Both monitor.Monitor and
// ingest.Publisher satisfy it.
type MetricSink interface {
	Record(metric model.PerformanceMetric)
}

// MonitorService is the monitoring surface the API exposes.
type MonitorService interface {
	MetricSink
	GetStats(window *model.TimeRange) model.MonitoringStats
	GetActiveAlerts() []model.Alert
	GetAlertStats() model.AlertStats
	CheckAlerts() []model.Alert
	ResolveAlert(id string) bool
}

// MonitoringHandler serves metrics intake, stats and alerts.
type MonitoringHandler struct {
	monitor MonitorService
	sink    MetricSink
	now     func() time.Time
	logger  *slog.Logger
}

// NewMonitoringHandler creates a MonitoringHandler. Metrics posted to the
// API go to sink, or straight to the monitor when sink is nil.
func NewMonitoringHandler(monitor MonitorService, sink MetricSink, logger *slog.Logger) *MonitoringHandler {
	if sink == nil {
		sink = monitor
	}
	return &MonitoringHandler{
		monitor: monitor,
		sink:    sink,
		now:     time.Now,
		logger:  logger,
	}
}

// RecordMetric handles POST /api/v1/metrics.
func (h *MonitoringHandler) RecordMetric(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordMetricRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "path is required")
		return
	}
	if err := middleware.ValidateAssetPath(req.Path); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PATH", err.Error())
		return
	}
	if math.IsNaN(req.LoadTimeMs) || math.IsInf(req.LoadTimeMs, 0) {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "load_time_ms must be finite")
		return
	}

	metric := req.ToMetric()
	if metric.Timestamp.IsZero() {
		metric.Timestamp = h.now()
	}
	h.sink.Record(metric)

	writeJSON(w, http.StatusAccepted, dto.AcceptedResponse{Status: "accepted"})
}

// Stats handles GET /api/v1/stats?from=&to=.
// Without bounds the last 24 hours are summarised. A single bound is paired
// with now or with a 24 hour span.
func (h *MonitoringHandler) Stats(w http.ResponseWriter, r *http.Request) {
	window, err := h.parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.monitor.GetStats(window))
}

var (
	errInvalidFrom  = errors.New("from must be an RFC3339 timestamp")
	errInvalidTo    = errors.New("to must be an RFC3339 timestamp")
	errInvertedSpan = errors.New("from must not be after to")
)

func (h *MonitoringHandler) parseWindow(r *http.Request) (*model.TimeRange, error) {
	query := r.URL.Query()
	rawFrom, rawTo := query.Get("from"), query.Get("to")
	if rawFrom == "" && rawTo == "" {
		return nil, nil
	}

	var from, to time.Time
	var err error
	if rawTo != "" {
		if to, err = time.Parse(time.RFC3339, rawTo); err != nil {
			return nil, errInvalidTo
		}
	} else {
		to = h.now()
	}
	if rawFrom != "" {
		if from, err = time.Parse(time.RFC3339, rawFrom); err != nil {
			return nil, errInvalidFrom
		}
	} else {
		from = to.Add(-24 * time.Hour)
	}
	if from.After(to) {
		return nil, errInvertedSpan
	}
	return &model.TimeRange{Start: from, End: to}, nil
}

// ActiveAlerts handles GET /api/v1/alerts.
func (h *MonitoringHandler) ActiveAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.AlertListResponse{Data: nonNilAlerts(h.monitor.GetActiveAlerts())})
}

// AlertStats handles GET /api/v1/alerts/stats.
func (h *MonitoringHandler) AlertStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.GetAlertStats())
}

// CheckAlerts handles POST /api/v1/alerts/check and returns the alerts it
// opened.
func (h *MonitoringHandler) CheckAlerts(w http.ResponseWriter, r *http.Request) {
	opened := h.monitor.CheckAlerts()
	if len(opened) > 0 {
		h.logger.Info("alerts_opened", "count", len(opened))
	}
	writeJSON(w, http.StatusOK, dto.AlertListResponse{Data: nonNilAlerts(opened)})
}

// ResolveAlert handles POST /api/v1/alerts/{id}/resolve.
func (h *MonitoringHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Alert ID is required")
		return
	}
	if !h.monitor.ResolveAlert(id) {
		writeError(w, http.StatusNotFound, "ALERT_NOT_FOUND", "Alert not found or already resolved")
		return
	}

	h.logger.Info("alert_resolved", "alert_id", id)
	writeJSON(w, http.StatusOK, dto.ResolveAlertResponse{ID: id, Resolved: true})
}

func nonNilAlerts(alerts []model.Alert) []model.Alert {
	if alerts == nil {
		return []model.Alert{}
	}
	return alerts
}
