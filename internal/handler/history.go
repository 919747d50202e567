package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/assetwatch/assetwatch/internal/handler/dto"
	"github.com/assetwatch/assetwatch/internal/middleware"
	"github.com/assetwatch/assetwatch/internal/model"
)

// History page sizes.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// AlertArchive reads archived alerts. *repository.Repository satisfies it.
type AlertArchive interface {
	ListRecentAlerts(ctx context.Context, limit int) ([]*model.Alert, error)
	ListAlertsByPath(ctx context.Context, path string, limit int) ([]*model.Alert, error)
}

// AlertHistoryHandler serves archived alerts, open and resolved.
type AlertHistoryHandler struct {
	archive AlertArchive
	logger  *slog.Logger
}

// NewAlertHistoryHandler creates an AlertHistoryHandler.
func NewAlertHistoryHandler(archive AlertArchive, logger *slog.Logger) *AlertHistoryHandler {
	return &AlertHistoryHandler{archive: archive, logger: logger}
}

// List handles GET /api/v1/alerts/history?path=&limit=.
// Alerts are newest first. With path, only alerts whose supporting sample
// touched that asset are returned.
func (h *AlertHistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := DefaultHistoryLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxHistoryLimit {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT",
				"limit must be between 1 and "+strconv.Itoa(MaxHistoryLimit))
			return
		}
		limit = n
	}

	var (
		alerts []*model.Alert
		err    error
	)
	if path := strings.TrimSpace(query.Get("path")); path != "" {
		if verr := middleware.ValidateAssetPath(path); verr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PATH", verr.Error())
			return
		}
		alerts, err = h.archive.ListAlertsByPath(r.Context(), path, limit)
	} else {
		alerts, err = h.archive.ListRecentAlerts(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("failed to list alert history", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load alert history")
		return
	}

	data := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a != nil {
			data = append(data, *a)
		}
	}
	writeJSON(w, http.StatusOK, dto.AlertListResponse{Data: data})
}
