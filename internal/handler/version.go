package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/assetwatch/assetwatch/internal/handler/dto"
	"github.com/assetwatch/assetwatch/internal/middleware"
	"github.com/assetwatch/assetwatch/internal/model"
	"github.com/assetwatch/assetwatch/internal/version"
)

// VersionService resolves and compares asset versions.
type VersionService interface {
	Resolve(ctx context.Context, path string, strategy model.VersionStrategy, explicit string) (model.VersionDescriptor, error)
	Latest(ctx context.Context, path string) (model.VersionDescriptor, bool, error)
	Compare(v1, v2 string) model.Comparison
}

// VersionHandler serves the version endpoints.
type VersionHandler struct {
	versions VersionService
	logger   *slog.Logger
}

// NewVersionHandler creates a VersionHandler.
func NewVersionHandler(versions VersionService, logger *slog.Logger) *VersionHandler {
	return &VersionHandler{versions: versions, logger: logger}
}

// Resolve handles POST /api/v1/versions/resolve.
func (h *VersionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveVersionRequest
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
	strategy := model.VersionStrategy(strings.ToLower(strings.TrimSpace(req.Strategy)))
	if strategy == "" {
		strategy = model.StrategyTimestamp
	}

	desc, err := h.versions.Resolve(r.Context(), req.Path, strategy, req.Version)
	switch {
	case err == nil:
	case errors.Is(err, version.ErrVersionRequired):
		writeError(w, http.StatusBadRequest, "VERSION_REQUIRED", err.Error())
		return
	case errors.Is(err, version.ErrUnknownStrategy):
		writeError(w, http.StatusBadRequest, "INVALID_STRATEGY", err.Error())
		return
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	if desc.Fallback {
		h.logger.Info("version_fallback", "path", desc.Path, "version", desc.Version)
	}
	writeJSON(w, http.StatusOK, desc)
}

// Latest handles GET /api/v1/versions/latest?path=.
func (h *VersionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "path is required")
		return
	}

	desc, ok, err := h.versions.Latest(r.Context(), path)
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "VERSION_NOT_FOUND", "No version issued for path")
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// Compare handles GET /api/v1/versions/compare?a=&b=.
func (h *VersionHandler) Compare(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	a, b := query.Get("a"), query.Get("b")
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "a and b are required")
		return
	}
	writeJSON(w, http.StatusOK, dto.CompareResponse{A: a, B: b, Result: h.versions.Compare(a, b)})
}
