package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/assetwatch/assetwatch/internal/handler/dto"
	"github.com/assetwatch/assetwatch/internal/invalidation"
	"github.com/assetwatch/assetwatch/internal/middleware"
	"github.com/assetwatch/assetwatch/internal/model"
)

// MaxBatchPaths bounds a single invalidation request.
const MaxBatchPaths = 1000

// DefaultSmartMaxAge applies when a smart request omits max_age.
const DefaultSmartMaxAge = time.Hour

// Invalidator purges cached assets.
type Invalidator interface {
	BatchInvalidate(ctx context.Context, paths []string) model.BatchResult
	SmartInvalidate(ctx context.Context, path string, opts invalidation.SmartOptions) bool
}

// InvalidationHandler serves the invalidation endpoints.
type InvalidationHandler struct {
	invalidator Invalidator
	logger      *slog.Logger
}

// NewInvalidationHandler creates an InvalidationHandler.
func NewInvalidationHandler(invalidator Invalidator, logger *slog.Logger) *InvalidationHandler {
	return &InvalidationHandler{invalidator: invalidator, logger: logger}
}

// Batch handles POST /api/v1/invalidations.
func (h *InvalidationHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req dto.InvalidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	paths := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := middleware.ValidateAssetPath(p); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PATH", p+": "+err.Error())
			return
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "paths must not be empty")
		return
	}
	if len(paths) > MaxBatchPaths {
		writeError(w, http.StatusBadRequest, "TOO_MANY_PATHS", "too many paths in one request")
		return
	}

	result := h.invalidator.BatchInvalidate(r.Context(), paths)
	h.logger.Info("batch_invalidated",
		"successful", len(result.Successful),
		"failed", len(result.Failed),
	)
	writeJSON(w, http.StatusOK, dto.ToBatchResultResponse(result))
}

// Smart handles POST /api/v1/invalidations/smart.
func (h *InvalidationHandler) Smart(w http.ResponseWriter, r *http.Request) {
	var req dto.SmartInvalidateRequest
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

	maxAge := DefaultSmartMaxAge
	if req.MaxAge != "" {
		parsed, err := time.ParseDuration(req.MaxAge)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "max_age must be a non-negative duration")
			return
		}
		maxAge = parsed
	}

	ok := h.invalidator.SmartInvalidate(r.Context(), req.Path, invalidation.SmartOptions{
		MaxAge: maxAge,
		Force:  req.Force,
	})
	writeJSON(w, http.StatusOK, dto.SmartInvalidateResponse{Path: req.Path, Invalidated: ok})
}
