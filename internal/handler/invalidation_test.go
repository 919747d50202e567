package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/assetwatch/assetwatch/internal/handler/dto"
	"github.com/assetwatch/assetwatch/internal/invalidation"
)

func newInvalidationRouter(bad ...string) http.Handler {
	failing := map[string]bool{}
	for _, b := range bad {
		failing[b] = true
	}
	coordinator := invalidation.New(invalidation.PurgeFunc(func(ctx context.Context, path string) error {
		if failing[path] {
			return errors.New("purge rejected")
		}
		return nil
	}), invalidation.WithLogger(quietLogger()))

	h := NewInvalidationHandler(coordinator, quietLogger())
	r := chi.NewRouter()
	r.Post("/api/v1/invalidations", h.Batch)
	r.Post("/api/v1/invalidations/smart", h.Smart)
	return r
}

func TestInvalidationHandler_Batch(t *testing.T) {
	t.Parallel()

	router := newInvalidationRouter("/b.png")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/invalidations",
		strings.NewReader(`{"paths":["/a.png","/b.png"," ","/c.png"]}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp dto.BatchResultResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode batch result: %v", err)
	}
	if strings.Join(resp.Successful, ",") != "/a.png,/c.png" {
		t.Errorf("Successful = %v", resp.Successful)
	}
	if strings.Join(resp.Failed, ",") != "/b.png" {
		t.Errorf("Failed = %v", resp.Failed)
	}
	if resp.Total != 3 {
		t.Errorf("Total = %d, want 3", resp.Total)
	}
}

func TestInvalidationHandler_BatchInvalid(t *testing.T) {
	t.Parallel()

	tooMany := make([]string, MaxBatchPaths+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("%q", fmt.Sprintf("/p%d", i))
	}

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed", `{"paths":`, "INVALID_JSON"},
		{"empty", `{"paths":[]}`, "INVALID_REQUEST"},
		{"blank only", `{"paths":[""," "]}`, "INVALID_REQUEST"},
		{"absolute url", `{"paths":["/a.png","https://x.example.com/b.png"]}`, "INVALID_PATH"},
		{"too many", `{"paths":[` + strings.Join(tooMany, ",") + `]}`, "TOO_MANY_PATHS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newInvalidationRouter()
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/invalidations", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp := decodeError(t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestInvalidationHandler_Smart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantResult bool
	}{
		{"unknown path purged", `{"path":"/a.png","max_age":"1h"}`, http.StatusOK, true},
		{"forced", `{"path":"/a.png","force":true}`, http.StatusOK, true},
		{"purge fails", `{"path":"/bad.png"}`, http.StatusOK, false},
		{"bad max_age", `{"path":"/a.png","max_age":"soon"}`, http.StatusBadRequest, false},
		{"negative max_age", `{"path":"/a.png","max_age":"-1m"}`, http.StatusBadRequest, false},
		{"missing path", `{"max_age":"1h"}`, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newInvalidationRouter("/bad.png")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/invalidations/smart", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp dto.SmartInvalidateResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode smart result: %v", err)
			}
			if resp.Invalidated != tt.wantResult {
				t.Errorf("Invalidated = %v, want %v", resp.Invalidated, tt.wantResult)
			}
		})
	}
}
