package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/assetwatch/assetwatch/internal/handler/dto"
	"github.com/assetwatch/assetwatch/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMonitor struct {
	mu       sync.Mutex
	recorded []model.PerformanceMetric
	window   *model.TimeRange
	active   []model.Alert
	opened   []model.Alert
	resolved map[string]bool
}

func (f *fakeMonitor) Record(m model.PerformanceMetric) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, m)
}

func (f *fakeMonitor) GetStats(window *model.TimeRange) model.MonitoringStats {
	f.window = window
	return model.MonitoringStats{TotalRequests: 3, AvailabilityPercent: 100}
}

func (f *fakeMonitor) GetActiveAlerts() []model.Alert { return f.active }
func (f *fakeMonitor) CheckAlerts() []model.Alert     { return f.opened }

func (f *fakeMonitor) GetAlertStats() model.AlertStats {
	return model.AlertStats{Total: len(f.active), Active: len(f.active)}
}

func (f *fakeMonitor) ResolveAlert(id string) bool {
	if f.resolved[id] {
		return false
	}
	for _, a := range f.active {
		if a.ID == id {
			if f.resolved == nil {
				f.resolved = map[string]bool{}
			}
			f.resolved[id] = true
			return true
		}
	}
	return false
}

var handlerNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newMonitoringRouter(mon *fakeMonitor, sink MetricSink) http.Handler {
	h := NewMonitoringHandler(mon, sink, quietLogger())
	h.now = func() time.Time { return handlerNow }

	r := chi.NewRouter()
	r.Post("/api/v1/metrics", h.RecordMetric)
	r.Get("/api/v1/stats", h.Stats)
	r.Get("/api/v1/alerts", h.ActiveAlerts)
	r.Get("/api/v1/alerts/stats", h.AlertStats)
	r.Post("/api/v1/alerts/check", h.CheckAlerts)
	r.Post("/api/v1/alerts/{id}/resolve", h.ResolveAlert)
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestMonitoringHandler_RecordMetric(t *testing.T) {
	t.Parallel()

	mon := &fakeMonitor{}
	router := newMonitoringRouter(mon, nil)

	body := `{"path":"/img/a.png","load_time_ms":120.5,"success":true,"cache_hit":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/metrics", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(mon.recorded) != 1 {
		t.Fatalf("recorded %d metrics, want 1", len(mon.recorded))
	}
	got := mon.recorded[0]
	if got.Path != "/img/a.png" || got.LoadTimeMs != 120.5 || !got.Success || !got.IsCacheHit() {
		t.Errorf("recorded metric = %+v", got)
	}
	if !got.Timestamp.Equal(handlerNow) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, handlerNow)
	}
}

func TestMonitoringHandler_RecordMetricUsesSink(t *testing.T) {
	t.Parallel()

	mon, sink := &fakeMonitor{}, &fakeMonitor{}
	router := newMonitoringRouter(mon, sink)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/metrics",
		strings.NewReader(`{"path":"/a.png","load_time_ms":5,"success":false,"error":"timeout","timestamp":"2024-06-01T11:00:00Z"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rec.Code)
	}
	if len(mon.recorded) != 0 || len(sink.recorded) != 1 {
		t.Fatalf("monitor=%d sink=%d, want 0/1", len(mon.recorded), len(sink.recorded))
	}
	if want := handlerNow.Add(-time.Hour); !sink.recorded[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", sink.recorded[0].Timestamp, want)
	}
}

func TestMonitoringHandler_RecordMetricInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"empty body", ``, "INVALID_JSON"},
		{"malformed", `{"path":`, "INVALID_JSON"},
		{"unknown field", `{"path":"/a","speed":1}`, "INVALID_JSON"},
		{"missing path", `{"load_time_ms":1,"success":true}`, "INVALID_REQUEST"},
		{"blank path", `{"path":"   ","success":true}`, "INVALID_REQUEST"},
		{"traversal", `{"path":"/a/../b.png","success":true}`, "INVALID_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mon := &fakeMonitor{}
			router := newMonitoringRouter(mon, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/metrics", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if resp := decodeError(t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if len(mon.recorded) != 0 {
				t.Error("invalid request was recorded")
			}
		})
	}
}

func TestMonitoringHandler_StatsWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantWindow *model.TimeRange
	}{
		{"default", "", http.StatusOK, nil},
		{
			"both bounds",
			"?from=2024-06-01T00:00:00Z&to=2024-06-01T06:00:00Z",
			http.StatusOK,
			&model.TimeRange{Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)},
		},
		{
			"from only ends now",
			"?from=2024-06-01T10:00:00Z",
			http.StatusOK,
			&model.TimeRange{Start: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), End: handlerNow},
		},
		{
			"to only spans a day",
			"?to=2024-06-01T06:00:00Z",
			http.StatusOK,
			&model.TimeRange{Start: time.Date(2024, 5, 31, 6, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)},
		},
		{"bad from", "?from=yesterday", http.StatusBadRequest, nil},
		{"inverted", "?from=2024-06-02T00:00:00Z&to=2024-06-01T00:00:00Z", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mon := &fakeMonitor{}
			router := newMonitoringRouter(mon, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/stats"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			switch {
			case tt.wantWindow == nil && mon.window != nil:
				t.Errorf("window = %+v, want default", mon.window)
			case tt.wantWindow != nil && (mon.window == nil ||
				!mon.window.Start.Equal(tt.wantWindow.Start) || !mon.window.End.Equal(tt.wantWindow.End)):
				t.Errorf("window = %+v, want %+v", mon.window, tt.wantWindow)
			}

			var stats model.MonitoringStats
			if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
				t.Fatalf("failed to decode stats: %v", err)
			}
			if stats.TotalRequests != 3 {
				t.Errorf("TotalRequests = %d, want 3", stats.TotalRequests)
			}
		})
	}
}

func TestMonitoringHandler_Alerts(t *testing.T) {
	t.Parallel()

	mon := &fakeMonitor{
		active: []model.Alert{{ID: "a1", Type: model.AlertTypeError}},
		opened: nil,
	}
	router := newMonitoringRouter(mon, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))
	var list dto.AlertListResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode alerts: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].ID != "a1" {
		t.Errorf("alerts = %+v", list.Data)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/check", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("check status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("check with nothing opened should return an empty list, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/stats", nil))
	var stats model.AlertStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode alert stats: %v", err)
	}
	if stats.Active != 1 {
		t.Errorf("Active = %d, want 1", stats.Active)
	}
}

func TestMonitoringHandler_ResolveAlert(t *testing.T) {
	t.Parallel()

	mon := &fakeMonitor{active: []model.Alert{{ID: "a1"}}}
	router := newMonitoringRouter(mon, nil)

	tests := []struct {
		id         string
		wantStatus int
	}{
		{"a1", http.StatusOK},
		{"a1", http.StatusNotFound},
		{"missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/"+tt.id+"/resolve", nil))
		if rec.Code != tt.wantStatus {
			t.Errorf("resolve %s: status = %d, want %d", tt.id, rec.Code, tt.wantStatus)
		}
	}
}
