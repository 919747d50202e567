package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInMemoryRecorder_Counters(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncMetricRecorded("retained")
	m.IncMetricRecorded("retained")
	m.IncMetricRecorded("sampled_out")
	m.IncMetricRecorded("disabled")
	m.SetBufferSize(7)
	m.IncAlertOpened("performance")
	m.IncAlertResolved("performance")
	m.SetActiveAlerts(3)
	m.IncInvalidation("success")
	m.IncInvalidation("failed")
	m.IncInvalidation("failed")
	m.ObserveInvalidationDuration(2 * time.Millisecond)
	m.IncIngestEvent("dead_lettered")

	snap := m.Snapshot()
	if snap.MetricsRetained != 2 {
		t.Errorf("MetricsRetained = %d, want 2", snap.MetricsRetained)
	}
	if snap.MetricsSampledOut != 1 || snap.MetricsDisabled != 1 {
		t.Errorf("sampled_out/disabled = %d/%d, want 1/1", snap.MetricsSampledOut, snap.MetricsDisabled)
	}
	if snap.BufferSize != 7 {
		t.Errorf("BufferSize = %d, want 7", snap.BufferSize)
	}
	if snap.ActiveAlerts != 3 {
		t.Errorf("ActiveAlerts = %d, want 3", snap.ActiveAlerts)
	}
	if snap.InvalidationsSucceeded != 1 || snap.InvalidationsFailed != 2 {
		t.Errorf("invalidations = %d/%d, want 1/2", snap.InvalidationsSucceeded, snap.InvalidationsFailed)
	}
	if snap.InvalidationDurationTotalNs != int64(2*time.Millisecond) {
		t.Errorf("InvalidationDurationTotalNs = %d", snap.InvalidationDurationTotalNs)
	}
	if snap.IngestDeadLettered != 1 {
		t.Errorf("IngestDeadLettered = %d, want 1", snap.IngestDeadLettered)
	}
}

func TestPrometheusRecorder_Exposition(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.IncMetricRecorded("retained")
	p.IncAlertOpened("error")
	p.SetActiveAlerts(1)
	p.IncInvalidation("success")
	p.ObserveHTTPRequest(http.MethodGet, "/api/v1/stats", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`assetwatch_sampler_metrics_total{status="retained"} 1`,
		`assetwatch_alerts_opened_total{type="error"} 1`,
		`assetwatch_alerts_active 1`,
		`assetwatch_invalidation_paths_total{status="success"} 1`,
		`assetwatch_http_requests_total{method="GET",route="/api/v1/stats",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNoopRecorder_DoesNotPanic(t *testing.T) {
	t.Parallel()

	r := NewNoop()
	r.IncMetricRecorded("retained")
	r.SetBufferSize(1)
	r.IncAlertOpened("error")
	r.IncAlertResolved("error")
	r.SetActiveAlerts(0)
	r.ObserveAlertCheckDuration(time.Millisecond)
	r.IncInvalidation("success")
	r.ObserveInvalidationDuration(time.Millisecond)
	r.ObserveBatchSize(3)
	r.IncIngestEvent("success")
	r.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
}
