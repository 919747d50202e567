package alerting

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/assetwatch/assetwatch/internal/metrics"
	"github.com/assetwatch/assetwatch/internal/webhook"
)

type fakeSender struct {
	mu         sync.Mutex
	deliveries []webhook.Delivery
	err        error
}

func (f *fakeSender) Send(ctx context.Context, d webhook.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, d)
	return f.err
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	rec := metrics.NewInMemory()
	w := NewWebhook(sender, quietLogger(), rec)

	w.AlertOpened(testAlert("w1"))
	w.AlertResolved(testAlert("w1"))
	drain(t, w)

	if len(sender.deliveries) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(sender.deliveries))
	}
	events := map[string]bool{}
	ids := map[string]bool{}
	for _, d := range sender.deliveries {
		var payload EventPayload
		if err := json.Unmarshal(d.Body, &payload); err != nil {
			t.Fatalf("body is not an EventPayload: %v", err)
		}
		if payload.Event != d.Event || payload.Alert.ID != "w1" {
			t.Errorf("payload = %+v, delivery event %q", payload, d.Event)
		}
		events[d.Event] = true
		ids[d.ID] = true
	}
	if !events[EventOpened] || !events[EventResolved] {
		t.Errorf("events = %v", events)
	}
	if len(ids) != 2 {
		t.Error("delivery ids are not unique")
	}
	if snap := rec.Snapshot(); snap.AlertDeliveries != 2 || snap.AlertDeliveryFailures != 0 {
		t.Errorf("deliveries = %d/%d, want 2/0", snap.AlertDeliveries, snap.AlertDeliveryFailures)
	}
}

func TestWebhook_FailureCounted(t *testing.T) {
	t.Parallel()

	rec := metrics.NewInMemory()
	w := NewWebhook(&fakeSender{err: errors.New("endpoint down")}, quietLogger(), rec)
	w.AlertOpened(testAlert("w2"))
	drain(t, w)

	if got := rec.Snapshot().AlertDeliveryFailures; got != 1 {
		t.Errorf("AlertDeliveryFailures = %d, want 1", got)
	}
}

func TestWebhook_SignedEndToEnd(t *testing.T) {
	t.Parallel()

	const secret = "shared-secret"
	received := make(chan EventPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ts, _ := strconv.ParseInt(r.Header.Get(webhook.HeaderTimestamp), 10, 64)
		expected := webhook.GenerateSignature(secret, ts, body)
		if !hmac.Equal([]byte(expected), []byte(r.Header.Get(webhook.HeaderSignature))) {
			rw.WriteHeader(http.StatusUnauthorized)
			return
		}
		var payload EventPayload
		_ = json.Unmarshal(body, &payload)
		received <- payload
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(webhook.NewSender(srv.URL, secret), quietLogger(), nil)
	if err := w.Send(context.Background(), EventOpened, testAlert("e2e")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case payload := <-received:
		if payload.Alert.ID != "e2e" || payload.Event != EventOpened {
			t.Errorf("payload = %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver got nothing")
	}
}
