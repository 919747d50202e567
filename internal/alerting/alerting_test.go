package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/assetwatch/assetwatch/internal/metrics"
	"github.com/assetwatch/assetwatch/internal/model"
	"github.com/assetwatch/assetwatch/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func drain(t *testing.T, d interface{ Drain(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
}

type fakeStream struct {
	mu   sync.Mutex
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.args = append(f.args, a)
	return redis.NewStringResult("1-0", f.err)
}

func testAlert(id string) model.Alert {
	return model.Alert{
		ID:        id,
		Type:      model.AlertTypeError,
		Severity:  model.SeverityHigh,
		Message:   "Error rate 40.00% exceeds threshold 5%",
		Value:     40,
		Threshold: 5,
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStreamPublisher(t *testing.T) {
	t.Parallel()

	stream := &fakeStream{}
	rec := metrics.NewInMemory()
	p := NewStreamPublisher(stream, quietLogger(), rec)

	p.AlertOpened(testAlert("a1"))
	p.AlertResolved(testAlert("a1"))
	drain(t, p)

	if len(stream.args) != 2 {
		t.Fatalf("XAdd calls = %d, want 2", len(stream.args))
	}
	events := map[string]bool{}
	for _, a := range stream.args {
		if a.Stream != StreamKey {
			t.Errorf("Stream = %q, want %q", a.Stream, StreamKey)
		}
		if a.Values.(map[string]interface{})["alert_id"] != "a1" {
			t.Errorf("alert_id = %v", a.Values)
		}

		var payload EventPayload
		raw := a.Values.(map[string]interface{})["payload"].(string)
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			t.Fatalf("payload not JSON: %v", err)
		}
		if payload.Alert.Value != 40 {
			t.Errorf("payload alert = %+v", payload.Alert)
		}
		events[payload.Event] = true
	}
	if !events[EventOpened] || !events[EventResolved] {
		t.Errorf("events = %v, want opened and resolved", events)
	}
	if snap := rec.Snapshot(); snap.AlertDeliveries != 2 || snap.AlertDeliveryFailures != 0 {
		t.Errorf("deliveries = %d/%d, want 2/0", snap.AlertDeliveries, snap.AlertDeliveryFailures)
	}
}

func TestStreamPublisher_FailureCounted(t *testing.T) {
	t.Parallel()

	rec := metrics.NewInMemory()
	p := NewStreamPublisher(&fakeStream{err: errors.New("connection refused")}, quietLogger(), rec)

	p.AlertOpened(testAlert("a1"))
	drain(t, p)

	if snap := rec.Snapshot(); snap.AlertDeliveryFailures != 1 {
		t.Errorf("AlertDeliveryFailures = %d, want 1", snap.AlertDeliveryFailures)
	}
}

// fakeStore follows the SQL: inserts ignore known ids and resolving only
// touches rows with resolved_at unset.
type fakeStore struct {
	mu        sync.Mutex
	rows      map[string]model.Alert
	marks     int
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]model.Alert{}}
}

func (s *fakeStore) InsertAlert(ctx context.Context, alert model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.rows[alert.ID]; !ok {
		s.rows[alert.ID] = alert.Clone()
	}
	return nil
}

func (s *fakeStore) MarkAlertResolved(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks++
	row, ok := s.rows[id]
	if !ok || row.ResolvedAt != nil {
		return repository.ErrAlertNotFound
	}
	row.ResolvedAt = &at
	s.rows[id] = row
	return nil
}

func (s *fakeStore) row(id string) (model.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	return row, ok
}

func TestArchive(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	rec := metrics.NewInMemory()
	a := NewArchive(store, quietLogger(), rec)

	resolvedAt := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
	late := testAlert("late")
	late.Resolved = true
	late.ResolvedAt = &resolvedAt

	a.AlertOpened(testAlert("open"))
	a.AlertResolved(late)
	drain(t, a)

	if row, ok := store.row("open"); !ok || row.ResolvedAt != nil {
		t.Errorf("open alert row = %+v, %v; want archived and unresolved", row, ok)
	}
	row, ok := store.row("late")
	if !ok {
		t.Fatal("alert resolved before archiving was not inserted")
	}
	if row.ResolvedAt == nil || !row.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("resolved_at = %v, want %v", row.ResolvedAt, resolvedAt)
	}
	if snap := rec.Snapshot(); snap.AlertDeliveries != 2 || snap.AlertDeliveryFailures != 0 {
		t.Errorf("deliveries = %d/%d, want 2/0", snap.AlertDeliveries, snap.AlertDeliveryFailures)
	}
}

func TestArchive_ResolveArchivedAlert(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	if err := store.InsertAlert(context.Background(), testAlert("a")); err != nil {
		t.Fatal(err)
	}
	rec := metrics.NewInMemory()
	a := NewArchive(store, quietLogger(), rec)

	resolvedAt := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	resolved := testAlert("a")
	resolved.Resolved = true
	resolved.ResolvedAt = &resolvedAt
	a.AlertResolved(resolved)
	drain(t, a)

	row, _ := store.row("a")
	if row.ResolvedAt == nil || !row.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("resolved_at = %v, want %v", row.ResolvedAt, resolvedAt)
	}
	if rec.Snapshot().AlertDeliveryFailures != 0 {
		t.Error("resolving an archived alert counted as failure")
	}
}

func TestArchive_ResolvedWithoutTimestamp(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	rec := metrics.NewInMemory()
	a := NewArchive(store, quietLogger(), rec)

	a.AlertResolved(testAlert("bare"))
	drain(t, a)

	row, ok := store.row("bare")
	if !ok || row.ResolvedAt == nil || !row.Resolved {
		t.Errorf("row = %+v, %v; want inserted as resolved", row, ok)
	}
	if rec.Snapshot().AlertDeliveryFailures != 0 {
		t.Error("resolve of unarchived alert counted as failure")
	}
}

func TestArchive_StoreFailureSkipsResolve(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.insertErr = errors.New("db down")
	rec := metrics.NewInMemory()
	a := NewArchive(store, quietLogger(), rec)

	a.AlertResolved(testAlert("x"))
	drain(t, a)

	if store.marks != 0 {
		t.Error("resolve attempted after insert failure")
	}
	if rec.Snapshot().AlertDeliveryFailures != 1 {
		t.Error("failure not counted")
	}
}

type countingNotifier struct {
	mu               sync.Mutex
	opened, resolved int
}

func (c *countingNotifier) AlertOpened(model.Alert) {
	c.mu.Lock()
	c.opened++
	c.mu.Unlock()
}

func (c *countingNotifier) AlertResolved(model.Alert) {
	c.mu.Lock()
	c.resolved++
	c.mu.Unlock()
}

type panickingNotifier struct{}

func (panickingNotifier) AlertOpened(model.Alert)   { panic("broken sink") }
func (panickingNotifier) AlertResolved(model.Alert) { panic("broken sink") }

func TestMulti(t *testing.T) {
	t.Parallel()

	first, last := &countingNotifier{}, &countingNotifier{}
	stream := &fakeStream{}
	publisher := NewStreamPublisher(stream, quietLogger(), nil)
	m := NewMulti(quietLogger(), first, nil, panickingNotifier{}, publisher, last)

	if m.Len() != 4 {
		t.Errorf("Len() = %d, want 4 (nil skipped)", m.Len())
	}

	m.AlertOpened(testAlert("a"))
	m.AlertResolved(testAlert("a"))
	drain(t, m)

	for i, n := range []*countingNotifier{first, last} {
		if n.opened != 1 || n.resolved != 1 {
			t.Errorf("notifier %d got opened=%d resolved=%d, want 1/1", i, n.opened, n.resolved)
		}
	}
	if len(stream.args) != 2 {
		t.Errorf("stream publishes = %d, want 2", len(stream.args))
	}
}

func TestDrain_HonoursContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	store := &blockingStore{release: release}
	a := NewArchive(store, quietLogger(), nil)
	a.AlertOpened(testAlert("slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Drain() error = %v, want deadline exceeded", err)
	}
	close(release)
	drain(t, a)
}

func TestDrain_RejectsLateDeliveries(t *testing.T) {
	t.Parallel()

	stream := &fakeStream{}
	rec := metrics.NewInMemory()
	p := NewStreamPublisher(stream, quietLogger(), rec)

	p.AlertOpened(testAlert("before"))
	drain(t, p)
	p.AlertResolved(testAlert("before"))
	drain(t, p)

	if len(stream.args) != 1 {
		t.Errorf("XAdd calls = %d, want 1", len(stream.args))
	}
	if snap := rec.Snapshot(); snap.AlertDeliveries != 1 || snap.AlertDeliveryFailures != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", snap.AlertDeliveries, snap.AlertDeliveryFailures)
	}
}

func TestDrain_ConcurrentDispatch(t *testing.T) {
	t.Parallel()

	p := NewStreamPublisher(&fakeStream{}, quietLogger(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.AlertOpened(testAlert("race"))
			}
		}()
	}
	drain(t, p)
	wg.Wait()
	drain(t, p)
}

type blockingStore struct {
	release chan struct{}
}

func (b *blockingStore) InsertAlert(ctx context.Context, alert model.Alert) error {
	<-b.release
	return nil
}

func (b *blockingStore) MarkAlertResolved(context.Context, string, time.Time) error {
	return nil
}
