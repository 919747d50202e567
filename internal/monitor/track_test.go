package monitor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTrack(t *testing.T) {
	t.Parallel()

	m, clock := newTestMonitor(t, enabledConfig(10))
	errFetch := errors.New("origin returned 503")

	err := m.Track(context.Background(), "/ok.webp", func(ctx context.Context) error {
		clock.Advance(250 * time.Millisecond)
		return nil
	}, WithCacheHit(true), WithCDNHit(false), WithClientContext("4g"))
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}

	err = m.Track(context.Background(), "/bad.webp", func(ctx context.Context) error {
		clock.Advance(40 * time.Millisecond)
		return errFetch
	})
	if !errors.Is(err, errFetch) {
		t.Fatalf("Track() error = %v, want %v", err, errFetch)
	}

	got := m.Metrics()
	if len(got) != 2 {
		t.Fatalf("recorded %d metrics, want 2", len(got))
	}

	ok := got[0]
	if !ok.Success || ok.LoadTimeMs != 250 || ok.Error != "" {
		t.Errorf("success metric = %+v", ok)
	}
	if !ok.IsCacheHit() || ok.IsCDNHit() || ok.CDNHit == nil {
		t.Errorf("hit flags = cache %v cdn %v", ok.CacheHit, ok.CDNHit)
	}
	if ok.ClientContext != "4g" {
		t.Errorf("ClientContext = %q, want 4g", ok.ClientContext)
	}

	bad := got[1]
	if bad.Success || bad.LoadTimeMs != 40 || bad.Error != errFetch.Error() {
		t.Errorf("failure metric = %+v", bad)
	}
	if !bad.Timestamp.Equal(clock.Now()) {
		t.Errorf("Timestamp = %v, want load completion %v", bad.Timestamp, clock.Now())
	}
}
