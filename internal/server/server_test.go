package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func TestServer_ShutdownOrder(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, logger)

	var order []string
	errWorker := errors.New("worker stuck")
	srv.OnShutdown("monitor", func(ctx context.Context) error {
		order = append(order, "monitor")
		return nil
	})
	srv.OnShutdown("ingest", func(ctx context.Context) error {
		order = append(order, "ingest")
		return errWorker
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, errWorker) {
			t.Errorf("Run() error = %v, want %v", err, errWorker)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if len(order) != 2 || order[0] != "ingest" || order[1] != "monitor" {
		t.Errorf("shutdown order = %v, want [ingest monitor]", order)
	}
}

func TestServer_Addr(t *testing.T) {
	t.Parallel()

	srv := New(http.NotFoundHandler(), 8080, time.Second, time.Second, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if srv.Addr() != ":8080" {
		t.Errorf("Addr() = %q, want :8080", srv.Addr())
	}
}
