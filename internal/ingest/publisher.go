// Package ingest moves performance metrics through a Redis stream so that
// every API instance feeds one shared monitor.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/assetwatch/assetwatch/internal/metrics"
	"github.com/assetwatch/assetwatch/internal/model"
)

const (
	// StreamKey is the Redis stream for performance metrics.
	StreamKey = "stream:perf_metrics"

	// DeadLetterStreamKey holds metrics that could not be decoded.
	DeadLetterStreamKey = "stream:perf_metrics:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// Publisher enqueues metrics to the stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new metric publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "ingest.publisher"),
		metrics: recorder,
	}
}

// Publish adds a metric to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, payload MetricPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal metric: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

// Record publishes without blocking the caller. It lets the publisher stand
// in for the monitor on the request path. Failures are logged and dropped.
func (p *Publisher) Record(metric model.PerformanceMetric) {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}
	payload := PayloadFromMetric(metric)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, payload)
		if err != nil {
			p.logger.Warn("failed to publish metric",
				"path", payload.Path,
				"error", err,
			)
			p.metrics.IncIngestEvent("dropped")
			return
		}

		p.logger.Debug("metric published",
			"path", payload.Path,
			"stream_id", streamID,
		)
		p.metrics.IncIngestEvent("published")
	}()
}
