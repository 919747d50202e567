package alerting

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
	// StreamKey is the Redis stream alert events are appended to.
	StreamKey = "stream:alerts"

	// MaxStreamLen caps the stream (approximate trimming).
	MaxStreamLen = 10000
)

// StreamAdder is the slice of the Redis client the publisher uses.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// EventPayload is the JSON body of one delivered event.
type EventPayload struct {
	Event  string      `json:"event"`
	Alert  model.Alert `json:"alert"`
	SentAt time.Time   `json:"sent_at"`
}

// StreamPublisher appends alert events to a Redis stream.
type StreamPublisher struct {
	*dispatcher
	redis StreamAdder
}

// NewStreamPublisher creates a publisher on client.
func NewStreamPublisher(client StreamAdder, logger *slog.Logger, recorder metrics.Recorder) *StreamPublisher {
	return &StreamPublisher{
		dispatcher: newDispatcher("stream", logger, recorder),
		redis:      client,
	}
}

// AlertOpened publishes an opened event.
func (p *StreamPublisher) AlertOpened(alert model.Alert) {
	p.publishAsync(EventOpened, alert)
}

// AlertResolved publishes a resolved event.
func (p *StreamPublisher) AlertResolved(alert model.Alert) {
	p.publishAsync(EventResolved, alert)
}

func (p *StreamPublisher) publishAsync(event string, alert model.Alert) {
	p.dispatch(event, alert, func(ctx context.Context) error {
		_, err := p.Publish(ctx, event, alert)
		return err
	})
}

// Publish appends one event synchronously and returns the stream id.
func (p *StreamPublisher) Publish(ctx context.Context, event string, alert model.Alert) (string, error) {
	data, err := json.Marshal(EventPayload{Event: event, Alert: alert, SentAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("marshal alert: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"event":    event,
			"alert_id": alert.ID,
			"payload":  string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}
