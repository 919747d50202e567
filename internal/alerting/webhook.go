package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/assetwatch/assetwatch/internal/metrics"
	"github.com/assetwatch/assetwatch/internal/model"
	"github.com/assetwatch/assetwatch/internal/webhook"
)

// WebhookDeliveryTimeout bounds one webhook delivery including retries.
const WebhookDeliveryTimeout = 15 * time.Second

// Sender posts one signed delivery. *webhook.Sender satisfies it.
type Sender interface {
	Send(ctx context.Context, d webhook.Delivery) error
}

// Webhook posts alert events as signed JSON to an HTTP endpoint.
type Webhook struct {
	*dispatcher
	sender Sender
	now    func() time.Time
}

// NewWebhook creates a webhook notifier on sender.
func NewWebhook(sender Sender, logger *slog.Logger, recorder metrics.Recorder) *Webhook {
	d := newDispatcher("webhook", logger, recorder)
	d.timeout = WebhookDeliveryTimeout
	return &Webhook{dispatcher: d, sender: sender, now: time.Now}
}

// AlertOpened posts an opened event.
func (w *Webhook) AlertOpened(alert model.Alert) {
	w.sendAsync(EventOpened, alert)
}

// AlertResolved posts a resolved event.
func (w *Webhook) AlertResolved(alert model.Alert) {
	w.sendAsync(EventResolved, alert)
}

func (w *Webhook) sendAsync(event string, alert model.Alert) {
	w.dispatch(event, alert, func(ctx context.Context) error {
		return w.Send(ctx, event, alert)
	})
}

// Send posts one event synchronously.
func (w *Webhook) Send(ctx context.Context, event string, alert model.Alert) error {
	body, err := json.Marshal(EventPayload{Event: event, Alert: alert, SentAt: w.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return w.sender.Send(ctx, webhook.Delivery{
		ID:    uuid.NewString(),
		Event: event,
		Body:  body,
	})
}
