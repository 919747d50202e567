package alerting

import (
	"context"
	"errors"
	"log/slog"

	"github.com/assetwatch/assetwatch/internal/model"
)

type drainer interface {
	Drain(ctx context.Context) error
}

// Multi fans events out to several notifiers. A panicking notifier does not
// stop the others.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMulti builds a fan-out notifier. Nil entries are skipped.
func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Multi{logger: logger.With("component", "alerting.multi")}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Len returns the number of attached notifiers.
func (m *Multi) Len() int {
	return len(m.notifiers)
}

// AlertOpened forwards to every notifier.
func (m *Multi) AlertOpened(alert model.Alert) {
	for _, n := range m.notifiers {
		m.call(func() { n.AlertOpened(alert) })
	}
}

// AlertResolved forwards to every notifier.
func (m *Multi) AlertResolved(alert model.Alert) {
	for _, n := range m.notifiers {
		m.call(func() { n.AlertResolved(alert) })
	}
}

// Drain waits for every notifier that tracks in-flight deliveries.
func (m *Multi) Drain(ctx context.Context) error {
	var errs []error
	for _, n := range m.notifiers {
		if d, ok := n.(drainer); ok {
			if err := d.Drain(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("alert notifier panicked", "panic", r)
		}
	}()
	fn()
}
