package alerting

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/assetwatch/assetwatch/internal/metrics"
	"github.com/assetwatch/assetwatch/internal/model"
	"github.com/assetwatch/assetwatch/internal/repository"
)

// AlertStore persists alerts. *repository.Repository satisfies it.
// MarkAlertResolved returns repository.ErrAlertNotFound when no open row
// matches.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert model.Alert) error
	MarkAlertResolved(ctx context.Context, id string, resolvedAt time.Time) error
}

// Archive writes every alert to durable storage.
type Archive struct {
	*dispatcher
	store AlertStore
}

// NewArchive creates an archive notifier on store.
func NewArchive(store AlertStore, logger *slog.Logger, recorder metrics.Recorder) *Archive {
	return &Archive{
		dispatcher: newDispatcher("archive", logger, recorder),
		store:      store,
	}
}

// AlertOpened inserts the alert.
func (a *Archive) AlertOpened(alert model.Alert) {
	a.dispatch(EventOpened, alert, func(ctx context.Context) error {
		return a.store.InsertAlert(ctx, alert)
	})
}

// AlertResolved marks the archived alert resolved. An alert not yet archived,
// because it opened before the archive was attached or its opened insert has
// not landed, is inserted already resolved.
func (a *Archive) AlertResolved(alert model.Alert) {
	resolvedAt := time.Now().UTC()
	if alert.ResolvedAt != nil {
		resolvedAt = *alert.ResolvedAt
	}
	alert.Resolved = true
	alert.ResolvedAt = &resolvedAt

	a.dispatch(EventResolved, alert, func(ctx context.Context) error {
		if err := a.store.InsertAlert(ctx, alert); err != nil {
			return err
		}
		err := a.store.MarkAlertResolved(ctx, alert.ID, resolvedAt)
		if errors.Is(err, repository.ErrAlertNotFound) {
			// the insert above created the row resolved
			return nil
		}
		return err
	})
}
