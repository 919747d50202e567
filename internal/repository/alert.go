package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/assetwatch/assetwatch/internal/model"
)

// ErrAlertNotFound is returned when no open alert matches.
var ErrAlertNotFound = errors.New("alert not found")

const alertColumns = `id, type, severity, message, value, threshold, paths, supporting_metrics, created_at, resolved_at`

// InsertAlert archives an alert. Re-inserting a known id is a no-op.
func (r *Repository) InsertAlert(ctx context.Context, alert model.Alert) error {
	supporting, err := json.Marshal(supportingOrEmpty(alert.SupportingMetrics))
	if err != nil {
		return fmt.Errorf("marshal supporting metrics: %w", err)
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = r.pool.Exec(ctx, query,
		alert.ID,
		string(alert.Type),
		string(alert.Severity),
		alert.Message,
		alert.Value,
		alert.Threshold,
		pq.Array(supportingPaths(alert.SupportingMetrics)),
		supporting,
		alert.CreatedAt,
		alert.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// MarkAlertResolved stamps resolved_at on an open alert.
func (r *Repository) MarkAlertResolved(ctx context.Context, id string, resolvedAt time.Time) error {
	query := `
		UPDATE alerts
		SET resolved_at = $2
		WHERE id = $1 AND resolved_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, resolvedAt)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// GetAlert loads one archived alert.
func (r *Repository) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	return scanAlert(r.pool.QueryRow(ctx, query, id))
}

// ListRecentAlerts returns up to limit alerts, newest first.
func (r *Repository) ListRecentAlerts(ctx context.Context, limit int) ([]*model.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + alertColumns + ` FROM alerts ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*model.Alert, 0, limit)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// ListAlertsByPath returns alerts whose supporting sample touched path.
func (r *Repository) ListAlertsByPath(ctx context.Context, path string, limit int) ([]*model.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE $1 = ANY(paths) ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, path, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts by path: %w", err)
	}
	defer rows.Close()

	var alerts []*model.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (*model.Alert, error) {
	var (
		alert      model.Alert
		alertType  string
		severity   string
		paths      []string
		supporting []byte
	)

	err := row.Scan(
		&alert.ID,
		&alertType,
		&severity,
		&alert.Message,
		&alert.Value,
		&alert.Threshold,
		pq.Array(&paths),
		&supporting,
		&alert.CreatedAt,
		&alert.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	alert.Type = model.AlertType(alertType)
	alert.Severity = model.AlertSeverity(severity)
	alert.Resolved = alert.ResolvedAt != nil
	if len(supporting) > 0 {
		if err := json.Unmarshal(supporting, &alert.SupportingMetrics); err != nil {
			return nil, fmt.Errorf("decode supporting metrics: %w", err)
		}
	}
	return &alert, nil
}

// supportingPaths lists the distinct paths in first-seen order.
func supportingPaths(metrics []model.PerformanceMetric) []string {
	seen := make(map[string]bool, len(metrics))
	paths := make([]string, 0, len(metrics))
	for _, m := range metrics {
		if seen[m.Path] {
			continue
		}
		seen[m.Path] = true
		paths = append(paths, m.Path)
	}
	return paths
}

func supportingOrEmpty(metrics []model.PerformanceMetric) []model.PerformanceMetric {
	if metrics == nil {
		return []model.PerformanceMetric{}
	}
	return metrics
}
