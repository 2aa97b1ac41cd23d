// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"physician_credential_tracker/internal/domain/credential"
	"physician_credential_tracker/internal/domain/notification"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

const notificationColumns = `id, physician_id, entity_type, entity_id, severity, days_before_expiry,
               notification_date, sent_status, error_message, expiration_date, provider_name,
               license_type, state, read_at, created_at`

// Create inserts a notification. The notifications table carries a unique
// constraint on (entity_id, entity_type, days_before_expiry); a conflicting
// insert is reported as ErrDuplicateNotification so concurrent scans cannot
// double-fire the same lead time.
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `INSERT INTO notifications (id, physician_id, entity_type, entity_id, severity, days_before_expiry,
                       notification_date, sent_status, error_message, expiration_date, provider_name,
                       license_type, state)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
               ON CONFLICT ON CONSTRAINT notifications_dedup_key DO NOTHING
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		n.ID, n.PhysicianID, n.Type, n.EntityID, n.Severity, n.DaysBeforeExpiry,
		n.NotificationDate, n.SentStatus, n.ErrorMessage, n.ExpirationDate, n.ProviderName,
		n.LicenseType, n.State,
	).Scan(&n.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return notification.ErrDuplicateNotification
		}
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n := notification.Notification{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.PhysicianID, &n.Type, &n.EntityID, &n.Severity, &n.DaysBeforeExpiry,
		&n.NotificationDate, &n.SentStatus, &n.ErrorMessage, &n.ExpirationDate, &n.ProviderName,
		&n.LicenseType, &n.State, &n.ReadAt, &n.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notification.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("error getting notification by ID: %w", err)
	}
	return &n, nil
}

func (r *PostgresNotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	query := `UPDATE notifications
               SET sent_status = $1, error_message = $2, read_at = $3
               WHERE id = $4
               RETURNING id`
	var id string
	err := r.db.QueryRowContext(ctx, query, n.SentStatus, n.ErrorMessage, n.ReadAt, n.ID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return notification.ErrNotificationNotFound
		}
		return fmt.Errorf("error updating notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) Exists(ctx context.Context, entityID string, entityType credential.EntityType, daysBeforeExpiry int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM notifications
               WHERE entity_id = $1 AND entity_type = $2 AND days_before_expiry = $3)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, entityID, entityType, daysBeforeExpiry).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking notification existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresNotificationRepository) ListPendingDue(ctx context.Context, asOf time.Time) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
               WHERE sent_status = $1 AND notification_date <= $2
               ORDER BY notification_date ASC`
	return r.list(ctx, query, notification.StatusPending, asOf)
}

func (r *PostgresNotificationRepository) ListFailed(ctx context.Context) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
               WHERE sent_status = $1
               ORDER BY notification_date ASC`
	return r.list(ctx, query, notification.StatusFailed)
}

func (r *PostgresNotificationRepository) ListByPhysician(ctx context.Context, physicianID string) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
               WHERE physician_id = $1
               ORDER BY notification_date DESC`
	return r.list(ctx, query, physicianID)
}

func (r *PostgresNotificationRepository) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
               WHERE notification_date >= $1 AND notification_date <= $2
               ORDER BY notification_date ASC`
	return r.list(ctx, query, from, to)
}

func (r *PostgresNotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old notifications: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting deleted notifications: %w", err)
	}
	return deleted, nil
}

func (r *PostgresNotificationRepository) list(ctx context.Context, query string, args ...any) ([]*notification.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*notification.Notification, 0)
	for rows.Next() {
		n := notification.Notification{}
		if err := rows.Scan(
			&n.ID, &n.PhysicianID, &n.Type, &n.EntityID, &n.Severity, &n.DaysBeforeExpiry,
			&n.NotificationDate, &n.SentStatus, &n.ErrorMessage, &n.ExpirationDate, &n.ProviderName,
			&n.LicenseType, &n.State, &n.ReadAt, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning notification row: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}
