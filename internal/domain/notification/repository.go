package notification

import (
	"context"
	"errors"
	"time"

	"physician_credential_tracker/internal/domain/credential"
)

var ErrNotificationNotFound = errors.New("notification not found")

// ErrDuplicateNotification is returned by Create when a notification with the
// same (entity_id, entity_type, days_before_expiry) key already exists. The
// scan treats it as a benign skip.
var ErrDuplicateNotification = errors.New("duplicate notification for (entity, type, lead time)")

// Repository defines operations for persisting and querying notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	Update(ctx context.Context, n *Notification) error

	// Exists reports whether a notification already covers the dedup key.
	Exists(ctx context.Context, entityID string, entityType credential.EntityType, daysBeforeExpiry int) (bool, error)

	// ListPendingDue returns pending notifications whose NotificationDate is at
	// or before asOf, oldest first.
	ListPendingDue(ctx context.Context, asOf time.Time) ([]*Notification, error)
	ListFailed(ctx context.Context) ([]*Notification, error)
	ListByPhysician(ctx context.Context, physicianID string) ([]*Notification, error)

	// ListScheduledBetween returns notifications whose NotificationDate falls in
	// [from, to], soonest first.
	ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*Notification, error)

	// DeleteOlderThan removes notifications created before cutoff and reports
	// how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
