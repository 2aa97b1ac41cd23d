package notification

import (
	"database/sql"
	"time"

	"physician_credential_tracker/internal/domain/credential"
)

// SentStatus represents the delivery state of a notification.
type SentStatus string

const (
	StatusPending SentStatus = "pending"
	StatusSent    SentStatus = "sent"
	StatusFailed  SentStatus = "failed"
)

// Notification is one (credential, lead time) pairing that has crossed its
// alert threshold. At most one notification exists per
// (EntityID, Type, DaysBeforeExpiry) tuple; the stores enforce that key.
type Notification struct {
	ID               string
	PhysicianID      string
	Type             credential.EntityType
	EntityID         string
	Severity         credential.Severity
	DaysBeforeExpiry int
	NotificationDate time.Time // ExpirationDate minus DaysBeforeExpiry
	SentStatus       SentStatus
	ErrorMessage     sql.NullString
	ExpirationDate   time.Time
	ProviderName     string
	LicenseType      string
	State            string
	ReadAt           sql.NullTime
	CreatedAt        time.Time
}
