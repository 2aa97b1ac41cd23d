package physician

import (
	"database/sql"
	"time"
)

// Physician represents a healthcare provider whose credentials are tracked.
type Physician struct {
	ID        string
	FirstName string
	LastName  sql.NullString // To handle optional last name
	Email     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins first and last name for display in notifications.
func (p *Physician) FullName() string {
	if p.LastName.Valid && p.LastName.String != "" {
		return p.FirstName + " " + p.LastName.String
	}
	return p.FirstName
}
