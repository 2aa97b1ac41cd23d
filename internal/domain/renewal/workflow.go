package renewal

import (
	"database/sql"
	"time"

	"physician_credential_tracker/internal/domain/credential"
)

// Status is the renewal workflow state. Intended flow:
// not_started -> in_progress -> filed -> under_review -> approved | rejected,
// with expired reachable from any non-terminal state via the auto-expire sweep.
type Status string

const (
	StatusNotStarted  Status = "not_started"
	StatusInProgress  Status = "in_progress"
	StatusFiled       Status = "filed"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusExpired     Status = "expired"
)

// Valid reports whether s is one of the known workflow statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusFiled, StatusUnderReview,
		StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// ChecklistItem is one task in a workflow's renewal checklist. Items are owned
// exclusively by their workflow and regenerated from the entity-type and
// jurisdiction template when a workflow is initiated.
type ChecklistItem struct {
	ID        string
	Task      string
	Completed bool
	Required  bool
	DueDate   sql.NullTime
}

// Workflow tracks the renewal of a single credential. At most one
// non-terminal workflow may exist per (EntityType, EntityID) at a time.
type Workflow struct {
	ID                 string
	PhysicianID        string
	EntityType         credential.EntityType
	EntityID           string
	RenewalStatus      Status
	NextActionRequired string
	NextActionDueDate  time.Time
	ProgressPercentage int
	Checklist          []ChecklistItem
	ApplicationDate    sql.NullTime
	FiledDate          sql.NullTime
	ApprovalDate       sql.NullTime
	RejectionDate      sql.NullTime
	RejectionReason    sql.NullString
	CreatedBy          string
	UpdatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RecalculateProgress recomputes ProgressPercentage as the share of completed
// items over all items, rounded to the nearest integer.
func (w *Workflow) RecalculateProgress() {
	if len(w.Checklist) == 0 {
		w.ProgressPercentage = 0
		return
	}
	completed := 0
	for _, item := range w.Checklist {
		if item.Completed {
			completed++
		}
	}
	w.ProgressPercentage = (completed*100 + len(w.Checklist)/2) / len(w.Checklist)
}
