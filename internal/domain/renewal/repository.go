package renewal

import (
	"context"
	"errors"
	"time"

	"physician_credential_tracker/internal/domain/credential"
)

var ErrWorkflowNotFound = errors.New("renewal workflow not found")
var ErrChecklistItemNotFound = errors.New("checklist item not found")

// ErrActiveWorkflowExists is returned when a renewal is initiated for an
// entity that already has a non-terminal workflow.
var ErrActiveWorkflowExists = errors.New("an active renewal workflow already exists for this credential")

var ErrInvalidStatus = errors.New("invalid renewal status")

// ErrTerminalWorkflow is returned when a status update targets a workflow that
// has already reached approved, rejected or expired.
var ErrTerminalWorkflow = errors.New("renewal workflow is in a terminal state")

// Repository defines operations for persisting and querying renewal workflows
// together with their checklists.
type Repository interface {
	Create(ctx context.Context, w *Workflow) error
	GetByID(ctx context.Context, id string) (*Workflow, error)
	Update(ctx context.Context, w *Workflow) error
	Delete(ctx context.Context, id string) error

	// GetActiveByEntity returns the single non-terminal workflow for the given
	// credential, or ErrWorkflowNotFound when none exists.
	GetActiveByEntity(ctx context.Context, entityType credential.EntityType, entityID string) (*Workflow, error)

	ListActive(ctx context.Context) ([]*Workflow, error)
	ListByPhysician(ctx context.Context, physicianID string) ([]*Workflow, error)
	ListAll(ctx context.Context) ([]*Workflow, error)

	// ListActiveDueBy returns active workflows whose NextActionDueDate is at or
	// before the given time, soonest first.
	ListActiveDueBy(ctx context.Context, by time.Time) ([]*Workflow, error)
}
