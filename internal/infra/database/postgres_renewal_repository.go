package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"physician_credential_tracker/internal/domain/credential"
	"physician_credential_tracker/internal/domain/renewal"

	"github.com/lib/pq"
)

type PostgresRenewalRepository struct {
	db *sql.DB
}

func NewPostgresRenewalRepository(db *sql.DB) *PostgresRenewalRepository {
	return &PostgresRenewalRepository{db: db}
}

var terminalStatuses = []string{
	string(renewal.StatusApproved),
	string(renewal.StatusRejected),
	string(renewal.StatusExpired),
}

const workflowColumns = `id, physician_id, entity_type, entity_id, renewal_status, next_action_required,
               next_action_due_date, progress_percentage, application_date, filed_date, approval_date,
               rejection_date, rejection_reason, created_by, updated_by, created_at, updated_at`

// Create inserts the workflow and its checklist items in one transaction.
func (r *PostgresRenewalRepository) Create(ctx context.Context, w *renewal.Workflow) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for workflow create: %w", err)
	}
	defer txn.Rollback()

	query := `INSERT INTO renewal_workflows (id, physician_id, entity_type, entity_id, renewal_status,
                       next_action_required, next_action_due_date, progress_percentage, application_date,
                       filed_date, approval_date, rejection_date, rejection_reason, created_by, updated_by)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
               RETURNING created_at, updated_at`
	err = txn.QueryRowContext(ctx, query,
		w.ID, w.PhysicianID, w.EntityType, w.EntityID, w.RenewalStatus,
		w.NextActionRequired, w.NextActionDueDate, w.ProgressPercentage, w.ApplicationDate,
		w.FiledDate, w.ApprovalDate, w.RejectionDate, w.RejectionReason, w.CreatedBy, w.UpdatedBy,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating renewal workflow: %w", err)
	}

	if err := insertChecklist(ctx, txn, w.ID, w.Checklist); err != nil {
		return err
	}
	return txn.Commit()
}

// Update rewrites the workflow row and replaces its checklist. Replacing the
// checklist wholesale keeps item ordering and toggles consistent with the
// in-memory representation the services mutate.
func (r *PostgresRenewalRepository) Update(ctx context.Context, w *renewal.Workflow) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for workflow update: %w", err)
	}
	defer txn.Rollback()

	query := `UPDATE renewal_workflows
               SET renewal_status = $1, next_action_required = $2, next_action_due_date = $3,
                   progress_percentage = $4, application_date = $5, filed_date = $6, approval_date = $7,
                   rejection_date = $8, rejection_reason = $9, updated_by = $10, updated_at = NOW()
               WHERE id = $11
               RETURNING updated_at`
	err = txn.QueryRowContext(ctx, query,
		w.RenewalStatus, w.NextActionRequired, w.NextActionDueDate,
		w.ProgressPercentage, w.ApplicationDate, w.FiledDate, w.ApprovalDate,
		w.RejectionDate, w.RejectionReason, w.UpdatedBy, w.ID,
	).Scan(&w.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return renewal.ErrWorkflowNotFound
		}
		return fmt.Errorf("error updating renewal workflow: %w", err)
	}

	if _, err := txn.ExecContext(ctx, `DELETE FROM renewal_checklist_items WHERE workflow_id = $1`, w.ID); err != nil {
		return fmt.Errorf("error clearing checklist items: %w", err)
	}
	if err := insertChecklist(ctx, txn, w.ID, w.Checklist); err != nil {
		return err
	}
	return txn.Commit()
}

func insertChecklist(ctx context.Context, txn *sql.Tx, workflowID string, items []renewal.ChecklistItem) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := txn.PrepareContext(ctx, `INSERT INTO renewal_checklist_items
               (id, workflow_id, task, completed, required, due_date, position)
               VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for checklist insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		if _, err := stmt.ExecContext(ctx, item.ID, workflowID, item.Task, item.Completed, item.Required, item.DueDate, i); err != nil {
			return fmt.Errorf("error inserting checklist item %q: %w", item.Task, err)
		}
	}
	return nil
}

func (r *PostgresRenewalRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM renewal_workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting renewal workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error counting deleted workflows: %w", err)
	}
	if affected == 0 {
		return renewal.ErrWorkflowNotFound
	}
	return nil
}

func (r *PostgresRenewalRepository) GetByID(ctx context.Context, id string) (*renewal.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM renewal_workflows WHERE id = $1`
	w, err := r.scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadChecklist(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *PostgresRenewalRepository) GetActiveByEntity(ctx context.Context, entityType credential.EntityType, entityID string) (*renewal.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM renewal_workflows
               WHERE entity_type = $1 AND entity_id = $2 AND renewal_status != ALL($3::varchar[])
               ORDER BY created_at DESC LIMIT 1`
	w, err := r.scanWorkflow(r.db.QueryRowContext(ctx, query, entityType, entityID, pq.Array(terminalStatuses)))
	if err != nil {
		return nil, err
	}
	if err := r.loadChecklist(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *PostgresRenewalRepository) ListActive(ctx context.Context) ([]*renewal.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM renewal_workflows
               WHERE renewal_status != ALL($1::varchar[])
               ORDER BY next_action_due_date ASC`
	return r.listWithChecklists(ctx, query, pq.Array(terminalStatuses))
}

func (r *PostgresRenewalRepository) ListByPhysician(ctx context.Context, physicianID string) ([]*renewal.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM renewal_workflows
               WHERE physician_id = $1
               ORDER BY created_at DESC`
	return r.listWithChecklists(ctx, query, physicianID)
}

func (r *PostgresRenewalRepository) ListAll(ctx context.Context) ([]*renewal.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM renewal_workflows ORDER BY created_at DESC`
	return r.listWithChecklists(ctx, query)
}

func (r *PostgresRenewalRepository) ListActiveDueBy(ctx context.Context, by time.Time) ([]*renewal.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM renewal_workflows
               WHERE renewal_status != ALL($1::varchar[]) AND next_action_due_date <= $2
               ORDER BY next_action_due_date ASC`
	return r.listWithChecklists(ctx, query, pq.Array(terminalStatuses), by)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRenewalRepository) scanWorkflow(row rowScanner) (*renewal.Workflow, error) {
	w := renewal.Workflow{}
	err := row.Scan(
		&w.ID, &w.PhysicianID, &w.EntityType, &w.EntityID, &w.RenewalStatus, &w.NextActionRequired,
		&w.NextActionDueDate, &w.ProgressPercentage, &w.ApplicationDate, &w.FiledDate, &w.ApprovalDate,
		&w.RejectionDate, &w.RejectionReason, &w.CreatedBy, &w.UpdatedBy, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, renewal.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("error scanning renewal workflow: %w", err)
	}
	return &w, nil
}

func (r *PostgresRenewalRepository) loadChecklist(ctx context.Context, w *renewal.Workflow) error {
	query := `SELECT id, task, completed, required, due_date
               FROM renewal_checklist_items
               WHERE workflow_id = $1 ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, w.ID)
	if err != nil {
		return fmt.Errorf("error querying checklist items: %w", err)
	}
	defer rows.Close()

	items := make([]renewal.ChecklistItem, 0)
	for rows.Next() {
		item := renewal.ChecklistItem{}
		if err := rows.Scan(&item.ID, &item.Task, &item.Completed, &item.Required, &item.DueDate); err != nil {
			return fmt.Errorf("error scanning checklist item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating checklist item rows: %w", err)
	}
	w.Checklist = items
	return nil
}

func (r *PostgresRenewalRepository) listWithChecklists(ctx context.Context, query string, args ...any) ([]*renewal.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying renewal workflows: %w", err)
	}
	defer rows.Close()

	workflows := make([]*renewal.Workflow, 0)
	for rows.Next() {
		w, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating renewal workflow rows: %w", err)
	}

	for _, w := range workflows {
		if err := r.loadChecklist(ctx, w); err != nil {
			return nil, err
		}
	}
	return workflows, nil
}
