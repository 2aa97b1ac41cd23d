package database

import (
	"context"
	"database/sql"
	"fmt"

	"physician_credential_tracker/internal/domain/physician"
)

type PostgresPhysicianRepository struct {
	db *sql.DB
}

func NewPostgresPhysicianRepository(db *sql.DB) *PostgresPhysicianRepository {
	return &PostgresPhysicianRepository{db: db}
}

func (r *PostgresPhysicianRepository) Create(ctx context.Context, p *physician.Physician) error {
	query := `INSERT INTO physicians (id, first_name, last_name, email, is_active)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, p.ID, p.FirstName, p.LastName, p.Email, p.IsActive).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating physician: %w", err)
	}
	return nil
}

func (r *PostgresPhysicianRepository) GetByID(ctx context.Context, id string) (*physician.Physician, error) {
	query := `SELECT id, first_name, last_name, email, is_active, created_at, updated_at
               FROM physicians WHERE id = $1`
	p := &physician.Physician{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, physician.ErrPhysicianNotFound
		}
		return nil, fmt.Errorf("error getting physician by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPhysicianRepository) Update(ctx context.Context, p *physician.Physician) error {
	query := `UPDATE physicians
               SET first_name = $1, last_name = $2, email = $3, is_active = $4, updated_at = NOW()
               WHERE id = $5
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, p.FirstName, p.LastName, p.Email, p.IsActive, p.ID).
		Scan(&p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return physician.ErrPhysicianNotFound
		}
		return fmt.Errorf("error updating physician: %w", err)
	}
	return nil
}

func (r *PostgresPhysicianRepository) ListActive(ctx context.Context) ([]*physician.Physician, error) {
	return r.list(ctx, `SELECT id, first_name, last_name, email, is_active, created_at, updated_at
               FROM physicians WHERE is_active = TRUE ORDER BY last_name, first_name`)
}

func (r *PostgresPhysicianRepository) ListAll(ctx context.Context) ([]*physician.Physician, error) {
	return r.list(ctx, `SELECT id, first_name, last_name, email, is_active, created_at, updated_at
               FROM physicians ORDER BY last_name, first_name`)
}

func (r *PostgresPhysicianRepository) list(ctx context.Context, query string) ([]*physician.Physician, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying physicians: %w", err)
	}
	defer rows.Close()

	physicians := make([]*physician.Physician, 0)
	for rows.Next() {
		p := &physician.Physician{}
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning physician row: %w", err)
		}
		physicians = append(physicians, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating physician rows: %w", err)
	}
	return physicians, nil
}
