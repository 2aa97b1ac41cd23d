package database

import (
	"context"
	"database/sql"
	"fmt"

	"physician_credential_tracker/internal/domain/credential"
)

// PostgresCredentialRepository reads credential records maintained by the CRUD
// layer. The engines never write credentials, so only queries live here.
type PostgresCredentialRepository struct {
	db *sql.DB
}

func NewPostgresCredentialRepository(db *sql.DB) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{db: db}
}

func (r *PostgresCredentialRepository) ListLicenses(ctx context.Context, physicianID string) ([]*credential.License, error) {
	query := `SELECT id, physician_id, state, license_type, expiration_date, is_active, created_at, updated_at
               FROM medical_licenses
               WHERE physician_id = $1 AND is_active = TRUE ORDER BY expiration_date`
	rows, err := r.db.QueryContext(ctx, query, physicianID)
	if err != nil {
		return nil, fmt.Errorf("error querying licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]*credential.License, 0)
	for rows.Next() {
		l := &credential.License{}
		if err := rows.Scan(&l.ID, &l.PhysicianID, &l.State, &l.LicenseType, &l.ExpirationDate, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning license row: %w", err)
		}
		licenses = append(licenses, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating license rows: %w", err)
	}
	return licenses, nil
}

func (r *PostgresCredentialRepository) ListDEARegistrations(ctx context.Context, physicianID string) ([]*credential.DEARegistration, error) {
	query := `SELECT id, physician_id, state, schedules, expire_date, is_active, created_at, updated_at
               FROM dea_registrations
               WHERE physician_id = $1 AND is_active = TRUE ORDER BY expire_date`
	rows, err := r.db.QueryContext(ctx, query, physicianID)
	if err != nil {
		return nil, fmt.Errorf("error querying DEA registrations: %w", err)
	}
	defer rows.Close()

	regs := make([]*credential.DEARegistration, 0)
	for rows.Next() {
		d := &credential.DEARegistration{}
		if err := rows.Scan(&d.ID, &d.PhysicianID, &d.State, &d.Schedules, &d.ExpireDate, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning DEA registration row: %w", err)
		}
		regs = append(regs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating DEA registration rows: %w", err)
	}
	return regs, nil
}

func (r *PostgresCredentialRepository) ListCSRLicenses(ctx context.Context, physicianID string) ([]*credential.CSRLicense, error) {
	query := `SELECT id, physician_id, state, expire_date, is_active, created_at, updated_at
               FROM csr_licenses
               WHERE physician_id = $1 AND is_active = TRUE ORDER BY expire_date`
	rows, err := r.db.QueryContext(ctx, query, physicianID)
	if err != nil {
		return nil, fmt.Errorf("error querying CSR licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]*credential.CSRLicense, 0)
	for rows.Next() {
		c := &credential.CSRLicense{}
		if err := rows.Scan(&c.ID, &c.PhysicianID, &c.State, &c.ExpireDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning CSR license row: %w", err)
		}
		licenses = append(licenses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating CSR license rows: %w", err)
	}
	return licenses, nil
}

func (r *PostgresCredentialRepository) ListCertifications(ctx context.Context, physicianID string) ([]*credential.Certification, error) {
	query := `SELECT id, physician_id, board, cert_type, expiration_date, is_active, created_at, updated_at
               FROM board_certifications
               WHERE physician_id = $1 AND is_active = TRUE ORDER BY expiration_date`
	rows, err := r.db.QueryContext(ctx, query, physicianID)
	if err != nil {
		return nil, fmt.Errorf("error querying certifications: %w", err)
	}
	defer rows.Close()

	certs := make([]*credential.Certification, 0)
	for rows.Next() {
		c := &credential.Certification{}
		if err := rows.Scan(&c.ID, &c.PhysicianID, &c.Board, &c.CertType, &c.ExpirationDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning certification row: %w", err)
		}
		certs = append(certs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating certification rows: %w", err)
	}
	return certs, nil
}

func (r *PostgresCredentialRepository) FindRef(ctx context.Context, entityType credential.EntityType, entityID string) (*credential.Ref, error) {
	switch entityType {
	case credential.EntityTypeLicense:
		query := `SELECT id, physician_id, state, license_type, expiration_date FROM medical_licenses WHERE id = $1`
		l := credential.License{}
		err := r.db.QueryRowContext(ctx, query, entityID).Scan(&l.ID, &l.PhysicianID, &l.State, &l.LicenseType, &l.ExpirationDate)
		if err != nil {
			return nil, refLookupError("license", err)
		}
		ref := l.Ref()
		return &ref, nil
	case credential.EntityTypeDEA:
		query := `SELECT id, physician_id, state, schedules, expire_date FROM dea_registrations WHERE id = $1`
		d := credential.DEARegistration{}
		err := r.db.QueryRowContext(ctx, query, entityID).Scan(&d.ID, &d.PhysicianID, &d.State, &d.Schedules, &d.ExpireDate)
		if err != nil {
			return nil, refLookupError("DEA registration", err)
		}
		ref := d.Ref()
		return &ref, nil
	case credential.EntityTypeCSR:
		query := `SELECT id, physician_id, state, expire_date FROM csr_licenses WHERE id = $1`
		c := credential.CSRLicense{}
		err := r.db.QueryRowContext(ctx, query, entityID).Scan(&c.ID, &c.PhysicianID, &c.State, &c.ExpireDate)
		if err != nil {
			return nil, refLookupError("CSR license", err)
		}
		ref := c.Ref()
		return &ref, nil
	case credential.EntityTypeCertification:
		query := `SELECT id, physician_id, board, cert_type, expiration_date FROM board_certifications WHERE id = $1`
		c := credential.Certification{}
		err := r.db.QueryRowContext(ctx, query, entityID).Scan(&c.ID, &c.PhysicianID, &c.Board, &c.CertType, &c.ExpirationDate)
		if err != nil {
			return nil, refLookupError("certification", err)
		}
		ref := c.Ref()
		return &ref, nil
	default:
		return nil, credential.ErrInvalidEntityType
	}
}

func refLookupError(kind string, err error) error {
	if err == sql.ErrNoRows {
		return credential.ErrCredentialNotFound
	}
	return fmt.Errorf("error getting %s by ID: %w", kind, err)
}
