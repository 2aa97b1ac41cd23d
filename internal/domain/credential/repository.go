package credential

import (
	"context"
)

// Repository defines read access to credential records. Credentials are created
// and mutated by the CRUD layer outside this core; the engines only read them.
type Repository interface {
	ListLicenses(ctx context.Context, physicianID string) ([]*License, error)
	ListDEARegistrations(ctx context.Context, physicianID string) ([]*DEARegistration, error)
	ListCSRLicenses(ctx context.Context, physicianID string) ([]*CSRLicense, error)
	ListCertifications(ctx context.Context, physicianID string) ([]*Certification, error)

	// FindRef resolves a single credential of the given type to its uniform view.
	// Returns ErrCredentialNotFound when no such credential exists.
	FindRef(ctx context.Context, entityType EntityType, entityID string) (*Ref, error)
}
