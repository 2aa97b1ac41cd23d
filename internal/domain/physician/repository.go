package physician

import (
	"context"
	"errors"
)

// ErrPhysicianNotFound is returned by repositories when no physician matches the lookup.
var ErrPhysicianNotFound = errors.New("physician not found")

// Repository defines the operations for persisting and retrieving Physician entities.
type Repository interface {
	Create(ctx context.Context, p *Physician) error
	GetByID(ctx context.Context, id string) (*Physician, error)
	Update(ctx context.Context, p *Physician) error
	ListActive(ctx context.Context) ([]*Physician, error)
	ListAll(ctx context.Context) ([]*Physician, error)
}
