package credential

import (
	"errors"
	"time"
)

// EntityType identifies which kind of credential a record refers to.
type EntityType string

const (
	EntityTypeLicense       EntityType = "license"
	EntityTypeDEA           EntityType = "dea"
	EntityTypeCSR           EntityType = "csr"
	EntityTypeCertification EntityType = "certification"
)

var ErrCredentialNotFound = errors.New("credential not found")
var ErrInvalidEntityType = errors.New("invalid credential entity type")

// Valid reports whether t is one of the known credential entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeLicense, EntityTypeDEA, EntityTypeCSR, EntityTypeCertification:
		return true
	}
	return false
}

// Ref is the uniform view of a credential the engines operate on. The concrete
// variants name their expiration field differently (licenses and certifications
// use ExpirationDate, DEA and CSR use ExpireDate); Ref papers over that split.
type Ref struct {
	EntityID       string
	Type           EntityType
	PhysicianID    string
	State          string
	Label          string
	Detail         string // short qualifier, e.g. the license or certification type
	ExpirationDate time.Time
}

// License is a state medical license.
type License struct {
	ID             string
	PhysicianID    string
	State          string
	LicenseType    string // e.g. MD, DO
	ExpirationDate time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (l *License) Ref() Ref {
	return Ref{
		EntityID:       l.ID,
		Type:           EntityTypeLicense,
		PhysicianID:    l.PhysicianID,
		State:          l.State,
		Label:          "Medical License",
		Detail:         l.LicenseType,
		ExpirationDate: l.ExpirationDate,
	}
}

// DEARegistration is a federal controlled-substance registration.
type DEARegistration struct {
	ID          string
	PhysicianID string
	State       string
	Schedules   string // e.g. "II-V"
	ExpireDate  time.Time
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (d *DEARegistration) Ref() Ref {
	return Ref{
		EntityID:       d.ID,
		Type:           EntityTypeDEA,
		PhysicianID:    d.PhysicianID,
		State:          d.State,
		Label:          "DEA Registration",
		Detail:         d.Schedules,
		ExpirationDate: d.ExpireDate,
	}
}

// CSRLicense is a state controlled-substance registration.
type CSRLicense struct {
	ID          string
	PhysicianID string
	State       string
	ExpireDate  time.Time
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *CSRLicense) Ref() Ref {
	return Ref{
		EntityID:       c.ID,
		Type:           EntityTypeCSR,
		PhysicianID:    c.PhysicianID,
		State:          c.State,
		Label:          "CSR License",
		ExpirationDate: c.ExpireDate,
	}
}

// Certification is a board certification.
type Certification struct {
	ID             string
	PhysicianID    string
	Board          string
	CertType       string
	ExpirationDate time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c *Certification) Ref() Ref {
	return Ref{
		EntityID:       c.ID,
		Type:           EntityTypeCertification,
		PhysicianID:    c.PhysicianID,
		State:          c.Board,
		Label:          "Board Certification",
		Detail:         c.CertType,
		ExpirationDate: c.ExpirationDate,
	}
}
