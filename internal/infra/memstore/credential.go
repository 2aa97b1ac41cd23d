package memstore

import (
	"context"
	"sort"
	"sync"

	"physician_credential_tracker/internal/domain/credential"
)

// CredentialStore holds credential records seeded by tests or fixtures. The
// engines only read credentials, so writes here are plain Put helpers.
type CredentialStore struct {
	mu             sync.RWMutex
	licenses       map[string]*credential.License
	registrations  map[string]*credential.DEARegistration
	csrLicenses    map[string]*credential.CSRLicense
	certifications map[string]*credential.Certification
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		licenses:       make(map[string]*credential.License),
		registrations:  make(map[string]*credential.DEARegistration),
		csrLicenses:    make(map[string]*credential.CSRLicense),
		certifications: make(map[string]*credential.Certification),
	}
}

func (s *CredentialStore) PutLicense(l *credential.License) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.licenses[l.ID] = &cp
}

func (s *CredentialStore) PutDEARegistration(d *credential.DEARegistration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.registrations[d.ID] = &cp
}

func (s *CredentialStore) PutCSRLicense(c *credential.CSRLicense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.csrLicenses[c.ID] = &cp
}

func (s *CredentialStore) PutCertification(c *credential.Certification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.certifications[c.ID] = &cp
}

func (s *CredentialStore) ListLicenses(_ context.Context, physicianID string) ([]*credential.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*credential.License, 0)
	for _, l := range s.licenses {
		if l.PhysicianID == physicianID && l.IsActive {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpirationDate.Before(out[j].ExpirationDate) })
	return out, nil
}

func (s *CredentialStore) ListDEARegistrations(_ context.Context, physicianID string) ([]*credential.DEARegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*credential.DEARegistration, 0)
	for _, d := range s.registrations {
		if d.PhysicianID == physicianID && d.IsActive {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpireDate.Before(out[j].ExpireDate) })
	return out, nil
}

func (s *CredentialStore) ListCSRLicenses(_ context.Context, physicianID string) ([]*credential.CSRLicense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*credential.CSRLicense, 0)
	for _, c := range s.csrLicenses {
		if c.PhysicianID == physicianID && c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpireDate.Before(out[j].ExpireDate) })
	return out, nil
}

func (s *CredentialStore) ListCertifications(_ context.Context, physicianID string) ([]*credential.Certification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*credential.Certification, 0)
	for _, c := range s.certifications {
		if c.PhysicianID == physicianID && c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpirationDate.Before(out[j].ExpirationDate) })
	return out, nil
}

func (s *CredentialStore) FindRef(_ context.Context, entityType credential.EntityType, entityID string) (*credential.Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch entityType {
	case credential.EntityTypeLicense:
		if l, exists := s.licenses[entityID]; exists {
			ref := l.Ref()
			return &ref, nil
		}
	case credential.EntityTypeDEA:
		if d, exists := s.registrations[entityID]; exists {
			ref := d.Ref()
			return &ref, nil
		}
	case credential.EntityTypeCSR:
		if c, exists := s.csrLicenses[entityID]; exists {
			ref := c.Ref()
			return &ref, nil
		}
	case credential.EntityTypeCertification:
		if c, exists := s.certifications[entityID]; exists {
			ref := c.Ref()
			return &ref, nil
		}
	default:
		return nil, credential.ErrInvalidEntityType
	}
	return nil, credential.ErrCredentialNotFound
}
