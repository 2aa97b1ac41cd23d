// Package memstore provides in-memory repository implementations backed by
// mutex-guarded maps. They mirror the Postgres repositories' semantics,
// including sentinel errors and the notification dedup constraint, and back
// the unit test suites.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"physician_credential_tracker/internal/domain/physician"
)

type PhysicianStore struct {
	mu         sync.RWMutex
	physicians map[string]*physician.Physician
}

func NewPhysicianStore() *PhysicianStore {
	return &PhysicianStore{physicians: make(map[string]*physician.Physician)}
}

func (s *PhysicianStore) Create(_ context.Context, p *physician.Physician) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.physicians[p.ID] = &cp
	return nil
}

func (s *PhysicianStore) GetByID(_ context.Context, id string) (*physician.Physician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.physicians[id]
	if !exists {
		return nil, physician.ErrPhysicianNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *PhysicianStore) Update(_ context.Context, p *physician.Physician) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.physicians[p.ID]; !exists {
		return physician.ErrPhysicianNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	s.physicians[p.ID] = &cp
	return nil
}

func (s *PhysicianStore) ListActive(_ context.Context) ([]*physician.Physician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*physician.Physician, 0)
	for _, p := range s.physicians {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortPhysicians(out)
	return out, nil
}

func (s *PhysicianStore) ListAll(_ context.Context) ([]*physician.Physician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*physician.Physician, 0, len(s.physicians))
	for _, p := range s.physicians {
		cp := *p
		out = append(out, &cp)
	}
	sortPhysicians(out)
	return out, nil
}

func sortPhysicians(ps []*physician.Physician) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].LastName.String != ps[j].LastName.String {
			return ps[i].LastName.String < ps[j].LastName.String
		}
		return ps[i].FirstName < ps[j].FirstName
	})
}
