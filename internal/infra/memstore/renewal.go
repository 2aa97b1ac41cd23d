package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"physician_credential_tracker/internal/domain/credential"
	"physician_credential_tracker/internal/domain/renewal"
)

type RenewalStore struct {
	mu        sync.Mutex
	workflows map[string]*renewal.Workflow
}

func NewRenewalStore() *RenewalStore {
	return &RenewalStore{workflows: make(map[string]*renewal.Workflow)}
}

func cloneWorkflow(w *renewal.Workflow) *renewal.Workflow {
	cp := *w
	cp.Checklist = make([]renewal.ChecklistItem, len(w.Checklist))
	copy(cp.Checklist, w.Checklist)
	return &cp
}

func (s *RenewalStore) Create(_ context.Context, w *renewal.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	s.workflows[w.ID] = cloneWorkflow(w)
	return nil
}

func (s *RenewalStore) GetByID(_ context.Context, id string) (*renewal.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.workflows[id]
	if !exists {
		return nil, renewal.ErrWorkflowNotFound
	}
	return cloneWorkflow(w), nil
}

func (s *RenewalStore) Update(_ context.Context, w *renewal.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[w.ID]; !exists {
		return renewal.ErrWorkflowNotFound
	}
	w.UpdatedAt = time.Now()
	s.workflows[w.ID] = cloneWorkflow(w)
	return nil
}

func (s *RenewalStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[id]; !exists {
		return renewal.ErrWorkflowNotFound
	}
	delete(s.workflows, id)
	return nil
}

func (s *RenewalStore) GetActiveByEntity(_ context.Context, entityType credential.EntityType, entityID string) (*renewal.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *renewal.Workflow
	for _, w := range s.workflows {
		if w.EntityType != entityType || w.EntityID != entityID || w.RenewalStatus.Terminal() {
			continue
		}
		if found == nil || w.CreatedAt.After(found.CreatedAt) {
			found = w
		}
	}
	if found == nil {
		return nil, renewal.ErrWorkflowNotFound
	}
	return cloneWorkflow(found), nil
}

func (s *RenewalStore) ListActive(_ context.Context) ([]*renewal.Workflow, error) {
	out := s.filter(func(w *renewal.Workflow) bool { return !w.RenewalStatus.Terminal() })
	sort.Slice(out, func(i, j int) bool { return out[i].NextActionDueDate.Before(out[j].NextActionDueDate) })
	return out, nil
}

func (s *RenewalStore) ListByPhysician(_ context.Context, physicianID string) ([]*renewal.Workflow, error) {
	out := s.filter(func(w *renewal.Workflow) bool { return w.PhysicianID == physicianID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *RenewalStore) ListAll(_ context.Context) ([]*renewal.Workflow, error) {
	out := s.filter(func(*renewal.Workflow) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *RenewalStore) ListActiveDueBy(_ context.Context, by time.Time) ([]*renewal.Workflow, error) {
	out := s.filter(func(w *renewal.Workflow) bool {
		return !w.RenewalStatus.Terminal() && !w.NextActionDueDate.After(by)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].NextActionDueDate.Before(out[j].NextActionDueDate) })
	return out, nil
}

func (s *RenewalStore) filter(keep func(*renewal.Workflow) bool) []*renewal.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*renewal.Workflow, 0)
	for _, w := range s.workflows {
		if keep(w) {
			out = append(out, cloneWorkflow(w))
		}
	}
	return out
}
