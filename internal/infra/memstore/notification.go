package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"physician_credential_tracker/internal/domain/credential"
	"physician_credential_tracker/internal/domain/notification"
)

type NotificationStore struct {
	mu            sync.Mutex
	notifications map[string]*notification.Notification
	dedup         map[string]struct{} // (entity_id, entity_type, days_before_expiry)
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		notifications: make(map[string]*notification.Notification),
		dedup:         make(map[string]struct{}),
	}
}

func dedupKey(entityID string, entityType credential.EntityType, days int) string {
	return fmt.Sprintf("%s|%s|%d", entityID, entityType, days)
}

// Create enforces the same uniqueness the Postgres constraint does: the dedup
// set is checked and claimed under one lock, so concurrent scans cannot both
// insert the same (entity, type, lead time) notification.
func (s *NotificationStore) Create(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupKey(n.EntityID, n.Type, n.DaysBeforeExpiry)
	if _, exists := s.dedup[key]; exists {
		return notification.ErrDuplicateNotification
	}
	s.dedup[key] = struct{}{}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *NotificationStore) GetByID(_ context.Context, id string) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.notifications[id]
	if !exists {
		return nil, notification.ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *NotificationStore) Update(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notifications[n.ID]; !exists {
		return notification.ErrNotificationNotFound
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *NotificationStore) Exists(_ context.Context, entityID string, entityType credential.EntityType, daysBeforeExpiry int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.dedup[dedupKey(entityID, entityType, daysBeforeExpiry)]
	return exists, nil
}

func (s *NotificationStore) ListPendingDue(_ context.Context, asOf time.Time) ([]*notification.Notification, error) {
	return s.filter(func(n *notification.Notification) bool {
		return n.SentStatus == notification.StatusPending && !n.NotificationDate.After(asOf)
	}), nil
}

func (s *NotificationStore) ListFailed(_ context.Context) ([]*notification.Notification, error) {
	return s.filter(func(n *notification.Notification) bool {
		return n.SentStatus == notification.StatusFailed
	}), nil
}

func (s *NotificationStore) ListByPhysician(_ context.Context, physicianID string) ([]*notification.Notification, error) {
	return s.filter(func(n *notification.Notification) bool {
		return n.PhysicianID == physicianID
	}), nil
}

func (s *NotificationStore) ListScheduledBetween(_ context.Context, from, to time.Time) ([]*notification.Notification, error) {
	return s.filter(func(n *notification.Notification) bool {
		return !n.NotificationDate.Before(from) && !n.NotificationDate.After(to)
	}), nil
}

func (s *NotificationStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, n := range s.notifications {
		if n.CreatedAt.Before(cutoff) {
			delete(s.notifications, id)
			delete(s.dedup, dedupKey(n.EntityID, n.Type, n.DaysBeforeExpiry))
			deleted++
		}
	}
	return deleted, nil
}

// Count returns the total number of stored notifications. Test helper.
func (s *NotificationStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

func (s *NotificationStore) filter(keep func(*notification.Notification) bool) []*notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*notification.Notification, 0)
	for _, n := range s.notifications {
		if keep(n) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NotificationDate.Before(out[j].NotificationDate) })
	return out
}
