package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physician_credential_tracker/internal/domain/credential"
	"physician_credential_tracker/internal/domain/notification"
)

func newNotification(id, entityID string, days int) *notification.Notification {
	return &notification.Notification{
		ID:               id,
		PhysicianID:      "phys-1",
		Type:             credential.EntityTypeLicense,
		EntityID:         entityID,
		Severity:         credential.SeverityWarning,
		DaysBeforeExpiry: days,
		NotificationDate: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		SentStatus:       notification.StatusPending,
		ExpirationDate:   time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNotificationStoreDedup(t *testing.T) {
	store := NewNotificationStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newNotification("n-1", "lic-1", 30)))

	err := store.Create(ctx, newNotification("n-2", "lic-1", 30))
	assert.ErrorIs(t, err, notification.ErrDuplicateNotification)

	// Different lead time or credential is a distinct row.
	assert.NoError(t, store.Create(ctx, newNotification("n-3", "lic-1", 7)))
	assert.NoError(t, store.Create(ctx, newNotification("n-4", "lic-2", 30)))
	assert.Equal(t, 3, store.Count())

	exists, err := store.Exists(ctx, "lic-1", credential.EntityTypeLicense, 30)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.Exists(ctx, "lic-1", credential.EntityTypeLicense, 60)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNotificationStoreDedupUnderConcurrency(t *testing.T) {
	store := NewNotificationStore()
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Create(ctx, newNotification(fmt.Sprintf("n-%d", i), "lic-1", 30))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, notification.ErrDuplicateNotification)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, store.Count())
}
