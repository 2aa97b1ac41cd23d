package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"physician_credential_tracker/internal/domain/credential"
	domainDelivery "physician_credential_tracker/internal/domain/delivery"
	"physician_credential_tracker/internal/domain/notification"
	"physician_credential_tracker/internal/domain/physician"
	"physician_credential_tracker/internal/infra/memstore"
)

// stubSender captures delivered messages and can be told to fail.
type stubSender struct {
	mu       sync.Mutex
	sent     []domainDelivery.Message
	failWith error
}

func (s *stubSender) Send(_ context.Context, msg domainDelivery.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type NotificationServiceSuite struct {
	suite.Suite
	physicians *memstore.PhysicianStore
	creds      *memstore.CredentialStore
	notifs     *memstore.NotificationStore
	sender     *stubSender
	service    *NotificationService
	today      time.Time
	ctx        context.Context
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	s.physicians = memstore.NewPhysicianStore()
	s.creds = memstore.NewCredentialStore()
	s.notifs = memstore.NewNotificationStore()
	s.sender = &stubSender{}
	s.today = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = context.Background()

	s.service = NewNotificationService(s.physicians, s.creds, s.notifs, s.sender, testLogger())
	s.service.now = func() time.Time { return s.today }

	s.Require().NoError(s.physicians.Create(s.ctx, &physician.Physician{
		ID:        "phys-1",
		FirstName: "Dana",
		LastName:  sql.NullString{String: "Reyes", Valid: true},
		Email:     "dana.reyes@example.org",
		IsActive:  true,
	}))
}

func (s *NotificationServiceSuite) addLicense(id string, daysOut int, state string) {
	s.creds.PutLicense(&credential.License{
		ID:             id,
		PhysicianID:    "phys-1",
		State:          state,
		LicenseType:    "MD",
		ExpirationDate: s.today.AddDate(0, 0, daysOut),
		IsActive:       true,
	})
}

func (s *NotificationServiceSuite) TestScanIdempotence() {
	s.addLicense("lic-1", 30, "TX")

	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))
	s.Equal(1, s.notifs.Count())

	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))
	s.Equal(1, s.notifs.Count(), "second scan must not duplicate notifications")
}

func (s *NotificationServiceSuite) TestIntervalCoverage() {
	// First observed 31 days out: inside the 60-day window, past the 30-day one.
	s.addLicense("lic-1", 31, "TX")

	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))
	firstScan, err := s.notifs.ListByPhysician(s.ctx, "phys-1")
	s.Require().NoError(err)
	s.Require().Len(firstScan, 1)
	s.Equal(60, firstScan[0].DaysBeforeExpiry)
	s.Equal(credential.SeverityInfo, firstScan[0].Severity)

	// Rerun the scan every day until expiration; each lead time fires once.
	for elapsed := 1; elapsed <= 31; elapsed++ {
		s.today = s.today.AddDate(0, 0, 1)
		s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))
	}

	all, err := s.notifs.ListByPhysician(s.ctx, "phys-1")
	s.Require().NoError(err)
	s.Require().LessOrEqual(len(all), 5)

	leads := make(map[int]int)
	for _, n := range all {
		leads[n.DaysBeforeExpiry]++
	}
	s.Equal(map[int]int{60: 1, 30: 1, 7: 1, 1: 1}, leads)
}

func (s *NotificationServiceSuite) TestScanBeyondHorizonAndExpired() {
	s.addLicense("lic-far", 120, "TX")
	s.addLicense("lic-gone", -5, "TX")

	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))
	s.Equal(0, s.notifs.Count())
}

func (s *NotificationServiceSuite) TestScanSkipsInactivePhysician() {
	s.Require().NoError(s.physicians.Create(s.ctx, &physician.Physician{
		ID: "phys-2", FirstName: "Lee", Email: "lee@example.org", IsActive: false,
	}))
	s.creds.PutLicense(&credential.License{
		ID: "lic-2", PhysicianID: "phys-2", State: "TX", LicenseType: "DO",
		ExpirationDate: s.today.AddDate(0, 0, 10), IsActive: true,
	})

	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))
	s.Equal(0, s.notifs.Count())
}

func (s *NotificationServiceSuite) TestCertificationScanIsSeparate() {
	s.creds.PutCertification(&credential.Certification{
		ID: "cert-1", PhysicianID: "phys-1", Board: "ABIM", CertType: "Internal Medicine",
		ExpirationDate: s.today.AddDate(0, 0, 20), IsActive: true,
	})

	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))
	s.Equal(0, s.notifs.Count(), "license scan must not pick up certifications")

	s.Require().NoError(s.service.CheckCertificationExpirations(s.ctx))
	all, err := s.notifs.ListByPhysician(s.ctx, "phys-1")
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(credential.EntityTypeCertification, all[0].Type)
	s.Equal(30, all[0].DaysBeforeExpiry)
}

func (s *NotificationServiceSuite) TestProcessQueueSendsDue() {
	s.addLicense("lic-1", 1, "CA") // critical window, due immediately
	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))
	s.Require().NoError(s.service.ProcessNotificationQueue(s.ctx))

	all, err := s.notifs.ListByPhysician(s.ctx, "phys-1")
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(notification.StatusSent, all[0].SentStatus)

	s.Require().Equal(1, s.sender.sentCount())
	msg := s.sender.sent[0]
	s.Contains(msg.Subject, "URGENT:")
	s.Contains(msg.Subject, "Dana Reyes")
	s.Equal("dana.reyes@example.org", msg.Recipient)
	s.Equal(credential.SeverityCritical, msg.Severity)
}

func (s *NotificationServiceSuite) TestProcessQueueIgnoresFutureNotifications() {
	future := &notification.Notification{
		ID:               uuid.NewString(),
		PhysicianID:      "phys-1",
		Type:             credential.EntityTypeLicense,
		EntityID:         "lic-9",
		Severity:         credential.SeverityWarning,
		DaysBeforeExpiry: 30,
		NotificationDate: s.today.AddDate(0, 0, 9),
		SentStatus:       notification.StatusPending,
		ExpirationDate:   s.today.AddDate(0, 0, 39),
		ProviderName:     "Dana Reyes",
		State:            "TX",
	}
	s.Require().NoError(s.notifs.Create(s.ctx, future))

	s.Require().NoError(s.service.ProcessNotificationQueue(s.ctx))
	s.Equal(0, s.sender.sentCount())

	stored, err := s.notifs.GetByID(s.ctx, future.ID)
	s.Require().NoError(err)
	s.Equal(notification.StatusPending, stored.SentStatus)
}

func (s *NotificationServiceSuite) TestDeliveryFailuresAreContained() {
	s.addLicense("lic-1", 1, "TX")
	s.addLicense("lic-2", 7, "TX")
	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))

	s.sender.failWith = errors.New("smtp connection refused")
	s.Require().NoError(s.service.ProcessNotificationQueue(s.ctx), "delivery errors must not propagate")

	all, err := s.notifs.ListByPhysician(s.ctx, "phys-1")
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	for _, n := range all {
		s.Equal(notification.StatusFailed, n.SentStatus)
		s.Require().True(n.ErrorMessage.Valid)
		s.Contains(n.ErrorMessage.String, "smtp connection refused")
	}
}

func (s *NotificationServiceSuite) TestRetryFlow() {
	s.addLicense("lic-1", 1, "TX")
	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))

	s.sender.failWith = errors.New("transport down")
	s.Require().NoError(s.service.ProcessNotificationQueue(s.ctx))

	failed, err := s.notifs.ListFailed(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(failed, 1)

	// Transport recovers; the retry resets to pending and resends.
	s.sender.failWith = nil
	s.Require().NoError(s.service.RetryFailedNotifications(s.ctx))

	all, err := s.notifs.ListByPhysician(s.ctx, "phys-1")
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(notification.StatusSent, all[0].SentStatus)
	s.False(all[0].ErrorMessage.Valid)
	s.Equal(1, s.sender.sentCount())
}

func (s *NotificationServiceSuite) TestRetryKeepsFailingUntilNextWindow() {
	s.addLicense("lic-1", 1, "TX")
	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))

	s.sender.failWith = errors.New("still down")
	s.Require().NoError(s.service.ProcessNotificationQueue(s.ctx))
	s.Require().NoError(s.service.RetryFailedNotifications(s.ctx))

	failed, err := s.notifs.ListFailed(s.ctx)
	s.Require().NoError(err)
	s.Len(failed, 1, "a failed retry leaves the notification failed for the next window")
}

func (s *NotificationServiceSuite) TestCleanupOldNotifications() {
	old := &notification.Notification{
		ID: uuid.NewString(), PhysicianID: "phys-1",
		Type: credential.EntityTypeLicense, EntityID: "lic-old", DaysBeforeExpiry: 90,
		Severity: credential.SeverityInfo, SentStatus: notification.StatusSent,
		NotificationDate: s.today.AddDate(0, 0, -200),
		CreatedAt:        s.today.AddDate(0, 0, -200),
	}
	recent := &notification.Notification{
		ID: uuid.NewString(), PhysicianID: "phys-1",
		Type: credential.EntityTypeLicense, EntityID: "lic-new", DaysBeforeExpiry: 90,
		Severity: credential.SeverityInfo, SentStatus: notification.StatusSent,
		NotificationDate: s.today.AddDate(0, 0, -10),
		CreatedAt:        s.today.AddDate(0, 0, -10),
	}
	s.Require().NoError(s.notifs.Create(s.ctx, old))
	s.Require().NoError(s.notifs.Create(s.ctx, recent))

	s.Require().NoError(s.service.CleanupOldNotifications(s.ctx, 180))
	s.Equal(1, s.notifs.Count())

	_, err := s.notifs.GetByID(s.ctx, old.ID)
	s.ErrorIs(err, notification.ErrNotificationNotFound)
}

func (s *NotificationServiceSuite) TestMarkNotificationRead() {
	s.addLicense("lic-1", 7, "TX")
	s.Require().NoError(s.service.CheckUpcomingExpirations(s.ctx))

	all, err := s.notifs.ListByPhysician(s.ctx, "phys-1")
	s.Require().NoError(err)
	s.Require().Len(all, 1)

	s.Require().NoError(s.service.MarkNotificationRead(s.ctx, all[0].ID))
	stored, err := s.notifs.GetByID(s.ctx, all[0].ID)
	s.Require().NoError(err)
	s.True(stored.ReadAt.Valid)

	s.ErrorIs(s.service.MarkNotificationRead(s.ctx, "missing"), notification.ErrNotificationNotFound)
}

func (s *NotificationServiceSuite) TestGetUpcomingNotifications() {
	soon := &notification.Notification{
		ID: uuid.NewString(), PhysicianID: "phys-1",
		Type: credential.EntityTypeDEA, EntityID: "dea-1", DaysBeforeExpiry: 30,
		Severity: credential.SeverityWarning, SentStatus: notification.StatusPending,
		NotificationDate: s.today.AddDate(0, 0, 3),
	}
	later := &notification.Notification{
		ID: uuid.NewString(), PhysicianID: "phys-1",
		Type: credential.EntityTypeDEA, EntityID: "dea-2", DaysBeforeExpiry: 30,
		Severity: credential.SeverityWarning, SentStatus: notification.StatusPending,
		NotificationDate: s.today.AddDate(0, 0, 40),
	}
	s.Require().NoError(s.notifs.Create(s.ctx, soon))
	s.Require().NoError(s.notifs.Create(s.ctx, later))

	upcoming, err := s.service.GetUpcomingNotifications(s.ctx, 7)
	s.Require().NoError(err)
	s.Require().Len(upcoming, 1)
	s.Equal(soon.ID, upcoming[0].ID)
}

func (s *NotificationServiceSuite) TestTestPhysicianNotification() {
	s.Require().NoError(s.service.TestPhysicianNotification(s.ctx, "phys-1"))
	s.Require().Equal(1, s.sender.sentCount())
	s.Contains(s.sender.sent[0].Subject, "Test notification")
	s.Equal(0, s.notifs.Count(), "test sends are not persisted")

	s.ErrorIs(s.service.TestPhysicianNotification(s.ctx, "missing"), physician.ErrPhysicianNotFound)
}

// brokenPhysicianRepo simulates a storage-layer failure for the fail-fast
// policy test.
type brokenPhysicianRepo struct {
	physician.Repository
}

func (r *brokenPhysicianRepo) ListActive(context.Context) ([]*physician.Physician, error) {
	return nil, fmt.Errorf("store unavailable")
}

func (s *NotificationServiceSuite) TestScanAbortsOnStorageError() {
	svc := NewNotificationService(&brokenPhysicianRepo{}, s.creds, s.notifs, s.sender, testLogger())
	err := svc.CheckUpcomingExpirations(s.ctx)
	s.Require().Error(err)
	s.Contains(err.Error(), "store unavailable")
}
