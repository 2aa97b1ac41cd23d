// internal/app/notification_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"physician_credential_tracker/internal/domain/credential"
	domainDelivery "physician_credential_tracker/internal/domain/delivery"
	"physician_credential_tracker/internal/domain/notification"
	"physician_credential_tracker/internal/domain/physician"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotificationService scans credentials for upcoming expirations and drives
// the notification lifecycle: idempotent creation, queued delivery, retries
// and retention cleanup.
type NotificationService struct {
	physicianRepo physician.Repository
	credRepo      credential.Repository
	notifRepo     notification.Repository
	sender        domainDelivery.Sender
	logger        *logrus.Logger
	now           func() time.Time
}

func NewNotificationService(
	pr physician.Repository,
	cr credential.Repository,
	nr notification.Repository,
	sender domainDelivery.Sender,
	logger *logrus.Logger,
) *NotificationService {
	return &NotificationService{
		physicianRepo: pr,
		credRepo:      cr,
		notifRepo:     nr,
		sender:        sender,
		logger:        logger,
		now:           time.Now,
	}
}

// CheckUpcomingExpirations walks every active physician's licenses, DEA
// registrations and CSR licenses and creates one notification per credential
// and lead time once the expiration enters that lead time's window. Reruns are
// idempotent: existing (entity, type, lead time) pairings are skipped, so a
// credential fires at most once per lead time over its lifetime.
//
// Any store failure aborts the whole scan: a broken scan should surface
// loudly rather than silently skip providers.
func (s *NotificationService) CheckUpcomingExpirations(ctx context.Context) error {
	physicians, err := s.physicianRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active physicians: %w", err)
	}

	created := 0
	for _, p := range physicians {
		refs, err := s.collectCredentialRefs(ctx, p.ID)
		if err != nil {
			return err
		}
		n, err := s.scanRefs(ctx, p, refs)
		if err != nil {
			return err
		}
		created += n
	}
	s.logger.Infof("Expiration scan complete: %d physicians checked, %d notifications created", len(physicians), created)
	return nil
}

// CheckCertificationExpirations applies the same scan pattern to board
// certifications, which renew on a separate cadence from state licensure.
func (s *NotificationService) CheckCertificationExpirations(ctx context.Context) error {
	physicians, err := s.physicianRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active physicians: %w", err)
	}

	created := 0
	for _, p := range physicians {
		certs, err := s.credRepo.ListCertifications(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("failed to list certifications for physician %s: %w", p.ID, err)
		}
		refs := make([]credential.Ref, 0, len(certs))
		for _, c := range certs {
			refs = append(refs, c.Ref())
		}
		n, err := s.scanRefs(ctx, p, refs)
		if err != nil {
			return err
		}
		created += n
	}
	s.logger.Infof("Certification scan complete: %d physicians checked, %d notifications created", len(physicians), created)
	return nil
}

func (s *NotificationService) collectCredentialRefs(ctx context.Context, physicianID string) ([]credential.Ref, error) {
	licenses, err := s.credRepo.ListLicenses(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list licenses for physician %s: %w", physicianID, err)
	}
	deaRegs, err := s.credRepo.ListDEARegistrations(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list DEA registrations for physician %s: %w", physicianID, err)
	}
	csrLicenses, err := s.credRepo.ListCSRLicenses(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list CSR licenses for physician %s: %w", physicianID, err)
	}

	refs := make([]credential.Ref, 0, len(licenses)+len(deaRegs)+len(csrLicenses))
	for _, l := range licenses {
		refs = append(refs, l.Ref())
	}
	for _, d := range deaRegs {
		refs = append(refs, d.Ref())
	}
	for _, c := range csrLicenses {
		refs = append(refs, c.Ref())
	}
	return refs, nil
}

func (s *NotificationService) scanRefs(ctx context.Context, p *physician.Physician, refs []credential.Ref) (int, error) {
	today := s.now()
	created := 0
	for _, ref := range refs {
		daysLeft := credential.DaysUntil(ref.ExpirationDate, today)
		leadTime, inWindow := credential.LeadTimeFor(daysLeft)
		if !inWindow {
			// Either beyond the 90-day horizon or already expired; expired
			// credentials belong to the renewal sweep, not the scan.
			continue
		}

		exists, err := s.notifRepo.Exists(ctx, ref.EntityID, ref.Type, leadTime)
		if err != nil {
			return created, fmt.Errorf("failed to check existing notification for %s %s: %w", ref.Type, ref.EntityID, err)
		}
		if exists {
			continue
		}

		n := &notification.Notification{
			ID:               uuid.NewString(),
			PhysicianID:      p.ID,
			Type:             ref.Type,
			EntityID:         ref.EntityID,
			Severity:         credential.SeverityFor(leadTime),
			DaysBeforeExpiry: leadTime,
			NotificationDate: ref.ExpirationDate.AddDate(0, 0, -leadTime),
			SentStatus:       notification.StatusPending,
			ExpirationDate:   ref.ExpirationDate,
			ProviderName:     p.FullName(),
			LicenseType:      ref.Detail,
			State:            ref.State,
		}
		if err := s.notifRepo.Create(ctx, n); err != nil {
			if errors.Is(err, notification.ErrDuplicateNotification) {
				// Another scan won the race; the unique key makes the loss harmless.
				s.logger.Debugf("Notification for %s %s at %dd already exists, skipping", ref.Type, ref.EntityID, leadTime)
				continue
			}
			return created, fmt.Errorf("failed to create notification for %s %s: %w", ref.Type, ref.EntityID, err)
		}
		created++
	}
	return created, nil
}

// ProcessNotificationQueue sends every pending notification whose scheduled
// date has arrived. Delivery failures are recorded on the notification and do
// not interrupt the batch; the engine promises at-least-once delivery
// attempts, not guaranteed delivery.
func (s *NotificationService) ProcessNotificationQueue(ctx context.Context) error {
	due, err := s.notifRepo.ListPendingDue(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to list due notifications: %w", err)
	}

	sent, failed := 0, 0
	for _, n := range due {
		if s.attemptSend(ctx, n) {
			sent++
		} else {
			failed++
		}
		if err := s.notifRepo.Update(ctx, n); err != nil {
			return fmt.Errorf("failed to update notification %s after send attempt: %w", n.ID, err)
		}
	}
	if len(due) > 0 {
		s.logger.Infof("Notification queue processed: %d sent, %d failed", sent, failed)
	}
	return nil
}

// attemptSend delivers one notification and mutates its status in place. The
// boolean reports success; errors are captured on the record, never returned.
func (s *NotificationService) attemptSend(ctx context.Context, n *notification.Notification) bool {
	recipient := ""
	p, err := s.physicianRepo.GetByID(ctx, n.PhysicianID)
	if err == nil {
		recipient = p.Email
	} else if !errors.Is(err, physician.ErrPhysicianNotFound) {
		// Transient store trouble on the recipient lookup is still a delivery
		// failure for this one notification, not a reason to drop the batch.
		s.logger.Errorf("Physician lookup failed for notification %s: %v", n.ID, err)
	}

	subject, body := composeNotification(n)
	sendErr := s.sender.Send(ctx, domainDelivery.Message{
		PhysicianID: n.PhysicianID,
		Recipient:   recipient,
		Subject:     subject,
		Body:        body,
		Severity:    n.Severity,
	})
	if sendErr != nil {
		s.logger.Errorf("Failed to send notification %s: %v", n.ID, sendErr)
		n.SentStatus = notification.StatusFailed
		n.ErrorMessage = sql.NullString{String: sendErr.Error(), Valid: true}
		return false
	}
	n.SentStatus = notification.StatusSent
	n.ErrorMessage = sql.NullString{}
	return true
}

// RetryFailedNotifications resets every failed notification to pending and
// immediately reprocesses the queue. There is no backoff or attempt cap;
// persistent failures simply wait for the next scheduled retry window.
func (s *NotificationService) RetryFailedNotifications(ctx context.Context) error {
	failed, err := s.notifRepo.ListFailed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list failed notifications: %w", err)
	}
	for _, n := range failed {
		n.SentStatus = notification.StatusPending
		n.ErrorMessage = sql.NullString{}
		if err := s.notifRepo.Update(ctx, n); err != nil {
			return fmt.Errorf("failed to reset notification %s to pending: %w", n.ID, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	s.logger.Infof("Reset %d failed notifications to pending, reprocessing queue", len(failed))
	return s.ProcessNotificationQueue(ctx)
}

// CleanupOldNotifications deletes notifications created more than daysOld days
// ago.
func (s *NotificationService) CleanupOldNotifications(ctx context.Context, daysOld int) error {
	cutoff := s.now().AddDate(0, 0, -daysOld)
	deleted, err := s.notifRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete notifications older than %d days: %w", daysOld, err)
	}
	if deleted > 0 {
		s.logger.Infof("Cleanup removed %d notifications older than %d days", deleted, daysOld)
	}
	return nil
}

// GetUpcomingNotifications returns notifications scheduled to fire within the
// next `days` days.
func (s *NotificationService) GetUpcomingNotifications(ctx context.Context, days int) ([]*notification.Notification, error) {
	from := s.now()
	to := from.AddDate(0, 0, days)
	upcoming, err := s.notifRepo.ListScheduledBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming notifications: %w", err)
	}
	return upcoming, nil
}

func (s *NotificationService) GetPhysicianNotifications(ctx context.Context, physicianID string) ([]*notification.Notification, error) {
	notifications, err := s.notifRepo.ListByPhysician(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for physician %s: %w", physicianID, err)
	}
	return notifications, nil
}

// MarkNotificationRead stamps the notification as read by a user.
func (s *NotificationService) MarkNotificationRead(ctx context.Context, id string) error {
	n, err := s.notifRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.ReadAt.Valid {
		return nil
	}
	n.ReadAt = sql.NullTime{Time: s.now(), Valid: true}
	if err := s.notifRepo.Update(ctx, n); err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	return nil
}

// TestPhysicianNotification sends a test message to the physician through the
// configured transport without persisting anything. Used by operators to
// verify delivery wiring.
func (s *NotificationService) TestPhysicianNotification(ctx context.Context, physicianID string) error {
	p, err := s.physicianRepo.GetByID(ctx, physicianID)
	if err != nil {
		return err
	}
	msg := domainDelivery.Message{
		PhysicianID: p.ID,
		Recipient:   p.Email,
		Subject:     fmt.Sprintf("Test notification for %s", p.FullName()),
		Body:        "This is a test of the credential expiration notification system. No action is required.",
		Severity:    credential.SeverityInfo,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("test notification delivery failed: %w", err)
	}
	s.logger.Infof("Test notification sent for physician %s", physicianID)
	return nil
}
