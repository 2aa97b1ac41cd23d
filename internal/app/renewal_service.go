// internal/app/renewal_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"physician_credential_tracker/internal/domain/credential"
	"physician_credential_tracker/internal/domain/renewal"

	"physician_credential_tracker/internal/domain/physician"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const systemUser = "system"

// DefaultRejectionReason is recorded when a rejection arrives without one.
const DefaultRejectionReason = "No reason provided"

const expiredNextAction = "URGENT: Credential has expired. Contact the issuing board immediately to restore practice authorization."

// RenewalService owns the renewal workflow state machine, checklist
// generation and progress tracking, and the auto-expiration sweep that
// reconciles workflows whose credential lapsed without approval.
type RenewalService struct {
	physicianRepo physician.Repository
	credRepo      credential.Repository
	renewalRepo   renewal.Repository
	logger        *logrus.Logger
	now           func() time.Time
}

func NewRenewalService(
	pr physician.Repository,
	cr credential.Repository,
	rr renewal.Repository,
	logger *logrus.Logger,
) *RenewalService {
	return &RenewalService{
		physicianRepo: pr,
		credRepo:      cr,
		renewalRepo:   rr,
		logger:        logger,
		now:           time.Now,
	}
}

// renewableEntityTypes are the credential kinds a renewal workflow can track.
// Board certifications recertify through their boards' own maintenance
// programs and are not driven through this state machine.
func renewableEntityType(t credential.EntityType) bool {
	return t == credential.EntityTypeLicense || t == credential.EntityTypeDEA || t == credential.EntityTypeCSR
}

// InitiateRenewal creates a new workflow for the given credential. Only one
// non-terminal workflow may exist per credential: a second initiation while
// the first is active returns ErrActiveWorkflowExists. Once a workflow reaches
// a terminal state the credential may be re-renewed with a fresh workflow.
func (s *RenewalService) InitiateRenewal(ctx context.Context, physicianID string, entityType credential.EntityType, entityID, userID string) (*renewal.Workflow, error) {
	if !renewableEntityType(entityType) {
		return nil, credential.ErrInvalidEntityType
	}

	_, err := s.renewalRepo.GetActiveByEntity(ctx, entityType, entityID)
	if err == nil {
		return nil, renewal.ErrActiveWorkflowExists
	}
	if !errors.Is(err, renewal.ErrWorkflowNotFound) {
		return nil, fmt.Errorf("failed to check for active workflow: %w", err)
	}

	ref, err := s.credRepo.FindRef(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if ref.PhysicianID != physicianID {
		return nil, credential.ErrCredentialNotFound
	}

	now := s.now()
	var dueDate time.Time
	if ref.ExpirationDate.IsZero() {
		dueDate = now.AddDate(0, 0, 30)
	} else {
		dueDate = ref.ExpirationDate.AddDate(0, 0, -90)
	}

	if userID == "" {
		userID = systemUser
	}

	w := &renewal.Workflow{
		ID:                 uuid.NewString(),
		PhysicianID:        physicianID,
		EntityType:         entityType,
		EntityID:           entityID,
		RenewalStatus:      renewal.StatusNotStarted,
		NextActionRequired: nextActionsByStatus[renewal.StatusNotStarted][0],
		NextActionDueDate:  dueDate,
		ProgressPercentage: 0,
		Checklist:          GenerateRenewalChecklist(entityType, ref.State),
		CreatedBy:          userID,
		UpdatedBy:          userID,
	}
	if err := s.renewalRepo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to create renewal workflow: %w", err)
	}
	s.logger.Infof("Renewal workflow %s initiated for %s %s (physician %s)", w.ID, entityType, entityID, physicianID)
	return w, nil
}

// UpdateRenewalStatus moves a workflow to the given status and stamps the
// matching milestone. Transitions out of terminal states are rejected; all
// other moves are accepted so operators can correct workflows manually.
func (s *RenewalService) UpdateRenewalStatus(ctx context.Context, id string, status renewal.Status, reason, userID string) (*renewal.Workflow, error) {
	if !status.Valid() {
		return nil, renewal.ErrInvalidStatus
	}

	w, err := s.renewalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.RenewalStatus.Terminal() {
		return nil, renewal.ErrTerminalWorkflow
	}

	now := s.now()
	w.RenewalStatus = status
	switch status {
	case renewal.StatusInProgress:
		if !w.ApplicationDate.Valid {
			w.ApplicationDate = sql.NullTime{Time: now, Valid: true}
		}
	case renewal.StatusFiled:
		if !w.FiledDate.Valid {
			w.FiledDate = sql.NullTime{Time: now, Valid: true}
		}
	case renewal.StatusApproved:
		w.ApprovalDate = sql.NullTime{Time: now, Valid: true}
		w.ProgressPercentage = 100
	case renewal.StatusRejected:
		if reason == "" {
			reason = DefaultRejectionReason
		}
		w.RejectionDate = sql.NullTime{Time: now, Valid: true}
		w.RejectionReason = sql.NullString{String: reason, Valid: true}
	}

	if status == renewal.StatusExpired {
		w.NextActionRequired = expiredNextAction
	} else {
		w.NextActionRequired = nextActionsByStatus[status][0]
	}
	if userID == "" {
		userID = systemUser
	}
	w.UpdatedBy = userID

	if err := s.renewalRepo.Update(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to update renewal workflow %s: %w", id, err)
	}
	s.logger.Infof("Renewal workflow %s moved to %s by %s", id, status, userID)
	return w, nil
}

// GenerateRenewalChecklist builds the ordered task list for a renewal. Two
// items are universal; the rest depend on the credential type, and some are
// required only in certain jurisdictions.
func GenerateRenewalChecklist(entityType credential.EntityType, state string) []renewal.ChecklistItem {
	backgroundCheckRequired := state == "CA" || state == "NY"

	items := []renewal.ChecklistItem{
		{Task: "Review renewal requirements and expiration date", Required: true},
		{Task: "Gather supporting documents", Required: true},
	}

	switch entityType {
	case credential.EntityTypeLicense:
		items = append(items,
			renewal.ChecklistItem{Task: "Complete continuing medical education (CME) hours", Required: true},
			renewal.ChecklistItem{Task: "Complete state background check", Required: backgroundCheckRequired},
			renewal.ChecklistItem{Task: "Submit renewal application to the state medical board", Required: true},
			renewal.ChecklistItem{Task: "Pay license renewal fees", Required: true},
		)
	case credential.EntityTypeDEA:
		items = append(items,
			renewal.ChecklistItem{Task: "Complete DEA Form 224a renewal application", Required: true},
			renewal.ChecklistItem{Task: "Verify state medical license is current", Required: true},
			renewal.ChecklistItem{Task: "Reconcile controlled substance inventory records", Required: false},
			renewal.ChecklistItem{Task: "Pay DEA registration fee", Required: true},
		)
	case credential.EntityTypeCSR:
		items = append(items,
			// MATE Act training is a federal prerequisite for every CSR renewal.
			renewal.ChecklistItem{Task: "Complete MATE Act prescribing training course", Required: true},
			renewal.ChecklistItem{Task: "Complete state background check", Required: backgroundCheckRequired},
			renewal.ChecklistItem{Task: "Submit CSR renewal application", Required: true},
			renewal.ChecklistItem{Task: "Pay CSR renewal fees", Required: true},
		)
	}

	for i := range items {
		items[i].ID = uuid.NewString()
	}
	return items
}

// TrackRenewalProgress toggles one checklist item and recalculates the
// workflow's progress percentage.
func (s *RenewalService) TrackRenewalProgress(ctx context.Context, workflowID, itemID string, completed bool) (*renewal.Workflow, error) {
	w, err := s.renewalRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range w.Checklist {
		if w.Checklist[i].ID == itemID {
			w.Checklist[i].Completed = completed
			found = true
			break
		}
	}
	if !found {
		return nil, renewal.ErrChecklistItemNotFound
	}

	w.RecalculateProgress()
	if err := s.renewalRepo.Update(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to persist checklist progress for workflow %s: %w", workflowID, err)
	}
	return w, nil
}

// CheckAndExpireWorkflows sweeps all active workflows and force-expires any
// whose credential's expiration date has passed without approval. This is the
// self-healing pass that reconciles workflows left in limbo.
func (s *RenewalService) CheckAndExpireWorkflows(ctx context.Context) error {
	active, err := s.renewalRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active workflows: %w", err)
	}

	today := s.now()
	expired := 0
	for _, w := range active {
		ref, err := s.credRepo.FindRef(ctx, w.EntityType, w.EntityID)
		if err != nil {
			// A missing or unreadable credential should not stall the sweep for
			// every other workflow.
			s.logger.Warnf("Skipping workflow %s in expiration sweep: %v", w.ID, err)
			continue
		}
		if ref.ExpirationDate.IsZero() || credential.DaysUntil(ref.ExpirationDate, today) >= 0 {
			continue
		}

		w.RenewalStatus = renewal.StatusExpired
		w.NextActionRequired = expiredNextAction
		w.UpdatedBy = systemUser
		if err := s.renewalRepo.Update(ctx, w); err != nil {
			return fmt.Errorf("failed to expire workflow %s: %w", w.ID, err)
		}
		expired++
	}
	if expired > 0 {
		s.logger.Infof("Auto-expire sweep moved %d workflows to expired", expired)
	}
	return nil
}

// AutoCreateRenewalWorkflows initiates a workflow for every credential that
// enters the 90-day renewal window without one. Credentials whose previous
// workflow ended in a terminal state get a fresh workflow, matching the
// re-renewal rule in InitiateRenewal.
func (s *RenewalService) AutoCreateRenewalWorkflows(ctx context.Context) error {
	physicians, err := s.physicianRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active physicians: %w", err)
	}

	today := s.now()
	created := 0
	for _, p := range physicians {
		refs, err := s.collectRenewableRefs(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			daysLeft := credential.DaysUntil(ref.ExpirationDate, today)
			if daysLeft < 0 || daysLeft > 90 {
				continue
			}
			_, err := s.InitiateRenewal(ctx, p.ID, ref.Type, ref.EntityID, systemUser)
			if err != nil {
				if errors.Is(err, renewal.ErrActiveWorkflowExists) {
					continue
				}
				return fmt.Errorf("failed to auto-create workflow for %s %s: %w", ref.Type, ref.EntityID, err)
			}
			created++
		}
	}
	if created > 0 {
		s.logger.Infof("Auto-created %d renewal workflows", created)
	}
	return nil
}

func (s *RenewalService) collectRenewableRefs(ctx context.Context, physicianID string) ([]credential.Ref, error) {
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

var nextActionsByStatus = map[renewal.Status][]string{
	renewal.StatusNotStarted: {
		"Review the renewal checklist",
		"Begin the renewal application",
	},
	renewal.StatusInProgress: {
		"Complete the remaining checklist items",
		"File the renewal application with the issuing authority",
	},
	renewal.StatusFiled: {
		"Await confirmation from the issuing authority",
		"Respond promptly to any requests for additional information",
	},
	renewal.StatusUnderReview: {
		"Monitor application status with the issuing authority",
	},
	renewal.StatusApproved: {
		"Verify the new expiration date is recorded",
		"Archive the renewal documentation",
	},
	renewal.StatusRejected: {
		"Review the rejection reason",
		"Contact the issuing authority to resolve the rejection",
		"Re-initiate the renewal once issues are resolved",
	},
	renewal.StatusExpired: {
		"Contact the issuing board immediately",
		"Confirm whether practice restrictions apply",
		"Re-initiate the renewal",
	},
}

// CalculateNextActions returns the recommended next steps for a workflow given
// its current status. Pure lookup; nothing is persisted.
func (s *RenewalService) CalculateNextActions(ctx context.Context, workflowID string) ([]string, error) {
	w, err := s.renewalRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	actions := nextActionsByStatus[w.RenewalStatus]
	out := make([]string, len(actions))
	copy(out, actions)
	return out, nil
}

// TimelineEvent is one timestamped milestone in a workflow's history.
type TimelineEvent struct {
	OccurredAt  time.Time
	Description string
}

// GetRenewalTimeline derives the ordered milestone history from the
// workflow's timestamp fields.
func (s *RenewalService) GetRenewalTimeline(ctx context.Context, workflowID string) ([]TimelineEvent, error) {
	w, err := s.renewalRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	events := []TimelineEvent{
		{OccurredAt: w.CreatedAt, Description: "Renewal workflow created"},
	}
	if w.ApplicationDate.Valid {
		events = append(events, TimelineEvent{OccurredAt: w.ApplicationDate.Time, Description: "Renewal application started"})
	}
	if w.FiledDate.Valid {
		events = append(events, TimelineEvent{OccurredAt: w.FiledDate.Time, Description: "Renewal application filed"})
	}
	if w.ApprovalDate.Valid {
		events = append(events, TimelineEvent{OccurredAt: w.ApprovalDate.Time, Description: "Renewal approved"})
	}
	if w.RejectionDate.Valid {
		desc := "Renewal rejected"
		if w.RejectionReason.Valid {
			desc = fmt.Sprintf("Renewal rejected: %s", w.RejectionReason.String)
		}
		events = append(events, TimelineEvent{OccurredAt: w.RejectionDate.Time, Description: desc})
	}
	// Timestamps are stamped in transition order, so a stable insertion order
	// already yields a chronological timeline.
	return events, nil
}

// GetUpcomingRenewals returns active workflows whose next action is due within
// the given number of days.
func (s *RenewalService) GetUpcomingRenewals(ctx context.Context, days int) ([]*renewal.Workflow, error) {
	by := s.now().AddDate(0, 0, days)
	workflows, err := s.renewalRepo.ListActiveDueBy(ctx, by)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming renewals: %w", err)
	}
	return workflows, nil
}

func (s *RenewalService) GetPhysicianRenewals(ctx context.Context, physicianID string) ([]*renewal.Workflow, error) {
	workflows, err := s.renewalRepo.ListByPhysician(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list renewals for physician %s: %w", physicianID, err)
	}
	return workflows, nil
}

// Statistics summarizes the renewal workload.
type Statistics struct {
	Total           int
	Active          int
	ByStatus        map[renewal.Status]int
	AverageProgress int // mean progress of active workflows
}

func (s *RenewalService) GetRenewalStatistics(ctx context.Context) (*Statistics, error) {
	workflows, err := s.renewalRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows for statistics: %w", err)
	}

	stats := &Statistics{ByStatus: make(map[renewal.Status]int)}
	progressSum := 0
	for _, w := range workflows {
		stats.Total++
		stats.ByStatus[w.RenewalStatus]++
		if !w.RenewalStatus.Terminal() {
			stats.Active++
			progressSum += w.ProgressPercentage
		}
	}
	if stats.Active > 0 {
		stats.AverageProgress = (progressSum + stats.Active/2) / stats.Active
	}
	return stats, nil
}
