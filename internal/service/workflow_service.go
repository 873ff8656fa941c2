package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"student-violation-service/internal/model"
	"student-violation-service/internal/repository"
)

// WorkflowService is the approval/appeal state machine. Every action re-reads
// the record, checks the status guard, and applies the new status together
// with exactly one audit entry in a single atomic unit. Actor is always an
// explicit parameter; the engine records the role but never enforces it.
type WorkflowService struct {
	violations violationStore
}

func NewWorkflowService(violations violationStore) *WorkflowService {
	return &WorkflowService{violations: violations}
}

type ApproveWaliInput struct {
	Notes string
}

// ApproveWaliKelas moves PENDING -> APPROVED_WALI.
func (s *WorkflowService) ApproveWaliKelas(ctx context.Context, id uuid.UUID, actor model.Actor, input ApproveWaliInput) (*model.Violation, error) {
	violation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if violation.Status != model.ViolationStatusPending {
		return nil, &PreconditionError{Action: string(model.ActionApproveWali), CurrentStatus: violation.Status}
	}

	now := time.Now()
	fields := map[string]interface{}{
		"status":                model.ViolationStatusApprovedWali,
		"wali_approved_at":      now,
		"wali_approved_by":      actor.ID,
		"wali_approved_by_name": actor.Name,
		"updated_by":            actor.ID,
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		fields["wali_notes"] = notes
	}

	return s.apply(ctx, violation, model.ActionApproveWali, model.ViolationStatusApprovedWali, fields, actor, input.Notes)
}

type ApproveBKInput struct {
	Notes             string
	Sanction          string
	SanctionStartDate *time.Time
	SanctionEndDate   *time.Time
}

// ApproveBK finalizes the approval chain: PENDING or APPROVED_WALI ->
// APPROVED_BK, recording the sanction window when given.
func (s *WorkflowService) ApproveBK(ctx context.Context, id uuid.UUID, actor model.Actor, input ApproveBKInput) (*model.Violation, error) {
	if input.SanctionStartDate != nil && input.SanctionEndDate != nil &&
		!input.SanctionEndDate.After(*input.SanctionStartDate) {
		return nil, newValidationError("sanctionEndDate", "must be after sanctionStartDate")
	}

	violation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if violation.Status != model.ViolationStatusPending && violation.Status != model.ViolationStatusApprovedWali {
		return nil, &PreconditionError{Action: string(model.ActionApproveBK), CurrentStatus: violation.Status}
	}

	now := time.Now()
	fields := map[string]interface{}{
		"status":              model.ViolationStatusApprovedBK,
		"bk_approved_at":      now,
		"bk_approved_by":      actor.ID,
		"bk_approved_by_name": actor.Name,
		"updated_by":          actor.ID,
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		fields["bk_notes"] = notes
	}
	if sanction := strings.TrimSpace(input.Sanction); sanction != "" {
		fields["sanction"] = sanction
	}
	if input.SanctionStartDate != nil {
		fields["sanction_start_date"] = *input.SanctionStartDate
	}
	if input.SanctionEndDate != nil {
		fields["sanction_end_date"] = *input.SanctionEndDate
	}

	return s.apply(ctx, violation, model.ActionApproveBK, model.ViolationStatusApprovedBK, fields, actor, input.Notes)
}

type RejectInput struct {
	Reason string
	Level  model.RejectionLevel
}

// Reject moves any non-terminal status to REJECTED.
func (s *WorkflowService) Reject(ctx context.Context, id uuid.UUID, actor model.Actor, input RejectInput) (*model.Violation, error) {
	violation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if violation.Status.IsTerminal() {
		return nil, &PreconditionError{Action: string(model.ActionReject), CurrentStatus: violation.Status}
	}

	fields := map[string]interface{}{
		"status":           model.ViolationStatusRejected,
		"rejected_at":      time.Now(),
		"rejected_by":      actor.ID,
		"rejected_by_name": actor.Name,
		"rejection_reason": input.Reason,
		"rejection_level":  input.Level,
		"updated_by":       actor.ID,
	}

	return s.apply(ctx, violation, model.ActionReject, model.ViolationStatusRejected, fields, actor, input.Reason)
}

type AppealInput struct {
	Reason string
}

// SubmitAppeal files an appeal against a finalized record: APPROVED_BK ->
// APPEALED with the review outcome reset to PENDING.
func (s *WorkflowService) SubmitAppeal(ctx context.Context, id uuid.UUID, actor model.Actor, input AppealInput) (*model.Violation, error) {
	violation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if violation.Status != model.ViolationStatusApprovedBK {
		return nil, &PreconditionError{Action: string(model.ActionAppeal), CurrentStatus: violation.Status}
	}

	fields := map[string]interface{}{
		"status":        model.ViolationStatusAppealed,
		"appeal_reason": input.Reason,
		"appealed_at":   time.Now(),
		"appealed_by":   actor.ID,
		"appeal_status": model.AppealOutcomePending,
		"updated_by":    actor.ID,
	}

	return s.apply(ctx, violation, model.ActionAppeal, model.ViolationStatusAppealed, fields, actor, input.Reason)
}

type AppealReviewInput struct {
	Verdict model.AppealOutcome
	Notes   string
}

// ReviewAppeal settles a filed appeal: APPEALED -> APPEAL_APPROVED or
// APPEAL_REJECTED, both terminal.
func (s *WorkflowService) ReviewAppeal(ctx context.Context, id uuid.UUID, actor model.Actor, input AppealReviewInput) (*model.Violation, error) {
	var (
		action model.ApprovalAction
		target model.ViolationStatus
	)
	switch input.Verdict {
	case model.AppealOutcomeApproved:
		action = model.ActionAppealApprove
		target = model.ViolationStatusAppealApproved
	case model.AppealOutcomeRejected:
		action = model.ActionAppealReject
		target = model.ViolationStatusAppealRejected
	default:
		return nil, newValidationError("appealStatus", "must be APPROVED or REJECTED")
	}

	violation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if violation.Status != model.ViolationStatusAppealed {
		return nil, &PreconditionError{Action: string(action), CurrentStatus: violation.Status}
	}

	fields := map[string]interface{}{
		"status":                  target,
		"appeal_status":           input.Verdict,
		"appeal_reviewed_at":      time.Now(),
		"appeal_reviewed_by":      actor.ID,
		"appeal_reviewed_by_name": actor.Name,
		"appeal_notes":            input.Notes,
		"updated_by":              actor.ID,
	}

	return s.apply(ctx, violation, action, target, fields, actor, input.Notes)
}

// load fetches the record, translating a missing row into ErrNotFound.
func (s *WorkflowService) load(ctx context.Context, id uuid.UUID) (*model.Violation, error) {
	violation, err := s.violations.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return violation, nil
}

// apply executes the transition against the status read during the guard
// check. If a concurrent request won the race, the conditional update misses
// and the failure is reported as a precondition error carrying whatever the
// status is now.
func (s *WorkflowService) apply(
	ctx context.Context,
	violation *model.Violation,
	action model.ApprovalAction,
	target model.ViolationStatus,
	fields map[string]interface{},
	actor model.Actor,
	notes string,
) (*model.Violation, error) {
	entry := &model.ApprovalHistoryEntry{
		Action:     action,
		FromStatus: violation.Status,
		ToStatus:   target,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		Notes:      notes,
	}

	if err := s.violations.Transition(ctx, violation.ID, violation.Status, fields, entry); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			current, readErr := s.violations.GetByID(ctx, violation.ID)
			if readErr != nil {
				return nil, mapStoreErr(readErr)
			}
			return nil, &PreconditionError{Action: string(action), CurrentStatus: current.Status}
		}
		return nil, err
	}

	updated, err := s.violations.GetByID(ctx, violation.ID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return updated, nil
}
