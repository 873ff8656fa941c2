package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"student-violation-service/internal/model"
	"student-violation-service/internal/repository"
)

// fakeStore is an in-memory violationStore shared by the service tests. Like
// the gorm repository, default reads hide soft-deleted records.
type fakeStore struct {
	mu         sync.Mutex
	violations map[uuid.UUID]*model.Violation
	history    map[uuid.UUID][]model.ApprovalHistoryEntry
	deleted    map[uuid.UUID]bool

	lastTransitionFields map[string]interface{}
	lastContentFields    map[string]interface{}
	softDeleted          []uuid.UUID

	staleOnce bool
	err       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		violations: make(map[uuid.UUID]*model.Violation),
		history:    make(map[uuid.UUID][]model.ApprovalHistoryEntry),
		deleted:    make(map[uuid.UUID]bool),
	}
}

func (f *fakeStore) Create(ctx context.Context, violation *model.Violation, entry *model.ApprovalHistoryEntry) error {
	if f.err != nil {
		return f.err
	}
	if violation.ID == uuid.Nil {
		violation.ID = uuid.New()
	}
	cp := *violation
	f.violations[violation.ID] = &cp
	entry.ViolationID = violation.ID
	f.history[violation.ID] = append(f.history[violation.ID], *entry)
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Violation, error) {
	violation, ok := f.violations[id]
	if !ok || f.deleted[id] {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *violation
	return &cp, nil
}

func (f *fakeStore) GetWithHistory(ctx context.Context, id uuid.UUID) (*model.Violation, error) {
	violation, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	violation.ApprovalHistory = append([]model.ApprovalHistoryEntry(nil), f.history[id]...)
	return violation, nil
}

func (f *fakeStore) List(ctx context.Context, filter model.ViolationFilter) ([]model.Violation, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	out := make([]model.Violation, 0, len(f.violations))
	for id, violation := range f.violations {
		if f.deleted[id] {
			continue
		}
		out = append(out, *violation)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) Transition(ctx context.Context, id uuid.UUID, from model.ViolationStatus, fields map[string]interface{}, entry *model.ApprovalHistoryEntry) error {
	if f.staleOnce {
		f.staleOnce = false
		return repository.ErrStaleStatus
	}
	violation, ok := f.violations[id]
	if !ok || violation.Status != from {
		return repository.ErrStaleStatus
	}
	violation.Status = entry.ToStatus
	f.lastTransitionFields = fields
	entry.ViolationID = id
	f.history[id] = append(f.history[id], *entry)
	return nil
}

func (f *fakeStore) UpdateContent(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	violation, ok := f.violations[id]
	if !ok || violation.Status != model.ViolationStatusPending {
		return repository.ErrStaleStatus
	}
	f.lastContentFields = fields
	if desc, ok := fields["description"].(string); ok {
		violation.Description = desc
	}
	return nil
}

func (f *fakeStore) SoftDelete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	f.softDeleted = append(f.softDeleted, id)
	if violation, ok := f.violations[id]; ok {
		violation.IsActive = false
		f.deleted[id] = true
	}
	return nil
}

func (f *fakeStore) CreateIfNoSameDay(ctx context.Context, violation *model.Violation, entry *model.ApprovalHistoryEntry, since time.Time) (bool, error) {
	// Mirrors the repository's advisory lock: one check-then-insert at a time.
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}
	for id, existing := range f.violations {
		if f.deleted[id] {
			continue
		}
		if existing.StudentID == violation.StudentID &&
			existing.CategoryCode == violation.CategoryCode &&
			!existing.ViolationDate.Before(since) &&
			existing.Status != model.ViolationStatusRejected {
			return false, nil
		}
	}
	if err := f.Create(ctx, violation, entry); err != nil {
		return false, err
	}
	return true, nil
}

func seedViolation(f *fakeStore, status model.ViolationStatus) *model.Violation {
	violation := &model.Violation{
		ID:               uuid.New(),
		StudentID:        uuid.New(),
		StudentName:      "Budi Santoso",
		StudentNISN:      "0051234567",
		StudentClass:     "XI IPA 2",
		CategoryID:       uuid.New(),
		CategoryCode:     "LATE_ARRIVAL",
		CategoryName:     "Terlambat",
		CategorySeverity: model.SeverityRingan,
		Points:           5,
		Description:      "Arrived 30 minutes after the first bell",
		ViolationDate:    time.Now().Add(-24 * time.Hour),
		AcademicYear:     "2025/2026",
		Semester:         1,
		Status:           status,
		IsActive:         true,
	}
	f.violations[violation.ID] = violation
	return violation
}

func waliActor() model.Actor {
	return model.Actor{ID: uuid.New(), Name: "Ibu Sari", Role: model.ActorRoleWaliKelas}
}

func bkActor() model.Actor {
	return model.Actor{ID: uuid.New(), Name: "Pak Dedi", Role: model.ActorRoleBK}
}

func TestApproveWaliKelasFromPending(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusPending)
	svc := NewWorkflowService(store)
	actor := waliActor()

	violation, err := svc.ApproveWaliKelas(context.Background(), seeded.ID, actor, ApproveWaliInput{Notes: "Confirmed with the student"})
	require.NoError(t, err)
	assert.Equal(t, model.ViolationStatusApprovedWali, violation.Status)

	require.Len(t, store.history[seeded.ID], 1)
	entry := store.history[seeded.ID][0]
	assert.Equal(t, model.ActionApproveWali, entry.Action)
	assert.Equal(t, model.ViolationStatusPending, entry.FromStatus)
	assert.Equal(t, model.ViolationStatusApprovedWali, entry.ToStatus)
	assert.Equal(t, actor.ID, entry.ActorID)
	assert.Equal(t, actor.Name, entry.ActorName)

	assert.Equal(t, actor.ID, store.lastTransitionFields["wali_approved_by"])
	assert.Equal(t, "Confirmed with the student", store.lastTransitionFields["wali_notes"])
}

func TestApproveWaliKelasGuardLeavesRecordUntouched(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusApprovedBK)
	svc := NewWorkflowService(store)

	_, err := svc.ApproveWaliKelas(context.Background(), seeded.ID, waliActor(), ApproveWaliInput{})

	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, model.ViolationStatusApprovedBK, precondition.CurrentStatus)
	assert.Equal(t, model.ViolationStatusApprovedBK, store.violations[seeded.ID].Status)
	assert.Empty(t, store.history[seeded.ID])
}

func TestApproveBKDirectlyFromPending(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusPending)
	svc := NewWorkflowService(store)

	violation, err := svc.ApproveBK(context.Background(), seeded.ID, bkActor(), ApproveBKInput{Notes: "Handled without homeroom review"})
	require.NoError(t, err)
	assert.Equal(t, model.ViolationStatusApprovedBK, violation.Status)

	require.Len(t, store.history[seeded.ID], 1)
	assert.Equal(t, model.ViolationStatusPending, store.history[seeded.ID][0].FromStatus)
}

func TestApproveBKRecordsSanctionWindow(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusApprovedWali)
	svc := NewWorkflowService(store)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)
	violation, err := svc.ApproveBK(context.Background(), seeded.ID, bkActor(), ApproveBKInput{
		Sanction:          "Three days of after-school duty",
		SanctionStartDate: &start,
		SanctionEndDate:   &end,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ViolationStatusApprovedBK, violation.Status)
	assert.Equal(t, "Three days of after-school duty", store.lastTransitionFields["sanction"])
	assert.Equal(t, start, store.lastTransitionFields["sanction_start_date"])
	assert.Equal(t, end, store.lastTransitionFields["sanction_end_date"])
}

func TestApproveBKRejectsInvertedSanctionWindow(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusApprovedWali)
	svc := NewWorkflowService(store)

	start := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err := svc.ApproveBK(context.Background(), seeded.ID, bkActor(), ApproveBKInput{
		SanctionStartDate: &start,
		SanctionEndDate:   &end,
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "sanctionEndDate")
	assert.Empty(t, store.history[seeded.ID])
}

func TestRejectFromNonTerminalStatuses(t *testing.T) {
	for _, status := range []model.ViolationStatus{
		model.ViolationStatusPending,
		model.ViolationStatusApprovedWali,
		model.ViolationStatusApprovedBK,
		model.ViolationStatusAppealed,
	} {
		t.Run(string(status), func(t *testing.T) {
			store := newFakeStore()
			seeded := seedViolation(store, status)
			svc := NewWorkflowService(store)

			violation, err := svc.Reject(context.Background(), seeded.ID, bkActor(), RejectInput{
				Reason: "Report could not be substantiated",
				Level:  model.RejectionLevelBK,
			})
			require.NoError(t, err)
			assert.Equal(t, model.ViolationStatusRejected, violation.Status)
			assert.Equal(t, status, store.history[seeded.ID][0].FromStatus)
		})
	}
}

func TestRejectRefusedFromTerminalStatuses(t *testing.T) {
	for _, status := range []model.ViolationStatus{
		model.ViolationStatusRejected,
		model.ViolationStatusAppealApproved,
		model.ViolationStatusAppealRejected,
	} {
		t.Run(string(status), func(t *testing.T) {
			store := newFakeStore()
			seeded := seedViolation(store, status)
			svc := NewWorkflowService(store)

			_, err := svc.Reject(context.Background(), seeded.ID, bkActor(), RejectInput{
				Reason: "Report could not be substantiated",
				Level:  model.RejectionLevelBK,
			})

			var precondition *PreconditionError
			require.ErrorAs(t, err, &precondition)
			assert.Equal(t, status, precondition.CurrentStatus)
			assert.Empty(t, store.history[seeded.ID])
		})
	}
}

func TestSubmitAppealOnlyFromApprovedBK(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusApprovedBK)
	svc := NewWorkflowService(store)
	actor := model.Actor{ID: uuid.New(), Name: "Budi Santoso", Role: model.ActorRoleStudent}

	violation, err := svc.SubmitAppeal(context.Background(), seeded.ID, actor, AppealInput{
		Reason: "I was attending a school event with written permission",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ViolationStatusAppealed, violation.Status)
	assert.Equal(t, model.AppealOutcomePending, store.lastTransitionFields["appeal_status"])

	pending := seedViolation(store, model.ViolationStatusPending)
	_, err = svc.SubmitAppeal(context.Background(), pending.ID, actor, AppealInput{
		Reason: "I was attending a school event with written permission",
	})
	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, model.ViolationStatusPending, precondition.CurrentStatus)
}

func TestReviewAppealVerdicts(t *testing.T) {
	cases := []struct {
		verdict model.AppealOutcome
		status  model.ViolationStatus
		action  model.ApprovalAction
	}{
		{model.AppealOutcomeApproved, model.ViolationStatusAppealApproved, model.ActionAppealApprove},
		{model.AppealOutcomeRejected, model.ViolationStatusAppealRejected, model.ActionAppealReject},
	}
	for _, tc := range cases {
		t.Run(string(tc.verdict), func(t *testing.T) {
			store := newFakeStore()
			seeded := seedViolation(store, model.ViolationStatusAppealed)
			svc := NewWorkflowService(store)

			violation, err := svc.ReviewAppeal(context.Background(), seeded.ID, bkActor(), AppealReviewInput{
				Verdict: tc.verdict,
				Notes:   "Reviewed the attached permission letter",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.status, violation.Status)
			assert.Equal(t, tc.action, store.history[seeded.ID][0].Action)
			assert.Equal(t, tc.verdict, store.lastTransitionFields["appeal_status"])
		})
	}
}

func TestReviewAppealRejectsUnknownVerdict(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusAppealed)
	svc := NewWorkflowService(store)

	_, err := svc.ReviewAppeal(context.Background(), seeded.ID, bkActor(), AppealReviewInput{
		Verdict: model.AppealOutcome("MAYBE"),
		Notes:   "Reviewed the attached permission letter",
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "appealStatus")
}

func TestTransitionLostRaceReportsCurrentStatus(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusPending)
	store.staleOnce = true
	svc := NewWorkflowService(store)

	_, err := svc.ApproveWaliKelas(context.Background(), seeded.ID, waliActor(), ApproveWaliInput{})

	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, string(model.ActionApproveWali), precondition.Action)
	assert.Equal(t, model.ViolationStatusPending, precondition.CurrentStatus)
}

func TestWorkflowRefusesSoftDeletedRecord(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusPending)
	require.NoError(t, store.SoftDelete(context.Background(), seeded.ID, uuid.New()))
	svc := NewWorkflowService(store)

	_, err := svc.ApproveWaliKelas(context.Background(), seeded.ID, waliActor(), ApproveWaliInput{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.history[seeded.ID])
}

func TestWorkflowNotFound(t *testing.T) {
	store := newFakeStore()
	svc := NewWorkflowService(store)

	_, err := svc.ApproveWaliKelas(context.Background(), uuid.New(), waliActor(), ApproveWaliInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateThenApproveBuildsHistory(t *testing.T) {
	store := newFakeStore()
	violations := NewViolationService(store, time.UTC)
	workflow := NewWorkflowService(store)
	ctx := context.Background()

	created, err := violations.Create(ctx, model.Actor{ID: uuid.New(), Name: "Pak Agus", Role: model.ActorRoleGuruMapel}, CreateViolationInput{
		StudentID:        uuid.New(),
		StudentName:      "Budi Santoso",
		StudentNISN:      "0051234567",
		StudentClass:     "XI IPA 2",
		CategoryID:       uuid.New(),
		CategoryCode:     "LATE_ARRIVAL",
		CategoryName:     "Terlambat",
		CategorySeverity: model.SeverityRingan,
		Points:           5,
		Description:      "Arrived 30 minutes after the first bell",
		ViolationDate:    time.Now().Add(-2 * time.Hour),
		AcademicYear:     "2025/2026",
		Semester:         1,
	})
	require.NoError(t, err)

	approved, err := workflow.ApproveWaliKelas(ctx, created.ID, waliActor(), ApproveWaliInput{})
	require.NoError(t, err)
	assert.Equal(t, model.ViolationStatusApprovedWali, approved.Status)

	entries := store.history[created.ID]
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionSubmit, entries[0].Action)
	assert.Equal(t, model.ActionApproveWali, entries[1].Action)
}

func TestApproveBKOnRejectedRecord(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusRejected)
	svc := NewWorkflowService(store)

	_, err := svc.ApproveBK(context.Background(), seeded.ID, bkActor(), ApproveBKInput{})

	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, model.ViolationStatusRejected, precondition.CurrentStatus)
}

func TestFullLifecycle(t *testing.T) {
	store := newFakeStore()
	seeded := seedViolation(store, model.ViolationStatusPending)
	svc := NewWorkflowService(store)
	ctx := context.Background()

	_, err := svc.ApproveWaliKelas(ctx, seeded.ID, waliActor(), ApproveWaliInput{Notes: "Confirmed"})
	require.NoError(t, err)
	_, err = svc.ApproveBK(ctx, seeded.ID, bkActor(), ApproveBKInput{Sanction: "Written warning"})
	require.NoError(t, err)

	student := model.Actor{ID: seeded.StudentID, Name: seeded.StudentName, Role: model.ActorRoleStudent}
	_, err = svc.SubmitAppeal(ctx, seeded.ID, student, AppealInput{
		Reason: "The sanction does not match what actually happened that day",
	})
	require.NoError(t, err)

	final, err := svc.ReviewAppeal(ctx, seeded.ID, bkActor(), AppealReviewInput{
		Verdict: model.AppealOutcomeApproved,
		Notes:   "Evidence supports the appeal",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ViolationStatusAppealApproved, final.Status)
	assert.True(t, final.Status.IsTerminal())

	require.Len(t, store.history[seeded.ID], 4)
	for i := 1; i < len(store.history[seeded.ID]); i++ {
		assert.Equal(t, store.history[seeded.ID][i-1].ToStatus, store.history[seeded.ID][i].FromStatus)
	}
}
