package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"student-violation-service/internal/model"
	"student-violation-service/internal/repository"
)

// violationStore is the repository surface the services depend on. The gorm
// implementation lives in internal/repository; tests substitute an in-memory
// fake.
type violationStore interface {
	Create(ctx context.Context, violation *model.Violation, entry *model.ApprovalHistoryEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Violation, error)
	GetWithHistory(ctx context.Context, id uuid.UUID) (*model.Violation, error)
	List(ctx context.Context, filter model.ViolationFilter) ([]model.Violation, int64, error)
	Transition(ctx context.Context, id uuid.UUID, from model.ViolationStatus, fields map[string]interface{}, entry *model.ApprovalHistoryEntry) error
	UpdateContent(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
	CreateIfNoSameDay(ctx context.Context, violation *model.Violation, entry *model.ApprovalHistoryEntry, since time.Time) (bool, error)
}

const (
	defaultListLimit = 25
	maxListLimit     = 100
)

type ViolationService struct {
	violations violationStore
	loc        *time.Location
}

// NewViolationService constructs the CRUD/listing service. loc is the fixed
// timezone for the automation dedupe window.
func NewViolationService(violations violationStore, loc *time.Location) *ViolationService {
	if loc == nil {
		loc = time.UTC
	}
	return &ViolationService{violations: violations, loc: loc}
}

type CreateViolationInput struct {
	StudentID        uuid.UUID
	StudentName      string
	StudentNISN      string
	StudentClass     string
	CategoryID       uuid.UUID
	CategoryCode     string
	CategoryName     string
	CategorySeverity model.CategorySeverity
	Points           int
	Description      string
	Location         *string
	EvidenceURLs     []string
	WitnessName      *string
	WitnessStatement *string
	ViolationDate    time.Time
	ViolationTime    *string
	AcademicYear     string
	Semester         int
}

// Create records a new violation in PENDING status together with its SUBMIT
// audit entry. Student and category fields are denormalized snapshots supplied
// by the caller and are never refreshed afterwards.
func (s *ViolationService) Create(ctx context.Context, actor model.Actor, input CreateViolationInput) (*model.Violation, error) {
	if input.ViolationDate.After(time.Now()) {
		return nil, newValidationError("violationDate", "must not be in the future")
	}

	violation := &model.Violation{
		StudentID:        input.StudentID,
		StudentName:      input.StudentName,
		StudentNISN:      input.StudentNISN,
		StudentClass:     input.StudentClass,
		CategoryID:       input.CategoryID,
		CategoryCode:     input.CategoryCode,
		CategoryName:     input.CategoryName,
		CategorySeverity: input.CategorySeverity,
		Points:           input.Points,
		Description:      input.Description,
		Location:         input.Location,
		EvidenceURLs:     input.EvidenceURLs,
		WitnessName:      input.WitnessName,
		WitnessStatement: input.WitnessStatement,
		ViolationDate:    input.ViolationDate,
		ViolationTime:    input.ViolationTime,
		AcademicYear:     input.AcademicYear,
		Semester:         input.Semester,
		Status:           model.ViolationStatusPending,
		IsActive:         true,
		ReportedBy:       actor.ID,
		ReportedByName:   actor.Name,
		ReporterRole:     actor.Role,
		CreatedBy:        actor.ID,
	}

	entry := &model.ApprovalHistoryEntry{
		Action:     model.ActionSubmit,
		FromStatus: model.ViolationStatusPending,
		ToStatus:   model.ViolationStatusPending,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		Notes:      "Initial record submission",
	}

	if err := s.violations.Create(ctx, violation, entry); err != nil {
		return nil, err
	}
	return violation, nil
}

// Get returns the record with its audit history, ordered oldest first.
func (s *ViolationService) Get(ctx context.Context, id uuid.UUID) (*model.Violation, error) {
	violation, err := s.violations.GetWithHistory(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return violation, nil
}

func (s *ViolationService) List(ctx context.Context, filter model.ViolationFilter) ([]model.Violation, model.Pagination, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	violations, total, err := s.violations.List(ctx, filter)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return violations, model.NewPagination(filter.Offset, filter.Limit, total), nil
}

type UpdateViolationInput struct {
	Description      *string
	Location         *string
	EvidenceURLs     []string
	WitnessName      *string
	WitnessStatement *string
	ViolationTime    *string
}

// UpdateContent edits narrative fields. Once the record has left PENDING it is
// immutable except through the workflow actions.
func (s *ViolationService) UpdateContent(ctx context.Context, id uuid.UUID, actor model.Actor, input UpdateViolationInput) (*model.Violation, error) {
	violation, err := s.violations.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if violation.Status != model.ViolationStatusPending {
		return nil, &PreconditionError{Action: actionEdit, CurrentStatus: violation.Status}
	}

	fields := map[string]interface{}{"updated_by": actor.ID}
	if input.Description != nil {
		if len(strings.TrimSpace(*input.Description)) < 10 {
			return nil, newValidationError("description", "must be at least 10 characters")
		}
		fields["description"] = *input.Description
	}
	if input.Location != nil {
		fields["location"] = *input.Location
	}
	if input.EvidenceURLs != nil {
		// Map-based updates bypass the gorm serializer, so marshal by hand.
		raw, err := json.Marshal(input.EvidenceURLs)
		if err != nil {
			return nil, err
		}
		fields["evidence_urls"] = string(raw)
	}
	if input.WitnessName != nil {
		fields["witness_name"] = *input.WitnessName
	}
	if input.WitnessStatement != nil {
		fields["witness_statement"] = *input.WitnessStatement
	}
	if input.ViolationTime != nil {
		fields["violation_time"] = *input.ViolationTime
	}

	if err := s.violations.UpdateContent(ctx, id, fields); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, s.currentStatusError(ctx, id, actionEdit)
		}
		return nil, err
	}
	violation, err = s.violations.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return violation, nil
}

// SoftDelete marks the record deleted. Idempotent: deleting an already-deleted
// record succeeds and just refreshes the marker.
func (s *ViolationService) SoftDelete(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	return s.violations.SoftDelete(ctx, id, actor.ID)
}

type AutoTriggerInput struct {
	StudentID    uuid.UUID
	StudentName  string
	StudentNISN  string
	StudentClass string
	CategoryID   uuid.UUID
	CategoryCode string
	CategoryName string
	Points       int
	Notes        string
	AcademicYear string
	Semester     int
}

// TriggerAuto records a system-originated violation unless a same-day,
// same-category, non-rejected record already exists for the student. The
// dedupe window opens at local midnight in the service's configured timezone.
// Returns (nil, true, nil) when the duplicate guard short-circuits.
func (s *ViolationService) TriggerAuto(ctx context.Context, input AutoTriggerInput) (*model.Violation, bool, error) {
	now := time.Now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	violation := &model.Violation{
		StudentID:        input.StudentID,
		StudentName:      fallback(input.StudentName, "Student"),
		StudentNISN:      fallback(input.StudentNISN, "0000000000"),
		StudentClass:     fallback(input.StudentClass, "Unknown"),
		CategoryID:       input.CategoryID,
		CategoryCode:     fallback(input.CategoryCode, "AUTO_VIOLATION"),
		CategoryName:     fallback(input.CategoryName, "Automated Violation"),
		CategorySeverity: model.SeverityRingan,
		Points:           input.Points,
		Description:      fallback(input.Notes, "Automated violation triggered by system"),
		ViolationDate:    now,
		AcademicYear:     input.AcademicYear,
		Semester:         input.Semester,
		Status:           model.ViolationStatusPending,
		IsActive:         true,
		ReportedBy:       model.SystemActor.ID,
		ReportedByName:   model.SystemActor.Name,
		ReporterRole:     model.SystemActor.Role,
		CreatedBy:        model.SystemActor.ID,
	}
	if violation.Points <= 0 {
		violation.Points = 5
	}
	if violation.AcademicYear == "" {
		violation.AcademicYear = academicYearOf(now)
	}
	if violation.Semester != 1 && violation.Semester != 2 {
		violation.Semester = semesterOf(now)
	}

	entry := &model.ApprovalHistoryEntry{
		Action:     model.ActionSubmit,
		FromStatus: model.ViolationStatusPending,
		ToStatus:   model.ViolationStatusPending,
		ActorID:    model.SystemActor.ID,
		ActorName:  model.SystemActor.Name,
		ActorRole:  model.SystemActor.Role,
		Notes:      "Automated trigger from system component",
	}

	created, err := s.violations.CreateIfNoSameDay(ctx, violation, entry, midnight)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return nil, true, nil
	}
	return violation, false, nil
}

// actionEdit names the narrative-edit operation in precondition errors; edits
// are not a workflow transition and never reach the audit trail.
const actionEdit = "EDIT"

func (s *ViolationService) currentStatusError(ctx context.Context, id uuid.UUID, action string) error {
	current, err := s.violations.GetByID(ctx, id)
	if err != nil {
		return mapStoreErr(err)
	}
	return &PreconditionError{Action: action, CurrentStatus: current.Status}
}

func mapStoreErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// academicYearOf derives the YYYY/YYYY school year: the year rolls over in
// July, the start of the Indonesian school calendar.
func academicYearOf(t time.Time) string {
	start := t.Year()
	if t.Month() < time.July {
		start--
	}
	return formatAcademicYear(start)
}

func formatAcademicYear(start int) string {
	return strconv.Itoa(start) + "/" + strconv.Itoa(start+1)
}

func semesterOf(t time.Time) int {
	if t.Month() >= time.July {
		return 1
	}
	return 2
}
