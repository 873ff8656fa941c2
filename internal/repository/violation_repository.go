package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"student-violation-service/internal/model"
)

// ErrStaleStatus is returned when a conditional status update matched no row:
// either the record vanished or its status changed under a concurrent request.
var ErrStaleStatus = errors.New("stale violation status")

type ViolationRepository struct {
	db *gorm.DB
}

func NewViolationRepository(db *gorm.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// Create inserts the violation together with its SUBMIT history entry. Both
// writes share one transaction so a half-created record is never observable.
func (r *ViolationRepository) Create(ctx context.Context, violation *model.Violation, entry *model.ApprovalHistoryEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(violation).Error; err != nil {
			return err
		}
		entry.ViolationID = violation.ID
		return tx.Create(entry).Error
	})
}

func (r *ViolationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Violation, error) {
	var violation model.Violation
	if err := r.db.WithContext(ctx).First(&violation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &violation, nil
}

func (r *ViolationRepository) GetWithHistory(ctx context.Context, id uuid.UUID) (*model.Violation, error) {
	var violation model.Violation
	err := r.db.WithContext(ctx).
		Preload("ApprovalHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("action_date ASC")
		}).
		First(&violation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &violation, nil
}

func (r *ViolationRepository) List(ctx context.Context, filter model.ViolationFilter) ([]model.Violation, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.filtered(ctx, filter)
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var violations []model.Violation
	if err := query.Order("violation_date DESC").Find(&violations).Error; err != nil {
		return nil, 0, err
	}
	return violations, total, nil
}

func (r *ViolationRepository) filtered(ctx context.Context, filter model.ViolationFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.Violation{})
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AcademicYear != "" {
		query = query.Where("academic_year = ?", filter.AcademicYear)
	}
	if filter.Semester > 0 {
		query = query.Where("semester = ?", filter.Semester)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where(
			"(student_name ILIKE ? OR student_nisn ILIKE ? OR category_name ILIKE ?)",
			search, search, search,
		)
	}
	return query
}

// Transition performs the guard-then-write atomically: the status update is
// keyed on the expected current status and the audit entry is appended in the
// same transaction. A concurrent transition makes the conditional update match
// nothing, and the whole unit fails with ErrStaleStatus.
func (r *ViolationRepository) Transition(
	ctx context.Context,
	id uuid.UUID,
	from model.ViolationStatus,
	fields map[string]interface{},
	entry *model.ApprovalHistoryEntry,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Violation{}).
			Where("id = ? AND status = ?", id, from).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}
		entry.ViolationID = id
		return tx.Create(entry).Error
	})
}

// UpdateContent edits narrative fields, allowed only while the record is still
// PENDING. The status guard lives in the WHERE clause for the same concurrency
// reasons as Transition.
func (r *ViolationRepository) UpdateContent(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Violation{}).
		Where("id = ? AND status = ?", id, model.ViolationStatusPending).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// SoftDelete marks the record deleted without touching its status. Repeating
// the call just refreshes the marker, so the operation is idempotent.
func (r *ViolationRepository) SoftDelete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Model(&model.Violation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at": time.Now(),
			"is_active":  false,
			"updated_by": actorID,
		}).Error
}

// CreateIfNoSameDay is the automation dedupe guard: within one transaction it
// looks for an existing same-student, same-category, non-rejected record dated
// on or after the local-midnight cutoff, and only creates the violation (plus
// its SUBMIT entry) when none exists. Concurrent triggers for the same
// student+category pair are serialized on a transaction-scoped advisory lock,
// so exactly one of them creates. Reports whether a record was created.
func (r *ViolationRepository) CreateIfNoSameDay(
	ctx context.Context,
	violation *model.Violation,
	entry *model.ApprovalHistoryEntry,
	since time.Time,
) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// At READ COMMITTED two concurrent triggers would both see count 0
		// before either commits. The advisory lock serializes the
		// check-then-insert per student+category until the transaction ends.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?), hashtext(?))",
			violation.StudentID.String(), violation.CategoryCode).Error; err != nil {
			return err
		}

		var count int64
		err := tx.Model(&model.Violation{}).
			Where("student_id = ? AND category_code = ? AND violation_date >= ? AND status <> ?",
				violation.StudentID, violation.CategoryCode, since, model.ViolationStatusRejected).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(violation).Error; err != nil {
			return err
		}
		entry.ViolationID = violation.ID
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
