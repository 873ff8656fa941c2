package repository

import (
	"context"

	"gorm.io/gorm"

	"student-violation-service/internal/model"
)

type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) filtered(ctx context.Context, filter model.StatsFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.Violation{})
	if filter.AcademicYear != "" {
		query = query.Where("academic_year = ?", filter.AcademicYear)
	}
	if filter.Semester > 0 {
		query = query.Where("semester = ?", filter.Semester)
	}
	return query
}

func (r *StatsRepository) Summary(ctx context.Context, filter model.StatsFilter) (*model.StatsSummary, error) {
	summary := &model.StatsSummary{
		ByStatus:   make(map[model.ViolationStatus]int64),
		BySeverity: make(map[model.CategorySeverity]int64),
	}

	if err := r.filtered(ctx, filter).Count(&summary.Total).Error; err != nil {
		return nil, err
	}

	var byStatus []struct {
		Status model.ViolationStatus
		Count  int64
	}
	if err := r.filtered(ctx, filter).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		summary.ByStatus[row.Status] = row.Count
	}

	var bySeverity []struct {
		CategorySeverity model.CategorySeverity
		Count            int64
	}
	if err := r.filtered(ctx, filter).
		Select("category_severity, COUNT(*) AS count").
		Group("category_severity").
		Scan(&bySeverity).Error; err != nil {
		return nil, err
	}
	for _, row := range bySeverity {
		summary.BySeverity[row.CategorySeverity] = row.Count
	}

	return summary, nil
}

// RepeatOffenders aggregates per-student counts within an academic year and
// keeps students at or above the threshold, most frequent first. The name and
// class columns are snapshots, so MAX just picks a representative value.
func (r *StatsRepository) RepeatOffenders(ctx context.Context, academicYear string, minViolations int) ([]model.RepeatOffender, error) {
	query := r.db.WithContext(ctx).Model(&model.Violation{}).
		Select(`student_id,
			MAX(student_name) AS student_name,
			MAX(student_class) AS student_class,
			academic_year,
			COUNT(*) AS total_violations,
			SUM(points) AS total_points`).
		Group("student_id, academic_year").
		Having("COUNT(*) >= ?", minViolations).
		Order("total_violations DESC")
	if academicYear != "" {
		query = query.Where("academic_year = ?", academicYear)
	}

	var offenders []model.RepeatOffender
	if err := query.Scan(&offenders).Error; err != nil {
		return nil, err
	}
	return offenders, nil
}
