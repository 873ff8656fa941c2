package model

import "github.com/google/uuid"

// ViolationFilter narrows List queries. Zero values mean "no constraint".
type ViolationFilter struct {
	StudentID    *uuid.UUID
	Status       *ViolationStatus
	AcademicYear string
	Semester     int
	Search       string
	Offset       int
	Limit        int
}

type Pagination struct {
	Offset     int   `json:"offset"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func NewPagination(offset, limit int, total int64) Pagination {
	p := Pagination{Offset: offset, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return p
}

type StatsFilter struct {
	AcademicYear string
	Semester     int
}

type StatsSummary struct {
	Total      int64                      `json:"total"`
	ByStatus   map[ViolationStatus]int64  `json:"byStatus"`
	BySeverity map[CategorySeverity]int64 `json:"bySeverity"`
}

// RepeatOffender is an aggregate row: one student whose violation count within
// an academic year reached the requested threshold.
type RepeatOffender struct {
	StudentID       uuid.UUID `gorm:"column:student_id" json:"studentId"`
	StudentName     string    `gorm:"column:student_name" json:"studentName"`
	StudentClass    string    `gorm:"column:student_class" json:"studentClass"`
	AcademicYear    string    `gorm:"column:academic_year" json:"academicYear"`
	TotalViolations int64     `gorm:"column:total_violations" json:"totalViolations"`
	TotalPoints     int64     `gorm:"column:total_points" json:"totalPoints"`
}
