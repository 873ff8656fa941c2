package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ViolationStatus string

const (
	ViolationStatusPending        ViolationStatus = "PENDING"
	ViolationStatusApprovedWali   ViolationStatus = "APPROVED_WALI"
	ViolationStatusApprovedBK     ViolationStatus = "APPROVED_BK"
	ViolationStatusRejected       ViolationStatus = "REJECTED"
	ViolationStatusAppealed       ViolationStatus = "APPEALED"
	ViolationStatusAppealApproved ViolationStatus = "APPEAL_APPROVED"
	ViolationStatusAppealRejected ViolationStatus = "APPEAL_REJECTED"
)

// IsTerminal reports whether no further workflow action can move the record.
// APPROVED_BK is the end of the approval chain but stays appealable.
func (s ViolationStatus) IsTerminal() bool {
	switch s {
	case ViolationStatusRejected, ViolationStatusAppealApproved, ViolationStatusAppealRejected:
		return true
	default:
		return false
	}
}

func ParseViolationStatus(raw string) (ViolationStatus, error) {
	s := ViolationStatus(raw)
	switch s {
	case ViolationStatusPending, ViolationStatusApprovedWali, ViolationStatusApprovedBK,
		ViolationStatusRejected, ViolationStatusAppealed,
		ViolationStatusAppealApproved, ViolationStatusAppealRejected:
		return s, nil
	default:
		return "", fmt.Errorf("unknown violation status %q", raw)
	}
}

type CategorySeverity string

const (
	SeverityRingan CategorySeverity = "RINGAN"
	SeveritySedang CategorySeverity = "SEDANG"
	SeverityBerat  CategorySeverity = "BERAT"
)

func ParseCategorySeverity(raw string) (CategorySeverity, error) {
	s := CategorySeverity(raw)
	switch s {
	case SeverityRingan, SeveritySedang, SeverityBerat:
		return s, nil
	default:
		return "", fmt.Errorf("unknown category severity %q", raw)
	}
}

// AppealOutcome is the review verdict on a filed appeal.
type AppealOutcome string

const (
	AppealOutcomePending  AppealOutcome = "PENDING"
	AppealOutcomeApproved AppealOutcome = "APPROVED"
	AppealOutcomeRejected AppealOutcome = "REJECTED"
)

type RejectionLevel string

const (
	RejectionLevelWaliKelas RejectionLevel = "WALIKELAS"
	RejectionLevelBK        RejectionLevel = "BK"
)

// Violation carries denormalized student and category snapshots taken at
// creation time. They are never re-synced; readers accept staleness in
// exchange for join-free reads.
type Violation struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`

	StudentID    uuid.UUID `gorm:"type:uuid;not null;index" json:"studentId"`
	StudentName  string    `gorm:"type:varchar(100);not null" json:"studentName"`
	StudentNISN  string    `gorm:"column:student_nisn;type:varchar(20);not null" json:"studentNisn"`
	StudentClass string    `gorm:"type:varchar(20);not null" json:"studentClass"`

	CategoryID       uuid.UUID        `gorm:"type:uuid;not null" json:"categoryId"`
	CategoryCode     string           `gorm:"type:varchar(64);not null" json:"categoryCode"`
	CategoryName     string           `gorm:"type:varchar(200);not null" json:"categoryName"`
	CategorySeverity CategorySeverity `gorm:"type:category_severity;not null" json:"categorySeverity"`
	Points           int              `gorm:"not null" json:"points"`

	Description      string   `gorm:"type:text;not null" json:"description"`
	Location         *string  `gorm:"type:varchar(200)" json:"location,omitempty"`
	EvidenceURLs     []string `gorm:"column:evidence_urls;type:jsonb;serializer:json" json:"evidenceUrls,omitempty"`
	WitnessName      *string  `gorm:"type:varchar(100)" json:"witnessName,omitempty"`
	WitnessStatement *string  `gorm:"type:text" json:"witnessStatement,omitempty"`

	ViolationDate time.Time `gorm:"not null;index" json:"violationDate"`
	ViolationTime *string   `gorm:"type:varchar(5)" json:"violationTime,omitempty"`
	AcademicYear  string    `gorm:"type:varchar(9);not null;index" json:"academicYear"`
	Semester      int       `gorm:"not null" json:"semester"`

	Status ViolationStatus `gorm:"type:violation_status;not null;default:'PENDING'" json:"status"`

	WaliApprovedAt     *time.Time `gorm:"column:wali_approved_at" json:"waliApprovedAt,omitempty"`
	WaliApprovedBy     *uuid.UUID `gorm:"column:wali_approved_by;type:uuid" json:"waliApprovedBy,omitempty"`
	WaliApprovedByName *string    `gorm:"column:wali_approved_by_name;type:varchar(100)" json:"waliApprovedByName,omitempty"`
	WaliNotes          *string    `gorm:"type:varchar(500)" json:"waliNotes,omitempty"`

	BKApprovedAt      *time.Time `gorm:"column:bk_approved_at" json:"bkApprovedAt,omitempty"`
	BKApprovedBy      *uuid.UUID `gorm:"column:bk_approved_by;type:uuid" json:"bkApprovedBy,omitempty"`
	BKApprovedByName  *string    `gorm:"column:bk_approved_by_name;type:varchar(100)" json:"bkApprovedByName,omitempty"`
	BKNotes           *string    `gorm:"column:bk_notes;type:varchar(500)" json:"bkNotes,omitempty"`
	Sanction          *string    `gorm:"type:varchar(500)" json:"sanction,omitempty"`
	SanctionStartDate *time.Time `json:"sanctionStartDate,omitempty"`
	SanctionEndDate   *time.Time `json:"sanctionEndDate,omitempty"`

	RejectedAt      *time.Time      `json:"rejectedAt,omitempty"`
	RejectedBy      *uuid.UUID      `gorm:"type:uuid" json:"rejectedBy,omitempty"`
	RejectedByName  *string         `gorm:"type:varchar(100)" json:"rejectedByName,omitempty"`
	RejectionReason *string         `gorm:"type:varchar(500)" json:"rejectionReason,omitempty"`
	RejectionLevel  *RejectionLevel `gorm:"type:rejection_level" json:"rejectionLevel,omitempty"`

	AppealReason         *string        `gorm:"type:varchar(1000)" json:"appealReason,omitempty"`
	AppealedAt           *time.Time     `json:"appealedAt,omitempty"`
	AppealedBy           *uuid.UUID     `gorm:"type:uuid" json:"appealedBy,omitempty"`
	AppealStatus         *AppealOutcome `gorm:"type:appeal_outcome" json:"appealStatus,omitempty"`
	AppealNotes          *string        `gorm:"type:varchar(500)" json:"appealNotes,omitempty"`
	AppealReviewedAt     *time.Time     `json:"appealReviewedAt,omitempty"`
	AppealReviewedBy     *uuid.UUID     `gorm:"type:uuid" json:"appealReviewedBy,omitempty"`
	AppealReviewedByName *string        `gorm:"type:varchar(100)" json:"appealReviewedByName,omitempty"`

	IsActive  bool           `gorm:"not null;default:true" json:"isActive"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`

	ReportedBy     uuid.UUID  `gorm:"type:uuid;not null" json:"reportedBy"`
	ReportedByName string     `gorm:"type:varchar(100);not null" json:"reportedByName"`
	ReporterRole   ActorRole  `gorm:"type:varchar(32);not null" json:"reporterRole"`
	CreatedBy      uuid.UUID  `gorm:"type:uuid;not null" json:"createdBy"`
	UpdatedBy      *uuid.UUID `gorm:"type:uuid" json:"updatedBy,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	ApprovalHistory []ApprovalHistoryEntry `gorm:"foreignKey:ViolationID" json:"approvalHistory,omitempty"`
}

func (Violation) TableName() string {
	return "violations"
}

func (v *Violation) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
