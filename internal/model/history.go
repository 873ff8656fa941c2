package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApprovalAction string

const (
	ActionSubmit        ApprovalAction = "SUBMIT"
	ActionApproveWali   ApprovalAction = "APPROVE_WALI"
	ActionApproveBK     ApprovalAction = "APPROVE_BK"
	ActionReject        ApprovalAction = "REJECT"
	ActionAppeal        ApprovalAction = "APPEAL"
	ActionAppealApprove ApprovalAction = "APPEAL_APPROVE"
	ActionAppealReject  ApprovalAction = "APPEAL_REJECT"
)

// ApprovalHistoryEntry is an append-only audit record. Entries are written in
// the same transaction as the status change they document and are never
// updated or deleted afterwards.
type ApprovalHistoryEntry struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ViolationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"violationId"`
	Action      ApprovalAction  `gorm:"type:varchar(32);not null" json:"action"`
	FromStatus  ViolationStatus `gorm:"type:violation_status;not null" json:"fromStatus"`
	ToStatus    ViolationStatus `gorm:"type:violation_status;not null" json:"toStatus"`
	ActorID     uuid.UUID       `gorm:"type:uuid;not null" json:"actorId"`
	ActorName   string          `gorm:"type:varchar(100);not null" json:"actorName"`
	ActorRole   ActorRole       `gorm:"type:varchar(32);not null" json:"actorRole"`
	Notes       string          `gorm:"type:text" json:"notes"`
	ActionDate  time.Time       `gorm:"autoCreateTime;index" json:"actionDate"`
}

func (ApprovalHistoryEntry) TableName() string {
	return "violation_approval_history"
}

func (e *ApprovalHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
