package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"student-violation-service/internal/http/middleware"
	"student-violation-service/internal/model"
	"student-violation-service/internal/service"
)

type approveWaliRequest struct {
	Notes string `json:"notes" binding:"omitempty,max=500"`
}

func (h *Handler) approveWaliKelas(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "caller identity missing", nil)
		return
	}
	id, ok := h.violationID(c)
	if !ok {
		return
	}

	var req approveWaliRequest
	if !h.bindJSON(c, &req) {
		return
	}

	violation, err := h.workflow.ApproveWaliKelas(c.Request.Context(), id, actor, service.ApproveWaliInput{Notes: req.Notes})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Violation approved by Wali Kelas", violation)
}

type approveBKRequest struct {
	Notes             string     `json:"notes" binding:"omitempty,max=500"`
	Sanction          string     `json:"sanction" binding:"omitempty,max=500"`
	SanctionStartDate *time.Time `json:"sanctionStartDate"`
	SanctionEndDate   *time.Time `json:"sanctionEndDate"`
}

func (h *Handler) approveBK(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "caller identity missing", nil)
		return
	}
	id, ok := h.violationID(c)
	if !ok {
		return
	}

	var req approveBKRequest
	if !h.bindJSON(c, &req) {
		return
	}

	input := service.ApproveBKInput{
		Notes:             req.Notes,
		Sanction:          req.Sanction,
		SanctionStartDate: req.SanctionStartDate,
		SanctionEndDate:   req.SanctionEndDate,
	}

	violation, err := h.workflow.ApproveBK(c.Request.Context(), id, actor, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Violation approved by BK (Final)", violation)
}

type rejectRequest struct {
	RejectionReason string `json:"rejectionReason" binding:"required,min=10,max=500"`
	RejectionLevel  string `json:"rejectionLevel" binding:"required,oneof=WALIKELAS BK"`
}

func (h *Handler) rejectViolation(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "caller identity missing", nil)
		return
	}
	id, ok := h.violationID(c)
	if !ok {
		return
	}

	var req rejectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	input := service.RejectInput{
		Reason: req.RejectionReason,
		Level:  model.RejectionLevel(req.RejectionLevel),
	}

	violation, err := h.workflow.Reject(c.Request.Context(), id, actor, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Violation rejected", violation)
}

type appealRequest struct {
	AppealReason string `json:"appealReason" binding:"required,min=20,max=1000"`
}

func (h *Handler) submitAppeal(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "caller identity missing", nil)
		return
	}
	id, ok := h.violationID(c)
	if !ok {
		return
	}

	var req appealRequest
	if !h.bindJSON(c, &req) {
		return
	}

	violation, err := h.workflow.SubmitAppeal(c.Request.Context(), id, actor, service.AppealInput{Reason: req.AppealReason})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Appeal submitted successfully", violation)
}

type appealReviewRequest struct {
	AppealStatus string `json:"appealStatus" binding:"required,oneof=APPROVED REJECTED"`
	AppealNotes  string `json:"appealNotes" binding:"required,min=10,max=500"`
}

func (h *Handler) reviewAppeal(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "caller identity missing", nil)
		return
	}
	id, ok := h.violationID(c)
	if !ok {
		return
	}

	var req appealReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	input := service.AppealReviewInput{
		Verdict: model.AppealOutcome(req.AppealStatus),
		Notes:   req.AppealNotes,
	}

	violation, err := h.workflow.ReviewAppeal(c.Request.Context(), id, actor, input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	message := "Appeal rejected"
	if input.Verdict == model.AppealOutcomeApproved {
		message = "Appeal approved"
	}
	respond(c, http.StatusOK, message, violation)
}

type autoTriggerRequest struct {
	StudentID    string `json:"studentId" binding:"required,uuid"`
	StudentName  string `json:"studentName"`
	StudentNISN  string `json:"studentNisn"`
	StudentClass string `json:"studentClass"`
	CategoryID   string `json:"categoryId" binding:"omitempty,uuid"`
	CategoryCode string `json:"categoryCode"`
	CategoryName string `json:"categoryName"`
	Points       int    `json:"points" binding:"omitempty,min=1"`
	Notes        string `json:"notes"`
	AcademicYear string `json:"academicYear" binding:"omitempty,academic_year"`
	Semester     int    `json:"semester" binding:"omitempty,oneof=1 2"`
}

func (h *Handler) triggerAuto(c *gin.Context) {
	var req autoTriggerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	input := service.AutoTriggerInput{
		StudentID:    uuid.MustParse(req.StudentID),
		StudentName:  req.StudentName,
		StudentNISN:  req.StudentNISN,
		StudentClass: req.StudentClass,
		CategoryCode: req.CategoryCode,
		CategoryName: req.CategoryName,
		Points:       req.Points,
		Notes:        req.Notes,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
	}
	if req.CategoryID != "" {
		input.CategoryID = uuid.MustParse(req.CategoryID)
	}

	violation, skipped, err := h.violations.TriggerAuto(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if skipped {
		respond(c, http.StatusOK, "Violation already exists for today, skipping auto-trigger", nil)
		return
	}
	respond(c, http.StatusCreated, "Automated violation recorded", violation)
}
