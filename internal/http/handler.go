package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"student-violation-service/internal/http/middleware"
	"student-violation-service/internal/model"
	"student-violation-service/internal/service"
)

// The handler talks to the services through these interfaces so tests can
// substitute fakes.
type violationService interface {
	Create(ctx context.Context, actor model.Actor, input service.CreateViolationInput) (*model.Violation, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Violation, error)
	List(ctx context.Context, filter model.ViolationFilter) ([]model.Violation, model.Pagination, error)
	UpdateContent(ctx context.Context, id uuid.UUID, actor model.Actor, input service.UpdateViolationInput) (*model.Violation, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor model.Actor) error
	TriggerAuto(ctx context.Context, input service.AutoTriggerInput) (*model.Violation, bool, error)
}

type workflowService interface {
	ApproveWaliKelas(ctx context.Context, id uuid.UUID, actor model.Actor, input service.ApproveWaliInput) (*model.Violation, error)
	ApproveBK(ctx context.Context, id uuid.UUID, actor model.Actor, input service.ApproveBKInput) (*model.Violation, error)
	Reject(ctx context.Context, id uuid.UUID, actor model.Actor, input service.RejectInput) (*model.Violation, error)
	SubmitAppeal(ctx context.Context, id uuid.UUID, actor model.Actor, input service.AppealInput) (*model.Violation, error)
	ReviewAppeal(ctx context.Context, id uuid.UUID, actor model.Actor, input service.AppealReviewInput) (*model.Violation, error)
}

type statsService interface {
	Summary(ctx context.Context, filter model.StatsFilter) (*model.StatsSummary, error)
	RepeatOffenders(ctx context.Context, academicYear string, minViolations int) ([]model.RepeatOffender, error)
}

type Handler struct {
	violations violationService
	workflow   workflowService
	stats      statsService
	log        zerolog.Logger
}

func NewHandler(violations violationService, workflow workflowService, stats statsService, log zerolog.Logger) *Handler {
	return &Handler{
		violations: violations,
		workflow:   workflow,
		stats:      stats,
		log:        log,
	}
}

type createViolationRequest struct {
	StudentID        string    `json:"studentId" binding:"required,uuid"`
	StudentName      string    `json:"studentName" binding:"required,max=100"`
	StudentNISN      string    `json:"studentNisn" binding:"required,max=20"`
	StudentClass     string    `json:"studentClass" binding:"required,max=20"`
	CategoryID       string    `json:"categoryId" binding:"required,uuid"`
	CategoryCode     string    `json:"categoryCode" binding:"required,max=64"`
	CategoryName     string    `json:"categoryName" binding:"required,max=200"`
	CategorySeverity string    `json:"categorySeverity" binding:"required,oneof=RINGAN SEDANG BERAT"`
	Points           int       `json:"points" binding:"required,min=1"`
	Description      string    `json:"description" binding:"required,min=10,max=1000"`
	Location         *string   `json:"location" binding:"omitempty,max=200"`
	EvidenceURLs     []string  `json:"evidenceUrls" binding:"omitempty,max=5,dive,url"`
	WitnessName      *string   `json:"witnessName" binding:"omitempty,max=100"`
	WitnessStatement *string   `json:"witnessStatement" binding:"omitempty,max=500"`
	ViolationDate    time.Time `json:"violationDate" binding:"required"`
	ViolationTime    *string   `json:"violationTime" binding:"omitempty,datetime=15:04"`
	AcademicYear     string    `json:"academicYear" binding:"required,academic_year"`
	Semester         int       `json:"semester" binding:"required,oneof=1 2"`
}

func (h *Handler) createViolation(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "caller identity missing", nil)
		return
	}

	var req createViolationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	input := service.CreateViolationInput{
		StudentID:        uuid.MustParse(req.StudentID),
		StudentName:      req.StudentName,
		StudentNISN:      req.StudentNISN,
		StudentClass:     req.StudentClass,
		CategoryID:       uuid.MustParse(req.CategoryID),
		CategoryCode:     req.CategoryCode,
		CategoryName:     req.CategoryName,
		CategorySeverity: model.CategorySeverity(req.CategorySeverity),
		Points:           req.Points,
		Description:      req.Description,
		Location:         req.Location,
		EvidenceURLs:     req.EvidenceURLs,
		WitnessName:      req.WitnessName,
		WitnessStatement: req.WitnessStatement,
		ViolationDate:    req.ViolationDate,
		ViolationTime:    req.ViolationTime,
		AcademicYear:     req.AcademicYear,
		Semester:         req.Semester,
	}

	violation, err := h.violations.Create(c.Request.Context(), actor, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Violation recorded successfully", violation)
}

func (h *Handler) listViolations(c *gin.Context) {
	filter, err := parseListQuery(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	violations, pagination, err := h.violations.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respondPage(c, http.StatusOK, "Violations retrieved", violations, pagination)
}

func (h *Handler) getViolation(c *gin.Context) {
	id, ok := h.violationID(c)
	if !ok {
		return
	}

	violation, err := h.violations.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Violation detail retrieved", violation)
}

type updateViolationRequest struct {
	Description      *string  `json:"description" binding:"omitempty,min=10,max=1000"`
	Location         *string  `json:"location" binding:"omitempty,max=200"`
	EvidenceURLs     []string `json:"evidenceUrls" binding:"omitempty,max=5,dive,url"`
	WitnessName      *string  `json:"witnessName" binding:"omitempty,max=100"`
	WitnessStatement *string  `json:"witnessStatement" binding:"omitempty,max=500"`
	ViolationTime    *string  `json:"violationTime" binding:"omitempty,datetime=15:04"`
}

func (h *Handler) updateViolation(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "caller identity missing", nil)
		return
	}
	id, ok := h.violationID(c)
	if !ok {
		return
	}

	var req updateViolationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	input := service.UpdateViolationInput{
		Description:      req.Description,
		Location:         req.Location,
		EvidenceURLs:     req.EvidenceURLs,
		WitnessName:      req.WitnessName,
		WitnessStatement: req.WitnessStatement,
		ViolationTime:    req.ViolationTime,
	}

	violation, err := h.violations.UpdateContent(c.Request.Context(), id, actor, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Violation updated", violation)
}

func (h *Handler) deleteViolation(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "caller identity missing", nil)
		return
	}
	id, ok := h.violationID(c)
	if !ok {
		return
	}

	if err := h.violations.SoftDelete(c.Request.Context(), id, actor); err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Violation deleted successfully", nil)
}

func (h *Handler) violationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid violation id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondError(c, http.StatusBadRequest, "Validation failed", fieldErrors(verrs))
			return false
		}
		respondError(c, http.StatusBadRequest, err.Error(), nil)
		return false
	}
	return true
}

// handleError is the single boundary that maps the service error taxonomy to
// status codes and the response envelope.
func (h *Handler) handleError(c *gin.Context, err error) {
	var precondition *service.PreconditionError
	var validation *service.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "Violation not found", nil)
	case errors.As(err, &precondition):
		respondError(c, http.StatusBadRequest, precondition.Error(), gin.H{
			"currentStatus": precondition.CurrentStatus,
		})
	case errors.As(err, &validation):
		respondError(c, http.StatusBadRequest, "Validation failed", validation.Fields)
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		respondError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func parseListQuery(c *gin.Context) (model.ViolationFilter, error) {
	var filter model.ViolationFilter

	if studentID := strings.TrimSpace(c.Query("studentId")); studentID != "" {
		id, err := uuid.Parse(studentID)
		if err != nil {
			return filter, errors.New("invalid studentId")
		}
		filter.StudentID = &id
	}
	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := model.ParseViolationStatus(strings.ToUpper(rawStatus))
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	filter.AcademicYear = strings.TrimSpace(c.Query("academicYear"))
	if rawSemester := strings.TrimSpace(c.Query("semester")); rawSemester != "" {
		semester, err := strconv.Atoi(rawSemester)
		if err != nil || (semester != 1 && semester != 2) {
			return filter, errors.New("semester must be 1 or 2")
		}
		filter.Semester = semester
	}

	filter.Offset = pagingInt(c, "offset", "X-Paging-Offset")
	filter.Limit = pagingInt(c, "limit", "X-Paging-Limit")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if filter.Search == "" {
		filter.Search = strings.TrimSpace(c.GetHeader("X-Paging-Search"))
	}

	return filter, nil
}

// pagingInt reads a paging value from the query string, falling back to the
// legacy X-Paging-* headers still sent by older clients.
func pagingInt(c *gin.Context, query, header string) int {
	raw := strings.TrimSpace(c.Query(query))
	if raw == "" {
		raw = strings.TrimSpace(c.GetHeader(header))
	}
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
