package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"student-violation-service/internal/model"
)

func (h *Handler) statsSummary(c *gin.Context) {
	filter := model.StatsFilter{
		AcademicYear: c.Query("academicYear"),
	}
	if raw := c.Query("semester"); raw != "" {
		semester, err := strconv.Atoi(raw)
		if err != nil || (semester != 1 && semester != 2) {
			respondError(c, http.StatusBadRequest, "semester must be 1 or 2", nil)
			return
		}
		filter.Semester = semester
	}

	summary, err := h.stats.Summary(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Statistics summary retrieved", summary)
}

func (h *Handler) repeatOffenders(c *gin.Context) {
	academicYear := c.Query("academicYear")

	minViolations := 0
	if raw := c.Query("minViolations"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(c, http.StatusBadRequest, "minViolations must be a positive integer", nil)
			return
		}
		minViolations = parsed
	}

	offenders, err := h.stats.RepeatOffenders(c.Request.Context(), academicYear, minViolations)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Repeat offenders retrieved", offenders)
}
