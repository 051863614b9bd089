package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/schooldesk/schooldesk-api/internal/service"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
	"github.com/schooldesk/schooldesk-api/pkg/response"
)

// PerformanceHandler serves daily performance ratings and exam results.
type PerformanceHandler struct {
	service *service.PerformanceService
}

// NewPerformanceHandler creates a new performance handler.
func NewPerformanceHandler(svc *service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{service: svc}
}

// Submit godoc
// @Summary Rate a student's day
// @Description Records the teacher's rating of a student for one day and subject
// @Tags Performance
// @Accept json
// @Produce json
// @Param payload body service.PerformanceRequest true "Performance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/performance [post]
func (h *PerformanceHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.PerformanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid performance payload"))
		return
	}

	entry, err := h.service.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, entry, nil)
}

// History godoc
// @Summary Ratings submitted by the current teacher
// @Tags Performance
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /teacher/performance-history [get]
func (h *PerformanceHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.service.TeacherHistory(c.Request.Context(), claims.UserID, limitQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// MyPerformance godoc
// @Summary Ratings received by the current student
// @Tags Performance
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /student/my-performance [get]
func (h *PerformanceHandler) MyPerformance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.service.StudentHistory(c.Request.Context(), claims.UserID, limitQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// MyResults godoc
// @Summary Exam results of the current student
// @Tags Performance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/my-results [get]
func (h *PerformanceHandler) MyResults(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	results, err := h.service.Results(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, results, nil)
}

// PerformanceForGuardian godoc
// @Summary Ratings received by the linked student
// @Tags Guardian
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /guardian/my-performance [get]
func (h *PerformanceHandler) PerformanceForGuardian(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || !claims.IsGuardian() {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	entries, err := h.service.StudentHistory(c.Request.Context(), claims.StudentID, limitQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// ResultsForGuardian godoc
// @Summary Exam results of the linked student
// @Tags Guardian
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /guardian/my-results [get]
func (h *PerformanceHandler) ResultsForGuardian(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || !claims.IsGuardian() {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	results, err := h.service.Results(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, results, nil)
}

// RecordResult godoc
// @Summary File an exam report
// @Description Saves a student's marks for one exam round
// @Tags Performance
// @Accept json
// @Produce json
// @Param payload body service.ExamResultRequest true "Exam result payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /results [post]
func (h *PerformanceHandler) RecordResult(c *gin.Context) {
	var req service.ExamResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam result payload"))
		return
	}

	result, err := h.service.RecordResult(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, result, nil)
}

func limitQuery(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
