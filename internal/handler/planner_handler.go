package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schooldesk/schooldesk-api/internal/models"
	"github.com/schooldesk/schooldesk-api/internal/service"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
	"github.com/schooldesk/schooldesk-api/pkg/response"
)

// PlannerHandler serves the daily planner flow for all three actors: the
// student who writes it, the guardian who countersigns it and the homeroom
// teacher who reviews it.
type PlannerHandler struct {
	service *service.PlannerService
}

// NewPlannerHandler creates a new handler.
func NewPlannerHandler(svc *service.PlannerService) *PlannerHandler {
	return &PlannerHandler{service: svc}
}

// GetForDate godoc
// @Summary Get planner for a date
// @Description Returns the student's planner for the given date, seeding a draft from the class schedule when none exists
// @Tags Planner
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD, defaults to today)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /student/daily-planner [get]
func (h *PlannerHandler) GetForDate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	planner, err := h.service.GetForDate(c.Request.Context(), claims.UserID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, planner, nil)
}

// Save godoc
// @Summary Save planner content
// @Description Create or update the planner for a date and submit it for guardian approval
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body models.PlannerContentRequest true "Planner content"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /student/daily-planner [put]
func (h *PlannerHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.PlannerContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid planner payload"))
		return
	}

	planner, err := h.service.Save(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, planner, nil)
}

// Recall godoc
// @Summary Recall a submitted planner
// @Description Pull a pending planner back for editing before the guardian acts on it
// @Tags Planner
// @Produce json
// @Param id path string true "Planner ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /student/daily-planner/{id}/recall [post]
func (h *PlannerHandler) Recall(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	planner, err := h.service.Recall(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, planner, nil)
}

// History godoc
// @Summary Planner history
// @Description Returns the student's recent planners, newest first
// @Tags Planner
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /student/daily-planner/history [get]
func (h *PlannerHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	planners, err := h.service.History(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, planners, nil)
}

// PendingForGuardian godoc
// @Summary Pending planners for guardian
// @Description Returns the linked student's planners awaiting guardian approval
// @Tags Guardian
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /guardian/pending-planners [get]
func (h *PlannerHandler) PendingForGuardian(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || !claims.IsGuardian() {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	planners, err := h.service.PendingForGuardian(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, planners, nil)
}

// DetailForGuardian godoc
// @Summary Planner detail for guardian
// @Description Returns a single planner of the linked student
// @Tags Guardian
// @Produce json
// @Param id path string true "Planner ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /guardian/planner-details/{id} [get]
func (h *PlannerHandler) DetailForGuardian(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || !claims.IsGuardian() {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	detail, err := h.service.DetailForGuardian(c.Request.Context(), claims.StudentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// GuardianApprove godoc
// @Summary Guardian approves a planner
// @Description Countersigns a pending planner, moving it to the teacher's queue
// @Tags Guardian
// @Accept json
// @Produce json
// @Param id path string true "Planner ID"
// @Param payload body models.GuardianApproveRequest true "Signature"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /guardian/approve-planner/{id} [post]
func (h *PlannerHandler) GuardianApprove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || !claims.IsGuardian() {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	var req models.GuardianApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "signature required"))
		return
	}

	planner, err := h.service.GuardianApprove(c.Request.Context(), claims.StudentID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, planner, nil)
}

// ReviewQueue godoc
// @Summary Guardian-approved planners
// @Description Returns planners from the teacher's homeroom classes awaiting review
// @Tags Planner
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teacher/guardian-approved-planners [get]
func (h *PlannerHandler) ReviewQueue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	planners, err := h.service.ReviewQueue(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, planners, nil)
}

// Review godoc
// @Summary Review a planner
// @Description Approve or decline a guardian-approved planner; declines require a comment
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Planner ID"
// @Param payload body models.TeacherReviewRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/review-planner/{id} [post]
func (h *PlannerHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.TeacherReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	planner, err := h.service.Review(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, planner, nil)
}

// Detail godoc
// @Summary Planner detail for teacher
// @Description Returns a planner from one of the teacher's homeroom classes
// @Tags Planner
// @Produce json
// @Param id path string true "Planner ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/planner-details/{id} [get]
func (h *PlannerHandler) Detail(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Detail(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}
