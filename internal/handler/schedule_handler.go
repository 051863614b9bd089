package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schooldesk/schooldesk-api/internal/models"
	"github.com/schooldesk/schooldesk-api/internal/service"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
	"github.com/schooldesk/schooldesk-api/pkg/response"
)

// ScheduleHandler serves weekly schedule grids.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// ForClass godoc
// @Summary Weekly schedule for a class
// @Tags Schedules
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/class/{id} [get]
func (h *ScheduleHandler) ForClass(c *gin.Context) {
	weekly, err := h.service.WeeklyForClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, weekly, nil)
}

// ForTeacher godoc
// @Summary Weekly schedule for the current teacher
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/teacher [get]
func (h *ScheduleHandler) ForTeacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	weekly, err := h.service.WeeklyForTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, weekly, nil)
}

// ForStudent godoc
// @Summary Weekly schedule for the current student's class
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/my-schedule [get]
func (h *ScheduleHandler) ForStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	weekly, err := h.service.WeeklyForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, weekly, nil)
}

// Replace godoc
// @Summary Replace a class schedule grid
// @Description Replaces the whole weekly grid for a class, rejecting teacher double bookings
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.ScheduleUpdateRequest true "Weekly grid"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/class/{id} [put]
func (h *ScheduleHandler) Replace(c *gin.Context) {
	var req service.ScheduleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}

	weekly, err := h.service.ReplaceGrid(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		var conflict *models.ScheduleConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusConflict, response.Envelope{
				Error: appErrors.New("SCHEDULE_CONFLICT", http.StatusConflict, conflict.Message),
				Data:  gin.H{"conflicts": conflict.Conflicts},
			})
			return
		}
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, weekly, nil)
}
