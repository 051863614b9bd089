package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schooldesk/schooldesk-api/internal/models"
	"github.com/schooldesk/schooldesk-api/internal/service"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
	"github.com/schooldesk/schooldesk-api/pkg/response"
)

// GuardianHandler exposes the guardian session flow. Guardian refresh tokens
// are bearer credentials carried in the Authorization header rather than
// cookies.
type GuardianHandler struct {
	service *service.GuardianService
}

// NewGuardianHandler creates a new handler.
func NewGuardianHandler(svc *service.GuardianService) *GuardianHandler {
	return &GuardianHandler{service: svc}
}

// guardianBearerToken extracts the refresh token from the Authorization
// header.
func guardianBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Login godoc
// @Summary Guardian login
// @Description Authenticate a guardian with the student's index number and access code
// @Tags Guardian
// @Accept json
// @Produce json
// @Param payload body models.GuardianLoginRequest true "Guardian login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /guardian/login [post]
func (h *GuardianHandler) Login(c *gin.Context) {
	var req models.GuardianLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid guardian login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// Refresh godoc
// @Summary Refresh guardian session
// @Description Rotate the guardian bearer token and issue a new access token
// @Tags Guardian
// @Produce json
// @Param Authorization header string true "Bearer refresh token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /guardian/refresh [post]
func (h *GuardianHandler) Refresh(c *gin.Context) {
	token := guardianBearerToken(c)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "bearer refresh token required"))
		return
	}

	session, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// Logout godoc
// @Summary Guardian logout
// @Description Revoke the guardian bearer token
// @Tags Guardian
// @Produce json
// @Param Authorization header string true "Bearer refresh token"
// @Success 204 {object} response.Envelope
// @Router /guardian/logout [post]
func (h *GuardianHandler) Logout(c *gin.Context) {
	token := guardianBearerToken(c)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "bearer refresh token required"))
		return
	}

	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// IssueAccessCode godoc
// @Summary Issue guardian access code
// @Description Generate a new guardian access code for a student, revoking existing guardian sessions
// @Tags Guardian
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/guardian-code [post]
func (h *GuardianHandler) IssueAccessCode(c *gin.Context) {
	code, err := h.service.IssueAccessCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"access_code": code}, nil)
}
