package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/schooldesk/schooldesk-api/internal/models"
	"github.com/schooldesk/schooldesk-api/internal/service"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
	"github.com/schooldesk/schooldesk-api/pkg/response"
)

// FeeHandler handles fee collection and receipt downloads.
type FeeHandler struct {
	service *service.FeeService
}

// NewFeeHandler creates a new fee handler.
func NewFeeHandler(svc *service.FeeService) *FeeHandler {
	return &FeeHandler{service: svc}
}

// LookupStudent godoc
// @Summary Look up a student for fee collection
// @Description Returns the student summary and the months already paid
// @Tags Fees
// @Produce json
// @Param index path string true "Student index number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/student-lookup/{index} [get]
func (h *FeeHandler) LookupStudent(c *gin.Context) {
	student, paidMonths, err := h.service.LookupStudent(c.Request.Context(), c.Param("index"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"student": student, "paid_months": paidMonths}, nil)
}

// Collect godoc
// @Summary Collect fees
// @Description Records a payment and queues the receipt render; the receipt starts PENDING
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.FeeCollectRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/collect [post]
func (h *FeeHandler) Collect(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.FeeCollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	payment, err := h.service.Collect(c.Request.Context(), claims.UserID, claims.FullName, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, payment)
}

// History godoc
// @Summary Payment history
// @Tags Fees
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param student_id query string false "Student filter"
// @Param class_id query string false "Class filter"
// @Param month query string false "Month filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /fees [get]
func (h *FeeHandler) History(c *gin.Context) {
	var filter models.FeeFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.StudentID = c.Query("student_id")
	filter.ClassID = c.Query("class_id")
	filter.Month = c.Query("month")
	filter.Search = c.Query("search")

	payments, pagination, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, payments, pagination)
}

// MyFees godoc
// @Summary Payment history for the current student
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/my-fees [get]
func (h *FeeHandler) MyFees(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.FeeFilter{StudentID: claims.UserID, Page: 1, PageSize: 50}
	payments, pagination, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, payments, pagination)
}

// ReceiptLink godoc
// @Summary Get receipt download link
// @Description Issues a short-lived signed link once the receipt is READY
// @Tags Fees
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /fees/{id}/receipt-link [get]
func (h *FeeHandler) ReceiptLink(c *gin.Context) {
	link, err := h.service.ReceiptLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// DownloadReceipt godoc
// @Summary Download a receipt PDF
// @Description Serves the PDF named by a valid signed token; no session required
// @Tags Fees
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /fees/receipt/{token} [get]
func (h *FeeHandler) DownloadReceipt(c *gin.Context) {
	file, filename, err := h.service.OpenReceipt(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read receipt"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.DataFromReader(http.StatusOK, stat.Size(), "application/pdf", file, nil)
}
