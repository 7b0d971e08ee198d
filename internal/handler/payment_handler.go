package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jorgejloo/educativo-api/internal/dto"
	"github.com/jorgejloo/educativo-api/internal/models"
	"github.com/jorgejloo/educativo-api/internal/service"
	appErrors "github.com/jorgejloo/educativo-api/pkg/errors"
	"github.com/jorgejloo/educativo-api/pkg/response"
)

type paymentService interface {
	ApplyPayment(ctx context.Context, req service.ApplyPaymentRequest) (*dto.PaymentResult, error)
	CreateDebt(ctx context.Context, req service.CreateDebtRequest) (*models.Debt, error)
	GetDebt(ctx context.Context, id string) (*models.Debt, error)
	OutstandingByDocument(ctx context.Context, document string) (*models.Student, []dto.OutstandingDebt, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error)
	GetPayment(ctx context.Context, id string) (*models.PaymentDetail, error)
}

type receiptDownloader interface {
	Download(ctx context.Context, token string) (io.ReadCloser, string, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// PaymentHandler exposes debt and payment ledger endpoints.
type PaymentHandler struct {
	service  paymentService
	receipts receiptDownloader
	cache    cacheInvalidator
	metrics  *service.MetricsService
}

// NewPaymentHandler builds a new handler. receipts, cache and metrics
// may be nil.
func NewPaymentHandler(svc paymentService, receipts receiptDownloader, cache cacheInvalidator, metrics *service.MetricsService) *PaymentHandler {
	return &PaymentHandler{service: svc, receipts: receipts, cache: cache, metrics: metrics}
}

// Apply godoc
// @Summary Apply a payment to a debt
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.ApplyPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Apply(c *gin.Context) {
	var req service.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	result, err := h.service.ApplyPayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordPayment(result.Payment.Amount)
	if result.ReceiptToken != "" {
		h.metrics.RecordReceipt()
	}
	if h.cache != nil {
		h.cache.Invalidate(c.Request.Context())
	}
	response.Created(c, result)
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Filter by student"
// @Param debt_id query string false "Filter by debt"
// @Param document query string false "Filter by student document"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filter := models.PaymentFilter{
		StudentID: c.Query("student_id"),
		DebtID:    c.Query("debt_id"),
		Document:  c.Query("document"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	payments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Get godoc
// @Summary Get payment by ID
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.service.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// CreateDebt godoc
// @Summary Register a manual charge
// @Tags Debts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateDebtRequest true "Debt payload"
// @Success 201 {object} response.Envelope
// @Router /debts [post]
func (h *PaymentHandler) CreateDebt(c *gin.Context) {
	var req service.CreateDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid debt payload"))
		return
	}
	debt, err := h.service.CreateDebt(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(c.Request.Context())
	}
	response.Created(c, debt)
}

// GetDebt godoc
// @Summary Get debt by ID
// @Tags Debts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Debt ID"
// @Success 200 {object} response.Envelope
// @Router /debts/{id} [get]
func (h *PaymentHandler) GetDebt(c *gin.Context) {
	debt, err := h.service.GetDebt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, debt, nil)
}

// Outstanding godoc
// @Summary Public lookup of open debts by document
// @Tags Debts
// @Produce json
// @Param document query string true "Student document"
// @Success 200 {object} response.Envelope
// @Router /consulta [get]
func (h *PaymentHandler) Outstanding(c *gin.Context) {
	student, debts, err := h.service.OutstandingByDocument(c.Request.Context(), c.Query("document"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"student": models.Student{ID: student.ID, FullName: student.FullName, Document: student.Document},
		"debts":   debts,
	}, nil)
}

// DownloadReceipt godoc
// @Summary Download a receipt using a signed token
// @Tags Payments
// @Produce application/pdf
// @Param token path string true "Signed receipt token"
// @Success 200 {file} binary
// @Router /receipts/{token} [get]
func (h *PaymentHandler) DownloadReceipt(c *gin.Context) {
	if h.receipts == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "receipts are disabled"))
		return
	}
	reader, filename, err := h.receipts.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}
