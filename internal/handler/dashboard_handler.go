package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jorgejloo/educativo-api/internal/dto"
	"github.com/jorgejloo/educativo-api/internal/models"
	"github.com/jorgejloo/educativo-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context) (*dto.DashboardSummary, error)
	ExportPayments(ctx context.Context, filter models.PaymentFilter) ([]byte, string, error)
}

// DashboardHandler exposes the admin dashboard endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler builds a new handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Dashboard counters
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ExportPayments godoc
// @Summary Export the payment ledger as CSV
// @Tags Dashboard
// @Produce text/csv
// @Security BearerAuth
// @Param student_id query string false "Filter by student"
// @Success 200 {file} binary
// @Router /dashboard/payments/export [get]
func (h *DashboardHandler) ExportPayments(c *gin.Context) {
	filter := models.PaymentFilter{
		StudentID: c.Query("student_id"),
		DebtID:    c.Query("debt_id"),
		Document:  c.Query("document"),
	}
	data, filename, err := h.service.ExportPayments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}
