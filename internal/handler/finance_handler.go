package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/finance"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
	"github.com/noah-isme/sma-finance-api/pkg/response"
)

type financeService interface {
	Summary(ctx context.Context, studentID, academicYearID string) (*finance.FinancialSummary, error)
	Recovery(ctx context.Context, studentID, academicYearID string) (*dto.RecoveryView, error)
	RecoveryCSV(view *dto.RecoveryView) ([]byte, error)
}

// FinanceHandler exposes read-only student finance endpoints.
type FinanceHandler struct {
	service financeService
}

// NewFinanceHandler builds a new handler.
func NewFinanceHandler(service financeService) *FinanceHandler {
	return &FinanceHandler{service: service}
}

// Summary godoc
// @Summary Student financial summary
// @Description Installments, amounts paid and remaining balances for the active registration of an academic year.
// @Tags Finance
// @Produce json
// @Param id path string true "Student ID"
// @Param academicYearId query string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/financial-summary [get]
func (h *FinanceHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"), c.Query("academicYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Recovery godoc
// @Summary Student recovery summary
// @Description Committed payments of an academic year grouped by fee type and payment method.
// @Tags Finance
// @Produce json
// @Produce text/csv
// @Param id path string true "Student ID"
// @Param academicYearId query string true "Academic year ID"
// @Param format query string false "json (default) or csv"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/recovery [get]
func (h *FinanceHandler) Recovery(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" && format != "csv" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json or csv"))
		return
	}

	view, err := h.service.Recovery(c.Request.Context(), c.Param("id"), c.Query("academicYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if format == "json" {
		response.JSON(c, http.StatusOK, view)
		return
	}

	data, err := h.service.RecoveryCSV(view)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("recovery-%s-%s.csv", view.StudentID, view.AcademicYearID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
