package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/finance"
	"github.com/noah-isme/sma-finance-api/internal/models"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
	"github.com/noah-isme/sma-finance-api/pkg/response"
)

type paymentDraftService interface {
	Create(ctx context.Context, req dto.CreateDraftRequest) (*dto.DraftView, error)
	Get(ctx context.Context, id string) (*dto.DraftView, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id, installmentID string) (*dto.DraftView, error)
	SetAmount(ctx context.Context, id, installmentID string, req dto.AmountRequest) (*dto.DraftView, error)
	AddMethod(ctx context.Context, id, installmentID string) (*dto.DraftView, error)
	UpdateMethod(ctx context.Context, id, installmentID string, index int, req dto.UpdateMethodRequest) (*dto.DraftView, error)
	RemoveMethod(ctx context.Context, id, installmentID string, index int) (*dto.DraftView, error)
	ApplyDiscount(ctx context.Context, id string, req dto.DiscountRequest) (*dto.DraftView, error)
	SetGivenAmount(ctx context.Context, id string, req dto.AmountRequest) (*dto.DraftView, error)
}

type paymentCommitService interface {
	Commit(ctx context.Context, draftID string, req dto.CommitRequest) (*dto.CommitResult, error)
}

type commitJournalReader interface {
	List(ctx context.Context, draftID string) ([]models.CommitJournalEntry, error)
}

// PaymentDraftHandler exposes the cashier payment workflow.
type PaymentDraftHandler struct {
	drafts  paymentDraftService
	commits paymentCommitService
	journal commitJournalReader
}

// NewPaymentDraftHandler builds a new handler.
func NewPaymentDraftHandler(drafts paymentDraftService, commits paymentCommitService, journal commitJournalReader) *PaymentDraftHandler {
	return &PaymentDraftHandler{drafts: drafts, commits: commits, journal: journal}
}

// Create godoc
// @Summary Open a payment draft
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.CreateDraftRequest true "Student and academic year"
// @Success 201 {object} response.Envelope
// @Router /payment-drafts [post]
func (h *PaymentDraftHandler) Create(c *gin.Context) {
	var req dto.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment draft payload"))
		return
	}
	view, err := h.drafts.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view, noticeMeta(view.Notices))
}

// Get godoc
// @Summary Get a payment draft revalidated against current balances
// @Tags Payments
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Router /payment-drafts/{id} [get]
func (h *PaymentDraftHandler) Get(c *gin.Context) {
	h.respond(c)(h.drafts.Get(c.Request.Context(), c.Param("id")))
}

// Delete godoc
// @Summary Discard a payment draft
// @Tags Payments
// @Param id path string true "Draft ID"
// @Success 204
// @Router /payment-drafts/{id} [delete]
func (h *PaymentDraftHandler) Delete(c *gin.Context) {
	if err := h.drafts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Toggle godoc
// @Summary Select or deselect an installment
// @Tags Payments
// @Produce json
// @Param id path string true "Draft ID"
// @Param installmentId path string true "Installment ID"
// @Success 200 {object} response.Envelope
// @Router /payment-drafts/{id}/installments/{installmentId}/toggle [post]
func (h *PaymentDraftHandler) Toggle(c *gin.Context) {
	h.respond(c)(h.drafts.Toggle(c.Request.Context(), c.Param("id"), c.Param("installmentId")))
}

// SetAmount godoc
// @Summary Set the amount allocated to an installment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param installmentId path string true "Installment ID"
// @Param payload body dto.AmountRequest true "Amount"
// @Success 200 {object} response.Envelope
// @Router /payment-drafts/{id}/installments/{installmentId}/amount [put]
func (h *PaymentDraftHandler) SetAmount(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid amount payload"))
		return
	}
	h.respond(c)(h.drafts.SetAmount(c.Request.Context(), c.Param("id"), c.Param("installmentId"), req))
}

// AddMethod godoc
// @Summary Add a payment method entry to an installment split
// @Tags Payments
// @Produce json
// @Param id path string true "Draft ID"
// @Param installmentId path string true "Installment ID"
// @Success 200 {object} response.Envelope
// @Router /payment-drafts/{id}/installments/{installmentId}/methods [post]
func (h *PaymentDraftHandler) AddMethod(c *gin.Context) {
	h.respond(c)(h.drafts.AddMethod(c.Request.Context(), c.Param("id"), c.Param("installmentId")))
}

// UpdateMethod godoc
// @Summary Update the method or amount of a split entry
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param installmentId path string true "Installment ID"
// @Param index path int true "Entry index"
// @Param payload body dto.UpdateMethodRequest true "Field and value"
// @Success 200 {object} response.Envelope
// @Router /payment-drafts/{id}/installments/{installmentId}/methods/{index} [patch]
func (h *PaymentDraftHandler) UpdateMethod(c *gin.Context) {
	index, ok := methodIndex(c)
	if !ok {
		return
	}
	var req dto.UpdateMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment method payload"))
		return
	}
	h.respond(c)(h.drafts.UpdateMethod(c.Request.Context(), c.Param("id"), c.Param("installmentId"), index, req))
}

// RemoveMethod godoc
// @Summary Remove a split entry
// @Tags Payments
// @Produce json
// @Param id path string true "Draft ID"
// @Param installmentId path string true "Installment ID"
// @Param index path int true "Entry index"
// @Success 200 {object} response.Envelope
// @Router /payment-drafts/{id}/installments/{installmentId}/methods/{index} [delete]
func (h *PaymentDraftHandler) RemoveMethod(c *gin.Context) {
	index, ok := methodIndex(c)
	if !ok {
		return
	}
	h.respond(c)(h.drafts.RemoveMethod(c.Request.Context(), c.Param("id"), c.Param("installmentId"), index))
}

// ApplyDiscount godoc
// @Summary Apply or clear a discount on a pricing line
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.DiscountRequest true "Pricing line and amount"
// @Success 200 {object} response.Envelope
// @Router /payment-drafts/{id}/discount [put]
func (h *PaymentDraftHandler) ApplyDiscount(c *gin.Context) {
	var req dto.DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discount payload"))
		return
	}
	h.respond(c)(h.drafts.ApplyDiscount(c.Request.Context(), c.Param("id"), req))
}

// SetGivenAmount godoc
// @Summary Record the amount handed over by the payer
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.AmountRequest true "Amount"
// @Success 200 {object} response.Envelope
// @Router /payment-drafts/{id}/given-amount [put]
func (h *PaymentDraftHandler) SetGivenAmount(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid amount payload"))
		return
	}
	h.respond(c)(h.drafts.SetGivenAmount(c.Request.Context(), c.Param("id"), req))
}

// Commit godoc
// @Summary Commit a payment draft to the ledger
// @Description Installments are committed one by one. A failure stops the batch; installments already committed stay committed.
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.CommitRequest true "Cashier context"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "partial commit"
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /payment-drafts/{id}/commit [post]
func (h *PaymentDraftHandler) Commit(c *gin.Context) {
	var req dto.CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid commit payload"))
		return
	}
	result, err := h.commits.Commit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if !result.Success {
		status = http.StatusOK
	}
	response.JSON(c, status, result, noticeMeta(result.Notices))
}

// Journal godoc
// @Summary Commit journal of a payment draft
// @Description Every saga transition recorded for the draft, oldest first. Empty when the journal is disabled.
// @Tags Payments
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Router /payment-drafts/{id}/journal [get]
func (h *PaymentDraftHandler) Journal(c *gin.Context) {
	entries, err := h.journal.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

func (h *PaymentDraftHandler) respond(c *gin.Context) func(*dto.DraftView, error) {
	return func(view *dto.DraftView, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, view, noticeMeta(view.Notices))
	}
}

func methodIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "method index must be an integer"))
		return 0, false
	}
	return index, true
}

func noticeMeta(notices []finance.Notice) map[string]interface{} {
	if len(notices) == 0 {
		return nil
	}
	return map[string]interface{}{"notices": notices}
}
