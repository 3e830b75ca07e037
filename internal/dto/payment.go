package dto

import (
	"bytes"
	"encoding/json"

	"github.com/noah-isme/sma-finance-api/internal/finance"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

// AmountInput is a raw amount as typed by the cashier. JSON strings and numbers are both accepted.
type AmountInput string

// UnmarshalJSON keeps the literal text so validation sees exactly what was entered.
func (a *AmountInput) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*a = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	*a = AmountInput(trimmed)
	return nil
}

// CreateDraftRequest opens a payment draft for a student and academic year.
type CreateDraftRequest struct {
	StudentID      string `json:"student_id" validate:"required"`
	AcademicYearID string `json:"academic_year_id" validate:"required"`
}

// AmountRequest carries an allocation or given amount.
type AmountRequest struct {
	Amount AmountInput `json:"amount"`
}

// UpdateMethodRequest edits one field of a method split entry.
type UpdateMethodRequest struct {
	Field string `json:"field" validate:"required,oneof=method method_id amount"`
	Value string `json:"value"`
}

// DiscountRequest applies a flat discount to a pricing line. Blank fields clear the discount.
type DiscountRequest struct {
	PricingID string      `json:"pricing_id"`
	Amount    AmountInput `json:"amount"`
}

// CommitRequest identifies the cashier context of a commit.
type CommitRequest struct {
	UserID                string `json:"user_id" validate:"required"`
	CashierID             string `json:"cashier_id" validate:"required"`
	CashRegisterID        string `json:"cash_register_id" validate:"required"`
	CashRegisterSessionID string `json:"cash_register_session_id" validate:"required"`
}

// DraftView is the recomputed state returned after every draft operation.
type DraftView struct {
	Draft      *finance.PaymentDraft       `json:"draft"`
	Summary    *finance.FinancialSummary   `json:"summary"`
	Validation finance.BatchValidation     `json:"validation"`
	Discount   *finance.DiscountValidation `json:"discount,omitempty"`
	Notices    []finance.Notice            `json:"-"`
}

// CommitItemResult reports the outcome of one installment commit.
type CommitItemResult struct {
	InstallmentID string              `json:"installment_id"`
	Amount        money.Money         `json:"amount"`
	State         finance.CommitState `json:"state"`
	TransactionID string              `json:"transaction_id,omitempty"`
	PaymentID     string              `json:"payment_id,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// CommitResult is the outcome of a draft commit.
type CommitResult struct {
	DraftID      string                    `json:"draft_id"`
	Success      bool                      `json:"success"`
	Items        []CommitItemResult        `json:"items"`
	TotalPaid    money.Money               `json:"total_paid"`
	ChangeAmount money.Money               `json:"change_amount"`
	Receipt      *finance.Receipt          `json:"receipt,omitempty"`
	Summary      *finance.FinancialSummary `json:"summary,omitempty"`
	Transactions []models.Transaction      `json:"transactions,omitempty"`
	Notices      []finance.Notice          `json:"-"`
}

// RecoveryView summarises what a student has paid for an academic year.
type RecoveryView struct {
	StudentID      string                    `json:"student_id"`
	AcademicYearID string                    `json:"academic_year_id"`
	Summary        *finance.FinancialSummary `json:"summary"`
	Receipt        finance.Receipt           `json:"receipt"`
}
