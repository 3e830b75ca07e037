package finance

import (
	"time"

	"github.com/noah-isme/sma-finance-api/pkg/money"
)

// MethodEntry is one (method, amount) pair of an installment split.
type MethodEntry struct {
	MethodID string      `json:"method_id"`
	Amount   money.Money `json:"amount"`
}

// PaymentDraft is the cashier's in-progress batch for one student and academic year.
type PaymentDraft struct {
	ID             string                   `json:"id"`
	StudentID      string                   `json:"student_id"`
	AcademicYearID string                   `json:"academic_year_id"`
	Selected       []string                 `json:"selected_installments"`
	Allocations    map[string]money.Money   `json:"allocations"`
	Methods        map[string][]MethodEntry `json:"methods"`
	GivenAmount    money.Money              `json:"given_amount"`
	Discount       *AppliedDiscount         `json:"discount,omitempty"`
	GlobalError    string                   `json:"global_error,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// NewPaymentDraft returns an empty draft.
func NewPaymentDraft(id, studentID, academicYearID string, now time.Time) *PaymentDraft {
	return &PaymentDraft{
		ID:             id,
		StudentID:      studentID,
		AcademicYearID: academicYearID,
		Selected:       make([]string, 0),
		Allocations:    make(map[string]money.Money),
		Methods:        make(map[string][]MethodEntry),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsSelected reports whether the installment is part of the batch.
func (d *PaymentDraft) IsSelected(installmentID string) bool {
	for _, id := range d.Selected {
		if id == installmentID {
			return true
		}
	}
	return false
}

// TotalAllocated sums the allocations of selected installments.
func (d *PaymentDraft) TotalAllocated() money.Money {
	var total money.Money
	for _, id := range d.Selected {
		total += d.Allocations[id]
	}
	return total
}

// MethodTotal sums the method split of one installment.
func (d *PaymentDraft) MethodTotal(installmentID string) money.Money {
	var total money.Money
	for _, m := range d.Methods[installmentID] {
		total += m.Amount
	}
	return total
}

// Forget removes an installment and its split from the draft.
func (d *PaymentDraft) Forget(installmentID string) {
	kept := d.Selected[:0]
	for _, id := range d.Selected {
		if id != installmentID {
			kept = append(kept, id)
		}
	}
	d.Selected = kept
	delete(d.Allocations, installmentID)
	delete(d.Methods, installmentID)
}

func (d *PaymentDraft) ensureMaps() {
	if d.Selected == nil {
		d.Selected = make([]string, 0)
	}
	if d.Allocations == nil {
		d.Allocations = make(map[string]money.Money)
	}
	if d.Methods == nil {
		d.Methods = make(map[string][]MethodEntry)
	}
}
