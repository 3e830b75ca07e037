package finance

import (
	"fmt"

	"github.com/noah-isme/sma-finance-api/pkg/money"
)

// ViolationCategory groups batch validation failures.
type ViolationCategory string

// Categories in the order they are checked.
const (
	CategorySelection   ViolationCategory = "selection"
	CategoryTotal       ViolationCategory = "total"
	CategoryDiscount    ViolationCategory = "discount"
	CategoryOverpayment ViolationCategory = "overpayment"
	CategoryGivenAmount ViolationCategory = "given_amount"
	CategoryMethods     ViolationCategory = "methods"
)

// Violation is one failed batch rule.
type Violation struct {
	Category      ViolationCategory `json:"category"`
	InstallmentID string            `json:"installment_id,omitempty"`
	Message       string            `json:"message"`
}

// BatchTotals are the amounts the cashier sees next to the submit control.
type BatchTotals struct {
	TotalAllocated        money.Money `json:"total_allocated"`
	TotalDueAfterDiscount money.Money `json:"total_due_after_discount"`
	GivenAmount           money.Money `json:"given_amount"`
	ChangeAmount          money.Money `json:"change_amount"`
}

// BatchValidation is the verdict for a draft.
type BatchValidation struct {
	IsValid    bool        `json:"is_valid"`
	CanProceed bool        `json:"can_proceed"`
	Errors     []string    `json:"errors"`
	Violations []Violation `json:"violations"`
	Notices    []Notice    `json:"notices,omitempty"`
	Totals     BatchTotals `json:"totals"`
}

// BatchOptions tunes rules that are a matter of cash desk policy.
type BatchOptions struct {
	// RequireExactChange rejects batches where the amount given exceeds the total allocated.
	RequireExactChange bool
	// KnownMethods restricts method identifiers when non-empty.
	KnownMethods map[string]struct{}
	// InFlight marks a commit already running for the draft.
	InFlight bool
}

// ValidateBatch cross-checks a draft against the summary it was built on.
// All violations are collected; Errors keeps the first message of each category.
func ValidateBatch(draft *PaymentDraft, summary *FinancialSummary, opts BatchOptions) BatchValidation {
	v := &batchCollector{}
	totals := BatchTotals{}
	if draft == nil {
		v.add(CategorySelection, "", "select at least one installment")
		return v.result(totals, opts)
	}

	totals.TotalAllocated = draft.TotalAllocated()
	totals.GivenAmount = draft.GivenAmount

	if len(draft.Selected) == 0 {
		v.add(CategorySelection, "", "select at least one installment")
	}

	if !totals.TotalAllocated.IsPositive() {
		v.add(CategoryTotal, "", "total allocated amount must be greater than zero")
	}

	// discountReduction is what the discount removes from the selected
	// installments of its pricing line. The line can still take at most its
	// ceiling minus what was already paid on it.
	var discountReduction money.Money
	if d := draft.Discount; d != nil {
		pricing, ok := summary.PricingByID(d.PricingID)
		if !ok {
			v.add(CategoryDiscount, "", "discounted pricing line does not apply to this student")
		} else {
			var allocated, selectedRemaining, paidOnLine money.Money
			for _, id := range draft.Selected {
				if detail, found := summary.Installment(id); found && detail.PricingID == pricing.ID {
					allocated += draft.Allocations[id]
					selectedRemaining += detail.RemainingAmount
				}
			}
			for _, detail := range summary.Installments {
				if detail.PricingID == pricing.ID {
					paidOnLine += detail.AmountPaid
				}
			}
			ceiling := PayableCeiling(pricing, d)
			lineDue := money.Min(selectedRemaining, money.Max(0, ceiling.Sub(paidOnLine)))
			discountReduction = selectedRemaining.Sub(lineDue)
			if allocated > ceiling {
				msg := fmt.Sprintf("allocated %s for %s exceeds %s payable after a discount of %s", allocated, pricing.FeeType, ceiling, d.Amount)
				v.add(CategoryDiscount, "", msg)
				v.notices = append(v.notices, errorNotice(msg))
			}
		}
	}

	var remaining money.Money
	for _, id := range draft.Selected {
		detail, ok := summary.Installment(id)
		if !ok {
			v.add(CategoryOverpayment, id, fmt.Sprintf("installment %s is not payable for this student", id))
			continue
		}
		remaining += detail.RemainingAmount
		if alloc := draft.Allocations[id]; alloc > detail.RemainingAmount {
			v.add(CategoryOverpayment, id, fmt.Sprintf("allocated %s exceeds remaining %s for %s", alloc, detail.RemainingAmount, detail.FeeType))
		}
	}
	totals.TotalDueAfterDiscount = money.Max(0, remaining.Sub(discountReduction))
	if totals.TotalAllocated > totals.TotalDueAfterDiscount {
		v.add(CategoryOverpayment, "", fmt.Sprintf("total allocated %s exceeds total due %s", totals.TotalAllocated, totals.TotalDueAfterDiscount))
	}

	switch {
	case totals.GivenAmount < totals.TotalAllocated:
		v.add(CategoryGivenAmount, "", fmt.Sprintf("amount given %s is less than total allocated %s", totals.GivenAmount, totals.TotalAllocated))
	case opts.RequireExactChange && totals.GivenAmount != totals.TotalAllocated:
		v.add(CategoryGivenAmount, "", fmt.Sprintf("amount given %s must equal total allocated %s", totals.GivenAmount, totals.TotalAllocated))
	default:
		totals.ChangeAmount = totals.GivenAmount.Sub(totals.TotalAllocated)
	}

	for _, id := range draft.Selected {
		label := id
		if detail, ok := summary.Installment(id); ok {
			label = fmt.Sprintf("%s due %s", detail.FeeType, detail.DueDate.Format("2006-01-02"))
		}
		methods := draft.Methods[id]
		if len(methods) == 0 {
			v.add(CategoryMethods, id, fmt.Sprintf("%s has no payment method", label))
			continue
		}
		if sum, alloc := draft.MethodTotal(id), draft.Allocations[id]; sum != alloc {
			v.add(CategoryMethods, id, fmt.Sprintf("payment methods for %s total %s but %s is allocated", label, sum, alloc))
		}
		for i, m := range methods {
			if !m.Amount.IsPositive() {
				v.add(CategoryMethods, id, fmt.Sprintf("payment method #%d for %s must have a positive amount", i+1, label))
			}
			if !validMethod(m.MethodID, opts.KnownMethods) {
				v.add(CategoryMethods, id, fmt.Sprintf("payment method #%d for %s is not a valid method", i+1, label))
			}
		}
	}

	return v.result(totals, opts)
}

func validMethod(id string, known map[string]struct{}) bool {
	if id == "" {
		return false
	}
	if len(known) == 0 {
		return true
	}
	_, ok := known[id]
	return ok
}

type batchCollector struct {
	violations []Violation
	notices    []Notice
}

func (c *batchCollector) add(cat ViolationCategory, installmentID, msg string) {
	c.violations = append(c.violations, Violation{Category: cat, InstallmentID: installmentID, Message: msg})
}

func (c *batchCollector) result(totals BatchTotals, opts BatchOptions) BatchValidation {
	seen := make(map[ViolationCategory]struct{})
	errs := make([]string, 0)
	for _, viol := range c.violations {
		if _, ok := seen[viol.Category]; ok {
			continue
		}
		seen[viol.Category] = struct{}{}
		errs = append(errs, viol.Message)
	}
	violations := c.violations
	if violations == nil {
		violations = make([]Violation, 0)
	}
	valid := len(c.violations) == 0
	return BatchValidation{
		IsValid:    valid,
		CanProceed: valid && !opts.InFlight,
		Errors:     errs,
		Violations: violations,
		Notices:    c.notices,
		Totals:     totals,
	}
}
