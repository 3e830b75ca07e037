package finance

import (
	"fmt"
	"strings"
)

// Method fields accepted by UpdateMethod.
const (
	MethodFieldMethod = "method"
	MethodFieldAmount = "amount"
)

// Splitter applies cashier edits to a draft against a freshly built summary.
// Operations never fail hard: invalid input leaves the draft untouched and
// yields a notice instead.
type Splitter struct {
	draft         *PaymentDraft
	summary       *FinancialSummary
	defaultMethod string
}

// NewSplitter wraps draft. defaultMethod seeds the first split entry of a newly selected installment.
func NewSplitter(draft *PaymentDraft, summary *FinancialSummary, defaultMethod string) *Splitter {
	draft.ensureMaps()
	return &Splitter{draft: draft, summary: summary, defaultMethod: defaultMethod}
}

// Draft returns the edited draft.
func (s *Splitter) Draft() *PaymentDraft {
	return s.draft
}

// Toggle selects or deselects an installment.
func (s *Splitter) Toggle(installmentID string) []Notice {
	detail, ok := s.summary.Installment(installmentID)
	if !ok {
		return []Notice{errorNotice(fmt.Sprintf("installment %s not found", installmentID))}
	}

	if s.draft.IsSelected(installmentID) {
		s.draft.Forget(installmentID)
		s.refreshGlobalError()
		return nil
	}

	if !detail.RemainingAmount.IsPositive() {
		return []Notice{warnNotice(fmt.Sprintf("%s installment due %s is already fully paid", detail.FeeType, detail.DueDate.Format("2006-01-02")))}
	}

	s.draft.Selected = append(s.draft.Selected, installmentID)
	s.draft.Allocations[installmentID] = detail.RemainingAmount
	s.draft.Methods[installmentID] = []MethodEntry{{MethodID: s.defaultMethod, Amount: detail.RemainingAmount}}
	s.refreshGlobalError()
	return nil
}

// SetAmount changes the allocation of a selected installment.
func (s *Splitter) SetAmount(installmentID, raw string) []Notice {
	detail, notice, ok := s.selectedDetail(installmentID)
	if !ok {
		return []Notice{notice}
	}

	v := ValidateAmountWithin(raw, detail.RemainingAmount)
	if !v.IsValid {
		return []Notice{errorNotice(v.Error)}
	}

	var notices []Notice
	if v.Warning != "" {
		notices = append(notices, warnNotice(v.Warning))
	}
	s.draft.Allocations[installmentID] = v.Value
	if methods := s.draft.Methods[installmentID]; len(methods) == 1 {
		methods[0].Amount = v.Value
	}
	s.refreshGlobalError()
	if s.draft.GlobalError != "" {
		notices = append(notices, warnNotice(s.draft.GlobalError))
	}
	return notices
}

// AddMethod appends an empty method entry to an installment split.
func (s *Splitter) AddMethod(installmentID string) []Notice {
	if _, notice, ok := s.selectedDetail(installmentID); !ok {
		return []Notice{notice}
	}
	s.draft.Methods[installmentID] = append(s.draft.Methods[installmentID], MethodEntry{})
	return nil
}

// RemoveMethod drops the method entry at index, keeping at least one entry.
func (s *Splitter) RemoveMethod(installmentID string, index int) []Notice {
	if _, notice, ok := s.selectedDetail(installmentID); !ok {
		return []Notice{notice}
	}
	methods := s.draft.Methods[installmentID]
	if index < 0 || index >= len(methods) {
		return []Notice{errorNotice(fmt.Sprintf("payment method #%d does not exist", index+1))}
	}
	if len(methods) <= 1 {
		return []Notice{warnNotice("at least one payment method is required")}
	}
	s.draft.Methods[installmentID] = append(methods[:index:index], methods[index+1:]...)
	return nil
}

// UpdateMethod edits the method identifier or amount of one split entry.
// Other entries are never rebalanced.
func (s *Splitter) UpdateMethod(installmentID string, index int, field, value string) []Notice {
	if _, notice, ok := s.selectedDetail(installmentID); !ok {
		return []Notice{notice}
	}
	methods := s.draft.Methods[installmentID]
	if index < 0 || index >= len(methods) {
		return []Notice{errorNotice(fmt.Sprintf("payment method #%d does not exist", index+1))}
	}

	switch strings.ToLower(strings.TrimSpace(field)) {
	case MethodFieldMethod, "method_id":
		methods[index].MethodID = strings.TrimSpace(value)
		return nil
	case MethodFieldAmount:
		v := ValidateAmount(value)
		if !v.IsValid {
			return []Notice{errorNotice(v.Error)}
		}
		methods[index].Amount = v.Value
		if v.Warning != "" {
			return []Notice{warnNotice(v.Warning)}
		}
		return nil
	default:
		return []Notice{errorNotice(fmt.Sprintf("unknown payment method field %q", field))}
	}
}

// SetGivenAmount records the cash handed over by the payer.
func (s *Splitter) SetGivenAmount(raw string) []Notice {
	v := ValidateAmount(raw)
	if !v.IsValid {
		return []Notice{errorNotice(v.Error)}
	}
	var notices []Notice
	if v.Warning != "" {
		notices = append(notices, warnNotice(v.Warning))
	}
	s.draft.GivenAmount = v.Value
	s.refreshGlobalError()
	if s.draft.GlobalError != "" {
		notices = append(notices, warnNotice(s.draft.GlobalError))
	}
	return notices
}

// PublishDiscount stores the outcome of ComputeDiscount on the draft.
// Any invalid or neutral result clears the previous discount.
func (s *Splitter) PublishDiscount(v DiscountValidation) []Notice {
	var notices []Notice
	if !v.IsValid || v.Discount == nil {
		s.draft.Discount = nil
		for _, e := range v.Errors {
			notices = append(notices, errorNotice(e))
		}
		return notices
	}
	d := *v.Discount
	s.draft.Discount = &d
	for _, w := range v.Warnings {
		notices = append(notices, warnNotice(w))
	}
	return notices
}

// Prune drops selections the current summary no longer backs, e.g. after another
// cashier settled the installment.
func (s *Splitter) Prune() []Notice {
	var notices []Notice
	for _, id := range append([]string(nil), s.draft.Selected...) {
		detail, ok := s.summary.Installment(id)
		switch {
		case !ok:
			s.draft.Forget(id)
			notices = append(notices, warnNotice(fmt.Sprintf("installment %s is no longer payable and was removed", id)))
		case !detail.RemainingAmount.IsPositive():
			s.draft.Forget(id)
			notices = append(notices, infoNotice(fmt.Sprintf("%s installment due %s has been settled and was removed", detail.FeeType, detail.DueDate.Format("2006-01-02"))))
		}
	}
	if s.draft.Discount != nil {
		if _, ok := s.summary.PricingByID(s.draft.Discount.PricingID); !ok {
			s.draft.Discount = nil
			notices = append(notices, warnNotice("discount cleared: pricing line no longer applies"))
		}
	}
	s.refreshGlobalError()
	return notices
}

func (s *Splitter) selectedDetail(installmentID string) (InstallmentDetail, Notice, bool) {
	detail, ok := s.summary.Installment(installmentID)
	if !ok {
		return InstallmentDetail{}, errorNotice(fmt.Sprintf("installment %s not found", installmentID)), false
	}
	if !s.draft.IsSelected(installmentID) {
		return InstallmentDetail{}, warnNotice(fmt.Sprintf("select the %s installment first", detail.FeeType)), false
	}
	return detail, Notice{}, true
}

func (s *Splitter) refreshGlobalError() {
	total := s.draft.TotalAllocated()
	if s.draft.GivenAmount.IsPositive() && total > s.draft.GivenAmount {
		s.draft.GlobalError = fmt.Sprintf("total allocated %s exceeds amount given %s", total, s.draft.GivenAmount)
		return
	}
	s.draft.GlobalError = ""
}
