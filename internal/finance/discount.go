package finance

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

// AppliedDiscount is the session-scoped reduction on one pricing line.
type AppliedDiscount struct {
	PricingID  string      `json:"pricing_id"`
	Amount     money.Money `json:"amount"`
	Percentage string      `json:"percentage"`
}

// DiscountValidation reports whether a discount can be applied.
// Discount is nil for the neutral case and on failure.
type DiscountValidation struct {
	IsValid  bool             `json:"is_valid"`
	Errors   []string         `json:"errors,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Discount *AppliedDiscount `json:"discount,omitempty"`
}

// ComputeDiscount validates rawAmount as a discount against the selected pricing line.
func ComputeDiscount(pricingID, rawAmount string, available []models.Pricing) DiscountValidation {
	pricingID = strings.TrimSpace(pricingID)
	if pricingID == "" || strings.TrimSpace(rawAmount) == "" {
		return DiscountValidation{IsValid: true}
	}

	pricing, ok := findPricing(available, pricingID)
	if !ok {
		return DiscountValidation{Errors: []string{"selected pricing not found"}}
	}

	res, err := money.ParseExact(rawAmount)
	if err != nil {
		return DiscountValidation{Errors: []string{"discount amount must be numeric"}}
	}
	amount := res.Value
	if amount.IsNegative() {
		return DiscountValidation{Errors: []string{"discount amount cannot be negative"}}
	}
	if amount > pricing.Amount {
		return DiscountValidation{Errors: []string{
			fmt.Sprintf("discount %s exceeds %s amount %s", amount, pricing.FeeType, pricing.Amount),
		}}
	}

	out := DiscountValidation{
		IsValid: true,
		Discount: &AppliedDiscount{
			PricingID:  pricing.ID,
			Amount:     amount,
			Percentage: money.Percentage(amount, pricing.Amount),
		},
	}
	if res.Rounded {
		out.Warnings = append(out.Warnings, fmt.Sprintf("discount rounded to %s", amount))
	}
	switch {
	case money.ExceedsRatio(amount, pricing.Amount, 90):
		out.Warnings = append(out.Warnings, fmt.Sprintf("discount of %s%% exceeds 90%% of %s, confirm with administration", out.Discount.Percentage, pricing.FeeType))
	case money.ExceedsRatio(amount, pricing.Amount, 50):
		out.Warnings = append(out.Warnings, fmt.Sprintf("discount of %s%% exceeds 50%% of %s", out.Discount.Percentage, pricing.FeeType))
	}
	return out
}

// PayableCeiling returns the amount still collectible for a pricing line once the discount is removed.
func PayableCeiling(pricing models.Pricing, discount *AppliedDiscount) money.Money {
	if discount == nil || discount.PricingID != pricing.ID {
		return pricing.Amount
	}
	return money.Max(0, pricing.Amount.Sub(discount.Amount))
}

func findPricing(list []models.Pricing, id string) (models.Pricing, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return models.Pricing{}, false
}
