package finance

import (
	"errors"
	"fmt"

	"github.com/noah-isme/sma-finance-api/pkg/money"
)

// AmountValidation is the outcome of validating a single user-entered amount.
type AmountValidation struct {
	Value   money.Money `json:"value"`
	IsValid bool        `json:"is_valid"`
	Error   string      `json:"error,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

// ValidateAmount parses raw as a non-negative amount with at most two decimals.
// Extra precision is rounded and reported as a warning.
func ValidateAmount(raw string) AmountValidation {
	res, err := money.ParseExact(raw)
	if err != nil {
		if errors.Is(err, money.ErrEmpty) {
			return AmountValidation{Error: "amount is required"}
		}
		if errors.Is(err, money.ErrOutOfRange) {
			return AmountValidation{Error: fmt.Sprintf("amount exceeds the maximum of %s", money.MaxAmount)}
		}
		return AmountValidation{Error: "amount must be numeric"}
	}
	if res.Value.IsNegative() {
		return AmountValidation{Value: res.Value, Error: "negative amount"}
	}
	out := AmountValidation{Value: res.Value, IsValid: true}
	if res.Rounded {
		out.Warning = fmt.Sprintf("amount rounded to %s", res.Value)
	}
	return out
}

// ValidateAmountWithin validates raw and additionally rejects values above ceiling.
func ValidateAmountWithin(raw string, ceiling money.Money) AmountValidation {
	out := ValidateAmount(raw)
	if !out.IsValid {
		return out
	}
	if out.Value > ceiling {
		out.IsValid = false
		out.Error = fmt.Sprintf("amount %s exceeds maximum %s", out.Value, ceiling)
	}
	return out
}
