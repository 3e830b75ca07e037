package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

func TestValidateAmount(t *testing.T) {
	ok := ValidateAmount("1500.5")
	assert.True(t, ok.IsValid)
	assert.Equal(t, money.MustParse("1500.50"), ok.Value)
	assert.Empty(t, ok.Warning)

	rounded := ValidateAmount("12.345")
	assert.True(t, rounded.IsValid)
	assert.Equal(t, money.Money(1235), rounded.Value)
	assert.NotEmpty(t, rounded.Warning)

	neg := ValidateAmount("-1")
	assert.False(t, neg.IsValid)
	assert.Equal(t, "negative amount", neg.Error)

	assert.False(t, ValidateAmount("twelve").IsValid)
	assert.False(t, ValidateAmount("").IsValid)
}

func TestValidateAmountRejectsOverflow(t *testing.T) {
	for _, raw := range []string{"184467440737095516.17", "92233720368547758.08"} {
		res := ValidateAmount(raw)
		assert.False(t, res.IsValid, raw)
		assert.True(t, res.Value.IsZero(), raw)
		assert.Contains(t, res.Error, "exceeds the maximum")
	}
}

func TestValidateAmountWithin(t *testing.T) {
	ceiling := money.FromMajor(100)
	assert.True(t, ValidateAmountWithin("100", ceiling).IsValid)
	over := ValidateAmountWithin("100.01", ceiling)
	assert.False(t, over.IsValid)
	assert.Contains(t, over.Error, "100.01")
	assert.Contains(t, over.Error, "100.00")
}

func TestComputeDiscountNeutral(t *testing.T) {
	pricing := newFixture().pricing
	for _, tc := range []struct{ id, amount string }{{"", "100"}, {"pr-tuition", ""}, {"", ""}} {
		res := ComputeDiscount(tc.id, tc.amount, pricing)
		assert.True(t, res.IsValid)
		assert.Nil(t, res.Discount)
		assert.Empty(t, res.Errors)
	}
}

func TestComputeDiscountValid(t *testing.T) {
	res := ComputeDiscount("pr-tuition", "30000", newFixture().pricing)
	require.True(t, res.IsValid)
	require.NotNil(t, res.Discount)
	assert.Equal(t, money.FromMajor(30000), res.Discount.Amount)
	assert.Equal(t, "30.00", res.Discount.Percentage)
	assert.Equal(t, "pr-tuition", res.Discount.PricingID)
	assert.Empty(t, res.Warnings)
}

func TestComputeDiscountWarnings(t *testing.T) {
	pricing := newFixture().pricing

	half := ComputeDiscount("pr-tuition", "60000", pricing)
	require.True(t, half.IsValid)
	require.Len(t, half.Warnings, 1)
	assert.Contains(t, half.Warnings[0], "50%")

	heavy := ComputeDiscount("pr-tuition", "95000", pricing)
	require.True(t, heavy.IsValid)
	require.Len(t, heavy.Warnings, 1)
	assert.Contains(t, heavy.Warnings[0], "90%")
}

func TestComputeDiscountRejections(t *testing.T) {
	pricing := newFixture().pricing

	missing := ComputeDiscount("pr-unknown", "10", pricing)
	assert.False(t, missing.IsValid)
	assert.Nil(t, missing.Discount)

	assert.False(t, ComputeDiscount("pr-tuition", "abc", pricing).IsValid)
	assert.False(t, ComputeDiscount("pr-tuition", "-5", pricing).IsValid)

	over := ComputeDiscount("pr-tuition", "100000.01", pricing)
	require.False(t, over.IsValid)
	require.Len(t, over.Errors, 1)
	assert.Contains(t, over.Errors[0], "100000.01")
	assert.Contains(t, over.Errors[0], "100000.00")
}

func TestComputeDiscountCeilingProperty(t *testing.T) {
	pricing := []models.Pricing{{ID: "p", FeeType: "tuition", Amount: money.FromMajor(500)}}
	for _, raw := range []string{"-0.01", "0", "0.01", "250", "499.99", "500", "500.01", "10000"} {
		amount := money.MustParse(raw)
		res := ComputeDiscount("p", raw, pricing)
		expectInvalid := amount.IsNegative() || amount > money.FromMajor(500)
		assert.Equal(t, expectInvalid, !res.IsValid, raw)
	}
}

func TestComputeDiscountZeroPricing(t *testing.T) {
	pricing := []models.Pricing{{ID: "free", FeeType: "uniform", Amount: 0}}
	res := ComputeDiscount("free", "0", pricing)
	require.True(t, res.IsValid)
	assert.Equal(t, "0.00", res.Discount.Percentage)
}

func TestPayableCeiling(t *testing.T) {
	p := models.Pricing{ID: "pr-1", Amount: money.FromMajor(100000)}
	assert.Equal(t, money.FromMajor(100000), PayableCeiling(p, nil))
	assert.Equal(t, money.FromMajor(70000), PayableCeiling(p, &AppliedDiscount{PricingID: "pr-1", Amount: money.FromMajor(30000)}))
	assert.Equal(t, money.FromMajor(100000), PayableCeiling(p, &AppliedDiscount{PricingID: "pr-2", Amount: money.FromMajor(30000)}))
}
