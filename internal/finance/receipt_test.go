package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

func TestBuildReceiptGroupsByFeeType(t *testing.T) {
	f := newFixture()
	methods := []models.PaymentMethod{{ID: "cash", Name: "Cash"}, {ID: "mobile", Name: "Mobile money"}}
	payments := []models.Payment{
		{ID: "p1", InstallmentID: "inst-t1", Amount: money.FromMajor(30000), Methods: []models.PaymentMethodAllocation{{MethodID: "cash", Amount: money.FromMajor(10000)}, {MethodID: "mobile", Amount: money.FromMajor(20000)}}},
		{ID: "p2", InstallmentID: "inst-t2", Amount: money.FromMajor(5000), Methods: []models.PaymentMethodAllocation{{MethodID: "cash", Amount: money.FromMajor(5000)}}},
		{ID: "p3", InstallmentID: "inst-r1", Amount: money.FromMajor(2000), Methods: []models.PaymentMethodAllocation{{MethodID: "cash", Amount: money.FromMajor(2000)}}},
		{ID: "p4", InstallmentID: "ghost", Amount: money.FromMajor(1)},
	}

	receipt := BuildReceipt(payments, f.installments, f.pricing, methods)

	assert.Equal(t, money.FromMajor(37001), receipt.Total)
	require.Len(t, receipt.Lines, 3)
	assert.Equal(t, "other", receipt.Lines[0].FeeType)
	assert.Equal(t, "registration", receipt.Lines[1].FeeType)
	tuition := receipt.Lines[2]
	assert.Equal(t, "tuition", tuition.FeeType)
	assert.Equal(t, money.FromMajor(35000), tuition.Amount)
	assert.Equal(t, 2, tuition.Payments)
	assert.Equal(t, []MethodTotal{
		{MethodID: "cash", Name: "Cash", Amount: money.FromMajor(15000)},
		{MethodID: "mobile", Name: "Mobile money", Amount: money.FromMajor(20000)},
	}, tuition.Methods)

	require.Len(t, receipt.Methods, 2)
	assert.Equal(t, money.FromMajor(17000), receipt.Methods[0].Amount)
}

func TestBuildReceiptEmpty(t *testing.T) {
	receipt := BuildReceipt(nil, nil, nil, nil)
	assert.Empty(t, receipt.Lines)
	assert.True(t, receipt.Total.IsZero())
}
