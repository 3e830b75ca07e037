package finance

import (
	"sort"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

// unknownFeeType labels payments whose installment is outside the catalogue.
const unknownFeeType = "other"

// MethodTotal is the amount collected through one payment method.
type MethodTotal struct {
	MethodID string      `json:"method_id"`
	Name     string      `json:"name"`
	Amount   money.Money `json:"amount"`
}

// ReceiptLine aggregates payments of one fee type.
type ReceiptLine struct {
	FeeType  string        `json:"fee_type"`
	Amount   money.Money   `json:"amount"`
	Payments int           `json:"payments"`
	Methods  []MethodTotal `json:"methods"`
}

// Receipt is the per-fee-type reduction of committed payments.
type Receipt struct {
	Lines   []ReceiptLine `json:"lines"`
	Methods []MethodTotal `json:"methods"`
	Total   money.Money   `json:"total"`
}

// BuildReceipt reduces payments into fee-type lines. Payment order does not affect the output.
func BuildReceipt(payments []models.Payment, installments []models.Installment, pricing []models.Pricing, methods []models.PaymentMethod) Receipt {
	pricingFee := make(map[string]string, len(pricing))
	for _, p := range pricing {
		pricingFee[p.ID] = p.FeeType
	}
	installmentFee := make(map[string]string, len(installments))
	for _, inst := range installments {
		if fee, ok := pricingFee[inst.PricingID]; ok {
			installmentFee[inst.ID] = fee
		}
	}
	methodName := make(map[string]string, len(methods))
	for _, m := range methods {
		methodName[m.ID] = m.Name
	}

	lines := make(map[string]*ReceiptLine)
	lineMethods := make(map[string]map[string]money.Money)
	overall := make(map[string]money.Money)
	receipt := Receipt{Lines: make([]ReceiptLine, 0), Methods: make([]MethodTotal, 0)}

	for _, p := range payments {
		fee, ok := installmentFee[p.InstallmentID]
		if !ok {
			fee = unknownFeeType
		}
		line, ok := lines[fee]
		if !ok {
			line = &ReceiptLine{FeeType: fee}
			lines[fee] = line
			lineMethods[fee] = make(map[string]money.Money)
		}
		line.Amount += p.Amount
		line.Payments++
		receipt.Total += p.Amount
		for _, m := range p.Methods {
			lineMethods[fee][m.MethodID] += m.Amount
			overall[m.MethodID] += m.Amount
		}
	}

	for fee, line := range lines {
		line.Methods = methodTotals(lineMethods[fee], methodName)
		receipt.Lines = append(receipt.Lines, *line)
	}
	sort.Slice(receipt.Lines, func(i, j int) bool { return receipt.Lines[i].FeeType < receipt.Lines[j].FeeType })
	receipt.Methods = methodTotals(overall, methodName)
	return receipt
}

func methodTotals(amounts map[string]money.Money, names map[string]string) []MethodTotal {
	out := make([]MethodTotal, 0, len(amounts))
	for id, amount := range amounts {
		out = append(out, MethodTotal{MethodID: id, Name: names[id], Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MethodID < out[j].MethodID })
	return out
}
