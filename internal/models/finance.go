package models

import (
	"time"

	"github.com/noah-isme/sma-finance-api/pkg/money"
)

// RegistrationStatus represents the lifecycle of a student registration.
type RegistrationStatus string

// Possible registration statuses.
const (
	RegistrationStatusActive    RegistrationStatus = "ACTIVE"
	RegistrationStatusCancelled RegistrationStatus = "CANCELLED"
)

// TransactionTypeCollection marks a fee collection entry in the cash register ledger.
const TransactionTypeCollection = "collection"

// Student is the read-only view of a learner needed for pricing.
type Student struct {
	ID               string `db:"id" json:"id"`
	FullName         string `db:"full_name" json:"full_name"`
	AssignmentTypeID string `db:"assignment_type_id" json:"assignment_type_id"`
}

// Registration links a student to an academic year and a class.
type Registration struct {
	ID             string             `db:"id" json:"id"`
	StudentID      string             `db:"student_id" json:"student_id"`
	AcademicYearID string             `db:"academic_years_id" json:"academic_years_id"`
	ClassID        string             `db:"class_id" json:"class_id"`
	LevelID        string             `db:"level_id" json:"level_id"`
	Status         RegistrationStatus `db:"status" json:"status"`
}

// Pricing is a fee line scoped by assignment type, academic year and level.
type Pricing struct {
	ID               string      `db:"id" json:"id"`
	FeeType          string      `db:"fee_type" json:"fee_type"`
	Amount           money.Money `db:"amount" json:"amount"`
	AssignmentTypeID string      `db:"assignment_type_id" json:"assignment_type_id"`
	AcademicYearID   string      `db:"academic_years_id" json:"academic_years_id"`
	LevelID          string      `db:"level_id" json:"level_id"`
}

// Installment is a scheduled payable portion of a pricing line.
type Installment struct {
	ID        string      `db:"id" json:"id"`
	PricingID string      `db:"pricing_id" json:"pricing_id"`
	AmountDue money.Money `db:"amount_due" json:"amount_due"`
	DueDate   time.Time   `db:"due_date" json:"due_date"`
	Status    string      `db:"status" json:"status"`
}

// PaymentMethod is an entry of the payment method catalogue (cash, mobile money...).
type PaymentMethod struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// PaymentMethodAllocation is the share of a payment settled through one method.
type PaymentMethodAllocation struct {
	MethodID string      `db:"method_id" json:"id"`
	Amount   money.Money `db:"amount" json:"montant"`
}

// Payment is an immutable committed payment against one installment.
type Payment struct {
	ID             string                    `db:"id" json:"id"`
	StudentID      string                    `db:"student_id" json:"student_id"`
	InstallmentID  string                    `db:"installment_id" json:"installment_id"`
	Amount         money.Money               `db:"amount" json:"amount"`
	TransactionID  string                    `db:"transaction_id" json:"transaction_id"`
	CashRegisterID string                    `db:"cash_register_id" json:"cash_register_id,omitempty"`
	CashierID      string                    `db:"cashier_id" json:"cashier_id,omitempty"`
	Methods        []PaymentMethodAllocation `db:"-" json:"methods,omitempty"`
	CreatedAt      time.Time                 `db:"created_at" json:"created_at"`
}

// Transaction is the cash register ledger entry authorising a payment.
type Transaction struct {
	ID                    string      `json:"id"`
	UserID                string      `json:"user_id"`
	CashRegisterSessionID string      `json:"cash_register_session_id"`
	TransactionDate       time.Time   `json:"transaction_date"`
	TotalAmount           money.Money `json:"total_amount"`
	TransactionType       string      `json:"transaction_type"`
}

// FinanceSnapshot is the read-only state the reconciliation core computes from.
type FinanceSnapshot struct {
	Student        Student         `json:"student"`
	Registrations  []Registration  `json:"registrations"`
	Pricing        []Pricing       `json:"pricing"`
	Installments   []Installment   `json:"installments"`
	Payments       []Payment       `json:"payments"`
	PaymentMethods []PaymentMethod `json:"payment_methods"`
}
