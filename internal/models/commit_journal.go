package models

import (
	"time"

	"github.com/noah-isme/sma-finance-api/pkg/money"
)

// CommitJournalEntry records one state transition of an installment commit.
type CommitJournalEntry struct {
	ID            string      `db:"id" json:"id"`
	DraftID       string      `db:"draft_id" json:"draft_id"`
	StudentID     string      `db:"student_id" json:"student_id"`
	InstallmentID string      `db:"installment_id" json:"installment_id"`
	State         string      `db:"state" json:"state"`
	TransactionID string      `db:"transaction_id" json:"transaction_id,omitempty"`
	PaymentID     string      `db:"payment_id" json:"payment_id,omitempty"`
	Amount        money.Money `db:"amount" json:"amount"`
	Message       string      `db:"message" json:"message,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}
