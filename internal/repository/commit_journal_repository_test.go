package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

func TestCommitJournalRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewCommitJournalRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_commit_journal")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.CommitJournalEntry{
		DraftID:       "d-1",
		StudentID:     "stu-1",
		InstallmentID: "inst-1",
		State:         "payment_created",
		TransactionID: "tx-1",
		PaymentID:     "pay-1",
		Amount:        money.FromMajor(700),
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	rows := sqlmock.NewRows([]string{"id", "draft_id", "student_id", "installment_id", "state", "transaction_id", "payment_id", "amount", "message", "created_at"}).
		AddRow(entry.ID, "d-1", "stu-1", "inst-1", "transaction_created", "tx-1", "", "700.00", "", time.Now()).
		AddRow("j-2", "d-1", "stu-1", "inst-1", "payment_created", "tx-1", "pay-1", "700.00", "", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_commit_journal WHERE draft_id = $1")).
		WithArgs("d-1").
		WillReturnRows(rows)

	entries, err := repo.ListByDraft(context.Background(), "d-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "payment_created", entries[1].State)
	assert.Equal(t, money.FromMajor(700), entries[1].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitJournalRepositoryEnsureSchema(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewCommitJournalRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS payment_commit_journal")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
