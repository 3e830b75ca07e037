package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-finance-api/internal/models"
)

const journalSchema = `CREATE TABLE IF NOT EXISTS payment_commit_journal (
	id TEXT PRIMARY KEY,
	draft_id TEXT NOT NULL,
	student_id TEXT NOT NULL,
	installment_id TEXT NOT NULL,
	state TEXT NOT NULL,
	transaction_id TEXT NOT NULL DEFAULT '',
	payment_id TEXT NOT NULL DEFAULT '',
	amount NUMERIC(14,2) NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS payment_commit_journal_draft_idx ON payment_commit_journal (draft_id, created_at)`

// CommitJournalRepository persists payment commit transitions.
type CommitJournalRepository struct {
	db *sqlx.DB
}

// NewCommitJournalRepository constructs a CommitJournalRepository.
func NewCommitJournalRepository(db *sqlx.DB) *CommitJournalRepository {
	return &CommitJournalRepository{db: db}
}

// EnsureSchema creates the journal table when it does not exist yet.
func (r *CommitJournalRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, journalSchema); err != nil {
		return fmt.Errorf("ensure commit journal schema: %w", err)
	}
	return nil
}

// Create appends one journal entry.
func (r *CommitJournalRepository) Create(ctx context.Context, entry *models.CommitJournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payment_commit_journal
	(id, draft_id, student_id, installment_id, state, transaction_id, payment_id, amount, message, created_at)
	VALUES (:id, :draft_id, :student_id, :installment_id, :state, :transaction_id, :payment_id, :amount, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create commit journal entry: %w", err)
	}
	return nil
}

// ListByDraft returns the journal of one draft in write order.
func (r *CommitJournalRepository) ListByDraft(ctx context.Context, draftID string) ([]models.CommitJournalEntry, error) {
	const query = `SELECT id, draft_id, student_id, installment_id, state, transaction_id, payment_id, amount, message, created_at
        FROM payment_commit_journal WHERE draft_id = $1 ORDER BY created_at, id`
	entries := make([]models.CommitJournalEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, draftID); err != nil {
		return nil, fmt.Errorf("list commit journal: %w", err)
	}
	return entries, nil
}
