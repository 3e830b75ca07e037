package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/models"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
	"github.com/noah-isme/sma-finance-api/pkg/jobs"
)

const commitJournalJobType = "commit_journal"

type commitJournalStore interface {
	Create(ctx context.Context, entry *models.CommitJournalEntry) error
	ListByDraft(ctx context.Context, draftID string) ([]models.CommitJournalEntry, error)
}

// CommitJournalConfig tunes the journal worker pool.
type CommitJournalConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// CommitJournalService writes commit transitions in the background so the commit path never waits on it.
type CommitJournalService struct {
	repo   commitJournalStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewCommitJournalService constructs the journal and its queue. Call Start before Record.
func NewCommitJournalService(repo commitJournalStore, cfg CommitJournalConfig, logger *zap.Logger) *CommitJournalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CommitJournalService{repo: repo, logger: logger}
	svc.queue = jobs.NewQueue("commit-journal", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: 256,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the workers.
func (s *CommitJournalService) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.queue.Start(ctx)
}

// Stop cancels the workers and waits for them to exit.
func (s *CommitJournalService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Record offers one entry to the queue without blocking. A nil journal is a no-op.
func (s *CommitJournalService) Record(entry models.CommitJournalEntry) {
	if s == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	job := jobs.Job{
		ID:      fmt.Sprintf("%s:%s:%s", entry.DraftID, entry.InstallmentID, entry.State),
		Type:    commitJournalJobType,
		Payload: entry,
	}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.logger.Warn("commit journal entry dropped",
			zap.String("draft_id", entry.DraftID),
			zap.String("installment_id", entry.InstallmentID),
			zap.String("state", entry.State),
			zap.Error(err),
		)
	}
}

// List returns the recorded transitions of one draft. A nil journal has none.
func (s *CommitJournalService) List(ctx context.Context, draftID string) ([]models.CommitJournalEntry, error) {
	if s == nil {
		return []models.CommitJournalEntry{}, nil
	}
	entries, err := s.repo.ListByDraft(ctx, draftID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load commit journal")
	}
	return entries, nil
}

func (s *CommitJournalService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.CommitJournalEntry)
	if !ok {
		return fmt.Errorf("unexpected commit journal payload %T", job.Payload)
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		return err
	}
	return nil
}
