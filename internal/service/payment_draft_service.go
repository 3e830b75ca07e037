package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/finance"
	"github.com/noah-isme/sma-finance-api/internal/models"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

type draftStore interface {
	Get(ctx context.Context, id string) (*finance.PaymentDraft, error)
	Save(ctx context.Context, draft *finance.PaymentDraft) error
	Delete(ctx context.Context, id string) error
}

type financeSnapshotter interface {
	Snapshot(ctx context.Context, studentID, academicYearID string) (*models.FinanceSnapshot, error)
}

// PaymentOptions carries cash desk policy shared by drafts and commits.
type PaymentOptions struct {
	DefaultMethodID    string
	RequireExactChange bool
}

// PaymentDraftService applies cashier edits to stored drafts. Every operation
// rebuilds the summary from a fresh snapshot, edits, saves and revalidates.
type PaymentDraftService struct {
	drafts    draftStore
	finances  financeSnapshotter
	guard     *CommitGuard
	opts      PaymentOptions
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentDraftService constructs a PaymentDraftService.
func NewPaymentDraftService(drafts draftStore, finances financeSnapshotter, guard *CommitGuard, opts PaymentOptions, validate *validator.Validate, logger *zap.Logger) *PaymentDraftService {
	if guard == nil {
		guard = NewCommitGuard()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentDraftService{
		drafts:    drafts,
		finances:  finances,
		guard:     guard,
		opts:      opts,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

type draftEdit func(s *finance.Splitter, summary *finance.FinancialSummary, view *dto.DraftView) []finance.Notice

// Create opens a new draft for a student with an active registration.
func (s *PaymentDraftService) Create(ctx context.Context, req dto.CreateDraftRequest) (*dto.DraftView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	snapshot, err := s.finances.Snapshot(ctx, req.StudentID, req.AcademicYearID)
	if err != nil {
		return nil, err
	}
	summary, err := summaryOf(snapshot, req.AcademicYearID, s.now())
	if err != nil {
		return nil, err
	}

	draft := finance.NewPaymentDraft(uuid.NewString(), summary.StudentID, summary.AcademicYearID, s.now().UTC())
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save payment draft")
	}
	s.logger.Info("payment draft opened", zap.String("draft_id", draft.ID), zap.String("student_id", draft.StudentID))
	return s.view(draft, summary, snapshot, nil), nil
}

// Get returns the draft revalidated against current balances.
func (s *PaymentDraftService) Get(ctx context.Context, id string) (*dto.DraftView, error) {
	return s.edit(ctx, id, nil)
}

// Delete discards a draft.
func (s *PaymentDraftService) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	key := strings.TrimSpace(id)
	if !s.guard.TryAcquire(key) {
		return appErrors.ErrCommitInProgress
	}
	defer s.guard.Release(key)
	if err := s.drafts.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete payment draft")
	}
	return nil
}

// Toggle selects or deselects an installment.
func (s *PaymentDraftService) Toggle(ctx context.Context, id, installmentID string) (*dto.DraftView, error) {
	return s.edit(ctx, id, func(sp *finance.Splitter, _ *finance.FinancialSummary, _ *dto.DraftView) []finance.Notice {
		return sp.Toggle(installmentID)
	})
}

// SetAmount changes the allocation of a selected installment.
func (s *PaymentDraftService) SetAmount(ctx context.Context, id, installmentID string, req dto.AmountRequest) (*dto.DraftView, error) {
	return s.edit(ctx, id, func(sp *finance.Splitter, _ *finance.FinancialSummary, _ *dto.DraftView) []finance.Notice {
		return sp.SetAmount(installmentID, string(req.Amount))
	})
}

// AddMethod appends a method entry to an installment split.
func (s *PaymentDraftService) AddMethod(ctx context.Context, id, installmentID string) (*dto.DraftView, error) {
	return s.edit(ctx, id, func(sp *finance.Splitter, _ *finance.FinancialSummary, _ *dto.DraftView) []finance.Notice {
		return sp.AddMethod(installmentID)
	})
}

// UpdateMethod edits one method entry.
func (s *PaymentDraftService) UpdateMethod(ctx context.Context, id, installmentID string, index int, req dto.UpdateMethodRequest) (*dto.DraftView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return s.edit(ctx, id, func(sp *finance.Splitter, _ *finance.FinancialSummary, _ *dto.DraftView) []finance.Notice {
		return sp.UpdateMethod(installmentID, index, req.Field, req.Value)
	})
}

// RemoveMethod drops one method entry.
func (s *PaymentDraftService) RemoveMethod(ctx context.Context, id, installmentID string, index int) (*dto.DraftView, error) {
	return s.edit(ctx, id, func(sp *finance.Splitter, _ *finance.FinancialSummary, _ *dto.DraftView) []finance.Notice {
		return sp.RemoveMethod(installmentID, index)
	})
}

// ApplyDiscount validates and stores a discount. Blank input clears it.
func (s *PaymentDraftService) ApplyDiscount(ctx context.Context, id string, req dto.DiscountRequest) (*dto.DraftView, error) {
	return s.edit(ctx, id, func(sp *finance.Splitter, summary *finance.FinancialSummary, view *dto.DraftView) []finance.Notice {
		v := finance.ComputeDiscount(req.PricingID, string(req.Amount), summary.Pricing)
		view.Discount = &v
		return sp.PublishDiscount(v)
	})
}

// SetGivenAmount records the cash handed over.
func (s *PaymentDraftService) SetGivenAmount(ctx context.Context, id string, req dto.AmountRequest) (*dto.DraftView, error) {
	return s.edit(ctx, id, func(sp *finance.Splitter, _ *finance.FinancialSummary, _ *dto.DraftView) []finance.Notice {
		return sp.SetGivenAmount(string(req.Amount))
	})
}

// edit holds the draft key from load to save so a commit cannot settle the
// draft underneath it. Without the key, a read still renders but never saves.
func (s *PaymentDraftService) edit(ctx context.Context, id string, fn draftEdit) (*dto.DraftView, error) {
	key := strings.TrimSpace(id)
	held := key != "" && s.guard.TryAcquire(key)
	if !held && key != "" && fn != nil {
		return nil, appErrors.ErrCommitInProgress
	}
	release := func() {
		if held {
			s.guard.Release(key)
			held = false
		}
	}
	defer release()

	draft, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.finances.Snapshot(ctx, draft.StudentID, draft.AcademicYearID)
	if err != nil {
		return nil, err
	}
	summary, err := summaryOf(snapshot, draft.AcademicYearID, s.now())
	if err != nil {
		return nil, err
	}

	splitter := finance.NewSplitter(draft, summary, defaultMethod(s.opts, snapshot))
	notices := splitter.Prune()
	view := &dto.DraftView{}
	if fn != nil {
		notices = append(notices, fn(splitter, summary, view)...)
	}

	if held && (fn != nil || len(notices) > 0) {
		draft.UpdatedAt = s.now().UTC()
		if err := s.drafts.Save(ctx, draft); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save payment draft")
		}
	}
	release()

	full := s.view(draft, summary, snapshot, notices)
	full.Discount = view.Discount
	return full, nil
}

func (s *PaymentDraftService) load(ctx context.Context, id string) (*finance.PaymentDraft, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "draft id is required")
	}
	draft, err := s.drafts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment draft not found or expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment draft")
	}
	return draft, nil
}

func (s *PaymentDraftService) view(draft *finance.PaymentDraft, summary *finance.FinancialSummary, snapshot *models.FinanceSnapshot, notices []finance.Notice) *dto.DraftView {
	busy := s.guard.Active(draft.ID) || s.guard.Active(StudentKey(draft.StudentID, draft.AcademicYearID))
	validation := finance.ValidateBatch(draft, summary, batchOptions(s.opts, snapshot, busy))
	notices = append(notices, validation.Notices...)
	return &dto.DraftView{
		Draft:      draft,
		Summary:    summary,
		Validation: validation,
		Notices:    notices,
	}
}

func batchOptions(opts PaymentOptions, snapshot *models.FinanceSnapshot, inFlight bool) finance.BatchOptions {
	var known map[string]struct{}
	if len(snapshot.PaymentMethods) > 0 {
		known = make(map[string]struct{}, len(snapshot.PaymentMethods))
		for _, m := range snapshot.PaymentMethods {
			known[m.ID] = struct{}{}
		}
	}
	return finance.BatchOptions{
		RequireExactChange: opts.RequireExactChange,
		KnownMethods:       known,
		InFlight:           inFlight,
	}
}

func defaultMethod(opts PaymentOptions, snapshot *models.FinanceSnapshot) string {
	if opts.DefaultMethodID != "" {
		return opts.DefaultMethodID
	}
	if len(snapshot.PaymentMethods) > 0 {
		return snapshot.PaymentMethods[0].ID
	}
	return ""
}
