package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/finance"
	"github.com/noah-isme/sma-finance-api/internal/ledger"
	"github.com/noah-isme/sma-finance-api/internal/models"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

type ledgerBackend interface {
	CreateTransaction(ctx context.Context, req ledger.CreateTransactionRequest) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) (bool, error)
	CreatePayment(ctx context.Context, req ledger.CreatePaymentRequest) (*models.Payment, error)
	ListTransactions(ctx context.Context, sessionID string) ([]models.Transaction, error)
	ListPayments(ctx context.Context, studentID string) ([]models.Payment, error)
}

type commitRecorder interface {
	Record(entry models.CommitJournalEntry)
}

// PaymentCommitService persists a validated draft to the ledger, one installment
// at a time. Each installment is a transaction followed by a payment; a payment
// failure deletes its transaction and stops the batch. Installments committed
// before the failure stay committed.
type PaymentCommitService struct {
	drafts    draftStore
	finances  financeSnapshotter
	ledger    ledgerBackend
	journal   commitRecorder
	guard     *CommitGuard
	metrics   *MetricsService
	opts      PaymentOptions
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentCommitService constructs a PaymentCommitService.
func NewPaymentCommitService(
	drafts draftStore,
	finances financeSnapshotter,
	ledgerClient ledgerBackend,
	journal commitRecorder,
	guard *CommitGuard,
	metrics *MetricsService,
	opts PaymentOptions,
	validate *validator.Validate,
	logger *zap.Logger,
) *PaymentCommitService {
	if guard == nil {
		guard = NewCommitGuard()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentCommitService{
		drafts:    drafts,
		finances:  finances,
		ledger:    ledgerClient,
		journal:   journal,
		guard:     guard,
		metrics:   metrics,
		opts:      opts,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Commit runs the draft through the ledger. A second call for the same draft, or
// for another draft of the same student and academic year, fails with
// ErrCommitInProgress while one is running.
func (s *PaymentCommitService) Commit(ctx context.Context, draftID string, req dto.CommitRequest) (*dto.CommitResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	draft, err := s.loadDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	keys := []string{draft.ID, StudentKey(draft.StudentID, draft.AcademicYearID)}
	if !s.guard.TryAcquire(keys...) {
		return nil, appErrors.ErrCommitInProgress
	}
	defer s.guard.Release(keys...)

	// An edit may have been saved between the first load and acquiring the keys.
	if draft, err = s.loadDraft(ctx, draftID); err != nil {
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

	validation := finance.ValidateBatch(draft, summary, batchOptions(s.opts, snapshot, false))
	if !validation.IsValid {
		return nil, appErrors.Clone(appErrors.ErrBatchRejected, strings.Join(validation.Errors, "; "))
	}

	logger := s.logger.With(zap.String("draft_id", draft.ID), zap.String("student_id", draft.StudentID))
	result := &dto.CommitResult{DraftID: draft.ID, Items: make([]dto.CommitItemResult, 0, len(draft.Selected))}
	batchSize := len(draft.Selected)
	committed := make([]models.Payment, 0, batchSize)
	txIDs := make(map[string]struct{})

	for _, installmentID := range append([]string(nil), draft.Selected...) {
		item, payment := s.commitInstallment(ctx, logger, draft, installmentID, req)
		result.Items = append(result.Items, item)
		s.metrics.RecordCommitItem(item.State)
		if item.TransactionID != "" && item.State.Committed() {
			txIDs[item.TransactionID] = struct{}{}
		}
		if !item.State.Committed() {
			result.Notices = append(result.Notices, finance.Notice{Level: finance.NoticeError, Message: item.Error})
			break
		}
		committed = append(committed, *payment)
		result.TotalPaid = result.TotalPaid.Add(item.Amount)
	}

	result.Success = len(committed) == batchSize
	s.metrics.RecordCommitBatch(result.Success)

	given := draft.GivenAmount
	for _, p := range committed {
		draft.Forget(p.InstallmentID)
	}
	if err := s.settleDraft(ctx, draft, result.Success); err != nil {
		logger.Error("failed to update draft after commit", zap.Error(err))
		result.Notices = append(result.Notices, finance.Notice{Level: finance.NoticeWarning, Message: "payments were recorded but the draft could not be updated"})
	}

	if len(committed) > 0 {
		change := given.Sub(result.TotalPaid)
		if change.IsPositive() {
			result.ChangeAmount = change
		}
	}

	s.reconcile(ctx, logger, result, snapshot, draft.AcademicYearID, committed, txIDs, req.CashRegisterSessionID)

	if result.Success {
		msg := fmt.Sprintf("%d payment(s) recorded for %s", len(committed), result.TotalPaid)
		if result.ChangeAmount.IsPositive() {
			msg += fmt.Sprintf(", change due %s", result.ChangeAmount)
		}
		result.Notices = append(result.Notices, finance.Notice{Level: finance.NoticeInfo, Message: msg})
	} else if len(committed) > 0 {
		result.Notices = append(result.Notices, finance.Notice{
			Level:   finance.NoticeWarning,
			Message: fmt.Sprintf("%d of %d payment(s) recorded; the remaining installments stay in the draft", len(committed), batchSize),
		})
	}

	logger.Info("payment batch committed",
		zap.Bool("success", result.Success),
		zap.Int("committed", len(committed)),
		zap.String("total_paid", result.TotalPaid.String()),
	)
	return result, nil
}

func (s *PaymentCommitService) loadDraft(ctx context.Context, draftID string) (*finance.PaymentDraft, error) {
	draft, err := s.drafts.Get(ctx, strings.TrimSpace(draftID))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment draft not found or expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment draft")
	}
	return draft, nil
}

func (s *PaymentCommitService) commitInstallment(ctx context.Context, logger *zap.Logger, draft *finance.PaymentDraft, installmentID string, req dto.CommitRequest) (dto.CommitItemResult, *models.Payment) {
	amount := draft.Allocations[installmentID]
	item := dto.CommitItemResult{InstallmentID: installmentID, Amount: amount, State: finance.CommitPending}
	logger = logger.With(zap.String("installment_id", installmentID))

	start := time.Now()
	tx, err := s.ledger.CreateTransaction(ctx, ledger.CreateTransactionRequest{
		UserID:                req.UserID,
		CashRegisterSessionID: req.CashRegisterSessionID,
		TransactionDate:       s.now().UTC(),
		TotalAmount:           amount,
		TransactionType:       models.TransactionTypeCollection,
	})
	s.metrics.ObserveLedgerCall("create_transaction", err, time.Since(start))
	if err != nil {
		s.advance(&item, finance.EventTransactionRejected)
		item.Error = fmt.Sprintf("transaction for installment %s failed: %v", installmentID, err)
		logger.Warn("ledger transaction rejected", zap.Error(err))
		s.record(draft, item, item.Error)
		return item, nil
	}
	item.TransactionID = tx.ID
	s.advance(&item, finance.EventTransactionCreated)
	s.record(draft, item, "")

	methods := make([]ledger.PaymentMethodLine, 0, len(draft.Methods[installmentID]))
	allocations := make([]models.PaymentMethodAllocation, 0, len(draft.Methods[installmentID]))
	for _, m := range draft.Methods[installmentID] {
		methods = append(methods, ledger.PaymentMethodLine{ID: m.MethodID, Montant: m.Amount})
		allocations = append(allocations, models.PaymentMethodAllocation{MethodID: m.MethodID, Amount: m.Amount})
	}

	start = time.Now()
	payment, err := s.ledger.CreatePayment(ctx, ledger.CreatePaymentRequest{
		StudentID:      draft.StudentID,
		InstallmentID:  installmentID,
		CashRegisterID: req.CashRegisterID,
		CashierID:      req.CashierID,
		Amount:         amount,
		TransactionID:  tx.ID,
		Methods:        methods,
	})
	s.metrics.ObserveLedgerCall("create_payment", err, time.Since(start))
	if err != nil {
		item.Error = fmt.Sprintf("payment for installment %s failed: %v", installmentID, err)
		s.compensate(ctx, logger, draft, &item)
		return item, nil
	}

	item.PaymentID = payment.ID
	s.advance(&item, finance.EventPaymentCreated)
	s.record(draft, item, "")

	if payment.InstallmentID == "" {
		payment.InstallmentID = installmentID
	}
	if payment.StudentID == "" {
		payment.StudentID = draft.StudentID
	}
	if payment.TransactionID == "" {
		payment.TransactionID = tx.ID
	}
	if payment.Amount.IsZero() {
		payment.Amount = amount
	}
	if len(payment.Methods) == 0 {
		payment.Methods = allocations
	}
	return item, payment
}

// compensate deletes the orphan transaction. Its failure is logged, never escalated.
func (s *PaymentCommitService) compensate(ctx context.Context, logger *zap.Logger, draft *finance.PaymentDraft, item *dto.CommitItemResult) {
	start := time.Now()
	deleted, err := s.ledger.DeleteTransaction(context.WithoutCancel(ctx), item.TransactionID)
	s.metrics.ObserveLedgerCall("delete_transaction", err, time.Since(start))
	if err != nil || !deleted {
		s.advance(item, finance.EventCompensationFailed)
		s.metrics.RecordCompensationFailure()
		logger.Error("compensating transaction delete failed",
			zap.String("transaction_id", item.TransactionID),
			zap.Bool("deleted", deleted),
			zap.Error(err),
		)
		s.record(draft, *item, item.Error+"; orphan transaction left in ledger")
		return
	}
	s.advance(item, finance.EventCompensated)
	logger.Warn("payment failed, transaction deleted", zap.String("transaction_id", item.TransactionID))
	s.record(draft, *item, item.Error)
}

func (s *PaymentCommitService) advance(item *dto.CommitItemResult, event finance.CommitEvent) {
	next, err := finance.NextCommitState(item.State, event)
	if err != nil {
		s.logger.Error("invalid commit transition", zap.String("installment_id", item.InstallmentID), zap.Error(err))
		return
	}
	item.State = next
}

func (s *PaymentCommitService) record(draft *finance.PaymentDraft, item dto.CommitItemResult, message string) {
	if s.journal == nil {
		return
	}
	s.journal.Record(models.CommitJournalEntry{
		DraftID:       draft.ID,
		StudentID:     draft.StudentID,
		InstallmentID: item.InstallmentID,
		State:         string(item.State),
		TransactionID: item.TransactionID,
		PaymentID:     item.PaymentID,
		Amount:        item.Amount,
		Message:       message,
		CreatedAt:     s.now().UTC(),
	})
}

func (s *PaymentCommitService) settleDraft(ctx context.Context, draft *finance.PaymentDraft, success bool) error {
	if success {
		return s.drafts.Delete(ctx, draft.ID)
	}
	draft.UpdatedAt = s.now().UTC()
	return s.drafts.Save(ctx, draft)
}

// reconcile re-reads payments and transactions from the ledger and rebuilds the
// summary and receipt from them. Local records are used when the re-fetch fails.
func (s *PaymentCommitService) reconcile(ctx context.Context, logger *zap.Logger, result *dto.CommitResult, snapshot *models.FinanceSnapshot, academicYearID string, committed []models.Payment, txIDs map[string]struct{}, sessionID string) {
	receiptPayments := committed
	refreshed := *snapshot
	refreshed.Payments = append(append([]models.Payment(nil), snapshot.Payments...), committed...)

	start := time.Now()
	payments, err := s.ledger.ListPayments(ctx, snapshot.Student.ID)
	s.metrics.ObserveLedgerCall("list_payments", err, time.Since(start))
	if err != nil {
		logger.Warn("ledger payment re-fetch failed", zap.Error(err))
		result.Notices = append(result.Notices, finance.Notice{Level: finance.NoticeWarning, Message: "balances could not be refreshed from the ledger"})
	} else {
		refreshed.Payments = normalizeFetched(payments, committed, snapshot.Student.ID)
		receiptPayments = pickPayments(refreshed.Payments, committed)
	}

	if len(txIDs) > 0 {
		start = time.Now()
		txs, err := s.ledger.ListTransactions(ctx, sessionID)
		s.metrics.ObserveLedgerCall("list_transactions", err, time.Since(start))
		if err != nil {
			logger.Warn("ledger transaction re-fetch failed", zap.Error(err))
		} else {
			for _, tx := range txs {
				if _, ok := txIDs[tx.ID]; ok {
					result.Transactions = append(result.Transactions, tx)
				}
			}
		}
	}

	if summary := finance.BuildSummaryFromSnapshot(refreshed, academicYearID, s.now()); summary != nil {
		result.Summary = summary
	}
	if len(receiptPayments) > 0 {
		receipt := finance.BuildReceipt(receiptPayments, refreshed.Installments, refreshed.Pricing, refreshed.PaymentMethods)
		result.Receipt = &receipt
	}
}

// normalizeFetched fills the student and method split of fetched payments the ledger returned without them.
func normalizeFetched(fetched, committed []models.Payment, studentID string) []models.Payment {
	local := make(map[string]models.Payment, len(committed))
	for _, p := range committed {
		local[p.ID] = p
	}
	out := make([]models.Payment, 0, len(fetched))
	for _, p := range fetched {
		if p.StudentID == "" {
			p.StudentID = studentID
		}
		if l, ok := local[p.ID]; ok && len(p.Methods) == 0 {
			p.Methods = l.Methods
		}
		out = append(out, p)
	}
	return out
}

func pickPayments(all, committed []models.Payment) []models.Payment {
	wanted := make(map[string]struct{}, len(committed))
	for _, p := range committed {
		wanted[p.ID] = struct{}{}
	}
	picked := make([]models.Payment, 0, len(committed))
	for _, p := range all {
		if _, ok := wanted[p.ID]; ok {
			picked = append(picked, p)
		}
	}
	if len(picked) < len(committed) {
		return committed
	}
	return picked
}
