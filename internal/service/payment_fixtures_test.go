package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/finance"
	"github.com/noah-isme/sma-finance-api/internal/ledger"
	"github.com/noah-isme/sma-finance-api/internal/models"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

var paymentNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func paymentSnapshot() *models.FinanceSnapshot {
	due := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	return &models.FinanceSnapshot{
		Student: models.Student{ID: "stu-1", FullName: "Awa Diop", AssignmentTypeID: "day"},
		Registrations: []models.Registration{
			{ID: "reg-1", StudentID: "stu-1", AcademicYearID: "ay-2025", ClassID: "cls-3a", LevelID: "lvl-3", Status: models.RegistrationStatusActive},
		},
		Pricing: []models.Pricing{
			{ID: "pr-tuition", FeeType: "tuition", Amount: money.FromMajor(1000), AssignmentTypeID: "day", AcademicYearID: "ay-2025", LevelID: "lvl-3"},
			{ID: "pr-uniform", FeeType: "uniform", Amount: money.FromMajor(200), AssignmentTypeID: "day", AcademicYearID: "ay-2025", LevelID: "lvl-3"},
		},
		Installments: []models.Installment{
			{ID: "inst-1", PricingID: "pr-tuition", AmountDue: money.FromMajor(500), DueDate: due},
			{ID: "inst-2", PricingID: "pr-tuition", AmountDue: money.FromMajor(500), DueDate: due.AddDate(0, 3, 0)},
			{ID: "inst-3", PricingID: "pr-uniform", AmountDue: money.FromMajor(200), DueDate: due},
		},
		Payments: []models.Payment{},
		PaymentMethods: []models.PaymentMethod{
			{ID: "cash", Name: "Cash"},
			{ID: "mobile", Name: "Mobile money"},
		},
	}
}

type staticSnapshots struct {
	mu       sync.Mutex
	payments []models.Payment
	err      error
	calls    int
}

func (s *staticSnapshots) Snapshot(ctx context.Context, studentID, academicYearID string) (*models.FinanceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if studentID != "stu-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	snapshot := paymentSnapshot()
	snapshot.Payments = append(snapshot.Payments, s.payments...)
	return snapshot, nil
}

func (s *staticSnapshots) addPayment(p models.Payment) {
	s.mu.Lock()
	s.payments = append(s.payments, p)
	s.mu.Unlock()
}

type memoryDraftStore struct {
	mu      sync.Mutex
	items   map[string][]byte
	saveErr error
	deleted []string
}

func newMemoryDraftStore() *memoryDraftStore {
	return &memoryDraftStore{items: make(map[string][]byte)}
}

func (m *memoryDraftStore) Get(ctx context.Context, id string) (*finance.PaymentDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[id]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	var draft finance.PaymentDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (m *memoryDraftStore) Save(ctx context.Context, draft *finance.PaymentDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	m.items[draft.ID] = raw
	return nil
}

func (m *memoryDraftStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryDraftStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	return ok
}

type fakeLedger struct {
	mu sync.Mutex

	txSeq  int
	paySeq int

	failTransactionAt int
	failPaymentFor    map[string]error
	deleteErr         error
	deleteRefused     bool
	listErr           error

	block   chan struct{}
	entered chan struct{}

	transactions []models.Transaction
	payments     []models.Payment
	paymentReqs  []ledger.CreatePaymentRequest
	deleted      []string
}

func (f *fakeLedger) CreateTransaction(ctx context.Context, req ledger.CreateTransactionRequest) (*models.Transaction, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txSeq++
	if f.failTransactionAt == f.txSeq {
		return nil, &ledger.APIError{Method: "POST", Path: "/api/transaction", StatusCode: 503, Body: "register closed"}
	}
	tx := models.Transaction{
		ID:                    fmt.Sprintf("tx-%d", f.txSeq),
		UserID:                req.UserID,
		CashRegisterSessionID: req.CashRegisterSessionID,
		TransactionDate:       req.TransactionDate,
		TotalAmount:           req.TotalAmount,
		TransactionType:       req.TransactionType,
	}
	f.transactions = append(f.transactions, tx)
	return &tx, nil
}

func (f *fakeLedger) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	if f.deleteRefused {
		return false, nil
	}
	kept := f.transactions[:0]
	for _, tx := range f.transactions {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	f.transactions = kept
	return true, nil
}

func (f *fakeLedger) CreatePayment(ctx context.Context, req ledger.CreatePaymentRequest) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paymentReqs = append(f.paymentReqs, req)
	if err := f.failPaymentFor[req.InstallmentID]; err != nil {
		return nil, err
	}
	f.paySeq++
	payment := models.Payment{
		ID:            fmt.Sprintf("pay-%d", f.paySeq),
		StudentID:     req.StudentID,
		InstallmentID: req.InstallmentID,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
	}
	f.payments = append(f.payments, payment)
	return &payment, nil
}

func (f *fakeLedger) ListTransactions(ctx context.Context, sessionID string) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Transaction(nil), f.transactions...), nil
}

func (f *fakeLedger) ListPayments(ctx context.Context, studentID string) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Payment, 0)
	for _, p := range f.payments {
		if p.StudentID == studentID {
			p.StudentID = ""
			out = append(out, p)
		}
	}
	return out, nil
}

type journalRecorder struct {
	mu      sync.Mutex
	entries []models.CommitJournalEntry
}

func (j *journalRecorder) Record(entry models.CommitJournalEntry) {
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}

func (j *journalRecorder) states(installmentID string) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, e := range j.entries {
		if e.InstallmentID == installmentID {
			out = append(out, e.State)
		}
	}
	return out
}

type paymentHarness struct {
	drafts    *memoryDraftStore
	snapshots *staticSnapshots
	ledger    *fakeLedger
	journal   *journalRecorder
	guard     *CommitGuard
	draftSvc  *PaymentDraftService
	commitSvc *PaymentCommitService
}

func newPaymentHarness(t *testing.T, logger *zap.Logger) *paymentHarness {
	t.Helper()
	h := &paymentHarness{
		drafts:    newMemoryDraftStore(),
		snapshots: &staticSnapshots{},
		ledger:    &fakeLedger{},
		journal:   &journalRecorder{},
		guard:     NewCommitGuard(),
	}
	h.draftSvc = NewPaymentDraftService(h.drafts, h.snapshots, h.guard, PaymentOptions{}, nil, logger)
	h.draftSvc.now = func() time.Time { return paymentNow }
	h.commitSvc = NewPaymentCommitService(h.drafts, h.snapshots, h.ledger, h.journal, h.guard, NewMetricsService(), PaymentOptions{}, nil, logger)
	h.commitSvc.now = func() time.Time { return paymentNow }
	return h
}

// openDraft selects the given installments at their full remaining amount and hands over given.
func (h *paymentHarness) openDraft(t *testing.T, given string, installments ...string) string {
	t.Helper()
	ctx := context.Background()
	view, err := h.draftSvc.Create(ctx, dto.CreateDraftRequest{StudentID: "stu-1", AcademicYearID: "ay-2025"})
	require.NoError(t, err)
	id := view.Draft.ID
	for _, inst := range installments {
		_, err := h.draftSvc.Toggle(ctx, id, inst)
		require.NoError(t, err)
	}
	view, err = h.draftSvc.SetGivenAmount(ctx, id, dto.AmountRequest{Amount: dto.AmountInput(given)})
	require.NoError(t, err)
	require.True(t, view.Validation.CanProceed, view.Validation.Errors)
	return id
}

func cashierContext() dto.CommitRequest {
	return dto.CommitRequest{UserID: "user-1", CashierID: "cashier-1", CashRegisterID: "reg-a", CashRegisterSessionID: "sess-1"}
}

func appErrorCode(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func paymentOf(id, installmentID string, major int64) models.Payment {
	return models.Payment{ID: id, StudentID: "stu-1", InstallmentID: installmentID, Amount: money.FromMajor(major)}
}
