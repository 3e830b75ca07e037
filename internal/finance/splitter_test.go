package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-finance-api/pkg/money"
)

func newTestSplitter(summary *FinancialSummary) *Splitter {
	draft := NewPaymentDraft("draft-1", summary.StudentID, summary.AcademicYearID, fixedNow)
	return NewSplitter(draft, summary, "cash")
}

func TestToggleSeedsAllocationAndMethod(t *testing.T) {
	s := newTestSplitter(newFixture().summary())

	notices := s.Toggle("inst-t1")
	assert.Empty(t, notices)

	draft := s.Draft()
	assert.Equal(t, []string{"inst-t1"}, draft.Selected)
	assert.Equal(t, money.FromMajor(30000), draft.Allocations["inst-t1"])
	require.Len(t, draft.Methods["inst-t1"], 1)
	assert.Equal(t, MethodEntry{MethodID: "cash", Amount: money.FromMajor(30000)}, draft.Methods["inst-t1"][0])
}

func TestToggleDeselectClearsState(t *testing.T) {
	s := newTestSplitter(newFixture().summary())
	s.Toggle("inst-t1")
	s.Toggle("inst-t2")
	s.Toggle("inst-t1")

	draft := s.Draft()
	assert.Equal(t, []string{"inst-t2"}, draft.Selected)
	_, hasAlloc := draft.Allocations["inst-t1"]
	_, hasMethods := draft.Methods["inst-t1"]
	assert.False(t, hasAlloc)
	assert.False(t, hasMethods)
}

func TestToggleFullyPaidIsRefused(t *testing.T) {
	s := newTestSplitter(newFixture().summary())
	s.Toggle("inst-t2")

	notices := s.Toggle("inst-r1")
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeWarning, notices[0].Level)
	assert.Contains(t, notices[0].Message, "fully paid")
	assert.Equal(t, []string{"inst-t2"}, s.Draft().Selected)
}

func TestToggleUnknownInstallment(t *testing.T) {
	s := newTestSplitter(newFixture().summary())
	notices := s.Toggle("inst-day")
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeError, notices[0].Level)
	assert.Empty(t, s.Draft().Selected)
}

func TestSetAmountRejectsAboveRemaining(t *testing.T) {
	s := newTestSplitter(newFixture().summary())
	s.Toggle("inst-t1")

	notices := s.SetAmount("inst-t1", "30000.01")
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeError, notices[0].Level)
	assert.Equal(t, money.FromMajor(30000), s.Draft().Allocations["inst-t1"])
}

func TestSetAmountSyncsSingleMethod(t *testing.T) {
	s := newTestSplitter(newFixture().summary())
	s.Toggle("inst-t1")

	assert.Empty(t, s.SetAmount("inst-t1", "12000"))
	assert.Equal(t, money.FromMajor(12000), s.Draft().Methods["inst-t1"][0].Amount)

	s.AddMethod("inst-t1")
	s.SetAmount("inst-t1", "15000")
	methods := s.Draft().Methods["inst-t1"]
	require.Len(t, methods, 2)
	assert.Equal(t, money.FromMajor(12000), methods[0].Amount, "multi-method splits are never rebalanced")
	assert.True(t, methods[1].Amount.IsZero())
}

func TestSetAmountFlagsRunningTotalAboveGiven(t *testing.T) {
	s := newTestSplitter(newFixture().summary())
	s.Toggle("inst-t1")
	s.SetGivenAmount("40000")
	s.Toggle("inst-t2")

	assert.NotEmpty(t, s.Draft().GlobalError)

	notices := s.SetAmount("inst-t2", "10000")
	assert.Empty(t, notices)
	assert.Empty(t, s.Draft().GlobalError)

	notices = s.SetAmount("inst-t2", "10000.01")
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeWarning, notices[0].Level)
	assert.Equal(t, money.MustParse("10000.01"), s.Draft().Allocations["inst-t2"], "soft error does not block the edit")
}

func TestSetAmountRequiresSelection(t *testing.T) {
	s := newTestSplitter(newFixture().summary())
	notices := s.SetAmount("inst-t1", "100")
	require.Len(t, notices, 1)
	_, ok := s.Draft().Allocations["inst-t1"]
	assert.False(t, ok)
}

func TestRemoveMethodKeepsFloor(t *testing.T) {
	s := newTestSplitter(newFixture().summary())
	s.Toggle("inst-t1")

	notices := s.RemoveMethod("inst-t1", 0)
	require.Len(t, notices, 1)
	assert.Len(t, s.Draft().Methods["inst-t1"], 1)

	s.AddMethod("inst-t1")
	s.UpdateMethod("inst-t1", 1, "method", "mobile")
	assert.Empty(t, s.RemoveMethod("inst-t1", 0))
	methods := s.Draft().Methods["inst-t1"]
	require.Len(t, methods, 1)
	assert.Equal(t, "mobile", methods[0].MethodID)

	assert.NotEmpty(t, s.RemoveMethod("inst-t1", 5))
}

func TestUpdateMethod(t *testing.T) {
	s := newTestSplitter(newFixture().summary())
	s.Toggle("inst-t1")
	s.AddMethod("inst-t1")

	assert.Empty(t, s.UpdateMethod("inst-t1", 1, "amount", "500"))
	assert.Empty(t, s.UpdateMethod("inst-t1", 1, "method", " mobile "))
	assert.NotEmpty(t, s.UpdateMethod("inst-t1", 1, "amount", "-3"))
	assert.NotEmpty(t, s.UpdateMethod("inst-t1", 1, "colour", "red"))

	methods := s.Draft().Methods["inst-t1"]
	assert.Equal(t, MethodEntry{MethodID: "mobile", Amount: money.FromMajor(500)}, methods[1])
	assert.Equal(t, money.FromMajor(30000), methods[0].Amount)
}

func TestPublishDiscount(t *testing.T) {
	summary := newFixture().summary()
	s := newTestSplitter(summary)

	notices := s.PublishDiscount(ComputeDiscount("pr-tuition", "60000", summary.Pricing))
	require.NotNil(t, s.Draft().Discount)
	assert.Len(t, notices, 1)

	notices = s.PublishDiscount(ComputeDiscount("pr-tuition", "999999", summary.Pricing))
	assert.Nil(t, s.Draft().Discount)
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeError, notices[0].Level)

	s.PublishDiscount(ComputeDiscount("pr-tuition", "10", summary.Pricing))
	s.PublishDiscount(ComputeDiscount("", "", summary.Pricing))
	assert.Nil(t, s.Draft().Discount)
}

func TestPruneDropsSettledSelections(t *testing.T) {
	f := newFixture()
	s := newTestSplitter(f.summary())
	s.Toggle("inst-t1")
	s.Toggle("inst-t2")

	f.payments = append(f.payments, f.payments[0])
	f.payments[len(f.payments)-1].Amount = money.FromMajor(30000)
	refreshed := NewSplitter(s.Draft(), f.summary(), "cash")

	notices := refreshed.Prune()
	require.Len(t, notices, 1)
	assert.Equal(t, []string{"inst-t2"}, refreshed.Draft().Selected)
}
