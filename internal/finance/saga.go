package finance

import "fmt"

// CommitState is the per-installment state of the two-step ledger commit.
type CommitState string

// Commit states. payment_created, compensated and failed are terminal.
const (
	CommitPending            CommitState = "pending"
	CommitTransactionCreated CommitState = "transaction_created"
	CommitPaymentCreated     CommitState = "payment_created"
	CommitCompensated        CommitState = "compensated"
	CommitFailed             CommitState = "failed"
)

// CommitEvent drives CommitState transitions.
type CommitEvent string

// Commit events.
const (
	EventTransactionCreated  CommitEvent = "transaction_created"
	EventTransactionRejected CommitEvent = "transaction_rejected"
	EventPaymentCreated      CommitEvent = "payment_created"
	EventCompensated         CommitEvent = "compensated"
	EventCompensationFailed  CommitEvent = "compensation_failed"
)

var commitTransitions = map[CommitState]map[CommitEvent]CommitState{
	CommitPending: {
		EventTransactionCreated:  CommitTransactionCreated,
		EventTransactionRejected: CommitFailed,
	},
	CommitTransactionCreated: {
		EventPaymentCreated:     CommitPaymentCreated,
		EventCompensated:        CommitCompensated,
		EventCompensationFailed: CommitFailed,
	},
}

// NextCommitState returns the state reached from `from` on `event`.
func NextCommitState(from CommitState, event CommitEvent) (CommitState, error) {
	next, ok := commitTransitions[from][event]
	if !ok {
		return from, fmt.Errorf("invalid commit transition %s --%s-->", from, event)
	}
	return next, nil
}

// Terminal reports whether no further transition is possible.
func (s CommitState) Terminal() bool {
	switch s {
	case CommitPaymentCreated, CommitCompensated, CommitFailed:
		return true
	default:
		return false
	}
}

// Committed reports whether the installment has a persisted payment.
func (s CommitState) Committed() bool {
	return s == CommitPaymentCreated
}
