package models

// DepositStatus is the lifecycle state of a DepositRequest.
//
//	pending -> completed | failed | cancelled
//
// All non-pending states are terminal.
type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositCompleted DepositStatus = "completed"
	DepositFailed    DepositStatus = "failed"
	DepositCancelled DepositStatus = "cancelled"
)

func (s DepositStatus) Valid() bool {
	switch s {
	case DepositPending, DepositCompleted, DepositFailed, DepositCancelled:
		return true
	}
	return false
}

func (s DepositStatus) Terminal() bool {
	return s.Valid() && s != DepositPending
}

// CanTransitionTo reports whether a deposit in state s may move to next
func (s DepositStatus) CanTransitionTo(next DepositStatus) bool {
	return s == DepositPending && next.Terminal()
}

// WithdrawalStatus is the lifecycle state of a WithdrawalRequest.
//
//	pending -> processing | completed | rejected
//
// Settlement only ever moves a request out of pending; processing is
// reserved for requests handed to an external payout step and is treated
// like any other in-flight state.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalRejected   WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalProcessing, WithdrawalCompleted, WithdrawalRejected:
		return true
	}
	return false
}

func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalCompleted || s == WithdrawalRejected
}

// CanTransitionTo reports whether a withdrawal in state s may move to next
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	return s == WithdrawalPending && next.Valid() && next != WithdrawalPending
}
