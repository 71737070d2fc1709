package settlement

import (
	"errors"

	"cryptolab-go/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptolab_settlements_total",
		Help: "Settlement operations processed, labeled by kind and outcome",
	}, []string{"kind", "outcome"})

	settlementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cryptolab_settlement_duration_seconds",
		Help:    "Latency distribution of settlement operations, retries included",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"kind"})

	journalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptolab_journal_mirror_failures_total",
		Help: "Settlements that committed locally but could not be mirrored",
	}, []string{"kind"})
)

const (
	kindDepositApprove    = "deposit_approve"
	kindDepositReject     = "deposit_reject"
	kindWithdrawalApprove = "withdrawal_approve"
	kindWithdrawalReject  = "withdrawal_reject"
	kindBalanceSet        = "balance_set"
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrInvalidStateTransition):
		return "invalid_state"
	case errors.Is(err, store.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, store.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, store.ErrConcurrentModification):
		return "conflict"
	default:
		return "error"
	}
}
