package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 20 * time.Millisecond

	// DefaultRejectionReason is stored when an admin rejects without a reason
	DefaultRejectionReason = "No reason provided"
)

var ErrActorRequired = errors.New("settlement requires an acting admin")

// Journal mirrors committed settlements to an external ledger. Each method
// must be idempotent for the same request.
type Journal interface {
	RecordDeposit(ctx context.Context, deposit *models.DepositRequest) error
	RecordWithdrawal(ctx context.Context, withdrawal *models.WithdrawalRequest) error
	RecordAdjustments(ctx context.Context, userId string, entries []models.LedgerEntry) error
}

// Engine applies admin decisions to pending requests. Ledger effect, status
// change and audit record commit together in the store; the journal, when
// configured, is written after commit.
type Engine struct {
	store       store.SettlementStore
	journal     Journal
	maxAttempts int
	backoff     time.Duration
}

type Option func(*Engine)

func WithJournal(journal Journal) Option {
	return func(e *Engine) { e.journal = journal }
}

// WithRetry sets how often a transition is retried after a concurrent
// modification, and the base wait between attempts
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(e *Engine) {
		if maxAttempts > 0 {
			e.maxAttempts = maxAttempts
		}
		e.backoff = backoff
	}
}

func NewEngine(s store.SettlementStore, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApproveDeposit credits the deposit amount to its owner and marks it completed
func (e *Engine) ApproveDeposit(ctx context.Context, depositId string, actor *models.Actor, txHash string) (*models.DepositRequest, error) {
	if actor == nil {
		return nil, ErrActorRequired
	}

	var deposit *models.DepositRequest
	err := e.run(ctx, kindDepositApprove, func() error {
		var err error
		deposit, err = e.store.CompleteDeposit(ctx, store.CompleteDepositParams{
			DepositId:   depositId,
			ProcessedBy: actor.UserId,
			TxHash:      strings.TrimSpace(txHash),
			Audit: store.Audit{
				Action:    "Deposit Approved",
				Details:   fmt.Sprintf("Deposit %s approved by admin %s", depositId, actor.Email),
				IpAddress: actor.IpAddress,
			},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("approve deposit %s: %w", depositId, err)
	}

	if e.journal != nil {
		e.mirror(kindDepositApprove, depositId, e.journal.RecordDeposit(ctx, deposit))
	}
	return deposit, nil
}

// RejectDeposit marks a pending deposit failed or cancelled. Nothing is credited.
func (e *Engine) RejectDeposit(ctx context.Context, depositId string, actor *models.Actor, status models.DepositStatus, reason string) (*models.DepositRequest, error) {
	if actor == nil {
		return nil, ErrActorRequired
	}
	if status == "" {
		status = models.DepositFailed
	}
	if status != models.DepositFailed && status != models.DepositCancelled {
		return nil, fmt.Errorf("reject deposit %s: %w: cannot move to %q", depositId, store.ErrInvalidStateTransition, status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	var deposit *models.DepositRequest
	err := e.run(ctx, kindDepositReject, func() error {
		var err error
		deposit, err = e.store.DeclineDeposit(ctx, store.DeclineDepositParams{
			DepositId:   depositId,
			Status:      status,
			ProcessedBy: actor.UserId,
			Notes:       reason,
			Audit: store.Audit{
				Action:    "Deposit Rejected",
				Details:   fmt.Sprintf("Deposit %s marked %s by admin %s: %s", depositId, status, actor.Email, reason),
				IpAddress: actor.IpAddress,
			},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reject deposit %s: %w", depositId, err)
	}
	return deposit, nil
}

// ApproveWithdrawal debits the gross amount from the owner, re-checking the
// balance at approval time, and marks the withdrawal completed
func (e *Engine) ApproveWithdrawal(ctx context.Context, withdrawalId string, actor *models.Actor, txHash string) (*models.WithdrawalRequest, error) {
	if actor == nil {
		return nil, ErrActorRequired
	}

	var withdrawal *models.WithdrawalRequest
	err := e.run(ctx, kindWithdrawalApprove, func() error {
		var err error
		withdrawal, err = e.store.CompleteWithdrawal(ctx, store.CompleteWithdrawalParams{
			WithdrawalId: withdrawalId,
			ApprovedBy:   actor.UserId,
			TxHash:       strings.TrimSpace(txHash),
			Audit: store.Audit{
				Action:    "Withdrawal Approved",
				Details:   fmt.Sprintf("Withdrawal %s approved by admin %s", withdrawalId, actor.Email),
				IpAddress: actor.IpAddress,
			},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("approve withdrawal %s: %w", withdrawalId, err)
	}

	if e.journal != nil {
		e.mirror(kindWithdrawalApprove, withdrawalId, e.journal.RecordWithdrawal(ctx, withdrawal))
	}
	return withdrawal, nil
}

// RejectWithdrawal marks a pending withdrawal rejected. The balance is untouched.
func (e *Engine) RejectWithdrawal(ctx context.Context, withdrawalId string, actor *models.Actor, reason string) (*models.WithdrawalRequest, error) {
	if actor == nil {
		return nil, ErrActorRequired
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	var withdrawal *models.WithdrawalRequest
	err := e.run(ctx, kindWithdrawalReject, func() error {
		var err error
		withdrawal, err = e.store.RejectWithdrawal(ctx, store.RejectWithdrawalParams{
			WithdrawalId: withdrawalId,
			ApprovedBy:   actor.UserId,
			Reason:       reason,
			Audit: store.Audit{
				Action:    "Withdrawal Rejected",
				Details:   fmt.Sprintf("Withdrawal %s rejected by admin %s: %s", withdrawalId, actor.Email, reason),
				IpAddress: actor.IpAddress,
			},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reject withdrawal %s: %w", withdrawalId, err)
	}
	return withdrawal, nil
}

// SetUserBalances replaces the user's whole balance map. Assets missing from
// balances, or set to zero, end at zero; every change is an adjustment entry.
func (e *Engine) SetUserBalances(ctx context.Context, userId string, actor *models.Actor, balances map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	if actor == nil {
		return nil, ErrActorRequired
	}

	normalized := make(map[string]decimal.Decimal, len(balances))
	for asset, amount := range balances {
		asset = strings.ToUpper(strings.TrimSpace(asset))
		if asset == "" {
			return nil, fmt.Errorf("set balances for %s: %w: empty asset symbol", userId, store.ErrInvalidAmount)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("set balances for %s: %w: %s is negative", userId, store.ErrInvalidAmount, asset)
		}
		normalized[asset] = amount
	}

	var entries []models.LedgerEntry
	err := e.run(ctx, kindBalanceSet, func() error {
		var err error
		entries, err = e.store.ReplaceBalances(ctx, store.ReplaceBalancesParams{
			UserId:    userId,
			Balances:  normalized,
			Reference: "adjustment:" + uuid.New().String(),
			Audit: store.Audit{
				Action:    "Balance Updated by Admin",
				Details:   fmt.Sprintf("Admin %s updated user balances", actor.Email),
				IpAddress: actor.IpAddress,
			},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set balances for %s: %w", userId, err)
	}

	if e.journal != nil && len(entries) > 0 {
		e.mirror(kindBalanceSet, userId, e.journal.RecordAdjustments(ctx, userId, entries))
	}

	result := make(map[string]decimal.Decimal, len(normalized))
	for asset, amount := range normalized {
		if amount.IsPositive() {
			result[asset] = amount
		}
	}
	return result, nil
}

// run executes fn, retrying on concurrent modification, and records metrics
func (e *Engine) run(ctx context.Context, kind string, fn func() error) error {
	start := time.Now()
	var err error
retry:
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, store.ErrConcurrentModification) || attempt == e.maxAttempts {
			break
		}

		zap.L().Warn("Concurrent modification, retrying settlement",
			zap.String("kind", kind),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(e.backoff * time.Duration(attempt)):
		}
	}

	settlementsTotal.WithLabelValues(kind, outcome(err)).Inc()
	settlementDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return err
}

// mirror logs journal failures; the committed settlement stands regardless
func (e *Engine) mirror(kind, id string, err error) {
	if err == nil {
		return
	}
	journalFailures.WithLabelValues(kind).Inc()
	zap.L().Error("Failed to mirror settlement to journal",
		zap.String("kind", kind),
		zap.String("id", id),
		zap.Error(err))
}
