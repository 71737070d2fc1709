package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanWithdrawal(row rowScanner) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	var amountStr, feeStr, totalStr, status string
	var approvedAt sql.NullTime
	var owner models.UserSummary
	err := row.Scan(&w.Id, &w.UserId, &w.Asset, &amountStr, &feeStr, &totalStr, &w.Network, &w.WalletAddress,
		&status, &w.TxHash, &w.RejectionReason, &w.ApprovedBy, &approvedAt, &w.CreatedAt, &w.UpdatedAt,
		&owner.FirstName, &owner.LastName, &owner.Email)
	if err != nil {
		return nil, err
	}

	w.Status = models.WithdrawalStatus(status)
	if approvedAt.Valid {
		t := approvedAt.Time
		w.ApprovedAt = &t
	}
	owner.Id = w.UserId
	w.User = &owner

	if w.Amount, err = parseDecimal("amount", amountStr); err != nil {
		return nil, err
	}
	if w.Fee, err = parseDecimal("fee", feeStr); err != nil {
		return nil, err
	}
	if w.Total, err = parseDecimal("total", totalStr); err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWithdrawal records a pending withdrawal after checking the balance
// covers the gross amount. Funds are not held; approval checks again.
func (s *Service) CreateWithdrawal(ctx context.Context, params store.CreateWithdrawalParams) (*models.WithdrawalRequest, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", store.ErrInvalidAmount, params.Amount.String())
	}
	if params.Fee.IsNegative() || params.Fee.GreaterThanOrEqual(params.Amount) {
		return nil, fmt.Errorf("%w: fee %s must be below amount %s", store.ErrInvalidAmount, params.Fee.String(), params.Amount.String())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var balanceStr string
	err = tx.QueryRowContext(ctx, queryGetBalance, params.UserId, params.Asset).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		balanceStr = "0"
	} else if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	balance, err := parseDecimal("balance", balanceStr)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(params.Amount) {
		return nil, fmt.Errorf("%w: %s balance %s is below %s", store.ErrInsufficientFunds,
			params.Asset, balance.String(), params.Amount.String())
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	total := params.Amount.Sub(params.Fee)
	_, err = tx.ExecContext(ctx, queryInsertWithdrawal,
		id, params.UserId, params.Asset, params.Amount.String(), params.Fee.String(), total.String(),
		params.Network, params.WalletAddress, string(models.WithdrawalPending), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert withdrawal request: %w", err)
	}

	if err := insertActivity(ctx, tx, params.UserId, params.Audit); err != nil {
		return nil, err
	}

	withdrawal, err := getWithdrawal(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Withdrawal request created",
		zap.String("withdrawal_id", id),
		zap.String("user_id", params.UserId),
		zap.String("asset", params.Asset),
		zap.String("amount", params.Amount.String()),
		zap.String("fee", params.Fee.String()))
	return withdrawal, nil
}

func (s *Service) GetWithdrawal(ctx context.Context, withdrawalId string) (*models.WithdrawalRequest, error) {
	return getWithdrawal(ctx, s.db, withdrawalId)
}

func getWithdrawal(ctx context.Context, db queryRower, withdrawalId string) (*models.WithdrawalRequest, error) {
	withdrawal, err := scanWithdrawal(db.QueryRowContext(ctx, queryGetWithdrawal, withdrawalId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: withdrawal %s", store.ErrNotFound, withdrawalId)
		}
		return nil, fmt.Errorf("unable to query withdrawal: %w", err)
	}
	return withdrawal, nil
}

// ListWithdrawals returns withdrawal requests, most recent first
func (s *Service) ListWithdrawals(ctx context.Context, filter store.RequestFilter) ([]models.WithdrawalRequest, error) {
	query, args := filteredQuery(querySelectWithdrawals, "w", filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query withdrawals: %w", err)
	}
	defer closeRows(rows)

	var withdrawals []models.WithdrawalRequest
	for rows.Next() {
		withdrawal, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan withdrawal row: %w", err)
		}
		withdrawals = append(withdrawals, *withdrawal)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during withdrawal row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating withdrawal rows: %w", err)
	}
	return withdrawals, nil
}

// CompleteWithdrawal debits the gross amount and marks the request
// completed in one transaction. The balance is checked again here since
// nothing was held at submission.
func (s *Service) CompleteWithdrawal(ctx context.Context, params store.CompleteWithdrawalParams) (*models.WithdrawalRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	withdrawal, err := getWithdrawal(ctx, tx, params.WithdrawalId)
	if err != nil {
		return nil, err
	}
	if !withdrawal.Status.CanTransitionTo(models.WithdrawalCompleted) {
		return nil, fmt.Errorf("%w: withdrawal %s is %s", store.ErrInvalidStateTransition, withdrawal.Id, withdrawal.Status)
	}

	if _, err := s.subledger.applyMovement(ctx, tx, movement{
		UserId:    withdrawal.UserId,
		Asset:     withdrawal.Asset,
		Delta:     withdrawal.Amount.Neg(),
		EntryType: models.EntryDebit,
		Reference: "withdrawal:" + withdrawal.Id,
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := transition(ctx, tx, queryCompleteWithdrawal, withdrawal.Id,
		string(models.WithdrawalCompleted), params.TxHash, params.ApprovedBy, now, now,
		withdrawal.Id, string(models.WithdrawalPending)); err != nil {
		return nil, err
	}

	if err := insertActivity(ctx, tx, withdrawal.UserId, params.Audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	withdrawal.Status = models.WithdrawalCompleted
	withdrawal.TxHash = params.TxHash
	withdrawal.ApprovedBy = params.ApprovedBy
	withdrawal.ApprovedAt = &now
	withdrawal.UpdatedAt = now

	zap.L().Info("Withdrawal completed",
		zap.String("withdrawal_id", withdrawal.Id),
		zap.String("user_id", withdrawal.UserId),
		zap.String("asset", withdrawal.Asset),
		zap.String("amount", withdrawal.Amount.String()),
		zap.String("approved_by", params.ApprovedBy))
	return withdrawal, nil
}

// RejectWithdrawal marks a pending withdrawal rejected with a reason; the
// ledger is untouched
func (s *Service) RejectWithdrawal(ctx context.Context, params store.RejectWithdrawalParams) (*models.WithdrawalRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	withdrawal, err := getWithdrawal(ctx, tx, params.WithdrawalId)
	if err != nil {
		return nil, err
	}
	if !withdrawal.Status.CanTransitionTo(models.WithdrawalRejected) {
		return nil, fmt.Errorf("%w: withdrawal %s is %s", store.ErrInvalidStateTransition, withdrawal.Id, withdrawal.Status)
	}

	now := time.Now().UTC()
	if err := transition(ctx, tx, queryRejectWithdrawal, withdrawal.Id,
		string(models.WithdrawalRejected), params.Reason, params.ApprovedBy, now, now,
		withdrawal.Id, string(models.WithdrawalPending)); err != nil {
		return nil, err
	}

	if err := insertActivity(ctx, tx, withdrawal.UserId, params.Audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	withdrawal.Status = models.WithdrawalRejected
	withdrawal.RejectionReason = params.Reason
	withdrawal.ApprovedBy = params.ApprovedBy
	withdrawal.ApprovedAt = &now
	withdrawal.UpdatedAt = now

	zap.L().Info("Withdrawal rejected",
		zap.String("withdrawal_id", withdrawal.Id),
		zap.String("reason", params.Reason),
		zap.String("approved_by", params.ApprovedBy))
	return withdrawal, nil
}
