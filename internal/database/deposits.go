package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanDeposit(row rowScanner) (*models.DepositRequest, error) {
	var d models.DepositRequest
	var amountStr, priceStr, totalStr, status, method string
	var processedAt sql.NullTime
	var owner models.UserSummary
	err := row.Scan(&d.Id, &d.UserId, &d.Asset, &amountStr, &priceStr, &totalStr, &status, &method,
		&d.Gateway, &d.WalletAddress, &d.TxHash, &d.Notes, &d.ProcessedBy, &processedAt,
		&d.CreatedAt, &d.UpdatedAt, &owner.FirstName, &owner.LastName, &owner.Email)
	if err != nil {
		return nil, err
	}

	d.Status = models.DepositStatus(status)
	d.PaymentMethod = models.PaymentMethod(method)
	if processedAt.Valid {
		t := processedAt.Time
		d.ProcessedAt = &t
	}
	owner.Id = d.UserId
	d.User = &owner

	if d.Amount, err = parseDecimal("amount", amountStr); err != nil {
		return nil, err
	}
	if d.Price, err = parseDecimal("price", priceStr); err != nil {
		return nil, err
	}
	if d.Total, err = parseDecimal("total", totalStr); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDeposit records a pending deposit request. It has no ledger effect.
func (s *Service) CreateDeposit(ctx context.Context, params store.CreateDepositParams) (*models.DepositRequest, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", store.ErrInvalidAmount, params.Amount.String())
	}
	if !params.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive, got %s", store.ErrInvalidAmount, params.Price.String())
	}
	method := params.PaymentMethod
	if method == "" {
		method = models.PaymentWallet
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	id := uuid.New().String()
	now := time.Now().UTC()
	total := params.Amount.Mul(params.Price)
	_, err = tx.ExecContext(ctx, queryInsertDeposit,
		id, params.UserId, params.Asset, params.Amount.String(), params.Price.String(), total.String(),
		string(models.DepositPending), string(method), params.Gateway, params.WalletAddress, params.TxHash,
		now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert deposit request: %w", err)
	}

	if err := insertActivity(ctx, tx, params.UserId, params.Audit); err != nil {
		return nil, err
	}

	deposit, err := getDeposit(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Deposit request created",
		zap.String("deposit_id", id),
		zap.String("user_id", params.UserId),
		zap.String("asset", params.Asset),
		zap.String("amount", params.Amount.String()),
		zap.String("total", total.String()))
	return deposit, nil
}

func (s *Service) GetDeposit(ctx context.Context, depositId string) (*models.DepositRequest, error) {
	return getDeposit(ctx, s.db, depositId)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDeposit(ctx context.Context, db queryRower, depositId string) (*models.DepositRequest, error) {
	deposit, err := scanDeposit(db.QueryRowContext(ctx, queryGetDeposit, depositId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: deposit %s", store.ErrNotFound, depositId)
		}
		return nil, fmt.Errorf("unable to query deposit: %w", err)
	}
	return deposit, nil
}

// ListDeposits returns deposit requests, most recent first
func (s *Service) ListDeposits(ctx context.Context, filter store.RequestFilter) ([]models.DepositRequest, error) {
	query, args := filteredQuery(querySelectDeposits, "d", filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query deposits: %w", err)
	}
	defer closeRows(rows)

	var deposits []models.DepositRequest
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan deposit row: %w", err)
		}
		deposits = append(deposits, *deposit)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during deposit row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}
	return deposits, nil
}

// CompleteDeposit credits the ledger by the deposit amount and marks the
// request completed, both in one transaction
func (s *Service) CompleteDeposit(ctx context.Context, params store.CompleteDepositParams) (*models.DepositRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	deposit, err := getDeposit(ctx, tx, params.DepositId)
	if err != nil {
		return nil, err
	}
	if !deposit.Status.CanTransitionTo(models.DepositCompleted) {
		return nil, fmt.Errorf("%w: deposit %s is %s", store.ErrInvalidStateTransition, deposit.Id, deposit.Status)
	}

	if _, err := s.subledger.applyMovement(ctx, tx, movement{
		UserId:    deposit.UserId,
		Asset:     deposit.Asset,
		Delta:     deposit.Amount,
		EntryType: models.EntryCredit,
		Reference: "deposit:" + deposit.Id,
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := transition(ctx, tx, queryCompleteDeposit, deposit.Id,
		string(models.DepositCompleted), params.ProcessedBy, now, params.TxHash, now,
		deposit.Id, string(models.DepositPending)); err != nil {
		return nil, err
	}

	if err := insertActivity(ctx, tx, deposit.UserId, params.Audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	deposit.Status = models.DepositCompleted
	deposit.ProcessedBy = params.ProcessedBy
	deposit.ProcessedAt = &now
	deposit.UpdatedAt = now
	if params.TxHash != "" {
		deposit.TxHash = params.TxHash
	}

	zap.L().Info("Deposit completed",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", deposit.UserId),
		zap.String("asset", deposit.Asset),
		zap.String("amount", deposit.Amount.String()),
		zap.String("processed_by", params.ProcessedBy))
	return deposit, nil
}

// DeclineDeposit moves a pending deposit to failed or cancelled without
// touching the ledger
func (s *Service) DeclineDeposit(ctx context.Context, params store.DeclineDepositParams) (*models.DepositRequest, error) {
	if params.Status != models.DepositFailed && params.Status != models.DepositCancelled {
		return nil, fmt.Errorf("%w: deposit cannot be declined as %q", store.ErrInvalidStateTransition, params.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	deposit, err := getDeposit(ctx, tx, params.DepositId)
	if err != nil {
		return nil, err
	}
	if !deposit.Status.CanTransitionTo(params.Status) {
		return nil, fmt.Errorf("%w: deposit %s is %s", store.ErrInvalidStateTransition, deposit.Id, deposit.Status)
	}

	now := time.Now().UTC()
	if err := transition(ctx, tx, queryDeclineDeposit, deposit.Id,
		string(params.Status), params.ProcessedBy, now, params.Notes, now,
		deposit.Id, string(models.DepositPending)); err != nil {
		return nil, err
	}

	if err := insertActivity(ctx, tx, deposit.UserId, params.Audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	deposit.Status = params.Status
	deposit.ProcessedBy = params.ProcessedBy
	deposit.ProcessedAt = &now
	deposit.Notes = params.Notes
	deposit.UpdatedAt = now

	zap.L().Info("Deposit declined",
		zap.String("deposit_id", deposit.Id),
		zap.String("status", string(params.Status)),
		zap.String("processed_by", params.ProcessedBy))
	return deposit, nil
}

// transition runs a status update guarded by "AND status = ?"; zero rows
// means the request left pending under us
func transition(ctx context.Context, tx *sql.Tx, query, id string, args ...any) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: request %s is no longer pending", store.ErrInvalidStateTransition, id)
	}
	return nil
}

// filteredQuery appends the optional user/status filters, ordering and limit
func filteredQuery(base, alias string, filter store.RequestFilter) (string, []any) {
	var where []string
	var args []any
	if filter.UserId != "" {
		where = append(where, alias+".user_id = ?")
		args = append(args, filter.UserId)
	}
	if filter.Status != "" {
		where = append(where, alias+".status = ?")
		args = append(args, filter.Status)
	}

	var b strings.Builder
	b.WriteString(base)
	if len(where) > 0 {
		b.WriteString("\n\t\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, "\n\t\tORDER BY %s.created_at DESC, %s.rowid DESC\n\t\tLIMIT ?", alias, alias)
	args = append(args, sqlLimit(filter.Limit))
	return b.String(), args
}
