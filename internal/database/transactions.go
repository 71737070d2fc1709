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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// movement is one signed change to a (user, asset) balance
type movement struct {
	UserId    string
	Asset     string
	Delta     decimal.Decimal
	EntryType models.EntryType
	Reference string
}

// applyMovement updates the balance and records the ledger entry inside tx.
// The balance row is guarded by its version so a concurrent writer that
// slipped in between read and write surfaces as ErrConcurrentModification.
func (s *SubledgerService) applyMovement(ctx context.Context, tx *sql.Tx, m movement) (*models.LedgerEntry, error) {
	zap.L().Debug("Applying balance movement",
		zap.String("user_id", m.UserId),
		zap.String("asset", m.Asset),
		zap.String("type", string(m.EntryType)),
		zap.String("delta", m.Delta.String()),
		zap.String("reference", m.Reference))

	var currentBalanceStr string
	var accountId string
	var version int64

	now := time.Now().UTC()
	err := tx.QueryRowContext(ctx, queryGetAccountBalance, m.UserId, m.Asset).Scan(&accountId, &currentBalanceStr, &version)

	var currentBalance decimal.Decimal
	if errors.Is(err, sql.ErrNoRows) {
		// Create new account balance record
		accountId = uuid.New().String()
		currentBalance = decimal.Zero
		version = 1

		_, err = tx.ExecContext(ctx, queryInsertAccountBalance, accountId, m.UserId, m.Asset, "0", version, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create account balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	} else {
		currentBalance, err = decimal.NewFromString(currentBalanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
		}
	}

	newBalance := currentBalance.Add(m.Delta)
	if newBalance.IsNegative() {
		return nil, fmt.Errorf("%w: %s balance %s cannot cover %s", store.ErrInsufficientFunds,
			m.Asset, currentBalance.String(), m.Delta.Neg().String())
	}

	entry := &models.LedgerEntry{
		Id:            uuid.New().String(),
		UserId:        m.UserId,
		Asset:         m.Asset,
		EntryType:     m.EntryType,
		Amount:        m.Delta,
		BalanceBefore: currentBalance,
		BalanceAfter:  newBalance,
		Reference:     m.Reference,
		CreatedAt:     now,
	}

	_, err = tx.ExecContext(ctx, queryInsertLedgerEntry,
		entry.Id, entry.UserId, entry.Asset, string(entry.EntryType),
		entry.Amount.String(), entry.BalanceBefore.String(), entry.BalanceAfter.String(),
		entry.Reference, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	// Update account balance (with optimistic locking)
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, newBalance.String(), entry.Id, now, m.UserId, m.Asset, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	return entry, nil
}

// processMovement runs a single movement in its own transaction
func (s *SubledgerService) processMovement(ctx context.Context, m movement) (*models.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	entry, err := s.applyMovement(ctx, tx, m)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Balance movement processed",
		zap.String("entry_id", entry.Id),
		zap.String("user_id", m.UserId),
		zap.String("asset", m.Asset),
		zap.String("old_balance", entry.BalanceBefore.String()),
		zap.String("new_balance", entry.BalanceAfter.String()))
	return entry, nil
}

// Credit adds a positive amount to the user's balance
func (s *SubledgerService) Credit(ctx context.Context, params store.MovementParams) (*models.LedgerEntry, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", store.ErrInvalidAmount, params.Amount.String())
	}
	return s.processMovement(ctx, movement{
		UserId:    params.UserId,
		Asset:     params.Asset,
		Delta:     params.Amount,
		EntryType: models.EntryCredit,
		Reference: params.Reference,
	})
}

// Debit removes a positive amount, failing with ErrInsufficientFunds rather
// than letting the balance go negative
func (s *SubledgerService) Debit(ctx context.Context, params store.MovementParams) (*models.LedgerEntry, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", store.ErrInvalidAmount, params.Amount.String())
	}
	return s.processMovement(ctx, movement{
		UserId:    params.UserId,
		Asset:     params.Asset,
		Delta:     params.Amount.Neg(),
		EntryType: models.EntryDebit,
		Reference: params.Reference,
	})
}

// GetLedgerEntries returns paginated ledger history for a user and asset
func (s *SubledgerService) GetLedgerEntries(ctx context.Context, userId, asset string, limit, offset int) ([]models.LedgerEntry, error) {
	zap.L().Debug("Getting ledger entries",
		zap.String("user_id", userId),
		zap.String("asset", asset),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetLedgerEntries, userId, asset, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer closeRows(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var entryType, amountStr, balanceBeforeStr, balanceAfterStr string
		err := rows.Scan(&entry.Id, &entry.UserId, &entry.Asset, &entryType,
			&amountStr, &balanceBeforeStr, &balanceAfterStr,
			&entry.Reference, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.EntryType = models.EntryType(entryType)

		if entry.Amount, err = parseDecimal("amount", amountStr); err != nil {
			return nil, err
		}
		if entry.BalanceBefore, err = parseDecimal("balance_before", balanceBeforeStr); err != nil {
			return nil, err
		}
		if entry.BalanceAfter, err = parseDecimal("balance_after", balanceAfterStr); err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during ledger entry row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating ledger entry rows: %w", err)
	}

	return entries, nil
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		zap.L().Warn("Failed to roll back transaction", zap.Error(err))
	}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s '%s': %w", field, value, err)
	}
	return d, nil
}
