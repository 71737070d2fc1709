package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance returns current balance for user/asset (O(1) lookup)
func (s *SubledgerService) GetBalance(ctx context.Context, userId, asset string) (decimal.Decimal, error) {
	zap.L().Debug("Getting balance", zap.String("user_id", userId), zap.String("asset", asset))

	var balanceStr string
	err := s.db.QueryRowContext(ctx, queryGetBalance, userId, asset).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return decimal.Zero, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("user_id", userId), zap.String("asset", asset), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := parseDecimal("balance", balanceStr)
	if err != nil {
		zap.L().Error("Failed to parse balance", zap.String("balance_str", balanceStr), zap.Error(err))
		return decimal.Zero, err
	}

	zap.L().Debug("Retrieved balance", zap.String("user_id", userId), zap.String("asset", asset), zap.String("balance", balance.String()))
	return balance, nil
}

// GetAllBalances returns all non-zero balances for a user
func (s *SubledgerService) GetAllBalances(ctx context.Context, userId string) ([]models.AccountBalance, error) {
	zap.L().Debug("Getting all balances", zap.String("user_id", userId))

	rows, err := s.db.QueryContext(ctx, queryGetAllUserBalances, userId)
	if err != nil {
		zap.L().Error("Failed to get all balances", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to get all balances: %w", err)
	}
	defer closeRows(rows)

	var balances []models.AccountBalance
	for rows.Next() {
		var balance models.AccountBalance
		var balanceStr string
		err := rows.Scan(&balance.Id, &balance.UserId, &balance.Asset, &balanceStr,
			&balance.LastEntryId, &balance.Version, &balance.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}

		balance.Balance, err = parseDecimal("balance", balanceStr)
		if err != nil {
			return nil, err
		}

		// Zero rows are kept for their version history but never reported
		if balance.Balance.IsZero() {
			continue
		}
		balances = append(balances, balance)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	zap.L().Debug("Retrieved all balances", zap.String("user_id", userId), zap.Int("count", len(balances)))
	return balances, nil
}

// ReconcileBalance verifies that current balance matches sum of all ledger entries
func (s *SubledgerService) ReconcileBalance(ctx context.Context, userId, asset string) error {
	zap.L().Info("Reconciling balance", zap.String("user_id", userId), zap.String("asset", asset))

	// Get current balance from account_balances table
	currentBalance, err := s.GetBalance(ctx, userId, asset)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	// Sum in decimal; SQL SUM over text would go through REAL
	rows, err := s.db.QueryContext(ctx, queryReconcileBalance, userId, asset)
	if err != nil {
		return fmt.Errorf("failed to calculate balance from ledger entries: %w", err)
	}
	defer closeRows(rows)

	calculatedBalance := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return fmt.Errorf("failed to scan ledger amount: %w", err)
		}
		amount, err := parseDecimal("amount", amountStr)
		if err != nil {
			return err
		}
		calculatedBalance = calculatedBalance.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating ledger rows: %w", err)
	}

	// Check if balances match (exact decimal comparison)
	if !currentBalance.Equal(calculatedBalance) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("user_id", userId),
			zap.String("asset", asset),
			zap.String("current_balance", currentBalance.String()),
			zap.String("calculated_balance", calculatedBalance.String()),
			zap.String("difference", currentBalance.Sub(calculatedBalance).String()))
		return fmt.Errorf("balance mismatch: current=%s, calculated=%s", currentBalance.String(), calculatedBalance.String())
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("user_id", userId),
		zap.String("asset", asset),
		zap.String("balance", currentBalance.String()))
	return nil
}

// Subledger convenience methods

func (s *Service) GetUserBalance(ctx context.Context, userId, asset string) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, userId, asset)
}

func (s *Service) GetAllUserBalances(ctx context.Context, userId string) ([]models.AccountBalance, error) {
	return s.subledger.GetAllBalances(ctx, userId)
}

func (s *Service) Credit(ctx context.Context, params store.MovementParams) (*models.LedgerEntry, error) {
	return s.subledger.Credit(ctx, params)
}

func (s *Service) Debit(ctx context.Context, params store.MovementParams) (*models.LedgerEntry, error) {
	return s.subledger.Debit(ctx, params)
}

func (s *Service) GetLedgerEntries(ctx context.Context, userId, asset string, limit, offset int) ([]models.LedgerEntry, error) {
	return s.subledger.GetLedgerEntries(ctx, userId, asset, limit, offset)
}

func (s *Service) ReconcileUserBalance(ctx context.Context, userId, asset string) error {
	return s.subledger.ReconcileBalance(ctx, userId, asset)
}

// ReplaceBalances overwrites the user's whole balance map: every asset not
// named with a positive amount ends at zero. Each difference is written as
// an adjustment entry so reconciliation still holds.
func (s *Service) ReplaceBalances(ctx context.Context, params store.ReplaceBalancesParams) ([]models.LedgerEntry, error) {
	for asset, amount := range params.Balances {
		if amount.IsNegative() {
			return nil, fmt.Errorf("%w: %s balance cannot be negative (%s)", store.ErrInvalidAmount, asset, amount.String())
		}
	}

	if _, err := s.GetUserById(ctx, params.UserId); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	current, err := balancesInTx(ctx, tx, params.UserId)
	if err != nil {
		return nil, err
	}

	assets := make(map[string]struct{}, len(current)+len(params.Balances))
	for asset := range current {
		assets[asset] = struct{}{}
	}
	for asset := range params.Balances {
		assets[asset] = struct{}{}
	}
	ordered := make([]string, 0, len(assets))
	for asset := range assets {
		ordered = append(ordered, asset)
	}
	sort.Strings(ordered)

	var entries []models.LedgerEntry
	for _, asset := range ordered {
		target := params.Balances[asset]
		if !target.IsPositive() {
			target = decimal.Zero
		}
		delta := target.Sub(current[asset])
		if delta.IsZero() {
			continue
		}
		entry, err := s.subledger.applyMovement(ctx, tx, movement{
			UserId:    params.UserId,
			Asset:     asset,
			Delta:     delta,
			EntryType: models.EntryAdjustment,
			Reference: params.Reference,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	if err := insertActivity(ctx, tx, params.UserId, params.Audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("User balances replaced",
		zap.String("user_id", params.UserId),
		zap.Int("adjustments", len(entries)))
	return entries, nil
}

func balancesInTx(ctx context.Context, tx *sql.Tx, userId string) (map[string]decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, queryGetAllUserBalances, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get all balances: %w", err)
	}
	defer closeRows(rows)

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var balance models.AccountBalance
		var balanceStr string
		if err := rows.Scan(&balance.Id, &balance.UserId, &balance.Asset, &balanceStr,
			&balance.LastEntryId, &balance.Version, &balance.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		amount, err := parseDecimal("balance", balanceStr)
		if err != nil {
			return nil, err
		}
		balances[balance.Asset] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}
	return balances, nil
}
