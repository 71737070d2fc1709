package formance

import (
	"context"
	"fmt"

	"cryptolab-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Numscript templates. Metadata is set inside the script via set_tx_meta()
// so the Formance transaction is self-describing.
// ---------------------------------------------------------------------------

const numscriptDepositCompleted = `vars {
  asset $asset
  number $amount
  account $user_id
  string $request_id
  string $asset_symbol
  string $amount_human
  string $processed_by
}

send [$asset $amount] (
  source = @world
  destination = @users:$user_id
)

set_tx_meta("event_type", "deposit_completed")
set_tx_meta("request_id", $request_id)
set_tx_meta("asset_symbol", $asset_symbol)
set_tx_meta("amount_human", $amount_human)
set_tx_meta("processed_by", $processed_by)
`

// The user account may overdraw in the mirror: the local ledger already
// enforced the balance and the mirror can lag behind it.
const numscriptWithdrawalCompleted = `vars {
  asset $asset
  number $fee
  number $net
  account $user_id
  string $request_id
  string $asset_symbol
  string $amount_human
  string $network
  string $destination_address
  string $tx_hash
}

send [$asset $fee] (
  source = @users:$user_id allowing unbounded overdraft
  destination = @platform:fees
)

send [$asset $net] (
  source = @users:$user_id allowing unbounded overdraft
  destination = @platform:withdrawals
)

set_tx_meta("event_type", "withdrawal_completed")
set_tx_meta("request_id", $request_id)
set_tx_meta("asset_symbol", $asset_symbol)
set_tx_meta("amount_human", $amount_human)
set_tx_meta("network", $network)
set_tx_meta("destination_address", $destination_address)
set_tx_meta("tx_hash", $tx_hash)
`

const numscriptWithdrawalCompletedNoFee = `vars {
  asset $asset
  number $net
  account $user_id
  string $request_id
  string $asset_symbol
  string $amount_human
  string $network
  string $destination_address
  string $tx_hash
}

send [$asset $net] (
  source = @users:$user_id allowing unbounded overdraft
  destination = @platform:withdrawals
)

set_tx_meta("event_type", "withdrawal_completed")
set_tx_meta("request_id", $request_id)
set_tx_meta("asset_symbol", $asset_symbol)
set_tx_meta("amount_human", $amount_human)
set_tx_meta("network", $network)
set_tx_meta("destination_address", $destination_address)
set_tx_meta("tx_hash", $tx_hash)
`

const numscriptAdjustment = `vars {
  asset $asset
  number $amount
  account $source
  account $destination
  string $entry_id
  string $user_id
  string $asset_symbol
  string $amount_human
  string $ledger_reference
}

send [$asset $amount] (
  source = $source allowing unbounded overdraft
  destination = $destination
)

set_tx_meta("event_type", "balance_adjustment")
set_tx_meta("entry_id", $entry_id)
set_tx_meta("user_id", $user_id)
set_tx_meta("asset_symbol", $asset_symbol)
set_tx_meta("amount_human", $amount_human)
set_tx_meta("ledger_reference", $ledger_reference)
`

// RecordDeposit mirrors a completed deposit as @world -> @users:<id>.
func (s *Service) RecordDeposit(ctx context.Context, deposit *models.DepositRequest) error {
	postTx := depositTransaction(deposit)
	if err := s.post(ctx, postTx); err != nil {
		return fmt.Errorf("error mirroring deposit %s: %w", deposit.Id, err)
	}

	zap.L().Info("Deposit mirrored to Formance",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", deposit.UserId),
		zap.String("asset", deposit.Asset),
		zap.String("amount", deposit.Amount.String()))
	return nil
}

// RecordWithdrawal mirrors a completed withdrawal: the fee goes to
// @platform:fees and the net amount to @platform:withdrawals.
func (s *Service) RecordWithdrawal(ctx context.Context, withdrawal *models.WithdrawalRequest) error {
	postTx := withdrawalTransaction(withdrawal)
	if err := s.post(ctx, postTx); err != nil {
		return fmt.Errorf("error mirroring withdrawal %s: %w", withdrawal.Id, err)
	}

	zap.L().Info("Withdrawal mirrored to Formance",
		zap.String("withdrawal_id", withdrawal.Id),
		zap.String("user_id", withdrawal.UserId),
		zap.String("asset", withdrawal.Asset),
		zap.String("amount", withdrawal.Amount.String()),
		zap.String("fee", withdrawal.Fee.String()))
	return nil
}

// RecordAdjustments mirrors admin balance overwrites, one transaction per
// ledger entry.
func (s *Service) RecordAdjustments(ctx context.Context, userId string, entries []models.LedgerEntry) error {
	for _, entry := range entries {
		postTx, ok := adjustmentTransaction(userId, entry)
		if !ok {
			continue
		}
		if err := s.post(ctx, postTx); err != nil {
			return fmt.Errorf("error mirroring adjustment %s: %w", entry.Id, err)
		}
	}

	zap.L().Info("Balance adjustments mirrored to Formance",
		zap.String("user_id", userId),
		zap.Int("entries", len(entries)))
	return nil
}

// post creates the transaction; a conflict means the reference was already
// mirrored and counts as success.
func (s *Service) post(ctx context.Context, postTx shared.V2PostTransaction) error {
	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Info("Transaction already mirrored", zap.String("reference", *postTx.Reference))
			return nil
		}
		return err
	}
	return nil
}

func depositTransaction(deposit *models.DepositRequest) shared.V2PostTransaction {
	return shared.V2PostTransaction{
		Reference: strPtr("deposit-" + deposit.Id),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptDepositCompleted,
			Vars: map[string]string{
				"asset":        formanceAsset(deposit.Asset),
				"amount":       smallestUnit(deposit.Amount, deposit.Asset),
				"user_id":      deposit.UserId,
				"request_id":   deposit.Id,
				"asset_symbol": deposit.Asset,
				"amount_human": deposit.Amount.String(),
				"processed_by": deposit.ProcessedBy,
			},
		},
	}
}

func withdrawalTransaction(withdrawal *models.WithdrawalRequest) shared.V2PostTransaction {
	vars := map[string]string{
		"asset":               formanceAsset(withdrawal.Asset),
		"net":                 smallestUnit(withdrawal.Total, withdrawal.Asset),
		"user_id":             withdrawal.UserId,
		"request_id":          withdrawal.Id,
		"asset_symbol":        withdrawal.Asset,
		"amount_human":        withdrawal.Amount.String(),
		"network":             withdrawal.Network,
		"destination_address": withdrawal.WalletAddress,
		"tx_hash":             withdrawal.TxHash,
	}

	script := numscriptWithdrawalCompletedNoFee
	if withdrawal.Fee.IsPositive() {
		script = numscriptWithdrawalCompleted
		vars["fee"] = smallestUnit(withdrawal.Fee, withdrawal.Asset)
	}

	return shared.V2PostTransaction{
		Reference: strPtr("withdrawal-" + withdrawal.Id),
		Script: &shared.V2PostTransactionScript{
			Plain: script,
			Vars:  vars,
		},
	}
}

// adjustmentTransaction moves |amount| between @world and the user account;
// ok is false for a zero entry.
func adjustmentTransaction(userId string, entry models.LedgerEntry) (shared.V2PostTransaction, bool) {
	if entry.Amount.IsZero() {
		return shared.V2PostTransaction{}, false
	}

	source, destination := "world", "users:"+userId
	if entry.Amount.IsNegative() {
		source, destination = destination, source
	}

	return shared.V2PostTransaction{
		Reference: strPtr("adjustment-" + entry.Id),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptAdjustment,
			Vars: map[string]string{
				"asset":            formanceAsset(entry.Asset),
				"amount":           smallestUnit(entry.Amount.Abs(), entry.Asset),
				"source":           source,
				"destination":      destination,
				"entry_id":         entry.Id,
				"user_id":          userId,
				"asset_symbol":     entry.Asset,
				"amount_human":     entry.Amount.String(),
				"ledger_reference": entry.Reference,
			},
		},
	}, true
}

// smallestUnit converts a human amount to integer units at the asset's
// precision. Digits beyond that precision are truncated.
func smallestUnit(amount decimal.Decimal, symbol string) string {
	return amount.Shift(int32(precisionFor(symbol))).BigInt().String()
}
