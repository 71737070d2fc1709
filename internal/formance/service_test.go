package formance

import (
	"errors"
	"math/big"
	"testing"

	"cryptolab-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"USDC", "USDC/6"},
		{"BTC", "BTC/8"},
		{"ETH", "ETH/18"},
		{"SOL", "SOL/9"},
		{"UNKNOWN", "UNKNOWN/6"}, // default precision
	}
	for _, tt := range tests {
		if got := formanceAsset(tt.symbol); got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestAssetSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"USDC/6", "USDC"},
		{"BTC/8", "BTC"},
		{"ETH/18", "ETH"},
		{"PLAIN", "PLAIN"},
	}
	for _, tt := range tests {
		if got := assetSymbol(tt.input); got != tt.want {
			t.Errorf("assetSymbol(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPrecisionFor(t *testing.T) {
	if precisionFor("USDT") != 6 {
		t.Error("expected USDT precision 6")
	}
	if precisionFor("DOGE") != 8 {
		t.Error("expected DOGE precision 8")
	}
	if precisionFor("XYZ") != 6 {
		t.Error("expected unknown precision default 6")
	}
}

func TestBigIntToDecimal(t *testing.T) {
	// 1_000_000 smallest units of USDC (precision 6) = 1.0
	result := bigIntToDecimal(big.NewInt(1_000_000), "USDC")
	if !result.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", result.String())
	}

	// 150_000_000 smallest units of BTC (precision 8) = 1.5
	result = bigIntToDecimal(big.NewInt(150_000_000), "BTC")
	if !result.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected 1.5, got %s", result.String())
	}

	result = bigIntToDecimal(nil, "USDC")
	if !result.IsZero() {
		t.Errorf("expected 0, got %s", result.String())
	}
}

func TestSmallestUnit(t *testing.T) {
	tests := []struct {
		amount string
		symbol string
		want   string
	}{
		{"1.5", "ETH", "1500000000000000000"},
		{"0.0005", "BTC", "50000"},
		{"49", "USDT", "49000000"},
		{"0.0000001", "USDT", "0"}, // below precision
	}
	for _, tt := range tests {
		if got := smallestUnit(decimal.RequireFromString(tt.amount), tt.symbol); got != tt.want {
			t.Errorf("smallestUnit(%s, %s) = %s, want %s", tt.amount, tt.symbol, got, tt.want)
		}
	}
}

func TestVolumeBalance(t *testing.T) {
	vols := map[string]shared.V2Volume{
		"ETH/18": {Input: big.NewInt(10), Output: big.NewInt(4)},
		"BTC/8":  {Input: big.NewInt(10), Output: big.NewInt(4), Balance: big.NewInt(7)},
	}
	if got := volumeBalance(vols, "ETH/18"); got == nil || got.Int64() != 6 {
		t.Errorf("expected derived balance 6, got %v", got)
	}
	if got := volumeBalance(vols, "BTC/8"); got == nil || got.Int64() != 7 {
		t.Errorf("expected explicit balance 7, got %v", got)
	}
	if got := volumeBalance(vols, "SOL/9"); got != nil {
		t.Errorf("expected nil for missing asset, got %v", got)
	}
}

func TestIsConflictError(t *testing.T) {
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
	if isConflictError(errors.New("CONFLICT")) {
		t.Error("plain error should not be a conflict error")
	}
}

func TestDepositTransaction(t *testing.T) {
	tx := depositTransaction(&models.DepositRequest{
		Id: "dep-1", UserId: "user-1", Asset: "ETH", Amount: decimal.RequireFromString("1.5"), ProcessedBy: "admin-1",
	})
	if tx.Reference == nil || *tx.Reference != "deposit-dep-1" {
		t.Fatalf("unexpected reference %v", tx.Reference)
	}
	vars := tx.Script.Vars
	if vars["asset"] != "ETH/18" || vars["amount"] != "1500000000000000000" || vars["user_id"] != "user-1" {
		t.Errorf("unexpected deposit vars: %v", vars)
	}
}

func TestWithdrawalTransaction(t *testing.T) {
	withdrawal := &models.WithdrawalRequest{
		Id: "wd-1", UserId: "user-1", Asset: "USDT",
		Amount: decimal.NewFromInt(50), Fee: decimal.NewFromInt(1), Total: decimal.NewFromInt(49),
		Network: "TRC20", WalletAddress: "Tdest", TxHash: "0xabc",
	}
	tx := withdrawalTransaction(withdrawal)
	if *tx.Reference != "withdrawal-wd-1" {
		t.Errorf("unexpected reference %s", *tx.Reference)
	}
	if tx.Script.Plain != numscriptWithdrawalCompleted {
		t.Error("expected the fee-splitting script")
	}
	if tx.Script.Vars["fee"] != "1000000" || tx.Script.Vars["net"] != "49000000" {
		t.Errorf("unexpected split: fee=%s net=%s", tx.Script.Vars["fee"], tx.Script.Vars["net"])
	}

	withdrawal.Fee = decimal.Zero
	withdrawal.Total = withdrawal.Amount
	tx = withdrawalTransaction(withdrawal)
	if tx.Script.Plain != numscriptWithdrawalCompletedNoFee {
		t.Error("expected the single-send script for a zero fee")
	}
	if _, ok := tx.Script.Vars["fee"]; ok {
		t.Error("zero-fee script should not carry a fee var")
	}
}

func TestAdjustmentTransaction(t *testing.T) {
	credit, ok := adjustmentTransaction("user-1", models.LedgerEntry{Id: "e1", Asset: "BTC", Amount: decimal.NewFromInt(2)})
	if !ok {
		t.Fatal("expected a transaction for a positive entry")
	}
	if credit.Script.Vars["source"] != "world" || credit.Script.Vars["destination"] != "users:user-1" {
		t.Errorf("unexpected credit direction: %v", credit.Script.Vars)
	}

	debit, ok := adjustmentTransaction("user-1", models.LedgerEntry{Id: "e2", Asset: "BTC", Amount: decimal.RequireFromString("-0.5")})
	if !ok {
		t.Fatal("expected a transaction for a negative entry")
	}
	if debit.Script.Vars["source"] != "users:user-1" || debit.Script.Vars["destination"] != "world" {
		t.Errorf("unexpected debit direction: %v", debit.Script.Vars)
	}
	if debit.Script.Vars["amount"] != "50000000" || *debit.Reference != "adjustment-e2" {
		t.Errorf("unexpected debit amount or reference: %v %s", debit.Script.Vars["amount"], *debit.Reference)
	}

	if _, ok := adjustmentTransaction("user-1", models.LedgerEntry{Id: "e3", Asset: "BTC"}); ok {
		t.Error("expected zero entry to be skipped")
	}
}
