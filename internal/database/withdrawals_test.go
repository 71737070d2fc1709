package database

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/shopspring/decimal"
)

func createTestWithdrawal(t *testing.T, service *Service, userId, asset, amount, fee string) *models.WithdrawalRequest {
	t.Helper()
	withdrawal, err := service.CreateWithdrawal(context.Background(), store.CreateWithdrawalParams{
		UserId:        userId,
		Asset:         asset,
		Amount:        decimal.RequireFromString(amount),
		Fee:           decimal.RequireFromString(fee),
		Network:       "ERC20",
		WalletAddress: "0xdest",
		Audit:         store.Audit{Action: "Withdrawal Request"},
	})
	if err != nil {
		t.Fatalf("CreateWithdrawal failed: %v", err)
	}
	return withdrawal
}

func TestCreateWithdrawal_InsufficientFundsCreatesNothing(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "wd-poor@example.com")
	fund(t, service, user.Id, "ETH", "0.5")

	_, err := service.CreateWithdrawal(ctx, store.CreateWithdrawalParams{
		UserId: user.Id, Asset: "ETH", Amount: decimal.NewFromInt(1), Fee: decimal.RequireFromString("0.005"),
		Network: "ERC20", WalletAddress: "0xdest",
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	withdrawals, err := service.ListWithdrawals(ctx, store.RequestFilter{UserId: user.Id})
	if err != nil {
		t.Fatalf("ListWithdrawals failed: %v", err)
	}
	if len(withdrawals) != 0 {
		t.Errorf("Expected no withdrawal to be created, got %d", len(withdrawals))
	}
}

func TestCreateWithdrawal_FeeMustBeBelowAmount(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	user := createTestUser(t, service, "wd-fee@example.com")
	fund(t, service, user.Id, "USDT", "10")

	_, err := service.CreateWithdrawal(context.Background(), store.CreateWithdrawalParams{
		UserId: user.Id, Asset: "USDT", Amount: decimal.RequireFromString("0.5"), Fee: decimal.NewFromInt(1),
		Network: "TRC20", WalletAddress: "Tdest",
	})
	if !errors.Is(err, store.ErrInvalidAmount) {
		t.Fatalf("Expected ErrInvalidAmount, got %v", err)
	}
}

func TestCompleteWithdrawal_DebitsGrossAmount(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "wd@example.com")
	fund(t, service, user.Id, "USDT", "100")
	withdrawal := createTestWithdrawal(t, service, user.Id, "USDT", "50", "1")

	if !withdrawal.Total.Equal(decimal.NewFromInt(49)) {
		t.Errorf("Expected total 49, got %s", withdrawal.Total)
	}
	assertBalance(t, service, user.Id, "USDT", "100")

	completed, err := service.CompleteWithdrawal(ctx, store.CompleteWithdrawalParams{
		WithdrawalId: withdrawal.Id, ApprovedBy: "admin", TxHash: "0xabc",
	})
	if err != nil {
		t.Fatalf("CompleteWithdrawal failed: %v", err)
	}
	if completed.TxHash != "0xabc" || completed.ApprovedAt == nil {
		t.Errorf("Unexpected completed withdrawal: %+v", completed)
	}
	assertBalance(t, service, user.Id, "USDT", "50")

	_, err = service.RejectWithdrawal(ctx, store.RejectWithdrawalParams{WithdrawalId: withdrawal.Id, Reason: "late"})
	if !errors.Is(err, store.ErrInvalidStateTransition) {
		t.Fatalf("Expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestCompleteWithdrawal_RechecksBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "wd-drained@example.com")
	fund(t, service, user.Id, "BTC", "1")
	withdrawal := createTestWithdrawal(t, service, user.Id, "BTC", "1", "0.0005")

	if _, err := service.Debit(ctx, store.MovementParams{UserId: user.Id, Asset: "BTC", Amount: decimal.RequireFromString("0.5")}); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}

	_, err := service.CompleteWithdrawal(ctx, store.CompleteWithdrawalParams{WithdrawalId: withdrawal.Id})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	stored, err := service.GetWithdrawal(ctx, withdrawal.Id)
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if stored.Status != models.WithdrawalPending {
		t.Errorf("Expected withdrawal to stay pending, got %s", stored.Status)
	}
	assertBalance(t, service, user.Id, "BTC", "0.5")
}

func TestRejectWithdrawal_KeepsBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "wd-reject@example.com")
	fund(t, service, user.Id, "ETH", "2")
	withdrawal := createTestWithdrawal(t, service, user.Id, "ETH", "1", "0.005")

	rejected, err := service.RejectWithdrawal(ctx, store.RejectWithdrawalParams{
		WithdrawalId: withdrawal.Id, ApprovedBy: "admin", Reason: "address flagged",
	})
	if err != nil {
		t.Fatalf("RejectWithdrawal failed: %v", err)
	}
	if rejected.Status != models.WithdrawalRejected || rejected.RejectionReason != "address flagged" {
		t.Errorf("Unexpected rejected withdrawal: %+v", rejected)
	}
	assertBalance(t, service, user.Id, "ETH", "2")

	stored, err := service.GetWithdrawal(ctx, withdrawal.Id)
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if stored.RejectionReason != "address flagged" || stored.ApprovedBy != "admin" {
		t.Errorf("Rejection not persisted: %+v", stored)
	}
}

func TestCompleteWithdrawal_ConcurrentApprovalsCannotOverdraw(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "wd-race@example.com")
	fund(t, service, user.Id, "ETH", "1.5")
	first := createTestWithdrawal(t, service, user.Id, "ETH", "1", "0.005")
	second := createTestWithdrawal(t, service, user.Id, "ETH", "1", "0.005")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, id := range []string{first.Id, second.Id} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := service.CompleteWithdrawal(ctx, store.CompleteWithdrawalParams{WithdrawalId: id, ApprovedBy: "admin"})
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if succeeded != 1 || insufficient != 1 {
		t.Errorf("Expected exactly one approval to succeed, got %d succeeded and %d insufficient", succeeded, insufficient)
	}
	assertBalance(t, service, user.Id, "ETH", "0.5")
}

func TestListWithdrawals_PendingOnly(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "wd-list@example.com")
	fund(t, service, user.Id, "SOL", "10")
	done := createTestWithdrawal(t, service, user.Id, "SOL", "1", "0.01")
	older := createTestWithdrawal(t, service, user.Id, "SOL", "2", "0.02")
	newer := createTestWithdrawal(t, service, user.Id, "SOL", "3", "0.03")

	if _, err := service.RejectWithdrawal(ctx, store.RejectWithdrawalParams{WithdrawalId: done.Id, Reason: "dup"}); err != nil {
		t.Fatalf("RejectWithdrawal failed: %v", err)
	}

	pending, err := service.ListWithdrawals(ctx, store.RequestFilter{Status: string(models.WithdrawalPending)})
	if err != nil {
		t.Fatalf("ListWithdrawals failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending withdrawals, got %d", len(pending))
	}
	if pending[0].Id != newer.Id || pending[1].Id != older.Id {
		t.Errorf("Expected the two pending withdrawals newest first, got %+v", pending)
	}
	if pending[0].User == nil || pending[0].User.Email != "wd-list@example.com" {
		t.Errorf("Expected owner summary on listing, got %+v", pending[0].User)
	}
}
