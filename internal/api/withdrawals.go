package api

import (
	"context"
	"fmt"
	"strings"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type WithdrawalRequest struct {
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	Network       string          `json:"network"`
	WalletAddress string          `json:"walletAddress"`
}

type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

// SubmitWithdrawal checks the balance, prices the fee from the asset
// catalogue and records a pending withdrawal
func (s *Service) SubmitWithdrawal(ctx context.Context, req WithdrawalRequest) (*models.WithdrawalRequest, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	network := strings.TrimSpace(req.Network)
	address := strings.TrimSpace(req.WalletAddress)
	if asset == "" || req.Amount.IsZero() || network == "" || address == "" {
		return nil, invalid("All fields are required")
	}
	if _, ok := s.catalog.Lookup(asset); !ok {
		return nil, invalid("Unsupported asset: %s", asset)
	}

	fee := s.catalog.Fee(asset, req.Amount)
	if req.Amount.IsPositive() && fee.GreaterThanOrEqual(req.Amount) {
		return nil, invalid("Amount must exceed the withdrawal fee of %s %s", fee.String(), asset)
	}

	withdrawal, err := s.store.CreateWithdrawal(ctx, store.CreateWithdrawalParams{
		UserId:        actor.UserId,
		Asset:         asset,
		Amount:        req.Amount,
		Fee:           fee,
		Network:       network,
		WalletAddress: address,
		Audit: store.Audit{
			Action:    "Withdrawal Request",
			Details:   fmt.Sprintf("Requested withdrawal of %s %s", req.Amount.String(), asset),
			IpAddress: actor.IpAddress,
		},
	})
	if err != nil {
		zap.L().Warn("Withdrawal request refused",
			zap.String("user_id", actor.UserId),
			zap.String("asset", asset),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, err
	}
	return withdrawal, nil
}

// ListPendingWithdrawals is the admin withdrawal queue, newest first
func (s *Service) ListPendingWithdrawals(ctx context.Context) ([]models.WithdrawalRequest, error) {
	if _, err := admin(ctx); err != nil {
		return nil, err
	}
	withdrawals, err := s.store.ListWithdrawals(ctx, store.RequestFilter{Status: string(models.WithdrawalPending)})
	if err != nil {
		return nil, err
	}
	if withdrawals == nil {
		withdrawals = []models.WithdrawalRequest{}
	}
	return withdrawals, nil
}

func (s *Service) ApproveWithdrawal(ctx context.Context, withdrawalId string, req ApproveRequest) (*models.WithdrawalRequest, error) {
	actor, err := admin(ctx)
	if err != nil {
		return nil, err
	}
	withdrawal, err := s.engine.ApproveWithdrawal(ctx, withdrawalId, actor, req.TxHash)
	if err != nil {
		return nil, notFound("Withdrawal", err)
	}
	return withdrawal, nil
}

func (s *Service) RejectWithdrawal(ctx context.Context, withdrawalId string, req RejectWithdrawalRequest) (*models.WithdrawalRequest, error) {
	actor, err := admin(ctx)
	if err != nil {
		return nil, err
	}
	withdrawal, err := s.engine.RejectWithdrawal(ctx, withdrawalId, actor, req.Reason)
	if err != nil {
		return nil, notFound("Withdrawal", err)
	}
	return withdrawal, nil
}
