/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DepositRequest struct {
	Asset         string               `json:"asset"`
	Amount        decimal.Decimal      `json:"amount"`
	Price         decimal.Decimal      `json:"price"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	Gateway       string               `json:"gateway"`
	WalletAddress string               `json:"walletAddress"`
	TxHash        string               `json:"txHash"`
}

type ApproveRequest struct {
	TxHash string `json:"txHash"`
}

type RejectDepositRequest struct {
	Status models.DepositStatus `json:"status"`
	Reason string               `json:"reason"`
}

// SubmitDeposit records a pending deposit claim. No balance changes until
// an admin approves it.
func (s *Service) SubmitDeposit(ctx context.Context, req DepositRequest) (*models.DepositRequest, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	if asset == "" || req.Amount.IsZero() || req.Price.IsZero() {
		return nil, invalid("Asset, amount, and price are required")
	}
	if _, ok := s.catalog.Lookup(asset); !ok {
		return nil, invalid("Unsupported asset: %s", asset)
	}
	switch req.PaymentMethod {
	case "", models.PaymentWallet, models.PaymentGateway:
	default:
		return nil, invalid("Unsupported payment method: %s", req.PaymentMethod)
	}

	deposit, err := s.store.CreateDeposit(ctx, store.CreateDepositParams{
		UserId:        actor.UserId,
		Asset:         asset,
		Amount:        req.Amount,
		Price:         req.Price,
		PaymentMethod: req.PaymentMethod,
		Gateway:       strings.TrimSpace(req.Gateway),
		WalletAddress: strings.TrimSpace(req.WalletAddress),
		TxHash:        strings.TrimSpace(req.TxHash),
		Audit: store.Audit{
			Action:    "Deposit Request",
			Details:   fmt.Sprintf("Requested deposit of %s %s", req.Amount.String(), asset),
			IpAddress: actor.IpAddress,
		},
	})
	if err != nil {
		zap.L().Warn("Deposit request refused",
			zap.String("user_id", actor.UserId),
			zap.String("asset", asset),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, err
	}
	return deposit, nil
}

// ListDepositAddresses returns the configured receiving address per asset
func (s *Service) ListDepositAddresses(ctx context.Context) ([]models.DepositAddress, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}

	addresses := []models.DepositAddress{}
	for _, a := range s.catalog.Assets() {
		if a.DepositAddress == "" {
			continue
		}
		addresses = append(addresses, models.DepositAddress{
			Asset:   a.Symbol,
			Network: a.Network,
			Address: a.DepositAddress,
		})
	}
	return addresses, nil
}

// GetTransactions merges the caller's deposits and withdrawals, newest first
func (s *Service) GetTransactions(ctx context.Context) ([]models.TransactionRecord, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	filter := store.RequestFilter{UserId: actor.UserId, Limit: maxUserTransactions}
	deposits, err := s.store.ListDeposits(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}
	withdrawals, err := s.store.ListWithdrawals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}

	records := make([]models.TransactionRecord, 0, len(deposits)+len(withdrawals))
	for _, d := range deposits {
		records = append(records, models.DepositRecord(d))
	}
	for _, w := range withdrawals {
		records = append(records, models.WithdrawalRecord(w))
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if len(records) > maxUserTransactions {
		records = records[:maxUserTransactions]
	}
	return records, nil
}

// ListAllTransactions is the admin deposit queue across users, newest first
func (s *Service) ListAllTransactions(ctx context.Context, status string) ([]models.DepositRequest, error) {
	if _, err := admin(ctx); err != nil {
		return nil, err
	}
	if status != "" && !models.DepositStatus(status).Valid() {
		return nil, invalid("Unknown status: %s", status)
	}

	deposits, err := s.store.ListDeposits(ctx, store.RequestFilter{Status: status, Limit: maxAdminTransactions})
	if err != nil {
		return nil, err
	}
	if deposits == nil {
		deposits = []models.DepositRequest{}
	}
	return deposits, nil
}

func (s *Service) ApproveDeposit(ctx context.Context, depositId string, req ApproveRequest) (*models.DepositRequest, error) {
	actor, err := admin(ctx)
	if err != nil {
		return nil, err
	}
	deposit, err := s.engine.ApproveDeposit(ctx, depositId, actor, req.TxHash)
	if err != nil {
		return nil, notFound("Transaction", err)
	}
	return deposit, nil
}

func (s *Service) RejectDeposit(ctx context.Context, depositId string, req RejectDepositRequest) (*models.DepositRequest, error) {
	actor, err := admin(ctx)
	if err != nil {
		return nil, err
	}
	if req.Status != "" && req.Status != models.DepositFailed && req.Status != models.DepositCancelled {
		return nil, invalid("Status must be failed or cancelled")
	}
	deposit, err := s.engine.RejectDeposit(ctx, depositId, actor, req.Status, req.Reason)
	if err != nil {
		return nil, notFound("Transaction", err)
	}
	return deposit, nil
}
