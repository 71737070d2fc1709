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

	"cryptolab-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SetBalancesRequest struct {
	Balances map[string]decimal.Decimal `json:"balances"`
}

// GetBalances returns the caller's non-zero balances keyed by asset
func (s *Service) GetBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.balanceMap(ctx, actor.UserId)
}

func (s *Service) balanceMap(ctx context.Context, userId string) (map[string]decimal.Decimal, error) {
	balances, err := s.store.GetAllUserBalances(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get user balances", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balances: %w", err)
	}

	result := make(map[string]decimal.Decimal, len(balances))
	for _, balance := range balances {
		if balance.Balance.IsZero() {
			continue
		}
		result[balance.Asset] = balance.Balance
	}
	return result, nil
}

// GetUserDetail is the admin view of one user: profile and balances
func (s *Service) GetUserDetail(ctx context.Context, userId string) (*models.UserDetail, error) {
	if _, err := admin(ctx); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserById(ctx, userId)
	if err != nil {
		return nil, notFound("User", err)
	}
	balances, err := s.balanceMap(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &models.UserDetail{User: user, Balances: balances}, nil
}

// SetUserBalances overwrites the user's whole balance map
func (s *Service) SetUserBalances(ctx context.Context, userId string, req SetBalancesRequest) (map[string]decimal.Decimal, error) {
	actor, err := admin(ctx)
	if err != nil {
		return nil, err
	}
	if req.Balances == nil {
		return nil, invalid("Invalid balances data")
	}
	for asset, amount := range req.Balances {
		if amount.IsNegative() {
			return nil, invalid("Balance for %s cannot be negative", asset)
		}
	}

	if _, err := s.store.GetUserById(ctx, userId); err != nil {
		return nil, notFound("User", err)
	}

	balances, err := s.engine.SetUserBalances(ctx, userId, actor, req.Balances)
	if err != nil {
		return nil, notFound("User", err)
	}

	zap.L().Info("User balances overwritten",
		zap.String("user_id", userId),
		zap.String("admin_id", actor.UserId),
		zap.Int("assets", len(balances)))
	return balances, nil
}
