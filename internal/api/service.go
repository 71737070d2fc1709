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

	"cryptolab-go/internal/auth"
	"cryptolab-go/internal/common"
	"cryptolab-go/internal/models"
	"cryptolab-go/internal/settlement"
	"cryptolab-go/internal/store"
)

const (
	maxUserTransactions  = 100
	maxAdminTransactions = 200
	maxActivities        = 50
)

// Service is the gateway behind the HTTP handlers: the user-facing
// operations scoped to the calling principal and the admin operations
type Service struct {
	store   store.Store
	engine  *settlement.Engine
	tokens  *auth.TokenManager
	catalog *common.AssetCatalog
}

func NewService(s store.Store, engine *settlement.Engine, tokens *auth.TokenManager, catalog *common.AssetCatalog) *Service {
	return &Service{
		store:   s,
		engine:  engine,
		tokens:  tokens,
		catalog: catalog,
	}
}

func (s *Service) HealthCheck(ctx context.Context) error {
	_, err := s.store.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// caller returns the authenticated principal attached to ctx
func caller(ctx context.Context) (*models.Actor, error) {
	actor := models.GetActor(ctx)
	if actor == nil || actor.UserId == "" {
		return nil, ErrUnauthenticated
	}
	return actor, nil
}

// admin returns the principal attached to ctx if it holds the admin role
func admin(ctx context.Context) (*models.Actor, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return actor, nil
}
