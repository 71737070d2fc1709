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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Store.
var _ store.Store = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return newService(db)
}

func newService(db *sql.DB) (*Service, error) {
	subledger := NewSubledgerService(db)
	service := &Service{db: db, subledger: subledger}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	// Initialize subledger schema
	if err := subledger.InitSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

// dsn builds the connection string. Write transactions begin IMMEDIATE so
// SQLite hands out the write lock before any balance is read.
func dsn(cfg models.DatabaseConfig) string {
	busy := cfg.BusyTimeout.Milliseconds()
	if busy <= 0 {
		busy = 5000
	}
	return fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=%d&_txlock=immediate",
		cfg.Path, busy)
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Create users table
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		phone_code TEXT NOT NULL DEFAULT '+1',
		phone_number TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT 'USD',
		referral_code TEXT NOT NULL UNIQUE,
		referred_by TEXT NOT NULL DEFAULT '',
		two_factor_enabled BOOLEAN NOT NULL DEFAULT 0,
		two_factor_code TEXT NOT NULL DEFAULT '',
		last_login TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);

	-- Deposit requests: a claim that credits the ledger once approved
	CREATE TABLE IF NOT EXISTS deposit_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		asset TEXT NOT NULL,
		amount TEXT NOT NULL,
		price TEXT NOT NULL,
		total TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_method TEXT NOT NULL DEFAULT 'wallet',
		gateway TEXT NOT NULL DEFAULT '',
		wallet_address TEXT NOT NULL DEFAULT '',
		tx_hash TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		processed_by TEXT NOT NULL DEFAULT '',
		processed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deposit_requests_user_id ON deposit_requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_deposit_requests_status ON deposit_requests(status);
	CREATE INDEX IF NOT EXISTS idx_deposit_requests_created_at ON deposit_requests(created_at);

	-- Withdrawal requests: debits the ledger by amount once approved
	CREATE TABLE IF NOT EXISTS withdrawal_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		asset TEXT NOT NULL,
		amount TEXT NOT NULL,
		fee TEXT NOT NULL,
		total TEXT NOT NULL,
		network TEXT NOT NULL,
		wallet_address TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		tx_hash TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		approved_by TEXT NOT NULL DEFAULT '',
		approved_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_user_id ON withdrawal_requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_status ON withdrawal_requests(status);
	CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_created_at ON withdrawal_requests(created_at);

	-- Append-only audit trail
	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		action TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activities_user_created ON activities(user_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}
