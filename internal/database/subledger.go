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
)

// SubledgerService handles subledger operations
type SubledgerService struct {
	db *sql.DB
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db: db,
	}
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Account Balances Table (Current State - Hot Data)
	-- Amounts are decimal text; REAL would round.
	CREATE TABLE IF NOT EXISTS account_balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		asset TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		last_entry_id TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(user_id, asset)
	);

	-- Ledger Entries Table (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	-- Performance Indexes for Account Balances
	CREATE INDEX IF NOT EXISTS idx_account_balances_user_id ON account_balances(user_id);

	-- Performance Indexes for Ledger Entries
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_asset ON ledger_entries(user_id, asset);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_reference ON ledger_entries(reference);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_created_at ON ledger_entries(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}
