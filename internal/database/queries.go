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

const (
	// User queries
	userColumns = `
		id, email, password_hash, role, first_name, last_name, phone_code, phone_number,
		country, currency, referral_code, referred_by, two_factor_enabled, two_factor_code,
		last_login, created_at, updated_at`

	queryInsertUser = `
		INSERT INTO users (id, email, password_hash, role, first_name, last_name, phone_code,
			phone_number, country, currency, referral_code, referred_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING` + userColumns

	queryGetUsers = `
		SELECT` + userColumns + `
		FROM users
		ORDER BY created_at DESC, rowid DESC`

	queryGetUserById = `
		SELECT` + userColumns + `
		FROM users
		WHERE id = ?`

	queryGetUserByEmail = `
		SELECT` + userColumns + `
		FROM users
		WHERE email = ?`

	queryUpdateProfile = `
		UPDATE users SET
			first_name = COALESCE(?, first_name),
			last_name = COALESCE(?, last_name),
			phone_code = COALESCE(?, phone_code),
			phone_number = COALESCE(?, phone_number),
			country = COALESCE(?, country),
			currency = COALESCE(?, currency),
			updated_at = ?
		WHERE id = ?
		RETURNING` + userColumns

	queryUpdatePassword = `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

	querySetTwoFactor = `
		UPDATE users SET two_factor_enabled = ?, two_factor_code = ?, updated_at = ? WHERE id = ?`

	queryRecordLogin = `
		UPDATE users SET last_login = ? WHERE id = ?`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE user_id = ? AND asset = ?`

	queryGetAllUserBalances = `
		SELECT id, user_id, asset, balance, last_entry_id, version, updated_at
		FROM account_balances
		WHERE user_id = ?
		ORDER BY asset`

	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE user_id = ? AND asset = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, user_id, asset, balance, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_entry_id = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND asset = ? AND version = ?`

	queryReconcileBalance = `
		SELECT amount
		FROM ledger_entries
		WHERE user_id = ? AND asset = ?`

	// Ledger entry queries
	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (id, user_id, asset, entry_type, amount, balance_before, balance_after, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetLedgerEntries = `
		SELECT id, user_id, asset, entry_type, amount, balance_before, balance_after, reference, created_at
		FROM ledger_entries
		WHERE user_id = ? AND asset = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Deposit request queries
	depositColumns = `
		d.id, d.user_id, d.asset, d.amount, d.price, d.total, d.status, d.payment_method,
		d.gateway, d.wallet_address, d.tx_hash, d.notes, d.processed_by, d.processed_at,
		d.created_at, d.updated_at, u.first_name, u.last_name, u.email`

	queryInsertDeposit = `
		INSERT INTO deposit_requests (id, user_id, asset, amount, price, total, status, payment_method,
			gateway, wallet_address, tx_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	querySelectDeposits = `
		SELECT` + depositColumns + `
		FROM deposit_requests d
		JOIN users u ON u.id = d.user_id`

	queryGetDeposit = querySelectDeposits + `
		WHERE d.id = ?`

	queryCompleteDeposit = `
		UPDATE deposit_requests
		SET status = ?, processed_by = ?, processed_at = ?, tx_hash = COALESCE(NULLIF(?, ''), tx_hash), updated_at = ?
		WHERE id = ? AND status = ?`

	queryDeclineDeposit = `
		UPDATE deposit_requests
		SET status = ?, processed_by = ?, processed_at = ?, notes = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	// Withdrawal request queries
	withdrawalColumns = `
		w.id, w.user_id, w.asset, w.amount, w.fee, w.total, w.network, w.wallet_address, w.status,
		w.tx_hash, w.rejection_reason, w.approved_by, w.approved_at, w.created_at, w.updated_at,
		u.first_name, u.last_name, u.email`

	queryInsertWithdrawal = `
		INSERT INTO withdrawal_requests (id, user_id, asset, amount, fee, total, network, wallet_address,
			status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	querySelectWithdrawals = `
		SELECT` + withdrawalColumns + `
		FROM withdrawal_requests w
		JOIN users u ON u.id = w.user_id`

	queryGetWithdrawal = querySelectWithdrawals + `
		WHERE w.id = ?`

	queryCompleteWithdrawal = `
		UPDATE withdrawal_requests
		SET status = ?, tx_hash = ?, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	queryRejectWithdrawal = `
		UPDATE withdrawal_requests
		SET status = ?, rejection_reason = ?, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	// Activity queries
	queryInsertActivity = `
		INSERT INTO activities (id, user_id, action, details, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryListActivities = `
		SELECT id, user_id, action, details, ip_address, created_at
		FROM activities
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`
)
