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
	"errors"
	"fmt"
	"strings"
	"time"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var role string
	var lastLogin sql.NullTime
	err := row.Scan(&user.Id, &user.Email, &user.PasswordHash, &role, &user.FirstName, &user.LastName,
		&user.PhoneCode, &user.PhoneNumber, &user.Country, &user.Currency, &user.ReferralCode,
		&user.ReferredBy, &user.TwoFactorEnabled, &user.TwoFactorCode, &lastLogin,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return &user, nil
}

func (s *Service) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	zap.L().Debug("Creating user", zap.String("email", email))

	role := params.Role
	if role == "" {
		role = models.RoleUser
	}
	phoneCode := params.PhoneCode
	if phoneCode == "" {
		phoneCode = "+1"
	}
	currency := params.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()
	user, err := scanUser(s.db.QueryRowContext(ctx, queryInsertUser,
		uuid.New().String(), email, params.PasswordHash, string(role), params.FirstName, params.LastName,
		phoneCode, params.PhoneNumber, params.Country, currency, params.ReferralCode, params.ReferredBy,
		now, now))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
			strings.Contains(sqliteErr.Error(), "users.email") {
			return nil, fmt.Errorf("%w: %s", store.ErrEmailTaken, email)
		}
		zap.L().Error("Failed to create user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to create user: %w", err)
	}

	zap.L().Info("User created", zap.String("id", user.Id), zap.String("email", user.Email), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := s.db.QueryContext(ctx, queryGetUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}

		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))

	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, userId)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}

	zap.L().Debug("Retrieved user by ID", zap.String("user_id", userId), zap.String("email", user.Email))
	return user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	zap.L().Debug("Querying user by email", zap.String("email", email))

	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserByEmail, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, email)
		}
		zap.L().Error("Failed to query user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by email: %w", err)
	}

	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userId string, params store.UpdateProfileParams, audit store.Audit) (*models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	user, err := scanUser(tx.QueryRowContext(ctx, queryUpdateProfile,
		nullString(params.FirstName), nullString(params.LastName), nullString(params.PhoneCode),
		nullString(params.PhoneNumber), nullString(params.Country), nullString(params.Currency),
		time.Now().UTC(), userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, userId)
		}
		return nil, fmt.Errorf("unable to update profile: %w", err)
	}

	if err := insertActivity(ctx, tx, userId, audit); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Profile updated", zap.String("user_id", userId))
	return user, nil
}

func (s *Service) UpdatePassword(ctx context.Context, userId, passwordHash string, audit store.Audit) error {
	return s.updateUser(ctx, userId, audit, queryUpdatePassword, passwordHash, time.Now().UTC(), userId)
}

func (s *Service) SetTwoFactor(ctx context.Context, userId string, enabled bool, code string, audit store.Audit) error {
	return s.updateUser(ctx, userId, audit, querySetTwoFactor, enabled, code, time.Now().UTC(), userId)
}

func (s *Service) RecordLogin(ctx context.Context, userId string, audit store.Audit) error {
	return s.updateUser(ctx, userId, audit, queryRecordLogin, time.Now().UTC(), userId)
}

// updateUser runs a single-row user update together with its audit record
func (s *Service) updateUser(ctx context.Context, userId string, audit store.Audit, query string, args ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("unable to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: user %s", store.ErrNotFound, userId)
	}

	if err := insertActivity(ctx, tx, userId, audit); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
