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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"regexp"
	"strings"

	"cryptolab-go/internal/auth"
	"cryptolab-go/internal/common"
	"cryptolab-go/internal/config"
	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}

// splitName turns "Ada Lovelace" into first and last name
func splitName(name string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	nameFlag := flag.String("name", "", "User's full name (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	passwordFlag := flag.String("password", "", "Initial password (required)")
	countryFlag := flag.String("country", "", "Country of residence")
	currencyFlag := flag.String("currency", "USD", "Display currency")
	adminFlag := flag.Bool("admin", false, "Create an administrator account")
	flag.Parse()

	if *nameFlag == "" || *emailFlag == "" || *passwordFlag == "" {
		zap.L().Fatal("Flags --name, --email and --password are required")
	}

	if err := validateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}

	if err := validatePassword(*passwordFlag); err != nil {
		zap.L().Fatal("Invalid password", zap.Error(err))
	}

	role := models.RoleUser
	if *adminFlag {
		role = models.RoleAdmin
	}

	zap.L().Info("Starting user creation process",
		zap.String("name", *nameFlag),
		zap.String("email", *emailFlag),
		zap.String("role", string(role)))

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	hash, err := auth.HashPassword(*passwordFlag)
	if err != nil {
		zap.L().Fatal("Failed to hash password", zap.Error(err))
	}

	referral, err := auth.GenerateReferralCode()
	if err != nil {
		zap.L().Fatal("Failed to generate referral code", zap.Error(err))
	}

	firstName, lastName := splitName(*nameFlag)
	user, err := dbService.CreateUser(ctx, store.CreateUserParams{
		Email:        *emailFlag,
		PasswordHash: hash,
		Role:         role,
		FirstName:    firstName,
		LastName:     lastName,
		Country:      *countryFlag,
		Currency:     strings.ToUpper(*currencyFlag),
		ReferralCode: referral,
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			zap.L().Fatal("User already exists with this email", zap.String("email", *emailFlag))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	if err := dbService.RecordActivity(ctx, user.Id, store.Audit{
		Action:  "Account Created",
		Details: "Created from command line",
	}); err != nil {
		zap.L().Warn("Failed to record activity", zap.String("user_id", user.Id), zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:       %s\n", user.Id)
	fmt.Printf("Name:     %s\n", user.FullName())
	fmt.Printf("Email:    %s\n", user.Email)
	fmt.Printf("Role:     %s\n", user.Role)
	fmt.Printf("Referral: %s\n", user.ReferralCode)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("User created successfully", zap.String("id", user.Id))
}
