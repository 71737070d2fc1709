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
	"flag"
	"fmt"

	"cryptolab-go/internal/common"
	"cryptolab-go/internal/config"
	"cryptolab-go/internal/database"
	"cryptolab-go/internal/formance"
	"cryptolab-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalBalances     int
	usersWithBalances int
	mismatches        int
}

// checks selects the optional consistency checks run per balance
type checks struct {
	reconcile bool
	mirror    *formance.Service
}

func formatEntryId(txId string) string {
	if txId == "" {
		return "none"
	}
	if len(txId) > 8 {
		return txId[:8] + "..."
	}
	return txId
}

func printBalance(balance models.AccountBalance, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	lastEntry := formatEntryId(balance.LastEntryId)

	fmt.Printf("%s %-15s: %20s (v%d, last_entry: %s, updated: %s)\n",
		symbol,
		balance.Asset,
		balance.Balance.String(),
		balance.Version,
		lastEntry,
		balance.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printBalances(balances []models.AccountBalance) {
	for i, balance := range balances {
		isLast := i == len(balances)-1
		printBalance(balance, isLast)
	}
}

func printUserHeader(user common.UserInfo, balanceCount int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Assets: %d\n", balanceCount)
	common.PrintBoxSeparator(78)
}

// verifyUser replays the ledger for each balance and, when a mirror is
// configured, compares against the journal. It returns the number of mismatches.
func verifyUser(ctx context.Context, user common.UserInfo, balances []models.AccountBalance, dbService *database.Service, opts checks, logger *zap.Logger) int {
	mismatches := 0

	if opts.reconcile {
		for _, balance := range balances {
			if err := dbService.ReconcileUserBalance(ctx, user.Id, balance.Asset); err != nil {
				mismatches++
				fmt.Printf("   ✗ %s: ledger does not match balance: %v\n", balance.Asset, err)
				logger.Error("Reconciliation failed",
					zap.String("user_id", user.Id),
					zap.String("asset", balance.Asset),
					zap.Error(err))
			}
		}
	}

	if opts.mirror == nil {
		return mismatches
	}

	mirrored, err := opts.mirror.GetUserBalances(ctx, user.Id)
	if err != nil {
		logger.Error("Failed to read mirrored balances", zap.String("user_id", user.Id), zap.Error(err))
		return mismatches + 1
	}

	local := make(map[string]decimal.Decimal, len(balances))
	for _, balance := range balances {
		local[balance.Asset] = balance.Balance
	}
	for asset := range mirrored {
		if _, ok := local[asset]; !ok {
			local[asset] = decimal.Zero
		}
	}
	for asset, amount := range local {
		if remote := mirrored[asset]; !remote.Equal(amount) {
			mismatches++
			fmt.Printf("   ✗ %s: local %s, mirror %s\n", asset, amount, remote)
			logger.Warn("Mirror balance mismatch",
				zap.String("user_id", user.Id),
				zap.String("asset", asset),
				zap.String("local", amount.String()),
				zap.String("mirror", remote.String()))
		}
	}

	return mismatches
}

func processUser(ctx context.Context, user common.UserInfo, dbService *database.Service, opts checks, logger *zap.Logger) (int, int, error) {
	balances, err := dbService.GetAllUserBalances(ctx, user.Id)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get balances: %w", err)
	}

	if len(balances) == 0 {
		return 0, 0, nil
	}

	printUserHeader(user, len(balances))
	printBalances(balances)

	return len(balances), verifyUser(ctx, user, balances, dbService, opts, logger), nil
}

func processUsersAndGenerateReport(ctx context.Context, users []common.UserInfo, dbService *database.Service, opts checks, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, user := range users {
		stats.totalUsers++

		balanceCount, mismatches, err := processUser(ctx, user, dbService, opts, logger)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
			continue
		}

		if balanceCount > 0 {
			stats.usersWithBalances++
			stats.totalBalances += balanceCount
		}
		stats.mismatches += mismatches
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	reconcileFlag := flag.Bool("reconcile", false, "Replay ledger entries and verify every balance")
	mirrorFlag := flag.Bool("mirror", false, "Compare balances against the Formance ledger mirror")
	flag.Parse()

	logger.Info("Starting balance query")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Read-only: the settlement engine is not needed
	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	// Initialize users based on filter
	users, err := common.InitializeUsers(ctx, dbService, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	opts := checks{reconcile: *reconcileFlag}
	if *mirrorFlag {
		if cfg.Mirror.Backend != config.MirrorFormance {
			logger.Fatal("--mirror requires LEDGER_MIRROR=formance")
		}
		mirror, err := formance.NewService(ctx, cfg.Mirror.Formance)
		if err != nil {
			logger.Fatal("Failed to connect to ledger mirror", zap.Error(err))
		}
		defer mirror.Close()
		opts.mirror = mirror
	}

	// Print header
	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)

	// Process users and generate report
	stats := processUsersAndGenerateReport(ctx, users, dbService, opts, logger)

	// Print footer summary
	summary := fmt.Sprintf("SUMMARY: %d users with balances (%d total balances across %d users queried)",
		stats.usersWithBalances, stats.totalBalances, stats.totalUsers)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balances", stats.usersWithBalances),
		zap.Int("total_balances", stats.totalBalances),
		zap.Int("mismatches", stats.mismatches))

	if stats.mismatches > 0 {
		logger.Fatal("Balance verification found mismatches", zap.Int("count", stats.mismatches))
	}
}
