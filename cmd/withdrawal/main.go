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
	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"go.uber.org/zap"
)

type reviewRequest struct {
	adminEmail string
	approveId  string
	rejectId   string
	txHash     string
	reason     string
}

func parseAndValidateFlags() (*reviewRequest, error) {
	adminFlag := flag.String("admin", "", "Email of the approving administrator (required to approve or reject)")
	approveFlag := flag.String("approve", "", "Withdrawal id to approve")
	rejectFlag := flag.String("reject", "", "Withdrawal id to reject")
	txHashFlag := flag.String("tx-hash", "", "On-chain transaction hash for an approval")
	reasonFlag := flag.String("reason", "", "Rejection reason")
	flag.Parse()

	req := &reviewRequest{
		adminEmail: *adminFlag,
		approveId:  *approveFlag,
		rejectId:   *rejectFlag,
		txHash:     *txHashFlag,
		reason:     *reasonFlag,
	}

	if req.approveId != "" && req.rejectId != "" {
		return nil, fmt.Errorf("--approve and --reject are mutually exclusive")
	}
	if (req.approveId != "" || req.rejectId != "") && req.adminEmail == "" {
		return nil, fmt.Errorf("--admin is required to approve or reject")
	}
	return req, nil
}

func resolveAdmin(ctx context.Context, services *common.Services, email string) (*models.Actor, error) {
	user, err := services.DbService.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("admin not found: %w", err)
	}
	if !user.IsAdmin() {
		return nil, fmt.Errorf("%s is not an administrator", email)
	}
	return &models.Actor{UserId: user.Id, Email: user.Email, Role: user.Role, IpAddress: "cli"}, nil
}

func ownerLabel(w models.WithdrawalRequest) string {
	if w.User == nil {
		return w.UserId
	}
	return fmt.Sprintf("%s %s (%s)", w.User.FirstName, w.User.LastName, w.User.Email)
}

func printPending(withdrawals []models.WithdrawalRequest) {
	common.PrintHeader("PENDING WITHDRAWALS", common.WideWidth)
	if len(withdrawals) == 0 {
		fmt.Println("No pending withdrawals")
	}
	for i, w := range withdrawals {
		isLast := i == len(withdrawals)-1
		fmt.Printf("\n┌─ %s\n", w.Id)
		fmt.Printf("│  User:        %s\n", ownerLabel(w))
		fmt.Printf("│  Amount:      %s %s (fee %s, net %s)\n", w.Amount, w.Asset, w.Fee, w.Total)
		fmt.Printf("│  Destination: %s on %s\n", w.WalletAddress, w.Network)
		fmt.Printf("%sRequested:   %s\n", common.BoxPrefix(isLast), w.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	common.PrintFooter(fmt.Sprintf("%d pending withdrawal(s)", len(withdrawals)), common.WideWidth)
}

func printResult(title string, w *models.WithdrawalRequest) {
	common.PrintHeader(title, common.DefaultWidth)
	fmt.Printf("ID:          %s\n", w.Id)
	fmt.Printf("Status:      %s\n", w.Status)
	fmt.Printf("Amount:      %s %s\n", w.Amount, w.Asset)
	fmt.Printf("Destination: %s\n", w.WalletAddress)
	if w.TxHash != "" {
		fmt.Printf("Tx Hash:     %s\n", w.TxHash)
	}
	if w.RejectionReason != "" {
		fmt.Printf("Reason:      %s\n", w.RejectionReason)
	}
	common.PrintSeparator("=", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing services")
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if req.approveId == "" && req.rejectId == "" {
		pending, err := services.DbService.ListWithdrawals(ctx, store.RequestFilter{Status: string(models.WithdrawalPending)})
		if err != nil {
			zap.L().Fatal("Failed to list withdrawals", zap.Error(err))
		}
		printPending(pending)
		return
	}

	actor, err := resolveAdmin(ctx, services, req.adminEmail)
	if err != nil {
		zap.L().Fatal("Failed to resolve administrator", zap.Error(err))
	}

	if req.approveId != "" {
		withdrawal, err := services.Engine.ApproveWithdrawal(ctx, req.approveId, actor, req.txHash)
		if err != nil {
			common.PrintHeader("APPROVAL FAILED", common.DefaultWidth)
			fmt.Printf("Error: %v\n", err)
			common.PrintSeparator("=", common.DefaultWidth)
			zap.L().Fatal("Failed to approve withdrawal", zap.String("withdrawal_id", req.approveId), zap.Error(err))
		}
		printResult("WITHDRAWAL APPROVED", withdrawal)
		zap.L().Info("Withdrawal approved",
			zap.String("withdrawal_id", withdrawal.Id),
			zap.String("admin", actor.Email))
		return
	}

	withdrawal, err := services.Engine.RejectWithdrawal(ctx, req.rejectId, actor, req.reason)
	if err != nil {
		common.PrintHeader("REJECTION FAILED", common.DefaultWidth)
		fmt.Printf("Error: %v\n", err)
		common.PrintSeparator("=", common.DefaultWidth)
		zap.L().Fatal("Failed to reject withdrawal", zap.String("withdrawal_id", req.rejectId), zap.Error(err))
	}
	printResult("WITHDRAWAL REJECTED", withdrawal)
	zap.L().Info("Withdrawal rejected",
		zap.String("withdrawal_id", withdrawal.Id),
		zap.String("admin", actor.Email))
}
