package main

import (
	"context"
	"fmt"

	"cryptolab-go/internal/common"
	"cryptolab-go/internal/config"

	"go.uber.org/zap"
)

// setup creates the database schema, validates the asset catalogue and, when
// a mirror is configured, makes sure the Formance ledger exists.
func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing services", zap.String("database", cfg.Database.Path))
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := services.DbService.GetUsers(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read users", zap.Error(err))
	}

	admins := 0
	for i := range users {
		if users[i].IsAdmin() {
			admins++
		}
	}

	common.PrintHeader("SETUP COMPLETE", common.DefaultWidth)
	fmt.Printf("Database:    %s\n", cfg.Database.Path)
	fmt.Printf("Assets:      %d (%s)\n", len(services.Catalog.Assets()), cfg.AssetsFile)
	fmt.Printf("Price coins: %d\n", len(services.Catalog.PriceCoins()))
	fmt.Printf("Mirror:      %s\n", cfg.Mirror.Backend)
	fmt.Printf("Users:       %d (%d admin)\n", len(users), admins)
	common.PrintSeparator("=", common.DefaultWidth)

	if admins == 0 {
		fmt.Println("\nNo administrator yet. Create one with:")
		fmt.Println("  go run ./cmd/adduser --name \"Admin\" --email admin@example.com --password <secret> --admin")
	}

	zap.L().Info("Setup completed",
		zap.Int("assets", len(services.Catalog.Assets())),
		zap.Int("users", len(users)),
		zap.Int("admins", admins))
}
