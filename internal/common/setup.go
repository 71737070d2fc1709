package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cryptolab-go/internal/config"
	"cryptolab-go/internal/database"
	"cryptolab-go/internal/formance"
	"cryptolab-go/internal/models"
	"cryptolab-go/internal/prices"
	"cryptolab-go/internal/settlement"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Journal   *formance.Service
	Engine    *settlement.Engine
	Catalog   *AssetCatalog
	Prices    *prices.Service
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database, loads the asset catalogue and
// builds the settlement engine, mirroring to Formance when configured
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	catalog, err := LoadAssetCatalog(cfg.AssetsFile)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Loaded asset catalogue", zap.Strings("assets", catalog.Symbols()))

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	services := &Services{DbService: dbService, Catalog: catalog}

	var opts []settlement.Option
	if cfg.Mirror.Backend == config.MirrorFormance {
		zap.L().Info("Connecting to Formance ledger mirror",
			zap.String("stack_url", cfg.Mirror.Formance.StackURL),
			zap.String("ledger", cfg.Mirror.Formance.LedgerName))
		journal, err := formance.NewService(ctx, cfg.Mirror.Formance)
		if err != nil {
			dbService.Close()
			return nil, fmt.Errorf("unable to initialize ledger mirror: %w", err)
		}
		services.Journal = journal
		opts = append(opts, settlement.WithJournal(journal))
	}
	services.Engine = settlement.NewEngine(dbService, opts...)

	priceService, err := prices.NewService(cfg.Prices, catalog.PriceCoins())
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Prices = priceService

	return services, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.Journal != nil {
		cs.Journal.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
