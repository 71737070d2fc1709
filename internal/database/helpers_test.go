package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// setupTestDb opens a file-backed database; ":memory:" would give every
// pooled connection its own empty database.
func setupTestDb(t *testing.T) (*Service, func()) {
	t.Helper()
	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     time.Second,
		BusyTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return service, service.Close
}

func createTestUser(t *testing.T, service *Service, email string) *models.User {
	t.Helper()
	user, err := service.CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		ReferralCode: uuid.New().String()[:8],
	})
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func fund(t *testing.T, service *Service, userId, asset string, amount string) {
	t.Helper()
	_, err := service.Credit(context.Background(), store.MovementParams{
		UserId: userId, Asset: asset, Amount: decimal.RequireFromString(amount), Reference: "seed",
	})
	if err != nil {
		t.Fatalf("Failed to fund %s: %v", asset, err)
	}
}

func assertBalance(t *testing.T, service *Service, userId, asset, want string) {
	t.Helper()
	balance, err := service.GetUserBalance(context.Background(), userId, asset)
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString(want)) {
		t.Errorf("Expected %s balance %s, got %s", asset, want, balance.String())
	}
}
