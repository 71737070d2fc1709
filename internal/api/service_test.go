package api

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cryptolab-go/internal/auth"
	"cryptolab-go/internal/common"
	"cryptolab-go/internal/database"
	"cryptolab-go/internal/models"
	"cryptolab-go/internal/settlement"
	"cryptolab-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestService(t *testing.T) (*Service, *database.Service) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  time.Second,
		BusyTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	tokens, err := auth.NewTokenManager(models.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)

	engine := settlement.NewEngine(db)
	catalog := common.NewAssetCatalog(common.DefaultAssets())
	return NewService(db, engine, tokens, catalog), db
}

func register(t *testing.T, svc *Service, email string) *Session {
	t.Helper()
	session, err := svc.Register(context.Background(), RegisterRequest{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       email,
		Password:    "secret1",
		PhoneNumber: "5550100",
		Country:     "UK",
	}, "10.0.0.1")
	require.NoError(t, err)
	return session
}

func asUser(user *models.User) context.Context {
	return models.WithActor(context.Background(), &models.Actor{
		UserId:    user.Id,
		Email:     user.Email,
		Role:      user.Role,
		IpAddress: "10.0.0.1",
	})
}

func createAdmin(t *testing.T, db *database.Service) context.Context {
	t.Helper()
	user, err := db.CreateUser(context.Background(), store.CreateUserParams{
		Email:        "admin@cryptolab.test",
		PasswordHash: "hash",
		Role:         models.RoleAdmin,
		FirstName:    "Admin",
		LastName:     "User",
		ReferralCode: "ADMIN001",
	})
	require.NoError(t, err)
	return asUser(user)
}

func TestRegisterAndLogin(t *testing.T) {
	svc, db := setupTestService(t)

	session := register(t, svc, "Ada@Example.com")
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.Equal(t, models.RoleUser, session.User.Role)
	assert.Len(t, session.User.ReferralCode, 8)
	assert.NotNil(t, session.User.LastLogin)

	claims, err := svc.tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.Id, claims.UserID)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret1"}, "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, session.User.Id, login.User.Id)

	activities, err := db.ListActivities(context.Background(), session.User.Id, 10)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, "Login", activities[0].Action)
	assert.Equal(t, "10.0.0.2", activities[0].IpAddress)
	assert.Equal(t, "Account Created", activities[1].Action)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "secret1"}, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please provide all required fields", verr.Message)

	_, err = svc.Register(ctx, RegisterRequest{
		FirstName: "A", LastName: "B", Email: "a@example.com", Password: "short",
		PhoneNumber: "1", Country: "US",
	}, "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Password must be at least 6 characters", verr.Message)

	register(t, svc, "dup@example.com")
	_, err = svc.Register(ctx, RegisterRequest{
		FirstName: "A", LastName: "B", Email: "DUP@example.com", Password: "secret1",
		PhoneNumber: "1", Country: "US",
	}, "")
	assert.True(t, errors.Is(err, store.ErrEmailTaken), "got %v", err)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := setupTestService(t)
	register(t, svc, "ada@example.com")
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong-password"}, "")
	assert.Equal(t, ErrInvalidCredentials, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret1"}, "")
	assert.Equal(t, ErrInvalidCredentials, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "ada@example.com"}, "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTwoFactorFlow(t *testing.T) {
	svc, _ := setupTestService(t)
	session := register(t, svc, "ada@example.com")
	ctx := asUser(session.User)

	err := svc.EnableTwoFactor(ctx, TwoFactorRequest{Code: "12ab56", Password: "secret1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	err = svc.EnableTwoFactor(ctx, TwoFactorRequest{Code: "123456", Password: "wrong-password"})
	assert.Equal(t, ErrIncorrectPassword, err)

	require.NoError(t, svc.EnableTwoFactor(ctx, TwoFactorRequest{Code: "123456", Password: "secret1"}))

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret1"}, "")
	assert.Equal(t, ErrTwoFactorRequired, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret1", TwoFactorCode: "654321"}, "")
	assert.Equal(t, ErrInvalidTwoFactor, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret1", TwoFactorCode: "123456"}, "")
	require.NoError(t, err)

	assert.NoError(t, svc.VerifyTwoFactor(context.Background(), VerifyTwoFactorRequest{Email: "ada@example.com", Code: "123456"}))
	assert.Equal(t, ErrInvalidTwoFactor, svc.VerifyTwoFactor(context.Background(), VerifyTwoFactorRequest{Email: "ada@example.com", Code: "000000"}))
	assert.Equal(t, ErrUnknownAccount, svc.VerifyTwoFactor(context.Background(), VerifyTwoFactorRequest{Email: "x@example.com", Code: "000000"}))

	require.NoError(t, svc.ChangeTwoFactor(ctx, TwoFactorRequest{NewCode: "999999", Password: "secret1"}))
	assert.NoError(t, svc.VerifyTwoFactor(context.Background(), VerifyTwoFactorRequest{Email: "ada@example.com", Code: "999999"}))

	require.NoError(t, svc.DisableTwoFactor(ctx, TwoFactorRequest{Password: "secret1"}))
	err = svc.VerifyTwoFactor(context.Background(), VerifyTwoFactorRequest{Email: "ada@example.com", Code: "999999"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "2FA is not enabled for this account", verr.Message)

	activities, err := svc.GetActivities(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Security Update", activities[0].Action)
	assert.Equal(t, "Disabled 2FA", activities[0].Details)
}

func TestChangePassword(t *testing.T) {
	svc, _ := setupTestService(t)
	session := register(t, svc, "ada@example.com")
	ctx := asUser(session.User)

	err := svc.ChangePassword(ctx, ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "abc"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "New password must be at least 6 characters", verr.Message)

	err = svc.ChangePassword(ctx, ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "secret2"})
	assert.Equal(t, ErrCurrentPassword, err)

	require.NoError(t, svc.ChangePassword(ctx, ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}))

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret1"}, "")
	assert.Equal(t, ErrInvalidCredentials, err)
	_, err = svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret2"}, "")
	assert.NoError(t, err)
}

func TestUpdateProfile_OnlyNonEmptyFields(t *testing.T) {
	svc, _ := setupTestService(t)
	session := register(t, svc, "ada@example.com")
	ctx := asUser(session.User)

	user, err := svc.UpdateProfile(ctx, UpdateProfileRequest{Country: "FR", FirstName: "  "})
	require.NoError(t, err)
	assert.Equal(t, "FR", user.Country)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "5550100", user.PhoneNumber)

	profile, err := svc.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FR", profile.Country)
}

func TestUnauthenticated(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.GetBalances(context.Background())
	assert.Equal(t, ErrUnauthenticated, err)
	_, err = svc.GetProfile(context.Background())
	assert.Equal(t, ErrUnauthenticated, err)
}

func TestDepositLifecycle(t *testing.T) {
	svc, db := setupTestService(t)
	session := register(t, svc, "ada@example.com")
	userCtx := asUser(session.User)
	adminCtx := createAdmin(t, db)

	_, err := svc.SubmitDeposit(userCtx, DepositRequest{Asset: "ETH", Amount: decimal.RequireFromString("1.5")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Asset, amount, and price are required", verr.Message)

	_, err = svc.SubmitDeposit(userCtx, DepositRequest{Asset: "FOO", Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(1)})
	require.ErrorAs(t, err, &verr)

	deposit, err := svc.SubmitDeposit(userCtx, DepositRequest{
		Asset:  "eth",
		Amount: decimal.RequireFromString("1.5"),
		Price:  decimal.NewFromInt(3000),
	})
	require.NoError(t, err)
	assert.Equal(t, "ETH", deposit.Asset)
	assert.Equal(t, models.DepositPending, deposit.Status)
	assert.True(t, deposit.Total.Equal(decimal.NewFromInt(4500)))

	balances, err := svc.GetBalances(userCtx)
	require.NoError(t, err)
	assert.Empty(t, balances)

	_, err = svc.ApproveDeposit(userCtx, deposit.Id, ApproveRequest{})
	assert.Equal(t, ErrForbidden, err)

	pending, err := svc.ListAllTransactions(adminCtx, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].User)
	assert.Equal(t, "ada@example.com", pending[0].User.Email)

	approved, err := svc.ApproveDeposit(adminCtx, deposit.Id, ApproveRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.DepositCompleted, approved.Status)

	_, err = svc.ApproveDeposit(adminCtx, deposit.Id, ApproveRequest{})
	assert.True(t, errors.Is(err, store.ErrInvalidStateTransition), "got %v", err)

	balances, err = svc.GetBalances(userCtx)
	require.NoError(t, err)
	assert.Equal(t, "1.5", balances["ETH"].String())

	_, err = svc.ApproveDeposit(adminCtx, "missing", ApproveRequest{})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Transaction not found", nf.Error())
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestRejectDeposit(t *testing.T) {
	svc, db := setupTestService(t)
	session := register(t, svc, "ada@example.com")
	userCtx := asUser(session.User)
	adminCtx := createAdmin(t, db)

	deposit, err := svc.SubmitDeposit(userCtx, DepositRequest{Asset: "BTC", Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(60000)})
	require.NoError(t, err)

	_, err = svc.RejectDeposit(adminCtx, deposit.Id, RejectDepositRequest{Status: models.DepositCompleted})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	rejected, err := svc.RejectDeposit(adminCtx, deposit.Id, RejectDepositRequest{Status: models.DepositCancelled, Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, models.DepositCancelled, rejected.Status)
	assert.Equal(t, "duplicate", rejected.Notes)
}

func TestWithdrawalLifecycle(t *testing.T) {
	svc, db := setupTestService(t)
	session := register(t, svc, "ada@example.com")
	userCtx := asUser(session.User)
	adminCtx := createAdmin(t, db)

	_, err := svc.SetUserBalances(adminCtx, session.User.Id, SetBalancesRequest{
		Balances: map[string]decimal.Decimal{"USDT": decimal.NewFromInt(50)},
	})
	require.NoError(t, err)

	_, err = svc.SubmitWithdrawal(userCtx, WithdrawalRequest{Asset: "USDT", Amount: decimal.NewFromInt(50)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "All fields are required", verr.Message)

	_, err = svc.SubmitWithdrawal(userCtx, WithdrawalRequest{
		Asset: "USDT", Amount: decimal.NewFromInt(51), Network: "TRC20", WalletAddress: "T123",
	})
	assert.True(t, errors.Is(err, store.ErrInsufficientFunds), "got %v", err)

	withdrawal, err := svc.SubmitWithdrawal(userCtx, WithdrawalRequest{
		Asset: "USDT", Amount: decimal.NewFromInt(50), Network: "TRC20", WalletAddress: "T123",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", withdrawal.Fee.String())
	assert.Equal(t, "49", withdrawal.Total.String())

	queue, err := svc.ListPendingWithdrawals(adminCtx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, withdrawal.Id, queue[0].Id)

	approved, err := svc.ApproveWithdrawal(adminCtx, withdrawal.Id, ApproveRequest{TxHash: "0xabc"})
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalCompleted, approved.Status)
	assert.Equal(t, "0xabc", approved.TxHash)

	balances, err := svc.GetBalances(userCtx)
	require.NoError(t, err)
	assert.Empty(t, balances)

	queue, err = svc.ListPendingWithdrawals(adminCtx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = svc.RejectWithdrawal(adminCtx, "missing", RejectWithdrawalRequest{})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Withdrawal not found", nf.Error())
}

func TestSubmitWithdrawal_FeeAboveAmount(t *testing.T) {
	svc, db := setupTestService(t)
	session := register(t, svc, "ada@example.com")
	adminCtx := createAdmin(t, db)
	_, err := svc.SetUserBalances(adminCtx, session.User.Id, SetBalancesRequest{
		Balances: map[string]decimal.Decimal{"USDT": decimal.NewFromInt(10)},
	})
	require.NoError(t, err)

	_, err = svc.SubmitWithdrawal(asUser(session.User), WithdrawalRequest{
		Asset: "USDT", Amount: decimal.RequireFromString("0.5"), Network: "TRC20", WalletAddress: "T123",
	})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGetTransactions_MergedNewestFirst(t *testing.T) {
	svc, db := setupTestService(t)
	session := register(t, svc, "ada@example.com")
	userCtx := asUser(session.User)
	adminCtx := createAdmin(t, db)

	_, err := svc.SetUserBalances(adminCtx, session.User.Id, SetBalancesRequest{
		Balances: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(2)},
	})
	require.NoError(t, err)

	_, err = svc.SubmitDeposit(userCtx, DepositRequest{Asset: "BTC", Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(60000)})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = svc.SubmitWithdrawal(userCtx, WithdrawalRequest{
		Asset: "BTC", Amount: decimal.NewFromInt(1), Network: "BTC", WalletAddress: "bc1q",
	})
	require.NoError(t, err)

	records, err := svc.GetTransactions(userCtx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.KindWithdrawal, records[0].Type)
	assert.Equal(t, models.KindDeposit, records[1].Type)
}

func TestSetUserBalances(t *testing.T) {
	svc, db := setupTestService(t)
	session := register(t, svc, "ada@example.com")
	adminCtx := createAdmin(t, db)

	_, err := svc.SetUserBalances(adminCtx, session.User.Id, SetBalancesRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid balances data", verr.Message)

	_, err = svc.SetUserBalances(adminCtx, session.User.Id, SetBalancesRequest{
		Balances: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(-1)},
	})
	require.ErrorAs(t, err, &verr)

	_, err = svc.SetUserBalances(adminCtx, "missing", SetBalancesRequest{Balances: map[string]decimal.Decimal{}})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "User not found", nf.Error())

	_, err = svc.SetUserBalances(adminCtx, session.User.Id, SetBalancesRequest{
		Balances: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(1), "ETH": decimal.NewFromInt(3)},
	})
	require.NoError(t, err)

	balances, err := svc.SetUserBalances(adminCtx, session.User.Id, SetBalancesRequest{
		Balances: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(5), "SOL": decimal.Zero},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ETH": "5"}, stringify(balances))

	detail, err := svc.GetUserDetail(adminCtx, session.User.Id)
	require.NoError(t, err)
	assert.Equal(t, session.User.Id, detail.User.Id)
	assert.Equal(t, map[string]string{"ETH": "5"}, stringify(detail.Balances))

	users, err := svc.ListUsers(adminCtx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestListDepositAddresses(t *testing.T) {
	svc, _ := setupTestService(t)
	session := register(t, svc, "ada@example.com")

	addresses, err := svc.ListDepositAddresses(asUser(session.User))
	require.NoError(t, err)
	require.NotEmpty(t, addresses)
	assert.Equal(t, "BTC", addresses[0].Asset)
	assert.NotEmpty(t, addresses[0].Address)
}

func stringify(balances map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(balances))
	for asset, amount := range balances {
		out[asset] = amount.String()
	}
	return out
}
