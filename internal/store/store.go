package store

import (
	"context"
	"errors"

	"cryptolab-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("not found")
	ErrEmailTaken             = errors.New("user already exists with this email")
	ErrInsufficientFunds      = errors.New("insufficient balance")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// Audit describes the Activity row written alongside a mutation. It is
// recorded against the owner of the affected record.
type Audit struct {
	Action    string
	Details   string
	IpAddress string
}

// CreateUserParams contains the parameters for registering a user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         models.Role
	FirstName    string
	LastName     string
	PhoneCode    string
	PhoneNumber  string
	Country      string
	Currency     string
	ReferralCode string
	ReferredBy   string
}

// UpdateProfileParams holds the user-editable profile fields. Nil fields are left unchanged.
type UpdateProfileParams struct {
	FirstName   *string
	LastName    *string
	PhoneCode   *string
	PhoneNumber *string
	Country     *string
	Currency    *string
}

// MovementParams describes a single balance mutation.
type MovementParams struct {
	UserId    string
	Asset     string
	Amount    decimal.Decimal // always positive; direction comes from the operation
	Reference string
}

// CreateDepositParams contains the parameters for a new deposit request.
type CreateDepositParams struct {
	UserId        string
	Asset         string
	Amount        decimal.Decimal
	Price         decimal.Decimal
	PaymentMethod models.PaymentMethod
	Gateway       string
	WalletAddress string
	TxHash        string
	Audit         Audit
}

// CreateWithdrawalParams contains the parameters for a new withdrawal request.
// Fee is computed by the caller from the asset fee schedule.
type CreateWithdrawalParams struct {
	UserId        string
	Asset         string
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Network       string
	WalletAddress string
	Audit         Audit
}

// RequestFilter narrows request listings. Zero values match everything.
type RequestFilter struct {
	UserId string
	Status string
	Limit  int
}

// CompleteDepositParams approves a pending deposit.
type CompleteDepositParams struct {
	DepositId   string
	ProcessedBy string
	TxHash      string
	Audit       Audit
}

// DeclineDepositParams moves a pending deposit to failed or cancelled.
type DeclineDepositParams struct {
	DepositId   string
	Status      models.DepositStatus
	ProcessedBy string
	Notes       string
	Audit       Audit
}

// CompleteWithdrawalParams approves a pending withdrawal.
type CompleteWithdrawalParams struct {
	WithdrawalId string
	ApprovedBy   string
	TxHash       string
	Audit        Audit
}

// RejectWithdrawalParams rejects a pending withdrawal.
type RejectWithdrawalParams struct {
	WithdrawalId string
	ApprovedBy   string
	Reason       string
	Audit        Audit
}

// ReplaceBalancesParams overwrites a user's entire balance map.
type ReplaceBalancesParams struct {
	UserId    string
	Balances  map[string]decimal.Decimal
	Reference string
	Audit     Audit
}

// UserStore persists accounts and their profile data.
type UserStore interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userId string, params UpdateProfileParams, audit Audit) (*models.User, error)
	UpdatePassword(ctx context.Context, userId, passwordHash string, audit Audit) error
	SetTwoFactor(ctx context.Context, userId string, enabled bool, code string, audit Audit) error
	RecordLogin(ctx context.Context, userId string, audit Audit) error
}

// LedgerStore maps (user, asset) to a non-negative balance.
type LedgerStore interface {
	GetUserBalance(ctx context.Context, userId, asset string) (decimal.Decimal, error)
	GetAllUserBalances(ctx context.Context, userId string) ([]models.AccountBalance, error)
	Credit(ctx context.Context, params MovementParams) (*models.LedgerEntry, error)
	Debit(ctx context.Context, params MovementParams) (*models.LedgerEntry, error)
	GetLedgerEntries(ctx context.Context, userId, asset string, limit, offset int) ([]models.LedgerEntry, error)
	ReconcileUserBalance(ctx context.Context, userId, asset string) error
}

// RequestStore persists deposit and withdrawal requests.
type RequestStore interface {
	CreateDeposit(ctx context.Context, params CreateDepositParams) (*models.DepositRequest, error)
	GetDeposit(ctx context.Context, depositId string) (*models.DepositRequest, error)
	ListDeposits(ctx context.Context, filter RequestFilter) ([]models.DepositRequest, error)
	CreateWithdrawal(ctx context.Context, params CreateWithdrawalParams) (*models.WithdrawalRequest, error)
	GetWithdrawal(ctx context.Context, withdrawalId string) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, filter RequestFilter) ([]models.WithdrawalRequest, error)
}

// SettlementStore applies request transitions together with their ledger
// effect and audit record in one storage transaction.
type SettlementStore interface {
	CompleteDeposit(ctx context.Context, params CompleteDepositParams) (*models.DepositRequest, error)
	DeclineDeposit(ctx context.Context, params DeclineDepositParams) (*models.DepositRequest, error)
	CompleteWithdrawal(ctx context.Context, params CompleteWithdrawalParams) (*models.WithdrawalRequest, error)
	RejectWithdrawal(ctx context.Context, params RejectWithdrawalParams) (*models.WithdrawalRequest, error)
	ReplaceBalances(ctx context.Context, params ReplaceBalancesParams) ([]models.LedgerEntry, error)
}

// ActivityStore reads the audit trail.
type ActivityStore interface {
	RecordActivity(ctx context.Context, userId string, audit Audit) error
	ListActivities(ctx context.Context, userId string, limit int) ([]models.Activity, error)
}

// Store is the full contract a backend must satisfy.
type Store interface {
	UserStore
	LedgerStore
	RequestStore
	SettlementStore
	ActivityStore

	Close()
}
