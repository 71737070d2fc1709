package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a registered account holder. Users are never deleted.
type User struct {
	Id               string     `db:"id" json:"_id"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Role             Role       `db:"role" json:"role"`
	FirstName        string     `db:"first_name" json:"firstName"`
	LastName         string     `db:"last_name" json:"lastName"`
	PhoneCode        string     `db:"phone_code" json:"phoneCode"`
	PhoneNumber      string     `db:"phone_number" json:"phoneNumber"`
	Country          string     `db:"country" json:"country"`
	Currency         string     `db:"currency" json:"currency"`
	ReferralCode     string     `db:"referral_code" json:"referralCode"`
	ReferredBy       string     `db:"referred_by" json:"referredBy,omitempty"`
	TwoFactorEnabled bool       `db:"two_factor_enabled" json:"twoFactorEnabled"`
	TwoFactorCode    string     `db:"two_factor_code" json:"-"`
	LastLogin        *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName joins first and last name, tolerating either being empty
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// UserSummary is the owner information embedded in admin request listings
type UserSummary struct {
	Id        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// AccountBalance represents current balance state (hot data)
type AccountBalance struct {
	Id          string          `db:"id"`
	UserId      string          `db:"user_id"`
	Asset       string          `db:"asset"`
	Balance     decimal.Decimal `db:"balance"`
	LastEntryId string          `db:"last_entry_id"`
	Version     int64           `db:"version"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

type EntryType string

const (
	EntryCredit     EntryType = "credit"
	EntryDebit      EntryType = "debit"
	EntryAdjustment EntryType = "adjustment"
)

// LedgerEntry is an immutable record of one balance mutation (cold data).
// Amount is signed: positive for credits, negative for debits.
type LedgerEntry struct {
	Id            string          `db:"id"`
	UserId        string          `db:"user_id"`
	Asset         string          `db:"asset"`
	EntryType     EntryType       `db:"entry_type"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	Reference     string          `db:"reference"`
	CreatedAt     time.Time       `db:"created_at"`
}

type PaymentMethod string

const (
	PaymentWallet  PaymentMethod = "wallet"
	PaymentGateway PaymentMethod = "gateway"
)

// DepositRequest is a user's claim that funds were sent; it credits the
// ledger only once an admin approves it.
type DepositRequest struct {
	Id            string          `db:"id" json:"_id"`
	UserId        string          `db:"user_id" json:"userId"`
	User          *UserSummary    `json:"user,omitempty"`
	Asset         string          `db:"asset" json:"asset"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Price         decimal.Decimal `db:"price" json:"price"`
	Total         decimal.Decimal `db:"total" json:"total"`
	Status        DepositStatus   `db:"status" json:"status"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	Gateway       string          `db:"gateway" json:"gateway,omitempty"`
	WalletAddress string          `db:"wallet_address" json:"walletAddress,omitempty"`
	TxHash        string          `db:"tx_hash" json:"txHash,omitempty"`
	Notes         string          `db:"notes" json:"notes,omitempty"`
	ProcessedBy   string          `db:"processed_by" json:"processedBy,omitempty"`
	ProcessedAt   *time.Time      `db:"processed_at" json:"processedAt,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// WithdrawalRequest asks for `Amount` to leave the user's balance; Total is
// what reaches the destination after Fee.
type WithdrawalRequest struct {
	Id              string           `db:"id" json:"_id"`
	UserId          string           `db:"user_id" json:"userId"`
	User            *UserSummary     `json:"user,omitempty"`
	Asset           string           `db:"asset" json:"asset"`
	Amount          decimal.Decimal  `db:"amount" json:"amount"`
	Fee             decimal.Decimal  `db:"fee" json:"fee"`
	Total           decimal.Decimal  `db:"total" json:"total"`
	Network         string           `db:"network" json:"network"`
	WalletAddress   string           `db:"wallet_address" json:"walletAddress"`
	Status          WithdrawalStatus `db:"status" json:"status"`
	TxHash          string           `db:"tx_hash" json:"txHash,omitempty"`
	RejectionReason string           `db:"rejection_reason" json:"rejectionReason,omitempty"`
	ApprovedBy      string           `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time       `db:"approved_at" json:"approvedAt,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updatedAt"`
}

// Activity is an append-only audit record
type Activity struct {
	Id        string    `db:"id" json:"_id"`
	UserId    string    `db:"user_id" json:"userId"`
	Action    string    `db:"action" json:"action"`
	Details   string    `db:"details" json:"details"`
	IpAddress string    `db:"ip_address" json:"ipAddress,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}
