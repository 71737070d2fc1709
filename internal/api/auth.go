package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"cryptolab-go/internal/auth"
	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"go.uber.org/zap"
)

type RegisterRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	PhoneCode    string `json:"phoneCode"`
	PhoneNumber  string `json:"phoneNumber"`
	Country      string `json:"country"`
	Currency     string `json:"currency"`
	ReferralCode string `json:"referralCode"`
}

type LoginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"twoFactorCode"`
}

type VerifyTwoFactorRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Session is a signed token and the account it was issued for
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, req RegisterRequest, ipAddress string) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if req.FirstName == "" || req.LastName == "" || email == "" || req.Password == "" ||
		req.PhoneNumber == "" || req.Country == "" {
		return nil, invalid("Please provide all required fields")
	}
	if len(req.Password) < auth.MinPasswordLength {
		return nil, invalid("Password must be at least %d characters", auth.MinPasswordLength)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	referralCode, err := auth.GenerateReferralCode()
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, store.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PhoneCode:    req.PhoneCode,
		PhoneNumber:  req.PhoneNumber,
		Country:      req.Country,
		Currency:     req.Currency,
		ReferralCode: referralCode,
		ReferredBy:   strings.TrimSpace(req.ReferralCode),
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}

	if err := s.store.RecordLogin(ctx, user.Id, store.Audit{
		Action:    "Account Created",
		Details:   "New user registration",
		IpAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}

	zap.L().Info("User registered", zap.String("user_id", user.Id), zap.String("email", email))
	return s.issueSession(ctx, user.Id)
}

func (s *Service) Login(ctx context.Context, req LoginRequest, ipAddress string) (*Session, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, invalid("Please provide email and password")
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		zap.L().Info("Login rejected", zap.String("user_id", user.Id), zap.String("ip", ipAddress))
		return nil, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			return nil, ErrTwoFactorRequired
		}
		if !sameCode(req.TwoFactorCode, user.TwoFactorCode) {
			return nil, ErrInvalidTwoFactor
		}
	}

	if err := s.store.RecordLogin(ctx, user.Id, store.Audit{
		Action:    "Login",
		Details:   "User logged in successfully",
		IpAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	return s.issueSession(ctx, user.Id)
}

// VerifyTwoFactor checks a code against the account without logging in
func (s *Service) VerifyTwoFactor(ctx context.Context, req VerifyTwoFactorRequest) error {
	if strings.TrimSpace(req.Email) == "" || req.Code == "" {
		return invalid("Email and 2FA code are required")
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownAccount
	}
	if err != nil {
		return fmt.Errorf("verify 2FA: %w", err)
	}
	if !user.TwoFactorEnabled {
		return invalid("2FA is not enabled for this account")
	}
	if !sameCode(req.Code, user.TwoFactorCode) {
		return ErrInvalidTwoFactor
	}
	return nil
}

func (s *Service) issueSession(ctx context.Context, userId string) (*Session, error) {
	user, err := s.store.GetUserById(ctx, userId)
	if err != nil {
		return nil, notFound("User", err)
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func sameCode(given, stored string) bool {
	return stored != "" && subtle.ConstantTimeCompare([]byte(given), []byte(stored)) == 1
}
