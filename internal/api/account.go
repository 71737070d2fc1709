package api

import (
	"context"
	"fmt"
	"strings"

	"cryptolab-go/internal/auth"
	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"
)

type UpdateProfileRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneCode   string `json:"phoneCode"`
	PhoneNumber string `json:"phoneNumber"`
	Country     string `json:"country"`
	Currency    string `json:"currency"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// TwoFactorRequest carries the fields of the enable, disable and change
// calls; each uses the subset it needs
type TwoFactorRequest struct {
	Code     string `json:"code"`
	NewCode  string `json:"newCode"`
	Password string `json:"password"`
}

func (s *Service) GetProfile(ctx context.Context) (*models.User, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserById(ctx, actor.UserId)
	if err != nil {
		return nil, notFound("User", err)
	}
	return user, nil
}

// UpdateProfile changes only the fields given as non-empty strings
func (s *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*models.User, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.store.UpdateProfile(ctx, actor.UserId, store.UpdateProfileParams{
		FirstName:   optional(req.FirstName),
		LastName:    optional(req.LastName),
		PhoneCode:   optional(req.PhoneCode),
		PhoneNumber: optional(req.PhoneNumber),
		Country:     optional(req.Country),
		Currency:    optional(req.Currency),
	}, store.Audit{
		Action:    "Profile Update",
		Details:   "Updated personal information",
		IpAddress: actor.IpAddress,
	})
	if err != nil {
		return nil, notFound("User", err)
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	actor, err := caller(ctx)
	if err != nil {
		return err
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return invalid("All fields are required")
	}
	if len(req.NewPassword) < auth.MinPasswordLength {
		return invalid("New password must be at least %d characters", auth.MinPasswordLength)
	}

	user, err := s.store.GetUserById(ctx, actor.UserId)
	if err != nil {
		return notFound("User", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return ErrCurrentPassword
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, user.Id, hash, store.Audit{
		Action:    "Security Update",
		Details:   "Changed password",
		IpAddress: actor.IpAddress,
	}); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

func (s *Service) EnableTwoFactor(ctx context.Context, req TwoFactorRequest) error {
	if !auth.ValidTwoFactorCode(req.Code) {
		return invalid("Invalid 2FA code")
	}
	return s.setTwoFactor(ctx, req.Password, true, req.Code, "Enabled 2FA")
}

func (s *Service) DisableTwoFactor(ctx context.Context, req TwoFactorRequest) error {
	return s.setTwoFactor(ctx, req.Password, false, "", "Disabled 2FA")
}

func (s *Service) ChangeTwoFactor(ctx context.Context, req TwoFactorRequest) error {
	if !auth.ValidTwoFactorCode(req.NewCode) {
		return invalid("Invalid 2FA code")
	}
	return s.setTwoFactor(ctx, req.Password, true, req.NewCode, "Changed 2FA code")
}

// setTwoFactor re-checks the account password before touching 2FA settings
func (s *Service) setTwoFactor(ctx context.Context, password string, enabled bool, code, details string) error {
	actor, err := caller(ctx)
	if err != nil {
		return err
	}
	if password == "" {
		return invalid("Password is required")
	}

	user, err := s.store.GetUserById(ctx, actor.UserId)
	if err != nil {
		return notFound("User", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return ErrIncorrectPassword
	}

	if err := s.store.SetTwoFactor(ctx, user.Id, enabled, code, store.Audit{
		Action:    "Security Update",
		Details:   details,
		IpAddress: actor.IpAddress,
	}); err != nil {
		return fmt.Errorf("update 2FA: %w", err)
	}
	return nil
}

// GetActivities returns the caller's most recent audit records
func (s *Service) GetActivities(ctx context.Context) ([]models.Activity, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	activities, err := s.store.ListActivities(ctx, actor.UserId, maxActivities)
	if err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return activities, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
