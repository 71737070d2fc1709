package auth

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"cryptolab-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(models.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	return m
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)
	user := &models.User{Id: "user-1", Email: "a@example.com", Role: models.RoleAdmin}

	token, err := m.Issue(user)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, defaultIssuer, claims.Issuer)
}

func TestVerify_Expired(t *testing.T) {
	m := newTestManager(t)
	issuedAt := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issuedAt }
	token, err := m.Issue(&models.User{Id: "user-1"})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(token)
	assert.True(t, errors.Is(err, ErrExpiredToken), "got %v", err)
}

func TestVerify_WrongSecret(t *testing.T) {
	m := newTestManager(t)
	token, err := m.Issue(&models.User{Id: "user-1"})
	require.NoError(t, err)

	other, err := NewTokenManager(models.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
}

func TestVerify_Garbage(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Verify("not-a-token")
	assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
}

func TestNewTokenManager_Validation(t *testing.T) {
	_, err := NewTokenManager(models.AuthConfig{TokenTTL: time.Hour})
	assert.Error(t, err)
	_, err = NewTokenManager(models.AuthConfig{JWTSecret: "s"})
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
	assert.False(t, CheckPassword("not-a-hash", "secret1"))
}

func TestGenerateReferralCode(t *testing.T) {
	code, err := GenerateReferralCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}$`), code)
}

func TestValidTwoFactorCode(t *testing.T) {
	assert.True(t, ValidTwoFactorCode("123456"))
	assert.False(t, ValidTwoFactorCode("12345"))
	assert.False(t, ValidTwoFactorCode("12345a"))
	assert.False(t, ValidTwoFactorCode("1234567"))
}
