package auth

import (
	"errors"
	"fmt"
	"time"

	"cryptolab-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid authentication token")
	ErrExpiredToken = errors.New("authentication token expired")
)

const defaultIssuer = "cryptolab"

// Claims is the session payload. The role is informational; admin checks
// re-read it from the store.
type Claims struct {
	UserID string      `json:"id"`
	Email  string      `json:"email,omitempty"`
	Role   models.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenManager(cfg models.AuthConfig) (*TokenManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token TTL must be positive, got %s", cfg.TokenTTL)
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

func (m *TokenManager) Issue(user *models.User) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: user.Id,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.Id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
