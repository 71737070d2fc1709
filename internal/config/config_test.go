package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("LEDGER_MIRROR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Expected development environment, got %q", cfg.Environment)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Server.FrontendURL != "http://localhost:5173" {
		t.Errorf("Unexpected frontend URL %q", cfg.Server.FrontendURL)
	}
	if cfg.Auth.TokenTTL != 720*time.Hour {
		t.Errorf("Expected 720h token TTL, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Error("Expected a development secret")
	}
	if cfg.Mirror.Backend != MirrorNone {
		t.Errorf("Expected mirror %q, got %q", MirrorNone, cfg.Mirror.Backend)
	}
	if cfg.Prices.CoinGeckoURL != "https://api.coingecko.com/api/v3" {
		t.Errorf("Unexpected CoinGecko URL %q", cfg.Prices.CoinGeckoURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_PATH", "/tmp/ledger.db")
	t.Setenv("PRICE_CACHE_TTL", "1m")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("LEDGER_MIRROR", "formance")
	t.Setenv("FORMANCE_STACK_URL", "http://localhost:3068")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.IsDevelopment() {
		t.Error("Expected production config")
	}
	if cfg.Server.Port != 8080 || cfg.Database.Path != "/tmp/ledger.db" {
		t.Errorf("Overrides not applied: port=%d path=%q", cfg.Server.Port, cfg.Database.Path)
	}
	if cfg.Prices.CacheTTL != time.Minute {
		t.Errorf("Expected 1m cache TTL, got %s", cfg.Prices.CacheTTL)
	}
	if cfg.Server.RateLimitRPS != 2.5 {
		t.Errorf("Expected 2.5 rps, got %v", cfg.Server.RateLimitRPS)
	}
	if cfg.Mirror.Backend != MirrorFormance || cfg.Mirror.Formance.LedgerName != "cryptolab" {
		t.Errorf("Unexpected mirror config %+v", cfg.Mirror)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"JWT_TTL": "forever"}},
		{"bad rate", map[string]string{"RATE_LIMIT_RPS": "fast"}},
		{"production without secret", map[string]string{"APP_ENV": "production", "JWT_SECRET": ""}},
		{"unknown mirror", map[string]string{"LEDGER_MIRROR": "postgres"}},
		{"formance without url", map[string]string{"LEDGER_MIRROR": "formance", "FORMANCE_STACK_URL": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "development")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}
