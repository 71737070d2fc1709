package models

import "time"

// Config represents the application configuration
type Config struct {
	Environment string
	Database    DatabaseConfig
	Server      ServerConfig
	Auth        AuthConfig
	Prices      PriceConfig
	Mirror      MirrorConfig
	AssetsFile  string
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port            int
	FrontendURL     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// AuthConfig holds session token settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Issuer    string
}

// PriceConfig holds market data client settings
type PriceConfig struct {
	CoinGeckoURL string
	BinanceURL   string
	CacheTTL     time.Duration
	Timeout      time.Duration
}

// MirrorConfig selects the optional external journal
type MirrorConfig struct {
	Backend  string // "none" or "formance"
	Formance FormanceConfig
}

// FormanceConfig holds Formance Stack connection settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}
