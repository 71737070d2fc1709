/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cryptolab-go/internal/models"
)

const (
	MirrorNone     = "none"
	MirrorFormance = "formance"

	// devSecret is only accepted outside production
	devSecret = "cryptolab-dev-secret"
)

func Load() (*models.Config, error) {
	environment := strings.ToLower(getEnvString("APP_ENV", getEnvString("NODE_ENV", "development")))

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	busyTimeout, err := getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	tokenTTL, err := getEnvDuration("JWT_TTL", 720*time.Hour)
	if err != nil {
		return nil, err
	}

	priceCacheTTL, err := getEnvDuration("PRICE_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	priceTimeout, err := getEnvDuration("PRICE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	rateLimitRPS, err := getEnvFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, err
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		secret = devSecret
	}

	mirror := strings.ToLower(getEnvString("LEDGER_MIRROR", MirrorNone))
	if mirror != MirrorNone && mirror != MirrorFormance {
		return nil, fmt.Errorf("invalid LEDGER_MIRROR %q: expected %s or %s", mirror, MirrorNone, MirrorFormance)
	}

	cfg := &models.Config{
		Environment: environment,
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "cryptolab.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			BusyTimeout:     busyTimeout,
		},
		Server: models.ServerConfig{
			Port:            getEnvInt("PORT", 5000),
			FrontendURL:     getEnvString("FRONTEND_URL", "http://localhost:5173"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			RateLimitRPS:    rateLimitRPS,
			RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 40),
		},
		Auth: models.AuthConfig{
			JWTSecret: secret,
			TokenTTL:  tokenTTL,
			Issuer:    getEnvString("JWT_ISSUER", "cryptolab"),
		},
		Prices: models.PriceConfig{
			CoinGeckoURL: getEnvString("COINGECKO_API_URL", "https://api.coingecko.com/api/v3"),
			BinanceURL:   getEnvString("BINANCE_API_URL", "https://api.binance.com"),
			CacheTTL:     priceCacheTTL,
			Timeout:      priceTimeout,
		},
		Mirror: models.MirrorConfig{
			Backend: mirror,
			Formance: models.FormanceConfig{
				StackURL:     os.Getenv("FORMANCE_STACK_URL"),
				ClientID:     os.Getenv("FORMANCE_CLIENT_ID"),
				ClientSecret: os.Getenv("FORMANCE_CLIENT_SECRET"),
				LedgerName:   getEnvString("FORMANCE_LEDGER", "cryptolab"),
			},
		},
		AssetsFile: getEnvString("ASSETS_FILE", "assets.yaml"),
	}

	if cfg.Mirror.Backend == MirrorFormance && cfg.Mirror.Formance.StackURL == "" {
		return nil, fmt.Errorf("FORMANCE_STACK_URL is required when LEDGER_MIRROR=%s", MirrorFormance)
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q (%w)", key, value, err)
		}
		return floatValue, nil
	}
	return defaultValue, nil
}
