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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cryptolab-go/internal/api"
	"cryptolab-go/internal/auth"
	"cryptolab-go/internal/common"
	"cryptolab-go/internal/config"
	"cryptolab-go/internal/server"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting CryptoLab API server",
		zap.String("environment", cfg.Environment),
		zap.String("mirror", cfg.Mirror.Backend))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		zap.L().Fatal("Failed to initialize token manager", zap.Error(err))
	}

	apiSvc := api.NewService(services.DbService, services.Engine, tokens, services.Catalog)
	srv := server.New(cfg, apiSvc, services.Prices, tokens, services.DbService).
		HTTPServer(fmt.Sprintf(":%d", cfg.Server.Port))

	errChan := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zap.L().Info("Shutdown signal received, stopping server...", zap.String("signal", sig.String()))
	case err := <-errChan:
		zap.L().Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
		return
	}
	zap.L().Info("Server stopped gracefully")
}
