package server

import (
	"context"
	"net/http"
	"time"

	"cryptolab-go/internal/api"
	"cryptolab-go/internal/auth"
	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const apiVersion = "1.0.0"

// PriceSource is the market data the public crypto routes serve
type PriceSource interface {
	GetPrices(ctx context.Context) (map[string]models.Quote, error)
	GetPrice(ctx context.Context, symbol string) (models.Quote, error)
	GetMarkets(ctx context.Context) ([]models.Market, error)
}

type Server struct {
	api     *api.Service
	prices  PriceSource
	tokens  *auth.TokenManager
	users   store.UserStore
	cfg     *models.Config
	limiter *rateLimiter
}

func New(cfg *models.Config, svc *api.Service, prices PriceSource, tokens *auth.TokenManager, users store.UserStore) *Server {
	s := &Server{
		api:    svc,
		prices: prices,
		tokens: tokens,
		users:  users,
		cfg:    cfg,
	}
	if cfg.Server.RateLimitRPS > 0 {
		s.limiter = newRateLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
	}
	return s
}

// HTTPServer wraps the router in an http.Server using the configured timeouts
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.CustomRecovery(s.recovered))
	router.Use(accessLog(), observe(), cors(s.cfg.Server.FrontendURL))
	if s.limiter != nil {
		router.Use(s.limiter.middleware())
	}

	router.GET("/", s.root)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("/api")
	{
		public.GET("/health", s.health)

		authRoutes := public.Group("/auth")
		authRoutes.POST("/register", s.register)
		authRoutes.POST("/login", s.login)
		authRoutes.POST("/verify-2fa", s.verifyTwoFactor)

		crypto := public.Group("/crypto")
		crypto.GET("/prices", s.getPrices)
		crypto.GET("/price/:symbol", s.getPrice)
		crypto.GET("/markets", s.getMarkets)
	}

	protected := router.Group("/api", s.authenticate())
	{
		user := protected.Group("/user")
		user.GET("/profile", s.getProfile)
		user.PUT("/profile", s.updateProfile)
		user.PUT("/password", s.changePassword)
		user.POST("/2fa/enable", s.enableTwoFactor)
		user.POST("/2fa/disable", s.disableTwoFactor)
		user.PUT("/2fa/change", s.changeTwoFactor)
		user.GET("/activities", s.getActivities)

		wallet := protected.Group("/wallet")
		wallet.GET("/balance", s.getBalance)
		wallet.GET("/transactions", s.getTransactions)
		wallet.GET("/addresses", s.getAddresses)
		wallet.POST("/deposit", s.submitDeposit)
		wallet.POST("/withdrawal", s.submitWithdrawal)

		protected.POST("/trade/order", s.tradeOrder)
	}

	adminRoutes := router.Group("/api/admin", s.authenticate(), requireAdmin())
	{
		adminRoutes.GET("/users", s.listUsers)
		adminRoutes.GET("/users/:id", s.getUserDetail)
		adminRoutes.PUT("/users/:id/balances", s.setUserBalances)
		adminRoutes.GET("/transactions", s.listTransactions)
		adminRoutes.GET("/withdrawals", s.listPendingWithdrawals)
		adminRoutes.GET("/withdrawals/pending", s.listPendingWithdrawals)

		adminRoutes.PUT("/deposit/:id/approve", s.approveDeposit)
		adminRoutes.POST("/deposits/:id/approve", s.approveDeposit)
		adminRoutes.PUT("/deposit/:id/reject", s.rejectDeposit)
		adminRoutes.POST("/deposits/:id/reject", s.rejectDeposit)
		adminRoutes.PUT("/withdrawal/:id/approve", s.approveWithdrawal)
		adminRoutes.POST("/withdrawals/:id/approve", s.approveWithdrawal)
		adminRoutes.PUT("/withdrawal/:id/reject", s.rejectWithdrawal)
		adminRoutes.POST("/withdrawals/:id/reject", s.rejectWithdrawal)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success":      false,
			"message":      "Route not found",
			"requestedUrl": c.Request.URL.String(),
		})
	})

	return router
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Cryptolab API is running!",
		"version":   apiVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) health(c *gin.Context) {
	if err := s.api.HealthCheck(c.Request.Context()); err != nil {
		s.fail(c, err, "Service unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) tradeOrder(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Trade order endpoint"})
}
