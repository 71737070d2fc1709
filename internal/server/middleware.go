package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"cryptolab-go/internal/api"
	"cryptolab-go/internal/auth"
	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptolab_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cryptolab_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route"})
)

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		zap.L().Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// rateLimiter keeps one token bucket per client IP
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

const maxTrackedClients = 10000

func newRateLimiter(r rate.Limit, burst int) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			zap.L().Warn("Rate limit exceeded", zap.String("client_ip", c.ClientIP()), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// authenticate verifies the bearer token and attaches the account, as
// currently stored, to the request context as the acting principal
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c, "Not authorized, no token")
			return
		}

		claims, err := s.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			message := "Not authorized, token failed"
			if errors.Is(err, auth.ErrExpiredToken) {
				message = "Not authorized, token expired"
			}
			unauthorized(c, message)
			return
		}

		user, err := s.users.GetUserById(c.Request.Context(), claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			unauthorized(c, "User not found")
			return
		}
		if err != nil {
			s.fail(c, err, "Server error")
			c.Abort()
			return
		}

		ctx := models.WithActor(c.Request.Context(), &models.Actor{
			UserId:    user.Id,
			Email:     user.Email,
			Role:      user.Role,
			IpAddress: c.ClientIP(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := models.GetActor(c.Request.Context())
		if actor == nil || actor.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": api.ErrForbidden.Error(),
			})
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
}
