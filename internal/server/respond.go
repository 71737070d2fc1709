package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"cryptolab-go/internal/api"
	"cryptolab-go/internal/auth"
	"cryptolab-go/internal/prices"
	"cryptolab-go/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// classify maps an error to its HTTP status and client message. ok is false
// for unexpected errors, which get the caller's fallback message.
func classify(err error) (status int, message string, ok bool) {
	var validation *api.ValidationError
	var authErr *api.AuthError
	var missing *api.NotFoundError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message, true
	case errors.Is(err, api.ErrTwoFactorRequired):
		return http.StatusForbidden, api.ErrTwoFactorRequired.Error(), true
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.Message, true
	case errors.Is(err, auth.ErrExpiredToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Not authorized, token failed", true
	case errors.Is(err, api.ErrForbidden):
		return http.StatusForbidden, api.ErrForbidden.Error(), true
	case errors.As(err, &missing):
		return http.StatusNotFound, missing.Error(), true
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found", true
	case errors.Is(err, prices.ErrUnknownSymbol):
		return http.StatusNotFound, "Cryptocurrency not found", true
	case errors.Is(err, prices.ErrUnavailable):
		return http.StatusNotFound, "Price data not available", true
	case errors.Is(err, store.ErrInsufficientFunds):
		return http.StatusBadRequest, "Insufficient balance", true
	case errors.Is(err, store.ErrInvalidStateTransition):
		return http.StatusBadRequest, "Request already processed", true
	case errors.Is(err, store.ErrInvalidAmount):
		return http.StatusBadRequest, "Amount must be greater than zero", true
	case errors.Is(err, store.ErrEmailTaken):
		return http.StatusBadRequest, "User already exists with this email", true
	}
	return http.StatusInternalServerError, "", false
}

// fail writes the error response for err
func (s *Server) fail(c *gin.Context, err error, fallback string) {
	status, message, ok := classify(err)
	body := gin.H{"success": false}

	if ok {
		body["message"] = message
		if errors.Is(err, api.ErrTwoFactorRequired) {
			body["requires2FA"] = true
		}
	} else {
		zap.L().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		body["message"] = fallback
		if s.cfg.IsDevelopment() {
			body["error"] = err.Error()
		}
	}

	c.JSON(status, body)
}

func (s *Server) recovered(c *gin.Context, recovered any) {
	zap.L().Error("Panic while serving request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Any("panic", recovered))

	body := gin.H{"success": false, "message": "Something went wrong!"}
	if s.cfg.IsDevelopment() {
		body["error"] = fmt.Sprint(recovered)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

// bind decodes the JSON body into req; an empty body leaves req unchanged
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return false
	}
	return true
}
