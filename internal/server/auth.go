package server

import (
	"net/http"

	"cryptolab-go/internal/api"

	"github.com/gin-gonic/gin"
)

func (s *Server) register(c *gin.Context) {
	var req api.RegisterRequest
	if !bind(c, &req) {
		return
	}
	session, err := s.api.Register(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		s.fail(c, err, "Server error during registration")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration successful",
		"token":   session.Token,
		"user":    session.User,
	})
}

func (s *Server) login(c *gin.Context) {
	var req api.LoginRequest
	if !bind(c, &req) {
		return
	}
	session, err := s.api.Login(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		s.fail(c, err, "Server error during login")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   session.Token,
		"user":    session.User,
	})
}

func (s *Server) verifyTwoFactor(c *gin.Context) {
	var req api.VerifyTwoFactorRequest
	if !bind(c, &req) {
		return
	}
	if err := s.api.VerifyTwoFactor(c.Request.Context(), req); err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "2FA verification successful"})
}
