package server

import (
	"context"
	"net/http"

	"cryptolab-go/internal/api"

	"github.com/gin-gonic/gin"
)

func (s *Server) getProfile(c *gin.Context) {
	user, err := s.api.GetProfile(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (s *Server) updateProfile(c *gin.Context) {
	var req api.UpdateProfileRequest
	if !bind(c, &req) {
		return
	}
	user, err := s.api.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully", "user": user})
}

func (s *Server) changePassword(c *gin.Context) {
	var req api.ChangePasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := s.api.ChangePassword(c.Request.Context(), req); err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed successfully"})
}

func (s *Server) enableTwoFactor(c *gin.Context) {
	s.twoFactor(c, s.api.EnableTwoFactor, "2FA enabled successfully")
}

func (s *Server) disableTwoFactor(c *gin.Context) {
	s.twoFactor(c, s.api.DisableTwoFactor, "2FA disabled successfully")
}

func (s *Server) changeTwoFactor(c *gin.Context) {
	s.twoFactor(c, s.api.ChangeTwoFactor, "2FA code changed successfully")
}

func (s *Server) twoFactor(c *gin.Context, op func(ctx context.Context, req api.TwoFactorRequest) error, message string) {
	var req api.TwoFactorRequest
	if !bind(c, &req) {
		return
	}
	if err := op(c.Request.Context(), req); err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

func (s *Server) getActivities(c *gin.Context) {
	activities, err := s.api.GetActivities(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activities": activities})
}
