package server

import (
	"net/http"

	"cryptolab-go/internal/api"

	"github.com/gin-gonic/gin"
)

func (s *Server) getBalance(c *gin.Context) {
	balances, err := s.api.GetBalances(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "balances": balances})
}

func (s *Server) getTransactions(c *gin.Context) {
	transactions, err := s.api.GetTransactions(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": transactions})
}

func (s *Server) getAddresses(c *gin.Context) {
	addresses, err := s.api.ListDepositAddresses(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "addresses": addresses})
}

func (s *Server) submitDeposit(c *gin.Context) {
	var req api.DepositRequest
	if !bind(c, &req) {
		return
	}
	deposit, err := s.api.SubmitDeposit(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Deposit request submitted. Awaiting admin confirmation.",
		"transaction": deposit,
	})
}

func (s *Server) submitWithdrawal(c *gin.Context) {
	var req api.WithdrawalRequest
	if !bind(c, &req) {
		return
	}
	withdrawal, err := s.api.SubmitWithdrawal(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Withdrawal request submitted. Awaiting admin approval.",
		"withdrawal": withdrawal,
	})
}
