package server

import (
	"net/http"

	"cryptolab-go/internal/api"

	"github.com/gin-gonic/gin"
)

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.api.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(users), "users": users})
}

func (s *Server) getUserDetail(c *gin.Context) {
	detail, err := s.api.GetUserDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": detail.User, "balances": detail.Balances})
}

func (s *Server) setUserBalances(c *gin.Context) {
	var req api.SetBalancesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid balances data"})
		return
	}
	balances, err := s.api.SetUserBalances(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "User balances updated successfully",
		"balances": balances,
	})
}

func (s *Server) listTransactions(c *gin.Context) {
	transactions, err := s.api.ListAllTransactions(c.Request.Context(), c.Query("status"))
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(transactions), "transactions": transactions})
}

func (s *Server) listPendingWithdrawals(c *gin.Context) {
	withdrawals, err := s.api.ListPendingWithdrawals(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(withdrawals), "withdrawals": withdrawals})
}

func (s *Server) approveDeposit(c *gin.Context) {
	var req api.ApproveRequest
	if !bind(c, &req) {
		return
	}
	deposit, err := s.api.ApproveDeposit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Deposit approved successfully", "transaction": deposit})
}

func (s *Server) rejectDeposit(c *gin.Context) {
	var req api.RejectDepositRequest
	if !bind(c, &req) {
		return
	}
	deposit, err := s.api.RejectDeposit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Deposit rejected", "transaction": deposit})
}

func (s *Server) approveWithdrawal(c *gin.Context) {
	var req api.ApproveRequest
	if !bind(c, &req) {
		return
	}
	withdrawal, err := s.api.ApproveWithdrawal(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Withdrawal approved successfully", "withdrawal": withdrawal})
}

func (s *Server) rejectWithdrawal(c *gin.Context) {
	var req api.RejectWithdrawalRequest
	if !bind(c, &req) {
		return
	}
	withdrawal, err := s.api.RejectWithdrawal(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Withdrawal rejected", "withdrawal": withdrawal})
}
