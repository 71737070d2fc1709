package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) getPrices(c *gin.Context) {
	quotes, err := s.prices.GetPrices(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to fetch crypto prices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "prices": quotes})
}

func (s *Server) getPrice(c *gin.Context) {
	quote, err := s.prices.GetPrice(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		s.fail(c, err, "Failed to fetch price")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "price": quote})
}

func (s *Server) getMarkets(c *gin.Context) {
	markets, err := s.prices.GetMarkets(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to fetch market data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "markets": markets})
}
