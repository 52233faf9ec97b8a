package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
)

func (s *Server) CurrentExchangeRate(c *gin.Context) {
	resp, err := s.exchangeRateSvc.Current(c.Request.Context())
	if err != nil {
		if errors.Is(err, exchangeratedomain.ErrNoRate) {
			AbortWithError(c, ErrNotFound)
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListExchangeRates(c *gin.Context) {
	var req exchangeratedomain.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rates, err := s.exchangeRateSvc.History(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rates})
}

func (s *Server) SetExchangeRate(c *gin.Context) {
	var req exchangeratedomain.SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.exchangeRateSvc.Set(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isExchangeRateValidationError(err error) bool {
	switch {
	case errors.Is(err, exchangeratedomain.ErrInvalidRate),
		errors.Is(err, exchangeratedomain.ErrInvalidCurrency):
		return true
	default:
		return false
	}
}
