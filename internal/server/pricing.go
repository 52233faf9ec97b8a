package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	pricingdomain "github.com/smallbiznis/opsdesk/internal/pricing/domain"
)

func (s *Server) CalculateInvoice(c *gin.Context) {
	var req pricingdomain.InvoiceCalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.CalculateInvoice(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CalculateAmazon(c *gin.Context) {
	var req pricingdomain.AmazonCalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.CalculateAmazon(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DefaultAmazonMarkup(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("cost_usd"))
	if raw == "" {
		AbortWithError(c, newValidationError("cost_usd", "required", "cost_usd is required"))
		return
	}
	cost, err := decimal.NewFromString(raw)
	if err != nil {
		AbortWithError(c, newValidationError("cost_usd", "invalid_cost_usd", "invalid cost_usd"))
		return
	}

	resp, err := s.pricingSvc.DefaultAmazonMarkup(c.Request.Context(), cost)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SavePricingSession(c *gin.Context) {
	var req pricingdomain.SaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.SaveSession(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPricingSessions(c *gin.Context) {
	var req pricingdomain.ListSessionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.ListSessions(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Sessions, "page_info": resp.PageInfo})
}

func (s *Server) GetPricingSession(c *gin.Context) {
	resp, err := s.pricingSvc.GetSession(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportPricingSessionPDF(c *gin.Context) {
	doc, err := s.pricingSvc.ExportSessionPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writePDF(c, doc.Filename, doc.Content)
}

func (s *Server) DeletePricingSession(c *gin.Context) {
	if err := s.pricingSvc.DeleteSession(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func writePDF(c *gin.Context, filename string, content []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", content)
}

func isPricingValidationError(err error) bool {
	switch {
	case errors.Is(err, pricingdomain.ErrInvalidExchangeRate),
		errors.Is(err, pricingdomain.ErrInvalidCost),
		errors.Is(err, pricingdomain.ErrInvalidMarkup),
		errors.Is(err, pricingdomain.ErrInvalidRoundingUnit),
		errors.Is(err, pricingdomain.ErrInvalidQuantity),
		errors.Is(err, pricingdomain.ErrInvalidCategory),
		errors.Is(err, pricingdomain.ErrInvalidMode),
		errors.Is(err, pricingdomain.ErrInvalidTitle),
		errors.Is(err, pricingdomain.ErrEmptyItems),
		errors.Is(err, pricingdomain.ErrInvalidID),
		errors.Is(err, exchangeratedomain.ErrNoRate):
		return true
	default:
		return false
	}
}
