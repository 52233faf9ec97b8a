package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	inquirydomain "github.com/smallbiznis/opsdesk/internal/inquiry/domain"
)

func (s *Server) ListInquiries(c *gin.Context) {
	var req inquirydomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inquirySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Inquiries, "page_info": resp.PageInfo})
}

func (s *Server) CreateInquiry(c *gin.Context) {
	var req inquirydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inquirySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInquiry(c *gin.Context) {
	resp, err := s.inquirySvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInquiry(c *gin.Context) {
	var req inquirydomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.inquirySvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ChangeInquiryStatus(c *gin.Context) {
	var req inquirydomain.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.inquirySvc.ChangeStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInquiry(c *gin.Context) {
	if err := s.inquirySvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func isInquiryValidationError(err error) bool {
	switch {
	case errors.Is(err, inquirydomain.ErrInvalidID),
		errors.Is(err, inquirydomain.ErrInvalidCustomerName),
		errors.Is(err, inquirydomain.ErrInvalidCustomerEmail),
		errors.Is(err, inquirydomain.ErrInvalidSubject),
		errors.Is(err, inquirydomain.ErrInvalidSource):
		return true
	default:
		return false
	}
}
