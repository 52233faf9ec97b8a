package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	calllogdomain "github.com/smallbiznis/opsdesk/internal/calllog/domain"
)

func (s *Server) ListCallLogs(c *gin.Context) {
	var req calllogdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.callLogSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.CallLogs, "page_info": resp.PageInfo})
}

func (s *Server) CreateCallLog(c *gin.Context) {
	var req calllogdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.callLogSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCallLog(c *gin.Context) {
	resp, err := s.callLogSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCallLog(c *gin.Context) {
	var req calllogdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.callLogSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCallLog(c *gin.Context) {
	if err := s.callLogSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func isCallLogValidationError(err error) bool {
	switch {
	case errors.Is(err, calllogdomain.ErrInvalidID),
		errors.Is(err, calllogdomain.ErrInvalidCallerName),
		errors.Is(err, calllogdomain.ErrInvalidDirection),
		errors.Is(err, calllogdomain.ErrInvalidDuration):
		return true
	default:
		return false
	}
}
