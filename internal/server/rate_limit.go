package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginRateLimit rejects login bursts from one client or against one email.
// Limiter failures fail open so a redis outage does not lock everyone out.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.loginLimiter.Enabled() {
			c.Next()
			return
		}

		email := peekLoginEmail(c)
		res, err := s.loginLimiter.Allow(c.Request.Context(), c.ClientIP(), email)
		if err != nil {
			s.log.Warn("login rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func peekLoginEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var req LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	return req.Email
}
