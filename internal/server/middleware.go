package server

import (
	"errors"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
)

const (
	contextUserIDKey = "user_id"
	contextRoleKey   = "role"

	contextRecordTypeKey = "record_type"
)

// AuthRequired resolves the session cookie to a user and stores the actor
// on the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, authdomain.ErrSessionExpired) ||
				errors.Is(err, authdomain.ErrSessionRevoked) ||
				errors.Is(err, authdomain.ErrSessionNotFound) {
				s.sessions.Clear(c)
			}
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), principal.UserID, string(principal.Role))
		c.Request = c.Request.WithContext(ctx)

		c.Set(contextUserIDKey, principal.UserID)
		c.Set(contextRoleKey, string(principal.Role))
		c.Next()
	}
}

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(contextRoleKey)
		if role == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) userIDFromSession(c *gin.Context) (string, bool) {
	userID := c.GetString(contextUserIDKey)
	return userID, userID != ""
}

// tagRecordType labels request logs with the record family being served.
func tagRecordType(object string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextRecordTypeKey, object)
		c.Next()
	}
}
