package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	"github.com/smallbiznis/opsdesk/internal/auth/session"
	"github.com/smallbiznis/opsdesk/internal/authorization"
	"github.com/smallbiznis/opsdesk/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	adminToken = "admin-token"
	staffToken = "staff-token"
)

type fakeAuth struct {
	authdomain.Service
	loginResult *authdomain.LoginResult
	loginErr    error
	loggedOut   []string
}

func (f *fakeAuth) Authenticate(ctx context.Context, rawToken string) (*authdomain.Principal, error) {
	switch rawToken {
	case adminToken:
		return &authdomain.Principal{UserID: "1001", Email: "admin@example.com", Role: authdomain.RoleAdmin}, nil
	case staffToken:
		return &authdomain.Principal{UserID: "1002", Email: "staff@example.com", Role: authdomain.RoleStaff}, nil
	default:
		return nil, authdomain.ErrSessionNotFound
	}
}

func (f *fakeAuth) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResult, nil
}

func (f *fakeAuth) Logout(ctx context.Context, rawToken string) error {
	f.loggedOut = append(f.loggedOut, rawToken)
	return nil
}

// fakeAuthz lets staff do everything except delete and administer users.
type fakeAuthz struct{}

func (fakeAuthz) Authorize(ctx context.Context, role string, object string, action string) error {
	if role == string(authdomain.RoleAdmin) {
		return nil
	}
	if action == authorization.ActionDelete || object == authorization.ObjectUser || object == authorization.ObjectAuditLog {
		return authorization.ErrForbidden
	}
	return nil
}

type fakeAudit struct {
	auditdomain.Service
	actions []string
}

func (f *fakeAudit) AuditLog(ctx context.Context, action string, targetType string, targetID *string, metadata map[string]any) error {
	f.actions = append(f.actions, action)
	return nil
}

func newTestServer(t *testing.T, configure func(*Server)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	s := &Server{
		engine:   engine,
		log:      zap.NewNop(),
		cfg:      config.Config{Environment: "test"},
		authsvc:  &fakeAuth{},
		sessions: session.NewManager(config.Config{}),
		authzSvc: fakeAuthz{},
		auditSvc: &fakeAudit{},
	}
	if configure != nil {
		configure(s)
	}

	s.registerAuthRoutes()
	s.registerAdminRoutes()
	s.registerFallback()
	return s
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token, Expires: time.Now().Add(time.Hour)})
	}

	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}
