package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	"github.com/smallbiznis/opsdesk/internal/auth/domain"
	"github.com/smallbiznis/opsdesk/internal/auth/password"
	"github.com/smallbiznis/opsdesk/internal/clock"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sessionTokenBytes = 32
	sessionTTL        = 7 * 24 * time.Hour
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
	Clock       clock.Clock         `optional:"true"`
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	clock       clock.Clock
	auditSvc    auditdomain.Service
}

func New(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:         p.Log.Named("auth.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		clock:       clk,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.UserResponse, error) {
	role := domain.RoleStaff
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	user, err := s.createUser(ctx, req.Email, req.Password, req.DisplayName, role, false)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "user.created", user.ID, map[string]any{
		"email": user.Email,
		"role":  string(user.Role),
	})

	resp := toResponse(user)
	return &resp, nil
}

// EnsureDefaultAdmin creates the bootstrap admin when no user exists yet.
// It returns nil when users are already present.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, email, rawPassword string) (*domain.UserResponse, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	user, err := s.createUser(ctx, email, rawPassword, "Administrator", domain.RoleAdmin, true)
	if err != nil {
		return nil, err
	}
	s.log.Info("default admin created", zap.String("user_id", user.ID.String()))

	resp := toResponse(user)
	return &resp, nil
}

func (s *Service) createUser(ctx context.Context, rawEmail, rawPassword, displayName string, role domain.Role, isDefault bool) (*domain.User, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if !password.Acceptable(rawPassword) {
		return nil, domain.ErrInvalidPassword
	}

	if _, err := s.repo.FindOne(ctx, domain.User{Email: email}); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = defaultDisplayName(email)
	}
	user := &domain.User{
		ID:           s.genID.Generate(),
		ExternalID:   uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: &hashed,
		Role:         role,
		IsActive:     true,
		IsDefault:    isDefault,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !isDefault {
		user.LastPasswordChanged = &now
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindOne(ctx, domain.User{Email: email})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		s.log.Info("login rejected", zap.String("user_id", user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	ctx = obscontext.WithActor(ctx, user.ID.String(), string(user.Role))
	s.audit(ctx, "user.login", user.ID, nil)

	return &domain.LoginResult{
		User:      toResponse(user),
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}

	return s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now())
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}

	now := s.clock.Now()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, err
	}

	return &domain.Principal{
		UserID:    user.ID.String(),
		SessionID: session.ID.String(),
		Email:     user.Email,
		Role:      user.Role,
	}, nil
}

func (s *Service) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	id, err := parseID(req.UserID)
	if err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.PasswordHash == nil || !password.Verify(req.CurrentPassword, *user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if !password.Acceptable(req.NewPassword) || req.NewPassword == req.CurrentPassword {
		return domain.ErrInvalidPassword
	}

	hashed, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, id, map[string]any{
		"password_hash":         hashed,
		"last_password_changed": &now,
		"is_default":            false,
		"updated_at":            now,
	}); err != nil {
		return err
	}

	s.audit(ctx, "user.password_changed", id, nil)
	return nil
}

func (s *Service) CurrentUser(ctx context.Context) (*domain.UserResponse, error) {
	actorID, _ := obscontext.ActorFromContext(ctx)
	if actorID == "" {
		return nil, domain.ErrInvalidSession
	}
	return s.GetUser(ctx, actorID)
}

func (s *Service) GetUser(ctx context.Context, id string) (*domain.UserResponse, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(user)
	return &resp, nil
}

func (s *Service) ListUsers(ctx context.Context, req domain.ListUsersRequest) ([]domain.UserResponse, error) {
	if strings.TrimSpace(req.Role) != "" {
		role, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, err
		}
		req.Role = string(role)
	}

	users, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toResponse(&users[i]))
	}
	return resp, nil
}

func (s *Service) UpdateRole(ctx context.Context, id string, rawRole string) (*domain.UserResponse, error) {
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return nil, err
	}
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		resp := toResponse(user)
		return &resp, nil
	}
	if user.Role == domain.RoleAdmin && user.IsActive {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"role": role, "updated_at": now}); err != nil {
		return nil, err
	}

	s.audit(ctx, "user.role_changed", userID, map[string]any{
		"from": string(user.Role),
		"to":   string(role),
	})

	user.Role = role
	user.UpdatedAt = now
	resp := toResponse(user)
	return &resp, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) (*domain.UserResponse, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		resp := toResponse(user)
		return &resp, nil
	}
	if user.Role == domain.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"is_active": false, "updated_at": now}); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.RevokeUserSessions(ctx, userID, now); err != nil {
		return nil, err
	}

	s.audit(ctx, "user.deactivated", userID, nil)

	user.IsActive = false
	user.UpdatedAt = now
	resp := toResponse(user)
	return &resp, nil
}

func (s *Service) ensureAnotherAdmin(ctx context.Context) error {
	admins, err := s.repo.CountActiveByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return domain.ErrLastAdmin
	}
	return nil
}

func (s *Service) audit(ctx context.Context, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	if err := s.auditSvc.AuditLog(ctx, action, "user", &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func toResponse(user *domain.User) domain.UserResponse {
	passwordState := "rotated"
	if user.IsDefault || user.LastPasswordChanged == nil {
		passwordState = "default"
	}
	return domain.UserResponse{
		ID:                  user.ID.String(),
		ExternalID:          user.ExternalID,
		Email:               user.Email,
		DisplayName:         user.DisplayName,
		Role:                user.Role,
		IsActive:            user.IsActive,
		PasswordState:       passwordState,
		LastPasswordChanged: user.LastPasswordChanged,
		CreatedAt:           user.CreatedAt,
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func defaultDisplayName(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
