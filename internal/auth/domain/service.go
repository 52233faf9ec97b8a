package domain

import (
	"context"
	"time"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	EnsureDefaultAdmin(ctx context.Context, email, password string) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	// Authenticate resolves a raw session token to its active user.
	Authenticate(ctx context.Context, rawToken string) (*Principal, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	CurrentUser(ctx context.Context) (*UserResponse, error)

	GetUser(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, req ListUsersRequest) ([]UserResponse, error)
	UpdateRole(ctx context.Context, id string, role string) (*UserResponse, error)
	Deactivate(ctx context.Context, id string) (*UserResponse, error)
}

type CreateUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type ChangePasswordRequest struct {
	UserID          string `json:"-"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ListUsersRequest struct {
	Role     string `form:"role"`
	IsActive *bool  `form:"is_active"`
}

type LoginResult struct {
	User      UserResponse
	RawToken  string
	ExpiresAt time.Time
}

// Principal is the authenticated caller behind a session.
type Principal struct {
	UserID    string
	SessionID string
	Email     string
	Role      Role
}

type UserResponse struct {
	ID                  string     `json:"id"`
	ExternalID          string     `json:"external_id"`
	Email               string     `json:"email"`
	DisplayName         string     `json:"display_name"`
	Role                Role       `json:"role"`
	IsActive            bool       `json:"is_active"`
	PasswordState       string     `json:"password_state"`
	LastPasswordChanged *time.Time `json:"last_password_changed,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}
