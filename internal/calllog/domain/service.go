package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type Repository interface {
	Create(ctx context.Context, call *CallLog) error
	FindByID(ctx context.Context, id snowflake.ID) (*CallLog, error)
	List(ctx context.Context, filter Filter, page pagination.Pagination) ([]*CallLog, pagination.PageInfo, error)
	Save(ctx context.Context, call *CallLog) error
	Delete(ctx context.Context, id snowflake.ID) (bool, error)
}

type Filter struct {
	Direction  string
	LoggedBy   string
	FollowUp   *bool
	CalledFrom *time.Time
	CalledTo   *time.Time
}

type CreateRequest struct {
	CallerName      string     `json:"caller_name"`
	CallerPhone     string     `json:"caller_phone"`
	Direction       string     `json:"direction"`
	DurationSeconds int        `json:"duration_seconds"`
	Summary         string     `json:"summary"`
	FollowUp        bool       `json:"follow_up"`
	CalledAt        *time.Time `json:"called_at"`
}

type UpdateRequest struct {
	ID              string  `json:"-"`
	CallerName      *string `json:"caller_name,omitempty"`
	CallerPhone     *string `json:"caller_phone,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
	Summary         *string `json:"summary,omitempty"`
	FollowUp        *bool   `json:"follow_up,omitempty"`
}

type ListRequest struct {
	pagination.Pagination
	Direction  string     `form:"direction"`
	LoggedBy   string     `form:"logged_by"`
	FollowUp   *bool      `form:"follow_up"`
	CalledFrom *time.Time `form:"called_from" time_format:"2006-01-02"`
	CalledTo   *time.Time `form:"called_to" time_format:"2006-01-02"`
}

type Response struct {
	ID              string    `json:"id"`
	CallerName      string    `json:"caller_name"`
	CallerPhone     string    `json:"caller_phone,omitempty"`
	Direction       string    `json:"direction"`
	DurationSeconds int       `json:"duration_seconds"`
	Summary         string    `json:"summary,omitempty"`
	FollowUp        bool      `json:"follow_up"`
	CalledAt        time.Time `json:"called_at"`
	LoggedBy        string    `json:"logged_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	CallLogs []Response `json:"call_logs"`
}
