package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/workflow"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	ChangeStatus(ctx context.Context, req ChangeStatusRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type Repository interface {
	Create(ctx context.Context, inquiry *Inquiry) error
	FindByID(ctx context.Context, id snowflake.ID) (*Inquiry, error)
	List(ctx context.Context, filter Filter, page pagination.Pagination) ([]*Inquiry, pagination.PageInfo, error)
	Save(ctx context.Context, inquiry *Inquiry) error
	Delete(ctx context.Context, id snowflake.ID) (bool, error)
}

type Filter struct {
	Status     string
	Source     string
	AssigneeID *snowflake.ID
}

type CreateRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Subject       string `json:"subject"`
	Message       string `json:"message"`
	Source        string `json:"source"`
	AssigneeID    string `json:"assignee_id"`
	Notes         string `json:"notes"`
}

type UpdateRequest struct {
	ID            string  `json:"-"`
	CustomerName  *string `json:"customer_name,omitempty"`
	CustomerEmail *string `json:"customer_email,omitempty"`
	CustomerPhone *string `json:"customer_phone,omitempty"`
	Subject       *string `json:"subject,omitempty"`
	Message       *string `json:"message,omitempty"`
	AssigneeID    *string `json:"assignee_id,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

type ChangeStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

type ListRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	Source     string `form:"source"`
	AssigneeID string `form:"assignee_id"`
}

type Response struct {
	ID            string                `json:"id"`
	CustomerName  string                `json:"customer_name"`
	CustomerEmail string                `json:"customer_email,omitempty"`
	CustomerPhone string                `json:"customer_phone,omitempty"`
	Subject       string                `json:"subject"`
	Message       string                `json:"message,omitempty"`
	Source        string                `json:"source"`
	Status        string                `json:"status"`
	AssigneeID    string                `json:"assignee_id,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	StatusHistory []workflow.Transition `json:"status_history"`
	CreatedBy     string                `json:"created_by,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Inquiries []Response `json:"inquiries"`
}
