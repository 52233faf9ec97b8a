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
	Create(ctx context.Context, ticket *Ticket) error
	FindByID(ctx context.Context, id snowflake.ID) (*Ticket, error)
	List(ctx context.Context, filter Filter, page pagination.Pagination) ([]*Ticket, pagination.PageInfo, error)
	Save(ctx context.Context, ticket *Ticket) error
	Delete(ctx context.Context, id snowflake.ID) (bool, error)
}

type Filter struct {
	Status     string
	Priority   string
	AssigneeID *snowflake.ID
	// OpenOnly restricts the result to non-terminal statuses.
	OpenOnly bool
}

type CreateRequest struct {
	Subject       string `json:"subject"`
	Description   string `json:"description"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Priority      string `json:"priority"`
	AssigneeID    string `json:"assignee_id"`
}

type UpdateRequest struct {
	ID            string  `json:"-"`
	Subject       *string `json:"subject,omitempty"`
	Description   *string `json:"description,omitempty"`
	CustomerName  *string `json:"customer_name,omitempty"`
	CustomerEmail *string `json:"customer_email,omitempty"`
	Priority      *string `json:"priority,omitempty"`
	AssigneeID    *string `json:"assignee_id,omitempty"`
}

type ChangeStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

type ListRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	Priority   string `form:"priority"`
	AssigneeID string `form:"assignee_id"`
	OpenOnly   bool   `form:"open"`
}

type Response struct {
	ID            string                `json:"id"`
	Subject       string                `json:"subject"`
	Description   string                `json:"description,omitempty"`
	CustomerName  string                `json:"customer_name,omitempty"`
	CustomerEmail string                `json:"customer_email,omitempty"`
	Priority      string                `json:"priority"`
	Status        string                `json:"status"`
	AssigneeID    string                `json:"assignee_id,omitempty"`
	ResolvedAt    *time.Time            `json:"resolved_at,omitempty"`
	StatusHistory []workflow.Transition `json:"status_history"`
	CreatedBy     string                `json:"created_by,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Tickets []Response `json:"tickets"`
}
