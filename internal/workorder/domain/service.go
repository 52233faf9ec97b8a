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
	Create(ctx context.Context, order *WorkOrder) error
	FindByID(ctx context.Context, id snowflake.ID) (*WorkOrder, error)
	List(ctx context.Context, filter Filter, page pagination.Pagination) ([]*WorkOrder, pagination.PageInfo, error)
	Save(ctx context.Context, order *WorkOrder) error
	Delete(ctx context.Context, id snowflake.ID) (bool, error)
}

type Filter struct {
	Number     string
	Status     string
	Priority   string
	AssigneeID *snowflake.ID
	// Overdue selects open orders whose due date is before this instant.
	Overdue *time.Time
}

type CreateRequest struct {
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	Description   string     `json:"description"`
	Priority      string     `json:"priority"`
	DueDate       *time.Time `json:"due_date"`
	AssigneeID    string     `json:"assignee_id"`
}

type UpdateRequest struct {
	ID            string     `json:"-"`
	CustomerName  *string    `json:"customer_name,omitempty"`
	CustomerPhone *string    `json:"customer_phone,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Priority      *string    `json:"priority,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	AssigneeID    *string    `json:"assignee_id,omitempty"`
}

type ChangeStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

type ListRequest struct {
	pagination.Pagination
	Number     string `form:"number"`
	Status     string `form:"status"`
	Priority   string `form:"priority"`
	AssigneeID string `form:"assignee_id"`
	Overdue    bool   `form:"overdue"`
}

type Response struct {
	ID            string                `json:"id"`
	Number        string                `json:"number"`
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone,omitempty"`
	Description   string                `json:"description"`
	Priority      string                `json:"priority"`
	DueDate       *time.Time            `json:"due_date,omitempty"`
	Status        string                `json:"status"`
	AssigneeID    string                `json:"assignee_id,omitempty"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
	StatusHistory []workflow.Transition `json:"status_history"`
	CreatedBy     string                `json:"created_by,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	WorkOrders []Response `json:"work_orders"`
}
