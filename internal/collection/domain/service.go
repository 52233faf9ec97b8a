package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
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
	Create(ctx context.Context, collection *Collection) error
	FindByID(ctx context.Context, id snowflake.ID) (*Collection, error)
	List(ctx context.Context, filter Filter, page pagination.Pagination) ([]*Collection, pagination.PageInfo, error)
	Save(ctx context.Context, collection *Collection) error
	Delete(ctx context.Context, id snowflake.ID) (bool, error)
}

type Filter struct {
	Status        string
	Method        string
	CollectedBy   string
	CollectedFrom *time.Time
	CollectedTo   *time.Time
}

type CreateRequest struct {
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Method       string          `json:"method"`
	Reference    string          `json:"reference"`
	Notes        string          `json:"notes"`
	CollectedAt  *time.Time      `json:"collected_at"`
}

type UpdateRequest struct {
	ID           string           `json:"-"`
	CustomerName *string          `json:"customer_name,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Method       *string          `json:"method,omitempty"`
	Reference    *string          `json:"reference,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
}

type ChangeStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

type ListRequest struct {
	pagination.Pagination
	Status        string     `form:"status"`
	Method        string     `form:"method"`
	CollectedBy   string     `form:"collected_by"`
	CollectedFrom *time.Time `form:"collected_from" time_format:"2006-01-02"`
	CollectedTo   *time.Time `form:"collected_to" time_format:"2006-01-02"`
}

type Response struct {
	ID            string                `json:"id"`
	CustomerName  string                `json:"customer_name"`
	Amount        decimal.Decimal       `json:"amount"`
	Currency      string                `json:"currency"`
	Method        string                `json:"method"`
	Reference     string                `json:"reference,omitempty"`
	Status        string                `json:"status"`
	Notes         string                `json:"notes,omitempty"`
	CollectedBy   string                `json:"collected_by,omitempty"`
	CollectedAt   time.Time             `json:"collected_at"`
	StatusHistory []workflow.Transition `json:"status_history"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Collections []Response `json:"collections"`
}
