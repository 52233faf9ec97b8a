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
	ExportPDF(ctx context.Context, id string) (*Document, error)
}

type Repository interface {
	Create(ctx context.Context, quotation *Quotation) error
	FindByID(ctx context.Context, id snowflake.ID) (*Quotation, error)
	List(ctx context.Context, filter Filter, page pagination.Pagination) ([]*Quotation, pagination.PageInfo, error)
	Save(ctx context.Context, quotation *Quotation) error
	Delete(ctx context.Context, id snowflake.ID) (bool, error)
}

type Filter struct {
	Status           string
	AssigneeID       *snowflake.ID
	PricingSessionID *snowflake.ID
}

type CreateRequest struct {
	CustomerName     string           `json:"customer_name"`
	CustomerEmail    string           `json:"customer_email"`
	CustomerPhone    string           `json:"customer_phone"`
	ItemDescription  string           `json:"item_description"`
	ItemURL          string           `json:"item_url"`
	Quantity         int              `json:"quantity"`
	QuotedAmount     *decimal.Decimal `json:"quoted_amount,omitempty"`
	Currency         string           `json:"currency"`
	PricingSessionID string           `json:"pricing_session_id"`
	ValidUntil       *time.Time       `json:"valid_until,omitempty"`
	AssigneeID       string           `json:"assignee_id"`
	Notes            string           `json:"notes"`
}

type UpdateRequest struct {
	ID               string           `json:"-"`
	CustomerName     *string          `json:"customer_name,omitempty"`
	CustomerEmail    *string          `json:"customer_email,omitempty"`
	CustomerPhone    *string          `json:"customer_phone,omitempty"`
	ItemDescription  *string          `json:"item_description,omitempty"`
	ItemURL          *string          `json:"item_url,omitempty"`
	Quantity         *int             `json:"quantity,omitempty"`
	QuotedAmount     *decimal.Decimal `json:"quoted_amount,omitempty"`
	Currency         *string          `json:"currency,omitempty"`
	PricingSessionID *string          `json:"pricing_session_id,omitempty"`
	ValidUntil       *time.Time       `json:"valid_until,omitempty"`
	AssigneeID       *string          `json:"assignee_id,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
}

type ChangeStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

type ListRequest struct {
	pagination.Pagination
	Status           string `form:"status"`
	AssigneeID       string `form:"assignee_id"`
	PricingSessionID string `form:"pricing_session_id"`
}

type Response struct {
	ID               string                `json:"id"`
	Number           string                `json:"number"`
	CustomerName     string                `json:"customer_name"`
	CustomerEmail    string                `json:"customer_email,omitempty"`
	CustomerPhone    string                `json:"customer_phone,omitempty"`
	ItemDescription  string                `json:"item_description"`
	ItemURL          string                `json:"item_url,omitempty"`
	Quantity         int                   `json:"quantity"`
	QuotedAmount     *decimal.Decimal      `json:"quoted_amount,omitempty"`
	Currency         string                `json:"currency"`
	PricingSessionID string                `json:"pricing_session_id,omitempty"`
	ValidUntil       *time.Time            `json:"valid_until,omitempty"`
	Status           string                `json:"status"`
	AssigneeID       string                `json:"assignee_id,omitempty"`
	Notes            string                `json:"notes,omitempty"`
	StatusHistory    []workflow.Transition `json:"status_history"`
	CreatedBy        string                `json:"created_by,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Quotations []Response `json:"quotations"`
}

// Document is a rendered quotation.
type Document struct {
	Filename string
	Content  []byte
}
