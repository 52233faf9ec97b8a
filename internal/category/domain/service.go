package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Deactivate(ctx context.Context, id string) (*Response, error)
	// ActiveMarkups returns the markup of every active category among ids.
	// Unknown and inactive ids are absent from the result.
	ActiveMarkups(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]Markup, error)
}

type Repository interface {
	Create(ctx context.Context, category *Category) error
	FindByID(ctx context.Context, id snowflake.ID) (*Category, error)
	FindActiveByIDs(ctx context.Context, ids []snowflake.ID) ([]Category, error)
	List(ctx context.Context, filter ListRequest) ([]Category, error)
	Update(ctx context.Context, category *Category) error
}

type Markup struct {
	ID            snowflake.ID
	Name          string
	MarkupPercent decimal.Decimal
}

type ListRequest struct {
	Name     string
	IsActive *bool
}

type CreateRequest struct {
	Name          string          `json:"name"`
	Slug          string          `json:"slug,omitempty"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
	IsActive      *bool           `json:"is_active,omitempty"`
}

type UpdateRequest struct {
	ID            string           `json:"-"`
	Name          *string          `json:"name,omitempty"`
	MarkupPercent *decimal.Decimal `json:"markup_percent,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

type Response struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
