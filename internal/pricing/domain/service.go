package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
)

type Service interface {
	CalculateInvoice(ctx context.Context, req InvoiceCalculateRequest) (*InvoiceCalculateResponse, error)
	CalculateAmazon(ctx context.Context, req AmazonCalculateRequest) (*AmazonCalculateResponse, error)
	DefaultAmazonMarkup(ctx context.Context, costUSD decimal.Decimal) (*DefaultMarkupResponse, error)

	SaveSession(ctx context.Context, req SaveSessionRequest) (*SessionResponse, error)
	ListSessions(ctx context.Context, req ListSessionRequest) (*ListSessionResponse, error)
	GetSession(ctx context.Context, id string) (*SessionResponse, error)
	DeleteSession(ctx context.Context, id string) error
	ExportSessionPDF(ctx context.Context, id string) (*SessionDocument, error)
}

type Repository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, id snowflake.ID) (*Session, error)
	List(ctx context.Context, filter SessionFilter, pageToken string, pageSize int) ([]*Session, pagination.PageInfo, error)
	Delete(ctx context.Context, id snowflake.ID) (bool, error)
}

// SessionFilter narrows ListSessions. Zero values match everything.
type SessionFilter struct {
	Mode      Mode
	CreatedBy string
}

type InvoiceCalculateRequest struct {
	Items        []LineItem       `json:"items"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`
	RoundingUnit int64            `json:"rounding_unit"`
	Recompute    bool             `json:"recompute"`
}

type InvoiceCalculateResponse struct {
	Items        []LineItem      `json:"items"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	RoundingUnit int64           `json:"rounding_unit"`
	Total        decimal.Decimal `json:"total_final_price"`
}

type AmazonCalculateRequest struct {
	Item         AmazonItem       `json:"item"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`
}

type AmazonCalculateResponse struct {
	Item                 AmazonItem      `json:"item"`
	ExchangeRate         decimal.Decimal `json:"exchange_rate"`
	MarkupPercent        decimal.Decimal `json:"markup_percent"`
	DefaultMarkupPercent decimal.Decimal `json:"default_markup_percent"`
	AmazonPrice          decimal.Decimal `json:"amazon_price"`
	SellingPriceUSD      decimal.Decimal `json:"selling_price_usd"`
	SellingPriceJMD      decimal.Decimal `json:"selling_price_jmd"`
}

type DefaultMarkupResponse struct {
	CostUSD       decimal.Decimal `json:"cost_usd"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
}

type SaveSessionRequest struct {
	Mode         Mode            `json:"mode"`
	Title        string          `json:"title"`
	Supplier     string          `json:"supplier,omitempty"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	RoundingUnit int64           `json:"rounding_unit,omitempty"`
	InvoiceItems []LineItem      `json:"items,omitempty"`
	AmazonItems  []AmazonItem    `json:"amazon_items,omitempty"`
}

type ListSessionRequest struct {
	Mode      string `form:"mode"`
	CreatedBy string `form:"created_by"`
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

type SessionResponse struct {
	ID              string          `json:"id"`
	Reference       string          `json:"reference"`
	Mode            Mode            `json:"mode"`
	Title           string          `json:"title"`
	Supplier        string          `json:"supplier,omitempty"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	RoundingUnit    int64           `json:"rounding_unit,omitempty"`
	InvoiceItems    []LineItem      `json:"items,omitempty"`
	AmazonItems     []AmazonItem    `json:"amazon_items,omitempty"`
	ItemCount       int             `json:"item_count"`
	TotalFinalPrice decimal.Decimal `json:"total_final_price"`
	CreatedBy       *string         `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ListSessionResponse struct {
	pagination.PageInfo
	Sessions []SessionResponse `json:"sessions"`
}

// SessionDocument is a rendered pricing sheet.
type SessionDocument struct {
	Filename string
	Content  []byte
}
