package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	// Current returns the rate in effect now for the default currency pair.
	Current(ctx context.Context) (*Response, error)
	CurrentRate(ctx context.Context) (decimal.Decimal, error)
	History(ctx context.Context, req HistoryRequest) ([]Response, error)
	Set(ctx context.Context, req SetRequest) (*Response, error)
}

type Repository interface {
	Create(ctx context.Context, rate *ExchangeRate) error
	Latest(ctx context.Context, base, quote string, at time.Time) (*ExchangeRate, error)
	List(ctx context.Context, base, quote string, limit int) ([]ExchangeRate, error)
}

type HistoryRequest struct {
	Limit int `form:"limit"`
}

type SetRequest struct {
	Rate        decimal.Decimal `json:"rate"`
	EffectiveAt *time.Time      `json:"effective_at,omitempty"`
	Source      string          `json:"source,omitempty"`
}

type Response struct {
	ID            string          `json:"id"`
	BaseCurrency  string          `json:"base_currency"`
	QuoteCurrency string          `json:"quote_currency"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveAt   time.Time       `json:"effective_at"`
	Source        string          `json:"source"`
	CreatedBy     *string         `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
