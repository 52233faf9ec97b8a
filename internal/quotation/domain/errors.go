package domain

import (
	"errors"

	"github.com/smallbiznis/opsdesk/internal/workflow"
)

var (
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidCustomerName   = errors.New("invalid_customer_name")
	ErrInvalidCustomerEmail  = errors.New("invalid_customer_email")
	ErrInvalidDescription    = errors.New("invalid_item_description")
	ErrInvalidAmount         = errors.New("invalid_quoted_amount")
	ErrInvalidCurrency       = workflow.ErrInvalidCurrency
	ErrInvalidPricingSession = errors.New("invalid_pricing_session_id")
	ErrQuotedAmountRequired  = errors.New("quoted_amount_required")
	ErrNotFound              = errors.New("not_found")
)
