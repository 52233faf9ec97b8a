package domain

import (
	"errors"

	"github.com/smallbiznis/opsdesk/internal/workflow"
)

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidCustomerName = errors.New("invalid_customer_name")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidCurrency     = workflow.ErrInvalidCurrency
	ErrInvalidMethod       = errors.New("invalid_method")
	ErrNotFound            = errors.New("not_found")
)
