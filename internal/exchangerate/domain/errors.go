package domain

import "errors"

var (
	ErrInvalidRate     = errors.New("invalid_exchange_rate")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrNoRate          = errors.New("exchange_rate_not_set")
)
