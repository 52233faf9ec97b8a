package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidExchangeRate = errors.New("invalid_exchange_rate")
	ErrInvalidCost         = errors.New("invalid_cost")
	ErrInvalidMarkup       = errors.New("invalid_markup_percent")
	ErrInvalidRoundingUnit = errors.New("invalid_rounding_unit")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidCategory     = errors.New("invalid_category_id")
	ErrInvalidMode         = errors.New("invalid_mode")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrEmptyItems          = errors.New("empty_items")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)

// FieldError ties a validation failure to the request field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

func itemField(index int, field string) string {
	return fmt.Sprintf("items[%d].%s", index, field)
}
