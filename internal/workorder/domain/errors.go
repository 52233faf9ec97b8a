package domain

import "errors"

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidCustomerName = errors.New("invalid_customer_name")
	ErrInvalidDescription  = errors.New("invalid_description")
	ErrNotFound            = errors.New("not_found")
)
