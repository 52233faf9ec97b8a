package domain

import "errors"

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidSubject       = errors.New("invalid_subject")
	ErrInvalidCustomerEmail = errors.New("invalid_customer_email")
	ErrNotFound             = errors.New("not_found")
)
