package domain

import "errors"

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidCustomerName  = errors.New("invalid_customer_name")
	ErrInvalidCustomerEmail = errors.New("invalid_customer_email")
	ErrInvalidSubject       = errors.New("invalid_subject")
	ErrInvalidSource        = errors.New("invalid_source")
	ErrNotFound             = errors.New("not_found")
)
