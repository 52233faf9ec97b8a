package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidCallerName = errors.New("invalid_caller_name")
	ErrInvalidDirection  = errors.New("invalid_direction")
	ErrInvalidDuration   = errors.New("invalid_duration_seconds")
	ErrNotFound          = errors.New("not_found")
)
