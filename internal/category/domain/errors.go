package domain

import "errors"

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidMarkup = errors.New("invalid_markup_percent")
	ErrDuplicateSlug = errors.New("duplicate_slug")
	ErrNotFound      = errors.New("not_found")
)
