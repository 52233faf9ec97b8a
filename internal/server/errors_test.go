package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	"github.com/smallbiznis/opsdesk/internal/authorization"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	collectiondomain "github.com/smallbiznis/opsdesk/internal/collection/domain"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	quotationdomain "github.com/smallbiznis/opsdesk/internal/quotation/domain"
	"github.com/smallbiznis/opsdesk/internal/workflow"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
		field  string
	}{
		{"validation sentinel", collectiondomain.ErrInvalidAmount, http.StatusBadRequest, "validation_error", "amount"},
		{"wrapped validation", fmt.Errorf("create: %w", workflow.ErrInvalidPriority), http.StatusBadRequest, "validation_error", "priority"},
		{"required amount", quotationdomain.ErrQuotedAmountRequired, http.StatusBadRequest, "validation_error", "quoted_amount"},
		{"missing rate", exchangeratedomain.ErrNoRate, http.StatusBadRequest, "validation_error", "exchange_rate"},
		{"not found", quotationdomain.ErrNotFound, http.StatusNotFound, "not_found", ""},
		{"expired session", authdomain.ErrSessionExpired, http.StatusUnauthorized, "unauthorized", ""},
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden, "forbidden", ""},
		{"duplicate slug", categorydomain.ErrDuplicateSlug, http.StatusConflict, "conflict", ""},
		{"last admin", authdomain.ErrLastAdmin, http.StatusConflict, "conflict", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.typ, payload.Type)
			if tt.field != "" {
				if assert.Len(t, payload.Errors, 1) {
					assert.Equal(t, tt.field, payload.Errors[0].Field)
				}
			}
		})
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(collectiondomain.ErrInvalidMethod)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_method", code)

	typ, code = classifyErrorForLog(authorization.ErrForbidden)
	assert.Equal(t, "forbidden", typ)
	assert.Equal(t, "forbidden", code)
}
