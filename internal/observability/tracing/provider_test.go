package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsCustomerData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/admin/tickets"),
		attribute.String("email", "jane@example.com"),
		attribute.Int("http.status_code", 200),
	)
	assert.Len(t, attrs, 2)
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("email"), attr.Key)
	}
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))

	wrapped := fmt.Errorf("load ticket: %w", errors.New("boom"))
	safe := SafeError(wrapped)
	assert.EqualError(t, safe, "load ticket: boom")
	assert.Nil(t, errors.Unwrap(safe))
}
