package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****.com", MaskSecret("jane@example.com"))
}

func TestMaskSensitive(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"status":         "closed",
		"customer_email": "jane@example.com",
		"changes": map[string]any{
			"phone": "8765551234",
			"note":  "call back",
		},
		"password": 12345,
	})

	assert.Equal(t, "closed", out["status"])
	assert.Equal(t, "****.com", out["customer_email"])
	assert.Equal(t, "****", out["password"])
	nested := out["changes"].(map[string]any)
	assert.Equal(t, "****1234", nested["phone"])
	assert.Equal(t, "call back", nested["note"])

	assert.Nil(t, MaskSensitive(nil))
}
