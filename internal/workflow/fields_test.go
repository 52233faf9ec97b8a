package workflow

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	priority, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, priority)

	priority, err = ParsePriority(" URGENT ")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, priority)

	_, err = ParsePriority("critical")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestParseCurrency(t *testing.T) {
	currency, err := ParseCurrency("", "JMD")
	require.NoError(t, err)
	assert.Equal(t, "JMD", currency)

	currency, err = ParseCurrency(" usd ", "JMD")
	require.NoError(t, err)
	assert.Equal(t, "USD", currency)

	for _, raw := range []string{"1$9", "j d", "US", "dollars", "ÜSD"} {
		_, err = ParseCurrency(raw, "JMD")
		assert.ErrorIs(t, err, ErrInvalidCurrency, raw)
	}
}

func TestParseAssignee(t *testing.T) {
	id, err := ParseAssignee("  ")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = ParseAssignee("1234")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, snowflake.ID(1234), *id)
	assert.Equal(t, "1234", IDString(id))
	assert.Equal(t, "", IDString(nil))

	_, err = ParseAssignee("bob")
	assert.ErrorIs(t, err, ErrInvalidAssignee)
	_, err = ParseAssignee("-5")
	assert.ErrorIs(t, err, ErrInvalidAssignee)
}

func TestRecipients(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, Recipients("1", " ", "2", "1 "))
	assert.Empty(t, Recipients())
}
