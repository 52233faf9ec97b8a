package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSet = NewStatusSet("open", []string{"open", "in_progress", "closed"}, "closed")

func TestParseNormalizes(t *testing.T) {
	status, err := testSet.Parse("  In_Progress ")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", status)

	_, err = testSet.Parse("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOpenExcludesTerminal(t *testing.T) {
	assert.Equal(t, []string{"open", "in_progress"}, testSet.Open())
	assert.True(t, testSet.Terminal("closed"))
	assert.False(t, testSet.Terminal("open"))
}

func TestChangeAppendsExactlyOneEntry(t *testing.T) {
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	history := Start("open", "1", at)

	status, next, err := testSet.Change("open", history, "closed", "2", at.Add(time.Hour), " done ")
	require.NoError(t, err)
	assert.Equal(t, "closed", status)
	require.Len(t, next, 2)
	assert.Len(t, history, 1, "input history must not grow")

	last := next[1]
	assert.Equal(t, "open", last.From)
	assert.Equal(t, "closed", last.To)
	assert.Equal(t, "2", last.ChangedBy)
	assert.Equal(t, "done", last.Note)
	assert.Equal(t, at.Add(time.Hour), last.ChangedAt)
}

func TestChangeRejectsSameOrUnknownStatus(t *testing.T) {
	history := Start("open", "1", time.Now())

	_, _, err := testSet.Change("open", history, "OPEN", "1", time.Now(), "")
	assert.ErrorIs(t, err, ErrStatusUnchanged)

	_, _, err = testSet.Change("open", history, "lost", "1", time.Now(), "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAnyStatusMayFollowAnother(t *testing.T) {
	history := Start("open", "1", time.Now())
	status, history, err := testSet.Change("open", history, "closed", "1", time.Now(), "")
	require.NoError(t, err)

	status, history, err = testSet.Change(status, history, "open", "1", time.Now(), "reopened")
	require.NoError(t, err)
	assert.Equal(t, "open", status)
	assert.Len(t, history, 3)
}
