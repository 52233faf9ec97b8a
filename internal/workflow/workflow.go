// Package workflow holds the status sets of record types and the
// append-only history kept alongside every status field.
package workflow

import (
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
)

var (
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrStatusUnchanged = errors.New("status_unchanged")
)

// Transition is one entry of a status history.
type Transition struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Note      string    `json:"note,omitempty"`
}

// History is stored as a JSON array column.
type History = datatypes.JSONSlice[Transition]

// StatusSet is the closed set of statuses one record type accepts. Any
// member may follow any other; terminal statuses only drive reporting.
type StatusSet struct {
	initial  string
	statuses []string
	terminal []string
}

func NewStatusSet(initial string, statuses []string, terminal ...string) StatusSet {
	return StatusSet{
		initial:  initial,
		statuses: statuses,
		terminal: terminal,
	}
}

func (s StatusSet) Initial() string {
	return s.initial
}

func (s StatusSet) Statuses() []string {
	return append([]string(nil), s.statuses...)
}

// Open returns the statuses that are not terminal.
func (s StatusSet) Open() []string {
	return lo.Without(s.statuses, s.terminal...)
}

func (s StatusSet) Valid(status string) bool {
	return lo.Contains(s.statuses, status)
}

func (s StatusSet) Terminal(status string) bool {
	return lo.Contains(s.terminal, status)
}

// Parse normalizes raw and checks membership.
func (s StatusSet) Parse(raw string) (string, error) {
	status := strings.ToLower(strings.TrimSpace(raw))
	if !s.Valid(status) {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Start returns the history of a freshly created record.
func Start(initial, changedBy string, at time.Time) History {
	return History{{
		From:      "",
		To:        initial,
		ChangedBy: changedBy,
		ChangedAt: at.UTC(),
	}}
}

// Append returns history extended by exactly one transition. The input
// slice is left untouched.
func Append(history History, from, to, changedBy string, at time.Time, note string) History {
	out := make(History, 0, len(history)+1)
	out = append(out, history...)
	return append(out, Transition{
		From:      from,
		To:        to,
		ChangedBy: changedBy,
		ChangedAt: at.UTC(),
		Note:      strings.TrimSpace(note),
	})
}

// Change validates a transition from current to raw and returns the new
// status with its extended history.
func (s StatusSet) Change(current string, history History, raw, changedBy string, at time.Time, note string) (string, History, error) {
	next, err := s.Parse(raw)
	if err != nil {
		return "", nil, err
	}
	if next == current {
		return "", nil, ErrStatusUnchanged
	}
	return next, Append(history, current, next, changedBy, at, note), nil
}
