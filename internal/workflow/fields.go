package workflow

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
)

var (
	ErrInvalidPriority = errors.New("invalid_priority")
	ErrInvalidAssignee = errors.New("invalid_assignee_id")
	ErrInvalidCurrency = errors.New("invalid_currency")
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// ParsePriority normalizes raw. Blank input yields medium.
func ParsePriority(raw string) (string, error) {
	priority := strings.ToLower(strings.TrimSpace(raw))
	if priority == "" {
		return PriorityMedium, nil
	}
	if !lo.Contains(priorities, priority) {
		return "", ErrInvalidPriority
	}
	return priority, nil
}

// ParseAssignee parses an optional user id. Blank input clears the
// assignment and yields nil.
func ParseAssignee(raw string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return nil, ErrInvalidAssignee
	}
	return &id, nil
}

// ParseCurrency upper-cases a three-letter currency code. Blank input
// yields fallback.
func ParseCurrency(raw, fallback string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return fallback, nil
	}
	if len(currency) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return currency, nil
}

// IDString renders an optional id, empty when unset.
func IDString(id *snowflake.ID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// Recipients lists the distinct non-empty user ids among ids.
func Recipients(ids ...string) []string {
	return lo.Uniq(lo.Compact(lo.Map(ids, func(id string, _ int) string {
		return strings.TrimSpace(id)
	})))
}
