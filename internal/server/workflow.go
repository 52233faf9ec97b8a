package server

import (
	"errors"

	"github.com/smallbiznis/opsdesk/internal/workflow"
)

func isWorkflowValidationError(err error) bool {
	switch {
	case errors.Is(err, workflow.ErrInvalidStatus),
		errors.Is(err, workflow.ErrStatusUnchanged),
		errors.Is(err, workflow.ErrInvalidPriority),
		errors.Is(err, workflow.ErrInvalidAssignee):
		return true
	default:
		return false
	}
}
