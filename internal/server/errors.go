package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	"github.com/smallbiznis/opsdesk/internal/authorization"
	calllogdomain "github.com/smallbiznis/opsdesk/internal/calllog/domain"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	collectiondomain "github.com/smallbiznis/opsdesk/internal/collection/domain"
	inquirydomain "github.com/smallbiznis/opsdesk/internal/inquiry/domain"
	pricingdomain "github.com/smallbiznis/opsdesk/internal/pricing/domain"
	quotationdomain "github.com/smallbiznis/opsdesk/internal/quotation/domain"
	taskdomain "github.com/smallbiznis/opsdesk/internal/task/domain"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
	workorderdomain "github.com/smallbiznis/opsdesk/internal/workorder/domain"
	"github.com/smallbiznis/opsdesk/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrTooManyRequests    = errors.New("too_many_requests")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var fieldErr *pricingdomain.FieldError
	if errors.As(err, &fieldErr) {
		code := validationErrorCode(fieldErr.Err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   fieldErr.Field,
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrUserInactive):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, authdomain.ErrLastAdmin),
		errors.Is(err, categorydomain.ErrDuplicateSlug),
		db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isAuthValidationError(err),
		isPricingValidationError(err),
		isCategoryValidationError(err),
		isExchangeRateValidationError(err),
		isAuditValidationError(err),
		isWorkflowValidationError(err),
		isInquiryValidationError(err),
		isQuotationValidationError(err),
		isWorkOrderValidationError(err),
		isTicketValidationError(err),
		isCallLogValidationError(err),
		isCollectionValidationError(err),
		isTaskValidationError(err):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	return errorIsAny(err,
		ErrNotFound,
		gorm.ErrRecordNotFound,
		authdomain.ErrUserNotFound,
		categorydomain.ErrNotFound,
		pricingdomain.ErrNotFound,
		inquirydomain.ErrNotFound,
		quotationdomain.ErrNotFound,
		workorderdomain.ErrNotFound,
		ticketdomain.ErrNotFound,
		calllogdomain.ErrNotFound,
		collectiondomain.ErrNotFound,
		taskdomain.ErrNotFound,
	)
}

func errorIsAny(err error, targets ...error) bool {
	return lo.SomeBy(targets, func(target error) bool {
		return errors.Is(err, target)
	})
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, authdomain.ErrLastAdmin):
		return "at least one active admin is required"
	case errors.Is(err, authdomain.ErrUserExists):
		return "user already exists"
	default:
		return "conflict"
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch {
	case code == "invalid_request":
		return "request"
	case code == "status_unchanged":
		return "status"
	case code == "empty_items":
		return "items"
	case code == "exchange_rate_not_set":
		return "exchange_rate"
	case strings.HasPrefix(code, "invalid_"):
		return strings.TrimPrefix(code, "invalid_")
	case strings.HasSuffix(code, "_required"):
		return strings.TrimSuffix(code, "_required")
	default:
		return ""
	}
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "status_unchanged":
		return "record already has this status"
	case "empty_items":
		return "at least one item is required"
	case "exchange_rate_not_set":
		return "no exchange rate has been set"
	case "quoted_amount_required":
		return "a quoted amount is required before quoting"
	default:
		if strings.HasSuffix(code, "_required") {
			return "value is required"
		}
		return "invalid value"
	}
}

// classifyErrorForLog reports the response type and code for request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}
