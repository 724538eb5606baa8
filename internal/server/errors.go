package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	authdomain "github.com/smallbiznis/stockwise/internal/auth/domain"
	"github.com/smallbiznis/stockwise/internal/authorization"
	inventorydomain "github.com/smallbiznis/stockwise/internal/inventory/domain"
	"github.com/smallbiznis/stockwise/internal/locking"
	orderdomain "github.com/smallbiznis/stockwise/internal/order/domain"
	reorderdomain "github.com/smallbiznis/stockwise/internal/reorder/domain"
	tenantdomain "github.com/smallbiznis/stockwise/internal/tenant/domain"
	"github.com/smallbiznis/stockwise/pkg/db"
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
	Success bool         `json:"success"`
	Error   errorPayload `json:"error"`
}

const (
	errorTypeInvalidInput = "invalid_input"
	errorTypeUnauthorized = "unauthorized"
	errorTypeForbidden    = "forbidden"
	errorTypeNotFound     = "not_found"
	errorTypeConflict     = "conflict"
	errorTypeRateLimited  = "rate_limited"
	errorTypeInternal     = "internal_error"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
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
		c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
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
			Type:    errorTypeInternal,
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    errorTypeInvalidInput,
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var stockErr *inventorydomain.InsufficientStockError
	if errors.As(err, &stockErr) {
		return http.StatusConflict, errorPayload{
			Type:    errorTypeConflict,
			Message: stockErr.Error(),
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    errorTypeInvalidInput,
			Message: code,
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
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    errorTypeUnauthorized,
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    errorTypeForbidden,
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    errorTypeNotFound,
			Message: notFoundMessage(err),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    errorTypeConflict,
			Message: conflictMessage(err),
		}
	case errors.Is(err, locking.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    errorTypeRateLimited,
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    errorTypeInternal,
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger without exposing messages.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return payload.Type, "internal"
	}
	code := payload.Message
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if strings.Contains(code, " ") {
		code = payload.Type
	}
	return payload.Type, code
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
	case isAccessValidationError(err),
		isTenantValidationError(err),
		isInventoryValidationError(err),
		isOrderValidationError(err),
		isReorderValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrInvalidCredentials):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, tenantdomain.ErrForbidden):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authorization.ErrTenantNotFound),
		errors.Is(err, tenantdomain.ErrUserNotFound),
		errors.Is(err, tenantdomain.ErrMemberNotFound),
		errors.Is(err, inventorydomain.ErrItemNotFound),
		errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, reorderdomain.ErrItemNotFound),
		errors.Is(err, reorderdomain.ErrRequestNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, tenantdomain.ErrSlugExhausted),
		errors.Is(err, inventorydomain.ErrDuplicateSKU),
		errors.Is(err, inventorydomain.ErrInsufficientStock),
		errors.Is(err, inventorydomain.ErrConcurrentUpdate),
		errors.Is(err, inventorydomain.ErrItemHeld),
		errors.Is(err, orderdomain.ErrOrderClosed),
		errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, orderdomain.ErrConcurrentTransition),
		errors.Is(err, reorderdomain.ErrOpenRequest),
		errors.Is(err, reorderdomain.ErrRequestClosed),
		errors.Is(err, reorderdomain.ErrInvalidTransition),
		errors.Is(err, locking.ErrBusy),
		db.IsDuplicateKeyErr(err):
		return true
	default:
		return false
	}
}

func isAccessValidationError(err error) bool {
	switch {
	case errors.Is(err, authorization.ErrInvalidTenant),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrInvalidRole),
		errors.Is(err, authdomain.ErrWeakPassword):
		return true
	default:
		return false
	}
}

func isTenantValidationError(err error) bool {
	switch {
	case errors.Is(err, tenantdomain.ErrInvalidName),
		errors.Is(err, tenantdomain.ErrInvalidUser),
		errors.Is(err, tenantdomain.ErrInvalidRole):
		return true
	default:
		return false
	}
}

func isInventoryValidationError(err error) bool {
	switch {
	case errors.Is(err, inventorydomain.ErrInvalidTenant),
		errors.Is(err, inventorydomain.ErrInvalidActor),
		errors.Is(err, inventorydomain.ErrInvalidItem),
		errors.Is(err, inventorydomain.ErrInvalidOrder),
		errors.Is(err, inventorydomain.ErrInvalidSKU),
		errors.Is(err, inventorydomain.ErrInvalidName),
		errors.Is(err, inventorydomain.ErrInvalidQuantity),
		errors.Is(err, inventorydomain.ErrInvalidReorderLevel),
		errors.Is(err, inventorydomain.ErrInvalidStatus),
		errors.Is(err, inventorydomain.ErrInvalidDelta),
		errors.Is(err, inventorydomain.ErrInvalidAction),
		errors.Is(err, inventorydomain.ErrInvalidPageToken),
		errors.Is(err, inventorydomain.ErrEmptyBatch):
		return true
	default:
		return false
	}
}

func isOrderValidationError(err error) bool {
	switch {
	case errors.Is(err, orderdomain.ErrInvalidTenant),
		errors.Is(err, orderdomain.ErrInvalidOrder),
		errors.Is(err, orderdomain.ErrInvalidItem),
		errors.Is(err, orderdomain.ErrInactiveItem),
		errors.Is(err, orderdomain.ErrInvalidQuantity),
		errors.Is(err, orderdomain.ErrInvalidStatus),
		errors.Is(err, orderdomain.ErrInvalidPageToken),
		errors.Is(err, orderdomain.ErrEmptyOrder),
		errors.Is(err, orderdomain.ErrTooManyLines):
		return true
	default:
		return false
	}
}

func isReorderValidationError(err error) bool {
	switch {
	case errors.Is(err, reorderdomain.ErrInvalidTenant),
		errors.Is(err, reorderdomain.ErrInvalidActor),
		errors.Is(err, reorderdomain.ErrInvalidItem),
		errors.Is(err, reorderdomain.ErrInvalidRequest),
		errors.Is(err, reorderdomain.ErrInvalidQuantity),
		errors.Is(err, reorderdomain.ErrInvalidStatus),
		errors.Is(err, reorderdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch {
	case errors.Is(err, auditdomain.ErrInvalidTenant),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
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
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "inactive_item":
		return "item is inactive"
	case "empty_order", "empty_batch":
		return "at least one line is required"
	case "too_many_lines":
		return "too many lines"
	default:
		return "invalid value"
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, authorization.ErrTenantNotFound):
		return "tenant not found"
	case errors.Is(err, inventorydomain.ErrItemNotFound),
		errors.Is(err, reorderdomain.ErrItemNotFound):
		return "item not found"
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		return "order not found"
	case errors.Is(err, reorderdomain.ErrRequestNotFound):
		return "reorder request not found"
	case errors.Is(err, tenantdomain.ErrUserNotFound):
		return "user not found"
	case errors.Is(err, tenantdomain.ErrMemberNotFound):
		return "member not found"
	default:
		return "not found"
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, orderdomain.ErrOrderClosed):
		return "order is closed"
	case errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, reorderdomain.ErrInvalidTransition):
		return "invalid status transition"
	case errors.Is(err, inventorydomain.ErrConcurrentUpdate),
		errors.Is(err, orderdomain.ErrConcurrentTransition),
		errors.Is(err, locking.ErrBusy):
		return "resource was modified concurrently, retry"
	case errors.Is(err, inventorydomain.ErrDuplicateSKU):
		return "sku already exists"
	case errors.Is(err, inventorydomain.ErrItemHeld):
		return "item has stock held by an open order"
	case errors.Is(err, reorderdomain.ErrOpenRequest):
		return "an open reorder request already exists for this item"
	case errors.Is(err, reorderdomain.ErrRequestClosed):
		return "reorder request is closed"
	case errors.Is(err, authdomain.ErrUserExists):
		return "user already exists"
	default:
		return "conflict"
	}
}
