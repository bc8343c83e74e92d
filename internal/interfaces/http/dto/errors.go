package dto

import (
	"net/http"

	"github.com/retailcore/backoffice/internal/domain/shared"
)

// Transport-level error codes. Domain error codes from the shared package
// are written to clients unchanged and live next to these in the same field.
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "INVALID_TOKEN"
	ErrCodeTokenRevoked    = "TOKEN_REVOKED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps every code a client can receive to its HTTP status
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeValidation:          http.StatusBadRequest,
	shared.CodeNotFound:            http.StatusNotFound,
	shared.CodeProductNotFound:     http.StatusNotFound,
	shared.CodeCustomerNotFound:    http.StatusNotFound,
	shared.CodeAuthorizationDenied: http.StatusForbidden,
	shared.CodeAlreadyInvoiced:     http.StatusConflict,
	shared.CodeInvoiceInProgress:   http.StatusConflict,
	shared.CodeInsufficientStock:   http.StatusUnprocessableEntity,
	shared.CodeCustomerInactive:    http.StatusUnprocessableEntity,
	shared.CodeInvalidState:        http.StatusUnprocessableEntity,
	shared.CodeFiscalAuthority:     http.StatusBadGateway,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodeTokenRevoked:    http.StatusUnauthorized,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for a code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ValidationDetail describes one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
