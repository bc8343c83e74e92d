package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// Error codes for business rule failures. These are surfaced to callers verbatim.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeProductNotFound     = "PRODUCT_NOT_FOUND"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeCustomerNotFound    = "CUSTOMER_NOT_FOUND"
	CodeCustomerInactive    = "CUSTOMER_INACTIVE"
	CodeAlreadyInvoiced     = "ALREADY_INVOICED"
	CodeInvoiceInProgress   = "INVOICE_IN_PROGRESS"
	CodeFiscalAuthority     = "FISCAL_AUTHORITY_ERROR"
	CodeAuthorizationDenied = "AUTHORIZATION_DENIED"
	CodeInvalidState        = "INVALID_STATE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so sentinel
// errors can be matched with errors.Is regardless of message or details.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrProductNotFound     = NewDomainError(CodeProductNotFound, "Product not found")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrCustomerNotFound    = NewDomainError(CodeCustomerNotFound, "Customer not found")
	ErrCustomerInactive    = NewDomainError(CodeCustomerInactive, "Customer is inactive")
	ErrAlreadyInvoiced     = NewDomainError(CodeAlreadyInvoiced, "Sale has already been invoiced")
	ErrInvoiceInProgress   = NewDomainError(CodeInvoiceInProgress, "An invoice for this sale is already being issued")
	ErrAuthorizationDenied = NewDomainError(CodeAuthorizationDenied, "Not authorized to perform this action")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrFiscalAuthority     = NewDomainError(CodeFiscalAuthority, "Tax authority request failed")
)

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *DomainError {
	return ErrValidation.WithDetail("field", field).withMessage(message)
}

// NewProductNotFoundError reports a product that could not be resolved
func NewProductNotFoundError(productID uuid.UUID) *DomainError {
	return ErrProductNotFound.
		WithDetail("product_id", productID.String()).
		withMessage(fmt.Sprintf("Product %s not found", productID))
}

// NewInsufficientStockError reports the product that could not be decremented
// together with its last known available quantity.
func NewInsufficientStockError(productID uuid.UUID, available int) *DomainError {
	return ErrInsufficientStock.
		WithDetail("product_id", productID.String()).
		WithDetail("available", available).
		withMessage(fmt.Sprintf("Insufficient stock for product %s: %d available", productID, available))
}

// NewCustomerNotFoundError reports a customer that could not be resolved
func NewCustomerNotFoundError(customerID uuid.UUID) *DomainError {
	return ErrCustomerNotFound.
		WithDetail("customer_id", customerID.String()).
		withMessage(fmt.Sprintf("Customer %s not found", customerID))
}

// NewCustomerInactiveError reports a customer that exists but is disabled
func NewCustomerInactiveError(customerID uuid.UUID) *DomainError {
	return ErrCustomerInactive.
		WithDetail("customer_id", customerID.String()).
		withMessage(fmt.Sprintf("Customer %s is inactive", customerID))
}

// NewFiscalAuthorityError wraps a rejection or transport failure reported by the tax authority
func NewFiscalAuthorityError(authorityCode, message string) *DomainError {
	return ErrFiscalAuthority.
		WithDetail("authority_code", authorityCode).
		withMessage(fmt.Sprintf("Tax authority error [%s]: %s", authorityCode, message))
}

// NewAuthorizationDeniedError reports a role that lacks the requested action
func NewAuthorizationDeniedError(role, action string) *DomainError {
	return ErrAuthorizationDenied.
		WithDetail("role", role).
		WithDetail("action", action).
		withMessage(fmt.Sprintf("Role %q is not allowed to %s", role, action))
}

func (e *DomainError) withMessage(message string) *DomainError {
	e.Message = message
	return e
}
