// Package errors provides custom error types for the Hearth API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrNotHouseholdMember = &AppError{Code: "NOT_HOUSEHOLD_MEMBER", Message: "Caller is not a member of this household", StatusCode: http.StatusForbidden}
	ErrOwnerRoleRequired  = &AppError{Code: "OWNER_ROLE_REQUIRED", Message: "This action requires the household owner role", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Household errors.
var (
	ErrHouseholdNotFound = &AppError{Code: "HOUSEHOLD_NOT_FOUND", Message: "Household not found", StatusCode: http.StatusNotFound}
)

// Account errors.
var (
	ErrAccountNotFound = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
)

// Category errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrDuplicateCategory = &AppError{Code: "DUPLICATE_CATEGORY", Message: "A category with this name already exists", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
)

// Split errors.
var (
	ErrSplitUnbalanced  = &AppError{Code: "SPLIT_UNBALANCED", Message: "Split line amounts must sum to the parent amount", StatusCode: http.StatusBadRequest}
	ErrAlreadySplit     = &AppError{Code: "ALREADY_SPLIT", Message: "Transaction is already split", StatusCode: http.StatusConflict}
	ErrSplitTooFewLines = &AppError{Code: "SPLIT_TOO_FEW_LINES", Message: "A split requires at least two lines", StatusCode: http.StatusBadRequest}
)

// Transfer errors.
var (
	ErrAlreadyTransfer         = &AppError{Code: "ALREADY_TRANSFER", Message: "Transaction is already part of a transfer pair", StatusCode: http.StatusConflict}
	ErrNotTransfer             = &AppError{Code: "NOT_TRANSFER", Message: "Transaction is not part of a transfer pair", StatusCode: http.StatusBadRequest}
	ErrTransferSameAccount     = &AppError{Code: "TRANSFER_SAME_ACCOUNT", Message: "Transfer legs must be on different accounts", StatusCode: http.StatusBadRequest}
	ErrTransferCategoryMissing = &AppError{Code: "TRANSFER_CATEGORY_MISSING", Message: "Household has no Transfer category", StatusCode: http.StatusConflict}
)

// Provider connection errors.
var (
	ErrConnectionNotFound  = &AppError{Code: "CONNECTION_NOT_FOUND", Message: "Provider connection not found", StatusCode: http.StatusNotFound}
	ErrConnectionSyncing   = &AppError{Code: "CONNECTION_SYNCING", Message: "A sync for this connection is already running", StatusCode: http.StatusConflict}
	ErrProviderUnavailable = &AppError{Code: "PROVIDER_UNAVAILABLE", Message: "Aggregation provider request failed", StatusCode: http.StatusBadGateway}
)

// Receipt scan errors.
var (
	ErrScanNotFound = &AppError{Code: "SCAN_NOT_FOUND", Message: "Receipt scan not found", StatusCode: http.StatusNotFound}
	ErrScanNotReady = &AppError{Code: "SCAN_NOT_READY", Message: "Receipt scan has not completed", StatusCode: http.StatusConflict}
)

// Classification errors.
var (
	ErrClassifierUnavailable = &AppError{Code: "CLASSIFIER_UNAVAILABLE", Message: "Categorization service is not configured", StatusCode: http.StatusServiceUnavailable}
)
