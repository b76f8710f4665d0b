// Package errors provides the application error type for the leavedesk API.
// Service-layer errors are AppErrors so that clients always receive a stable
// kind and code, and internal details never leak into responses.
package errors

import "net/http"

// Kind classifies an AppError into one of the broad failure families that
// callers handle differently.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindBusinessRule    Kind = "business_rule"
	KindNotFound        Kind = "not_found"
	KindPersistence     Kind = "persistence"
	KindExternalService Kind = "external_service"
	KindAuth            Kind = "auth"
	KindInternal        Kind = "internal"
)

// AppError represents a structured application error with a kind, an error
// code, a human-readable message, an HTTP status code and an optional internal
// error.
type AppError struct {
	Kind       Kind   `json:"kind"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so sentinels
// can be matched with errors.Is after Wrap or WithMessage.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a copy of sentinel carrying an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Kind:       sentinel.Kind,
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a copy of sentinel with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Kind:       sentinel.Kind,
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Kind: KindAuth, Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Kind: KindAuth, Code: "INVALID_CREDENTIALS", Message: "Invalid username or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Kind: KindAuth, Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAdminRequired      = &AppError{Kind: KindAuth, Code: "ADMIN_REQUIRED", Message: "Administrator privileges required", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Kind: KindAuth, Code: "ACCOUNT_LOCKED", Message: "Too many failed logins, try again later", StatusCode: http.StatusLocked}
	ErrInvalidAPIKey      = &AppError{Kind: KindAuth, Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput       = &AppError{Kind: KindValidation, Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound           = &AppError{Kind: KindNotFound, Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer     = &AppError{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrPersistenceFailure = &AppError{Kind: KindPersistence, Code: "PERSISTENCE_FAILURE", Message: "The request could not be saved, please try again later", StatusCode: http.StatusServiceUnavailable}
)

// Account errors.
var (
	ErrAccountNotFound   = &AppError{Kind: KindNotFound, Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrDuplicateUsername = &AppError{Kind: KindBusinessRule, Code: "DUPLICATE_USERNAME", Message: "An account with this username already exists", StatusCode: http.StatusConflict}
	ErrAdminUndeletable  = &AppError{Kind: KindBusinessRule, Code: "ADMIN_UNDELETABLE", Message: "Administrator accounts cannot be deleted", StatusCode: http.StatusConflict}
	ErrNegativeBalance   = &AppError{Kind: KindValidation, Code: "NEGATIVE_BALANCE", Message: "Balances must not be negative", StatusCode: http.StatusBadRequest}
)

// Leave errors.
var (
	ErrInvalidDateRange    = &AppError{Kind: KindValidation, Code: "INVALID_DATE_RANGE", Message: "Start date is after end date", StatusCode: http.StatusBadRequest}
	ErrBeyondFutureWindow  = &AppError{Kind: KindBusinessRule, Code: "BEYOND_FUTURE_WINDOW", Message: "Leave date is beyond the allowed future window", StatusCode: http.StatusBadRequest}
	ErrExceedsRequestCap   = &AppError{Kind: KindBusinessRule, Code: "EXCEEDS_REQUEST_CAP", Message: "A single request exceeds the per-request cap", StatusCode: http.StatusBadRequest}
	ErrUnknownLeaveType    = &AppError{Kind: KindBusinessRule, Code: "UNKNOWN_LEAVE_TYPE", Message: "Unknown leave category", StatusCode: http.StatusBadRequest}
	ErrInsufficientBalance = &AppError{Kind: KindBusinessRule, Code: "INSUFFICIENT_BALANCE", Message: "Insufficient remaining balance", StatusCode: http.StatusBadRequest}
	ErrInvalidDayCount     = &AppError{Kind: KindValidation, Code: "INVALID_DAY_COUNT", Message: "Day count must be a positive multiple of 0.5", StatusCode: http.StatusBadRequest}
	ErrLeaveRecordNotFound = &AppError{Kind: KindNotFound, Code: "LEAVE_RECORD_NOT_FOUND", Message: "Leave record not found", StatusCode: http.StatusNotFound}
	ErrReceiptTooLarge     = &AppError{Kind: KindValidation, Code: "RECEIPT_TOO_LARGE", Message: "Receipt file is too large", StatusCode: http.StatusRequestEntityTooLarge}
	ErrReceiptType         = &AppError{Kind: KindValidation, Code: "UNSUPPORTED_RECEIPT_TYPE", Message: "Receipt must be a PDF, image or office document", StatusCode: http.StatusUnsupportedMediaType}
)

// External service errors. These are reported as warnings on leave
// submission and never abort a committed request.
var (
	ErrReceiptUpload  = &AppError{Kind: KindExternalService, Code: "RECEIPT_UPLOAD_FAILED", Message: "Receipt upload failed", StatusCode: http.StatusBadGateway}
	ErrCalendarMirror = &AppError{Kind: KindExternalService, Code: "CALENDAR_SYNC_FAILED", Message: "Calendar synchronisation failed", StatusCode: http.StatusBadGateway}
)
