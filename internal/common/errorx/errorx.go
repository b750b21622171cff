package errorx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Category groups errors by how the caller should react to them.
type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryState          Category = "state"
	CategoryNotFound       Category = "not_found"
	CategoryConflict       Category = "conflict"
	CategoryRateLimit      Category = "rate_limit"
	CategoryInternal       Category = "internal"
)

// APIError is a per-request error carrying a stable machine code and a
// human-readable message. Every error surfaced by the HTTP layer is one of
// these; anything else is mapped to INTERNAL_ERROR before responding.
type APIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"error"`
	Category   Category       `json:"-"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithDetail returns a copy of the error with an extra detail attached.
// The predefined errors are shared values and must not be mutated.
func (e *APIError) WithDetail(key string, value any) *APIError {
	clone := *e
	clone.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// WithMessage returns a copy of the error with a different human message.
func (e *APIError) WithMessage(format string, args ...any) *APIError {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// New creates a new APIError
func New(code, message string, category Category, httpStatus int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		Category:   category,
		HTTPStatus: httpStatus,
	}
}

// As extracts an *APIError from an error chain, or nil.
func As(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// Is reports whether err carries the given machine code.
func Is(err error, code string) bool {
	apiErr := As(err)
	return apiErr != nil && apiErr.Code == code
}

// Respond writes err as a JSON error payload on the gin context. Errors that
// are not APIErrors become an opaque 500 so internals never leak to clients.
func Respond(c *gin.Context, err error) {
	apiErr := As(err)
	if apiErr == nil {
		apiErr = ErrInternal
	}
	c.JSON(apiErr.HTTPStatus, apiErr)
}

// AbortWith responds with err and aborts the middleware chain.
func AbortWith(c *gin.Context, err error) {
	apiErr := As(err)
	if apiErr == nil {
		apiErr = ErrInternal
	}
	c.AbortWithStatusJSON(apiErr.HTTPStatus, apiErr)
}

// Validation errors: rejected before touching any store.
var (
	ErrMissingFields = New("MISSING_FIELDS", "All required fields must be provided", CategoryValidation, http.StatusBadRequest)
	ErrInvalidEmail  = New("INVALID_EMAIL", "Invalid email format", CategoryValidation, http.StatusBadRequest)
	ErrInvalidPhone  = New("INVALID_PHONE", "Invalid phone number format", CategoryValidation, http.StatusBadRequest)
	ErrWeakPassword  = New("WEAK_PASSWORD", "Password must be at least 8 characters long", CategoryValidation, http.StatusBadRequest)
	ErrMissingReason = New("MISSING_REASON", "A rejection reason is required", CategoryValidation, http.StatusBadRequest)
)

// Conflict errors raised by registration.
var (
	ErrEmailExists = New("EMAIL_EXISTS", "Email address is already registered", CategoryConflict, http.StatusConflict)
	ErrPhoneExists = New("PHONE_EXISTS", "Phone number is already registered", CategoryConflict, http.StatusConflict)
	ErrOwnerExists = New("OWNER_EXISTS", "This customer already has an owner account", CategoryConflict, http.StatusConflict)
)

// Credential errors. Password failures are deliberately uniform so account
// existence cannot be probed; OTP failures are specific because the phone is
// already known to the caller at that point.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", "Invalid email or password", CategoryAuthentication, http.StatusUnauthorized)
	ErrInvalidOTP         = New("INVALID_OTP", "Invalid OTP. Please try again.", CategoryAuthentication, http.StatusUnauthorized)
	ErrOTPExpired         = New("OTP_EXPIRED", "OTP expired or not found. Please request a new one.", CategoryAuthentication, http.StatusUnauthorized)
	ErrTooManyAttempts    = New("TOO_MANY_ATTEMPTS", "Too many failed attempts. Please request a new OTP.", CategoryAuthentication, http.StatusUnauthorized)
	ErrUserNotFound       = New("USER_NOT_FOUND", "User not found. Please contact administrator.", CategoryNotFound, http.StatusNotFound)
	ErrRateLimited        = New("RATE_LIMITED", "Too many OTP requests. Please try again later.", CategoryRateLimit, http.StatusTooManyRequests)
)

// Approval gate errors: specific so the client can render the right message.
var (
	ErrUserNotApproved   = New("USER_NOT_APPROVED", "Your account is pending approval.", CategoryAuthentication, http.StatusForbidden)
	ErrCustomerNotActive = New("CUSTOMER_NOT_ACTIVE", "Customer account is not active.", CategoryAuthentication, http.StatusForbidden)
)

// Session / authorization errors. 401 means "who are you", 403 means
// "you are known but not allowed".
var (
	ErrTokenMissing     = New("TOKEN_MISSING", "Authentication token is missing", CategoryAuthentication, http.StatusUnauthorized)
	ErrTokenInvalid     = New("TOKEN_INVALID", "Invalid or expired token", CategoryAuthentication, http.StatusUnauthorized)
	ErrPermissionDenied = New("PERMISSION_DENIED", "Permission denied", CategoryAuthorization, http.StatusForbidden)
	ErrPlatformOnly     = New("PLATFORM_ONLY", "Only platform administrators can access this resource", CategoryAuthorization, http.StatusForbidden)
)

// State errors raised by the approval workflow and admin actions.
var (
	ErrInvalidStatus         = New("INVALID_STATUS", "Action is not valid for the current status", CategoryState, http.StatusConflict)
	ErrInvalidRole           = New("INVALID_ROLE", "Invalid role", CategoryState, http.StatusBadRequest)
	ErrInvalidDepots         = New("INVALID_DEPOTS", "One or more depot codes are invalid", CategoryState, http.StatusBadRequest)
	ErrInvalidPermissionCode = New("INVALID_PERMISSION_CODE", "Permission code does not exist", CategoryState, http.StatusBadRequest)
	ErrInvalidCustomerCode   = New("INVALID_CUSTOMER_CODE", "Invalid customer code. Please contact your administrator.", CategoryState, http.StatusBadRequest)
	ErrCustomerNotFound      = New("CUSTOMER_NOT_FOUND", "Customer not found", CategoryNotFound, http.StatusNotFound)
	ErrTargetUserNotFound    = New("USER_NOT_FOUND", "User not found", CategoryNotFound, http.StatusNotFound)
)

// ErrInternal is the catch-all; nothing in this core treats it as fatal to
// the serving process.
var ErrInternal = New("INTERNAL_ERROR", "An error occurred. Please try again.", CategoryInternal, http.StatusInternalServerError)
