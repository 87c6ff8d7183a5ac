package common

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error is a typed failure with a machine-readable code and the HTTP
// status it maps to. Flows return the first failing step's Error and the
// handler renders it directly; nothing in this core retries.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a typed error for ad-hoc cases (mostly validation).
func NewError(status int, code, message string) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

var (
	ErrInvalidCredentials    = &Error{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", Status: http.StatusUnauthorized}
	ErrTokenMissing          = &Error{Code: "TOKEN_MISSING", Message: "Missing bearer token", Status: http.StatusUnauthorized}
	ErrTokenInvalid          = &Error{Code: "TOKEN_INVALID", Message: "Invalid token", Status: http.StatusUnauthorized}
	ErrTokenExpired          = &Error{Code: "TOKEN_EXPIRED", Message: "Token expired", Status: http.StatusUnauthorized}
	ErrTokenWrongType        = &Error{Code: "TOKEN_WRONG_TYPE", Message: "Wrong token type", Status: http.StatusUnauthorized}
	ErrSessionExpired        = &Error{Code: "SESSION_EXPIRED", Message: "Session expired", Status: http.StatusUnauthorized}
	ErrAdminKeyInvalid       = &Error{Code: "ADMIN_KEY_INVALID", Message: "Invalid admin key", Status: http.StatusUnauthorized}
	ErrAccountDisabled       = &Error{Code: "ACCOUNT_DISABLED", Message: "Account is disabled", Status: http.StatusForbidden}
	ErrSubscriptionExpired   = &Error{Code: "SUBSCRIPTION_EXPIRED", Message: "Subscription has expired", Status: http.StatusForbidden}
	ErrSubscriptionSuspended = &Error{Code: "SUBSCRIPTION_SUSPENDED", Message: "Subscription is suspended", Status: http.StatusForbidden}
	ErrTenantNotFound        = &Error{Code: "TENANT_NOT_FOUND", Message: "Tenant not found", Status: http.StatusNotFound}
	ErrTooManyAttempts       = &Error{Code: "TOO_MANY_ATTEMPTS", Message: "Too many login attempts, try again later", Status: http.StatusTooManyRequests}
	ErrInternal              = &Error{Code: "INTERNAL_ERROR", Message: "Internal server error", Status: http.StatusInternalServerError}
)

// ValidationError builds a 400 for missing or malformed input.
func ValidationError(message string) *Error {
	return &Error{Code: "VALIDATION_ERROR", Message: message, Status: http.StatusBadRequest}
}

// ErrorResponse is the JSON envelope every failure is rendered as.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Respond renders err as its HTTP response. Anything that is not a
// typed *Error becomes a 500 whose message never echoes the cause.
func Respond(c echo.Context, err error) error {
	var typed *Error
	if !errors.As(err, &typed) {
		typed = ErrInternal
	}
	var resp ErrorResponse
	resp.Error.Code = typed.Code
	resp.Error.Message = typed.Message
	return c.JSON(typed.Status, &resp)
}
