// Package apperrors defines the domain error taxonomy shared by services and handlers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates a requested user record does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken indicates the email is already used by another record.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is the uniform login failure. It deliberately does not
	// distinguish an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserGone indicates a structurally valid token references a deleted user.
	ErrUserGone = errors.New("user no longer exists")
	// ErrForbidden indicates the caller is neither the record owner nor an admin.
	ErrForbidden = errors.New("access denied")
	// ErrRoleChangeForbidden indicates a non-admin tried to change a role.
	ErrRoleChangeForbidden = errors.New("only admins can change roles")
	// ErrRefreshExpired tells the caller to log in again.
	ErrRefreshExpired = errors.New("refresh token expired, please login again")
	// ErrRefreshInvalid covers malformed, forged or wrong-kind refresh tokens.
	ErrRefreshInvalid = errors.New("invalid refresh token")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation creates a ValidationError with a formatted message
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Status maps a domain error to its HTTP status code.
// Unknown errors map to 500 and their details must not reach the response body.
func Status(err error) int {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserGone),
		errors.Is(err, ErrRefreshExpired), errors.Is(err, ErrRefreshInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrRoleChangeForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
