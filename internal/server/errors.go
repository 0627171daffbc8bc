// Package server provides the HTTP REST API for the job tracker.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/job-tracker/internal/resolver"
)

// ErrUsernameTaken indicates the username is already registered.
type ErrUsernameTaken struct {
	Username string
}

func (e *ErrUsernameTaken) Error() string {
	return fmt.Sprintf("username is already taken: %s", e.Username)
}

// ErrEmailTaken indicates the email is already registered to another account.
type ErrEmailTaken struct {
	Email string
}

func (e *ErrEmailTaken) Error() string {
	return fmt.Sprintf("email is already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid username or password"
}

// ErrUserNotFound indicates the user was not found.
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrNotOwner indicates the requester does not own the record.
type ErrNotOwner struct{}

func (e *ErrNotOwner) Error() string {
	return "not authorized to access this record"
}

// ErrNotFound indicates a missing record or resume.
type ErrNotFound struct {
	Resource string
}

func (e *ErrNotFound) Error() string {
	return e.Resource + " not found"
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Unrecognized errors are treated as persistence failures.
func HTTPStatus(err error) int {
	if errors.Is(err, resolver.ErrMissingName) || errors.Is(err, resolver.ErrInvalidStatus) {
		return http.StatusBadRequest
	}

	switch err.(type) {
	case *ErrUsernameTaken, *ErrEmailTaken:
		return http.StatusConflict
	case *ErrInvalidCredentials:
		return http.StatusUnauthorized
	case *ErrNotOwner:
		return http.StatusForbidden
	case *ErrUserNotFound, *ErrNotFound:
		return http.StatusNotFound
	case *ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
