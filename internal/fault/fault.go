// Package fault defines the error taxonomy shared by the HTTP handlers.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the bearer credential is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the credential is valid but lacks admin rights.
	ErrForbidden = errors.New("admin access required")
)

// ValidationError reports a malformed request (cart shape, phone format,
// field constraints). It is always detected before any side effect.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InsufficientStockError reports that a requested quantity exceeds what is
// available, carrying the offending product and the remaining count.
type InsufficientStockError struct {
	Product   string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s: %d available", e.Product, e.Available)
}

// PersistenceError wraps a storage failure. Error() is deliberately generic;
// the wrapped cause is for logs only, never for responses.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "database error"
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps a domain error to the response status.
func HTTPStatus(err error) int {
	var (
		validation   *ValidationError
		notFound     *NotFoundError
		insufficient *InsufficientStockError
		persistence  *PersistenceError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &insufficient):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &persistence):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
