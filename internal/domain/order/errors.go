package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by repositories when an order does not exist.
var ErrNotFound = errors.New("order not found")

// Sentinel validation errors.
var (
	ErrMissingBuyer = &ValidationError{Field: "buyerId", Reason: "is required"}
	ErrEmptyItems   = &ValidationError{Field: "products", Reason: "must be a non-empty array"}
)

// ValidationError reports a missing or malformed request field. It is
// detected before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ConflictError reports a uniqueness violation while storing an order or
// bill. Message is safe to show to clients.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
