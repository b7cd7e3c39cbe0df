package service

import (
	"errors"
	"fmt"

	"github.com/tournevent/shipments/internal/model"
)

// Kind classifies a service error for transport-level mapping.
type Kind int

const (
	KindValidation Kind = iota + 1 // malformed or missing input
	KindNotFound                   // unknown order/courier/shipment
	KindConflict                   // duplicate shipment for an order
	KindForbidden                  // role or ownership violation
	KindUnauthorized               // bad or missing scheduler secret / identity
	KindProvider                   // vendor call failed
)

// Error is the service-level error carrying its taxonomy kind. Provider
// failures during creation also carry the already-persisted shipment so
// callers can inspect the marked row.
type Error struct {
	Kind     Kind
	Message  string
	Shipment *model.Shipment
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Errf builds a service error from a format string.
func Errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
