package courier

import (
	"errors"
	"fmt"
)

// ProviderError represents an error from a courier vendor API.
type ProviderError struct {
	Courier    string
	Code       string
	Message    string
	StatusCode int
	RawBody    string
	Cause      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Courier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Courier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ProviderError.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewProviderError creates a new ProviderError.
func NewProviderError(courier, code, message string) *ProviderError {
	return &ProviderError{
		Courier: courier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Cause = err
	return e
}

// WithStatusCode adds the vendor's HTTP status code to the error.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	return e
}

// WithRawBody keeps the vendor's raw response body for diagnostics.
func (e *ProviderError) WithRawBody(body string) *ProviderError {
	e.RawBody = body
	return e
}

// Sentinel errors for common courier scenarios.
var (
	// ErrProviderNotFound indicates no provider is registered for a courier type.
	ErrProviderNotFound = errors.New("courier provider not found")

	// ErrMissingTrackingToken indicates the shipment carries no token the
	// provider can use for a tracking lookup.
	ErrMissingTrackingToken = errors.New("missing tracking token")

	// ErrMalformedResponse indicates the vendor replied with a body the
	// provider could not interpret.
	ErrMalformedResponse = errors.New("malformed vendor response")

	// ErrUnknownStatus indicates a status string outside the canonical enum.
	ErrUnknownStatus = errors.New("unknown shipment status")
)

// IsProviderError reports whether err carries a ProviderError anywhere in
// its chain, returning it when present.
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
