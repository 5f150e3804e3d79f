package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the gateway cannot be reached or
	// answers with a server error. Retryable.
	ErrUnavailable = errors.New("gateway: provider unavailable")

	// ErrRejected is returned when the gateway understood the request and
	// refused it (validation failure, declined charge). Not retryable.
	ErrRejected = errors.New("gateway: request rejected")

	// ErrInvalidSignature is returned when webhook signature verification fails.
	ErrInvalidSignature = errors.New("gateway: invalid webhook signature")

	// ErrTransactionNotFound is returned when no transaction matches the reference.
	ErrTransactionNotFound = errors.New("gateway: transaction not found")
)

// APIError wraps a gateway API failure with the provider's own detail.
type APIError struct {
	Message    string // Provider's human-readable message
	StatusCode int    // HTTP status code from the provider
	Endpoint   string // Path the request was sent to
	Err        error  // ErrUnavailable or ErrRejected
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("paystack: %s %s (status %d)", e.Endpoint, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("paystack: %s %s", e.Endpoint, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTemporary returns true if the failure is likely transient and the call
// can be retried by a later sweep.
func (e *APIError) IsTemporary() bool {
	return errors.Is(e.Err, ErrUnavailable)
}
