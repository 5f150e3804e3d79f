package domain

import (
	"errors"
	"fmt"
)

// Application error codes. The handler layer maps these to HTTP statuses;
// everything else in the codebase works in terms of codes, not statuses.
const (
	ECONFLICT     = "conflict"         // duplicate subscription, stale transition
	EINTERNAL     = "internal"         // unexpected failure, details hidden from clients
	EINVALID      = "invalid"          // bad input
	ENOTFOUND     = "not_found"        // missing resource
	EUNAUTHORIZED = "unauthorized"     // authentication required
	EFORBIDDEN    = "forbidden"        // authenticated but not permitted
	ENOTIMPL      = "not_implemented"  // feature not available
	ERATELIMIT    = "rate_limit"       // client sending too fast
	EPAYMENT      = "payment_required" // gateway declined or payment needed
	EGONE         = "gone"             // resource permanently removed
)

// Error is the application error type. Code drives the client-facing
// status, Message is safe to show to donors, Op names the failing
// operation for logs, and Err carries the wrapped cause.
type Error struct {
	Code    string
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the code of err. Validation errors are EINVALID;
// other non-domain errors are EINTERNAL so an unclassified failure can
// never leak a success status.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if IsValidationError(err) {
		return EINVALID
	}
	return EINTERNAL
}

// ErrorMessage returns the user-facing message of err. Internal and
// unclassified errors get a generic message so internals stay out of
// responses.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.userMessage()
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation recorded on err, if any.
func ErrorOp(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Errorf builds a domain error with a formatted message.
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code, op and user-facing message to an underlying
// error, keeping the cause reachable for errors.Is. Nil in, nil out.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// ValidationError carries per-field failures for a request payload, so
// clients can surface all problems in one round trip.
type ValidationError struct {
	Fields map[string]string
	Op     string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			if e.Op != "" {
				return fmt.Sprintf("%s: %s: %s", e.Op, field, msg)
			}
			return fmt.Sprintf("%s: %s", field, msg)
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: validation failed for %d fields", e.Op, len(e.Fields))
	}
	return fmt.Sprintf("validation failed for %d fields", len(e.Fields))
}

// userMessage is the client-facing summary, without the op prefix.
func (e *ValidationError) userMessage() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			return fmt.Sprintf("%s: %s", field, msg)
		}
	}
	return fmt.Sprintf("Validation failed for %d fields", len(e.Fields))
}

// NewValidationError reports a single failing field.
func NewValidationError(op, field, message string) error {
	return &ValidationError{Op: op, Fields: map[string]string{field: message}}
}

// AddFieldError accumulates a field failure onto err. A nil or non
// validation err starts a fresh ValidationError.
func AddFieldError(err error, field, message string) error {
	var ve *ValidationError
	if err != nil && errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return &ValidationError{Fields: map[string]string{field: message}}
}

// IsValidationError reports whether err carries field-level failures.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GetValidationFields returns the field failures on err, or nil.
func GetValidationFields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// NotFound reports a missing resource by name and identifier.
func NotFound(op, resource, identifier string) error {
	return &Error{Code: ENOTFOUND, Op: op, Message: fmt.Sprintf("%s not found: %s", resource, identifier)}
}

// Unauthorized reports a request that needs authentication.
func Unauthorized(op, message string) error {
	return &Error{Code: EUNAUTHORIZED, Op: op, Message: message}
}

// Forbidden reports an authenticated request for someone else's resource.
func Forbidden(op, message string) error {
	return &Error{Code: EFORBIDDEN, Op: op, Message: message}
}

// Invalid reports a single validation problem.
func Invalid(op, message string) error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

// Internal wraps an unexpected failure. Clients see a generic message; the
// cause goes to logs and error tracking.
func Internal(err error, op, message string) error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}
