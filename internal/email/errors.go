package email

import "fmt"

// Error codes kept as plain strings so this package does not import the
// domain package; the handler layer maps them when an email error ever
// crosses an HTTP boundary.
const (
	codeNotFound = "not_found"
	codeNotImpl  = "not_implemented"
)

// EmailError is a delivery or rendering failure with a stable code.
type EmailError struct {
	Code    string
	Message string
}

func (e *EmailError) Error() string { return e.Message }

// ErrorCode returns the stable error code.
func (e *EmailError) ErrorCode() string { return e.Code }

// ErrNotImplemented is returned by senders for operations their provider
// does not support.
var ErrNotImplemented = &EmailError{Code: codeNotImpl, Message: "Email method not implemented"}

// ErrTemplateNotFound reports a missing embedded template. Only reachable
// if the embed glob and the template names drift apart.
func ErrTemplateNotFound(name string) error {
	return &EmailError{Code: codeNotFound, Message: fmt.Sprintf("Email template %s not found", name)}
}
