// Package email renders and delivers donor-facing messages: payment
// receipts, failure notices, reminders ahead of upcoming charges, and
// cancellation confirmations.
package email

import "context"

// Email is a single outbound message, already rendered.
type Email struct {
	To       []string
	From     string // defaults to the sender's configured address when empty
	Subject  string
	TextBody string
	HTMLBody string

	// Headers carries extra SMTP headers, e.g. List-Unsubscribe.
	Headers map[string]string

	Attachments []Attachment
}

// Attachment is a file included with a message. Receipts may carry none;
// the type exists so senders stay usable for future statement exports.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Sender delivers rendered messages. SMTP and Postmark implementations
// are provided; the active one is chosen by configuration.
type Sender interface {
	// Send delivers one message and returns the provider's message ID
	// when the provider assigns one.
	Send(ctx context.Context, email *Email) (string, error)

	// SendTemplate delivers via a provider-hosted template. Senders that
	// render locally return ErrNotImplemented.
	SendTemplate(ctx context.Context, templateID string, to []string, data map[string]interface{}) (string, error)
}
