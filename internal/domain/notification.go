package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification-related domain errors.
var (
	ErrNotificationNotFound = &Error{Code: ENOTFOUND, Message: "Notification not found"}
)

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationPaymentReminder NotificationType = "payment_reminder"
	NotificationPaymentSuccess  NotificationType = "payment_success"
	NotificationPaymentFailed   NotificationType = "payment_failed"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationPaymentReminder, NotificationPaymentSuccess, NotificationPaymentFailed:
		return true
	}
	return false
}

// Notification is an in-app message shown to a donor.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      NotificationType
	Title     string
	Message   string
	Metadata  map[string]any
	Read      bool
	CreatedAt time.Time
}
