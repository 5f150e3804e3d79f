package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment-related domain errors.
var (
	ErrPaymentNotFound         = &Error{Code: ENOTFOUND, Message: "Payment not found"}
	ErrPaymentAlreadyProcessed = &Error{Code: ECONFLICT, Message: "Payment has already been processed"}
	ErrDuplicateReference      = &Error{Code: ECONFLICT, Message: "Payment reference already exists"}
)

// PaymentStatus is the settlement state of a single charge attempt.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment records one charge attempt against a subscription.
// ExternalReference is unique and serves as the idempotency key for
// reconciliation: verify and webhook paths may both report the same
// charge, but its effects are applied at most once.
type Payment struct {
	ID                uuid.UUID
	SubscriptionID    uuid.UUID
	UserID            uuid.UUID
	ProjectID         uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	Status            PaymentStatus
	ExternalReference string
	Channel           string
	PaidAt            *time.Time
	FailureReason     string
	Metadata          map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
