package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription-related domain errors.
var (
	ErrSubscriptionNotFound  = &Error{Code: ENOTFOUND, Message: "Subscription not found"}
	ErrDuplicateSubscription = &Error{Code: ECONFLICT, Message: "An active subscription for this project already exists"}
	ErrInvalidTransition     = &Error{Code: ECONFLICT, Message: "Subscription is not in a state that allows this operation"}
	ErrInvalidInterval       = &Error{Code: EINVALID, Message: "Invalid payment interval"}
)

// SubscriptionStatus is the lifecycle state of a recurring donation.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPaused    SubscriptionStatus = "PAUSED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

// Valid reports whether s is a known subscription status.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPaused, SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
// CANCELLED and EXPIRED subscriptions never come back.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

// Interval is the billing cadence of a subscription.
type Interval string

const (
	IntervalWeekly    Interval = "WEEKLY"
	IntervalMonthly   Interval = "MONTHLY"
	IntervalQuarterly Interval = "QUARTERLY"
	IntervalAnnually  Interval = "ANNUALLY"
	IntervalCustom    Interval = "CUSTOM"
)

// Valid reports whether i is a known interval.
func (i Interval) Valid() bool {
	switch i {
	case IntervalWeekly, IntervalMonthly, IntervalQuarterly, IntervalAnnually, IntervalCustom:
		return true
	}
	return false
}

// Subscription is a donor's recurring commitment to a project.
//
// Gateway references (CustomerCode, SubscriptionCode, EmailToken,
// AuthorizationCode) are empty until the first successful payment is
// reconciled; PlanCode is set at creation for non-custom intervals.
type Subscription struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	ProjectID         uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	Interval          Interval
	CustomDays        int
	Status            SubscriptionStatus
	StartDate         time.Time
	EndDate           *time.Time
	NextPaymentAt     *time.Time
	LastPaymentAt     *time.Time
	DonorEmail        string
	DonorName         string
	PlanCode          string
	CustomerCode      string
	SubscriptionCode  string
	EmailToken        string
	AuthorizationCode string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CanPause reports whether the subscription may move to PAUSED.
func (s *Subscription) CanPause() bool { return s.Status == SubscriptionStatusActive }

// CanResume reports whether the subscription may move back to ACTIVE.
func (s *Subscription) CanResume() bool { return s.Status == SubscriptionStatusPaused }

// CanCancel reports whether the subscription may move to CANCELLED.
func (s *Subscription) CanCancel() bool { return !s.Status.Terminal() }
