package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
)

// SubscriptionService provides business logic for recurring donations.
type SubscriptionService interface {
	// CreateSubscription sets up a new recurring donation.
	//
	// Flow:
	//  1. Validates the request (amount, interval, donor email)
	//  2. Checks the project is accepting donations
	//  3. Rejects a second ACTIVE subscription for the same donor + project
	//  4. Registers a gateway billing plan (fixed intervals only)
	//  5. Initializes a hosted checkout for the first charge
	//  6. Persists the ACTIVE subscription and a PENDING payment carrying
	//     the checkout reference
	//
	// The subscription starts ACTIVE; the first charge is confirmed later
	// by verification or webhook. Returns ErrDuplicateSubscription if an
	// ACTIVE subscription already exists, ErrProjectInactive if the
	// project is not accepting donations.
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*CreateSubscriptionResult, error)

	// GetSubscription retrieves one of the donor's subscriptions.
	GetSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error)

	// ListSubscriptions retrieves the donor's subscriptions, newest first.
	ListSubscriptions(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Subscription, error)

	// UpdateSubscription changes amount and cadence of an ACTIVE
	// subscription and reschedules the next payment from now.
	UpdateSubscription(ctx context.Context, params UpdateSubscriptionParams) (*domain.Subscription, error)

	// PauseSubscription moves ACTIVE to PAUSED and disables the gateway
	// mandate so no further charges are raised.
	PauseSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error)

	// ResumeSubscription moves PAUSED back to ACTIVE, re-enables the
	// gateway mandate and schedules the next payment from now.
	ResumeSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error)

	// CancelSubscription moves any non-terminal subscription to CANCELLED.
	// CANCELLED is terminal; the subscription cannot be reactivated.
	CancelSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error)

	// ExpireOverdue marks ACTIVE subscriptions whose next payment is more
	// than gracePeriod overdue as EXPIRED. Returns how many were expired.
	// Called by the daily sweep; idempotent.
	ExpireOverdue(ctx context.Context, gracePeriod time.Duration) (int64, error)

	// ListDueWithin returns ACTIVE subscriptions whose next payment falls
	// within the window starting now. Used by the reminder sweep.
	ListDueWithin(ctx context.Context, window time.Duration) ([]domain.Subscription, error)
}

// CreateSubscriptionParams contains parameters for creating a subscription.
type CreateSubscriptionParams struct {
	// UserID is the donor's user ID
	UserID uuid.UUID

	// ProjectID is the project being supported
	ProjectID uuid.UUID

	// Amount per billing period in major currency units
	Amount decimal.Decimal

	// Interval is the billing cadence
	Interval domain.Interval

	// CustomDays is the cadence in days; only used when Interval is CUSTOM
	CustomDays int

	// DonorEmail identifies the donor on the gateway side
	DonorEmail string

	// DonorName is optional display name
	DonorName string
}

// CreateSubscriptionResult is what the donor needs to complete checkout.
type CreateSubscriptionResult struct {
	Subscription *domain.Subscription

	// PaymentURL is the hosted checkout page for the first charge
	PaymentURL string

	// Reference identifies the first charge for later verification
	Reference string
}

// UpdateSubscriptionParams contains parameters for changing subscription terms.
type UpdateSubscriptionParams struct {
	UserID         uuid.UUID
	SubscriptionID uuid.UUID
	Amount         decimal.Decimal
	Interval       domain.Interval
	CustomDays     int
}
