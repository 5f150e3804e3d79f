package service

import (
	"github.com/sowerhq/sower/internal/domain"
)

// Project errors
var (
	ErrProjectNotFound = domain.ErrProjectNotFound
	ErrProjectInactive = domain.ErrProjectInactive
)

// Subscription errors
var (
	ErrSubscriptionNotFound  = domain.ErrSubscriptionNotFound
	ErrDuplicateSubscription = domain.ErrDuplicateSubscription
	ErrInvalidTransition     = domain.ErrInvalidTransition
	ErrInvalidInterval       = domain.ErrInvalidInterval
)

// Payment and reconciliation errors. The gateway sentinels surface
// through mapGatewayError so callers can distinguish an outage from a
// rejected request.
var (
	ErrPaymentNotFound    = domain.ErrPaymentNotFound
	ErrGatewayUnavailable = domain.Errorf(domain.EPAYMENT, "", "Payment provider is temporarily unavailable")
	ErrGatewayRejected    = domain.Errorf(domain.EPAYMENT, "", "Payment provider rejected the request")
)

// Validation errors - use domain.EINVALID
var (
	ErrInvalidAmount = domain.Errorf(domain.EINVALID, "", "Amount must be greater than 0")
	ErrMissingEmail  = domain.Errorf(domain.EINVALID, "", "Donor email is required")
)
