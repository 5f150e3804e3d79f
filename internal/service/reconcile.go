package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
)

// ReconcileService is the payment reconciliation engine. Both confirmation
// paths converge here: donor-initiated verification after checkout, and
// asynchronous webhook events from the gateway. Every effect of a
// successful charge is applied at most once per payment reference no
// matter how many times, or in which order, the two paths report it.
type ReconcileService interface {
	// VerifyPayment asks the gateway for the settled state of a charge and
	// applies the outcome. Safe to call any number of times; a charge whose
	// effects were already applied returns the stored payment unchanged.
	VerifyPayment(ctx context.Context, reference string) (*domain.Payment, error)

	// ApplyChargeSuccess applies a settled charge reported by webhook.
	// If no payment row exists for the reference, this is a gateway-raised
	// renewal charge: a payment row is created from the subscription in
	// the event metadata before the effects are applied. Events that
	// cannot be tied to a subscription are logged and dropped.
	ApplyChargeSuccess(ctx context.Context, params ChargeSuccessParams) error

	// ActivateMandate stores gateway mandate references reported by a
	// subscription.create event, matched by plan code and donor email.
	ActivateMandate(ctx context.Context, params MandateParams) error

	// DisableMandate cancels the local subscription when the gateway
	// reports the mandate disabled. The gateway is authoritative here:
	// the transition is forced regardless of local state, unless the
	// subscription is already terminal.
	DisableMandate(ctx context.Context, subscriptionCode string) error

	// NotifyUpcomingCharge sends a payment reminder when the gateway
	// announces an upcoming renewal invoice.
	NotifyUpcomingCharge(ctx context.Context, subscriptionCode string) error

	// RecordChargeFailure records a failed renewal charge and notifies the
	// donor. The subscription stays ACTIVE; the expiry sweep is the
	// backstop for subscriptions that keep failing.
	RecordChargeFailure(ctx context.Context, params ChargeFailureParams) error

	// ChargeDueSubscriptions raises renewal charges for custom-interval
	// subscriptions that are past due, using their saved authorization.
	// Returns how many charges were initiated. Per-item failures are
	// logged and skipped.
	ChargeDueSubscriptions(ctx context.Context) (int, error)
}

// ChargeSuccessParams describes a settled charge reported by the gateway.
type ChargeSuccessParams struct {
	Reference         string
	Amount            decimal.Decimal
	Currency          string
	Channel           string
	PaidAt            time.Time
	CustomerCode      string
	CustomerEmail     string
	AuthorizationCode string
	Metadata          map[string]any
}

// MandateParams describes a subscription.create event.
type MandateParams struct {
	SubscriptionCode string
	EmailToken       string
	CustomerCode     string
	PlanCode         string
	CustomerEmail    string
	NextPaymentAt    *time.Time
}

// ChargeFailureParams describes a failed renewal charge.
type ChargeFailureParams struct {
	SubscriptionCode string
	Reference        string
	Amount           decimal.Decimal
	Reason           string
}
