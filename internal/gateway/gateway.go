// Package gateway wraps the payment provider REST API behind a narrow
// interface. Amounts cross this boundary in major currency units; the
// conversion to the provider's minor units happens inside implementations
// and nowhere else.
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider defines the interface for the payment gateway.
// Implementations can use Paystack, Flutterwave, etc.
type Provider interface {
	// CreatePlan registers a recurring billing plan with the gateway.
	// Required before a card can be subscribed on a fixed cadence.
	CreatePlan(ctx context.Context, params CreatePlanParams) (*Plan, error)

	// InitializeTransaction starts a hosted checkout and returns the URL
	// the donor is redirected to, plus the access code for the session.
	InitializeTransaction(ctx context.Context, params InitializeTransactionParams) (*Checkout, error)

	// VerifyTransaction fetches the settled state of a charge by reference.
	// Used by the reconciliation engine; safe to call repeatedly.
	VerifyTransaction(ctx context.Context, reference string) (*Transaction, error)

	// CreateSubscription binds a customer's saved authorization to a plan.
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*GatewaySubscription, error)

	// EnableSubscription re-activates a disabled billing mandate.
	EnableSubscription(ctx context.Context, code, emailToken string) error

	// DisableSubscription stops the gateway from raising further charges.
	// Called on pause and cancel.
	DisableSubscription(ctx context.Context, code, emailToken string) error

	// ChargeAuthorization charges a saved card directly, outside any plan.
	// Used for custom-interval renewals which have no gateway plan.
	ChargeAuthorization(ctx context.Context, params ChargeAuthorizationParams) (*Transaction, error)
}

// CreatePlanParams contains parameters for creating a billing plan.
type CreatePlanParams struct {
	// Name shown in the gateway dashboard and on donor emails
	Name string

	// Amount per billing period in major currency units
	Amount decimal.Decimal

	// Currency code (ISO 4217) - e.g., "NGN"
	Currency string

	// Interval is the gateway cadence: "weekly", "monthly", "quarterly", "annually"
	Interval string
}

// Plan represents a billing plan registered with the gateway.
type Plan struct {
	PlanCode  string
	Name      string
	Amount    decimal.Decimal
	Currency  string
	Interval  string
	CreatedAt time.Time
}

// InitializeTransactionParams contains parameters for starting a checkout.
type InitializeTransactionParams struct {
	// Email identifies the customer on the gateway side
	Email string

	// Amount of the first charge in major currency units
	Amount decimal.Decimal

	// Currency code (ISO 4217)
	Currency string

	// Reference is our unique transaction reference, the idempotency key
	// that ties the gateway charge back to a local payment row
	Reference string

	// PlanCode subscribes the card to a plan on first charge (optional)
	PlanCode string

	// CallbackURL overrides the dashboard redirect target (optional)
	CallbackURL string

	// Metadata is echoed back on webhooks and verify responses
	Metadata map[string]any
}

// Checkout is a hosted payment session.
type Checkout struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// Transaction is the gateway's record of a single charge.
type Transaction struct {
	Reference         string
	Status            string // "success", "failed", "abandoned", "pending"
	Amount            decimal.Decimal
	Currency          string
	Channel           string
	GatewayResponse   string
	PaidAt            *time.Time
	CustomerCode      string
	CustomerEmail     string
	AuthorizationCode string
	Metadata          map[string]any
}

// Succeeded reports whether the charge settled successfully.
func (t *Transaction) Succeeded() bool {
	return t.Status == "success"
}

// CreateSubscriptionParams contains parameters for binding a customer to a plan.
type CreateSubscriptionParams struct {
	CustomerCode      string
	PlanCode          string
	AuthorizationCode string
	StartDate         *time.Time
}

// GatewaySubscription is the gateway's view of a recurring mandate.
type GatewaySubscription struct {
	SubscriptionCode string
	EmailToken       string
	Status           string
	NextPaymentAt    *time.Time
}

// ChargeAuthorizationParams contains parameters for charging a saved card.
type ChargeAuthorizationParams struct {
	Email             string
	Amount            decimal.Decimal
	Currency          string
	AuthorizationCode string
	Reference         string
	Metadata          map[string]any
}
