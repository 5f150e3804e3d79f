// Package webhook receives asynchronous event notifications from the
// payment gateway. Paystack delivers events as signed POST requests and
// redelivers on any non-2xx for up to 72 hours. Events we have chosen
// to drop (unknown types, malformed payloads, unmatched mandates) are
// acknowledged with 200 since redelivery cannot change the outcome;
// only internal failures, where a retry can succeed, return 500.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/gateway"
	"github.com/sowerhq/sower/internal/handler"
	"github.com/sowerhq/sower/internal/service"
	"github.com/sowerhq/sower/internal/telemetry"
)

// PaystackHandler handles Paystack webhook events.
type PaystackHandler struct {
	reconcile service.ReconcileService
	config    PaystackWebhookConfig
	logger    *slog.Logger
}

// PaystackWebhookConfig contains configuration for Paystack webhook handling.
type PaystackWebhookConfig struct {
	// SecretKey is the account secret Paystack signs event bodies with.
	// Paystack has no separate webhook signing secret.
	SecretKey string
}

// NewPaystackHandler creates a new Paystack webhook handler.
func NewPaystackHandler(reconcile service.ReconcileService, config PaystackWebhookConfig, logger *slog.Logger) *PaystackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaystackHandler{
		reconcile: reconcile,
		config:    config,
		logger:    logger,
	}
}

// paystackEvent is the envelope Paystack wraps every event payload in.
type paystackEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// chargeEventData is the charge object carried by charge.success events.
type chargeEventData struct {
	Reference       string         `json:"reference"`
	Status          string         `json:"status"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	Channel         string         `json:"channel"`
	GatewayResponse string         `json:"gateway_response"`
	PaidAt          string         `json:"paid_at"`
	Metadata        map[string]any `json:"metadata"`
	Customer        struct {
		CustomerCode string `json:"customer_code"`
		Email        string `json:"email"`
	} `json:"customer"`
	Authorization struct {
		AuthorizationCode string `json:"authorization_code"`
	} `json:"authorization"`
}

// subscriptionEventData is the subscription object carried by
// subscription.create and subscription.disable events.
type subscriptionEventData struct {
	SubscriptionCode string `json:"subscription_code"`
	EmailToken       string `json:"email_token"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	NextPaymentDate  string `json:"next_payment_date"`
	Plan             struct {
		PlanCode string `json:"plan_code"`
	} `json:"plan"`
	Customer struct {
		CustomerCode string `json:"customer_code"`
		Email        string `json:"email"`
	} `json:"customer"`
}

// invoiceEventData is the invoice object carried by invoice.* events.
type invoiceEventData struct {
	Subscription struct {
		SubscriptionCode string `json:"subscription_code"`
	} `json:"subscription"`
	Transaction struct {
		Reference string `json:"reference"`
	} `json:"transaction"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// HandleWebhook processes incoming Paystack webhook events.
//
// Usage in main.go or router:
//
//	paystackHandler := webhook.NewPaystackHandler(reconcileService, webhook.PaystackWebhookConfig{
//	    SecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
//	}, logger)
//	mux.HandleFunc("/webhooks/paystack", paystackHandler.HandleWebhook)
func (h *PaystackHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	// Only accept POST requests
	if r.Method != http.MethodPost {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.paystack", "Method not allowed"))
		return
	}

	// The signature covers the exact bytes Paystack sent, so the body must
	// be read raw before any decoding.
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook payload", "error", err)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.paystack", "Error reading request body"))
		return
	}

	signature := r.Header.Get("X-Paystack-Signature")
	if err := gateway.VerifySignature(payload, signature, h.config.SecretKey); err != nil {
		h.logger.Warn("webhook signature verification failed",
			"remote_addr", r.RemoteAddr,
			"payload_size", len(payload),
		)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "webhook.paystack", "Invalid signature"))
		return
	}

	var event paystackEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("failed to parse webhook event", "error", err)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.paystack", "Invalid JSON"))
		return
	}

	h.logger.Info("webhook event received", "event", event.Event, "payload_size", len(payload))

	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(event.Event).Inc()
	}
	defer func() {
		if telemetry.Business != nil {
			telemetry.Business.WebhookLatency.WithLabelValues(event.Event).Observe(time.Since(startTime).Seconds())
		}
	}()

	ctx := r.Context()

	var procErr error
	switch event.Event {
	case "charge.success":
		procErr = h.handleChargeSuccess(ctx, event)

	case "subscription.create":
		procErr = h.handleSubscriptionCreate(ctx, event)

	case "subscription.disable", "subscription.not_renew":
		procErr = h.handleSubscriptionDisable(ctx, event)

	case "invoice.create", "invoice.update":
		procErr = h.handleInvoiceCreate(ctx, event)

	case "invoice.payment_failed":
		procErr = h.handleInvoicePaymentFailed(ctx, event)

	default:
		h.logger.Info("ignoring unhandled webhook event", "event", event.Event)
	}

	// Internal failures get a 500 so Paystack redelivers; the apply path
	// is idempotent, so a redelivered event is safe. Everything else is
	// acked: redelivering a payload we rejected deterministically would
	// just repeat the rejection for 72 hours.
	if procErr != nil && domain.ErrorCode(procErr) == domain.EINTERNAL {
		handler.ErrorResponse(w, r, procErr)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received": true}`))
}

// handleChargeSuccess applies a settled charge. This covers both
// checkout charges (the donor may also verify; reconciliation makes the
// two paths converge) and plan renewal charges raised by the gateway.
func (h *PaystackHandler) handleChargeSuccess(ctx context.Context, event paystackEvent) error {
	var charge chargeEventData
	if err := json.Unmarshal(event.Data, &charge); err != nil {
		h.logger.Error("failed to parse charge.success data", "error", err)
		h.trackFailure(event.Event, "parse_error")
		return nil
	}

	// Paystack occasionally omits paid_at; fall back to receipt time so a
	// zero timestamp never drives the subscription date advance.
	paidAt := parseEventTime(charge.PaidAt)
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	err := h.reconcile.ApplyChargeSuccess(ctx, service.ChargeSuccessParams{
		Reference:         charge.Reference,
		Amount:            decimal.New(charge.Amount, -2),
		Currency:          charge.Currency,
		Channel:           charge.Channel,
		PaidAt:            paidAt,
		CustomerCode:      charge.Customer.CustomerCode,
		CustomerEmail:     charge.Customer.Email,
		AuthorizationCode: charge.Authorization.AuthorizationCode,
		Metadata:          charge.Metadata,
	})
	if err != nil {
		h.logger.Error("failed to apply charge.success",
			"reference", charge.Reference,
			"error", err,
		)
		h.trackFailure(event.Event, "apply_failed")
		telemetry.CaptureErrorWithOp(err, "webhook.charge_success", map[string]interface{}{
			"reference": charge.Reference,
			"amount":    charge.Amount,
		})
		return err
	}

	h.logger.Info("charge applied", "reference", charge.Reference, "channel", charge.Channel)
	h.trackProcessed(event.Event)
	return nil
}

// handleSubscriptionCreate stores the mandate references the gateway
// assigned after the donor's first successful charge on a plan.
func (h *PaystackHandler) handleSubscriptionCreate(ctx context.Context, event paystackEvent) error {
	var sub subscriptionEventData
	if err := json.Unmarshal(event.Data, &sub); err != nil {
		h.logger.Error("failed to parse subscription.create data", "error", err)
		h.trackFailure(event.Event, "parse_error")
		return nil
	}

	var nextPaymentAt *time.Time
	if t := parseEventTime(sub.NextPaymentDate); !t.IsZero() {
		nextPaymentAt = &t
	}

	err := h.reconcile.ActivateMandate(ctx, service.MandateParams{
		SubscriptionCode: sub.SubscriptionCode,
		EmailToken:       sub.EmailToken,
		CustomerCode:     sub.Customer.CustomerCode,
		PlanCode:         sub.Plan.PlanCode,
		CustomerEmail:    sub.Customer.Email,
		NextPaymentAt:    nextPaymentAt,
	})
	if err != nil {
		h.logger.Error("failed to activate mandate",
			"subscription_code", sub.SubscriptionCode,
			"error", err,
		)
		h.trackFailure(event.Event, "activate_failed")
		return err
	}

	h.logger.Info("mandate activated", "subscription_code", sub.SubscriptionCode)
	h.trackProcessed(event.Event)
	return nil
}

// handleSubscriptionDisable cancels the local subscription when the
// gateway reports the mandate disabled. A disable we initiated ourselves
// (pause or cancel) echoes back through here; reconciliation drops those.
func (h *PaystackHandler) handleSubscriptionDisable(ctx context.Context, event paystackEvent) error {
	var sub subscriptionEventData
	if err := json.Unmarshal(event.Data, &sub); err != nil {
		h.logger.Error("failed to parse subscription.disable data", "error", err)
		h.trackFailure(event.Event, "parse_error")
		return nil
	}

	if err := h.reconcile.DisableMandate(ctx, sub.SubscriptionCode); err != nil {
		h.logger.Error("failed to disable mandate",
			"subscription_code", sub.SubscriptionCode,
			"error", err,
		)
		h.trackFailure(event.Event, "disable_failed")
		return err
	}

	h.logger.Info("mandate disabled", "subscription_code", sub.SubscriptionCode)
	h.trackProcessed(event.Event)
	return nil
}

// handleInvoiceCreate sends a payment reminder. Paystack raises
// invoice.create a few days before charging a plan subscription.
func (h *PaystackHandler) handleInvoiceCreate(ctx context.Context, event paystackEvent) error {
	var invoice invoiceEventData
	if err := json.Unmarshal(event.Data, &invoice); err != nil {
		h.logger.Error("failed to parse invoice data", "error", err)
		h.trackFailure(event.Event, "parse_error")
		return nil
	}

	if err := h.reconcile.NotifyUpcomingCharge(ctx, invoice.Subscription.SubscriptionCode); err != nil {
		h.logger.Error("failed to send upcoming charge reminder",
			"subscription_code", invoice.Subscription.SubscriptionCode,
			"error", err,
		)
		h.trackFailure(event.Event, "notify_failed")
		return err
	}

	h.trackProcessed(event.Event)
	return nil
}

// handleInvoicePaymentFailed records a failed renewal charge. The
// subscription stays active; the expiry sweep catches mandates that
// never recover.
func (h *PaystackHandler) handleInvoicePaymentFailed(ctx context.Context, event paystackEvent) error {
	var invoice invoiceEventData
	if err := json.Unmarshal(event.Data, &invoice); err != nil {
		h.logger.Error("failed to parse invoice.payment_failed data", "error", err)
		h.trackFailure(event.Event, "parse_error")
		return nil
	}

	reason := invoice.Description
	if reason == "" {
		reason = "renewal charge failed"
	}

	err := h.reconcile.RecordChargeFailure(ctx, service.ChargeFailureParams{
		SubscriptionCode: invoice.Subscription.SubscriptionCode,
		Reference:        invoice.Transaction.Reference,
		Amount:           decimal.New(invoice.Amount, -2),
		Reason:           reason,
	})
	if err != nil {
		h.logger.Error("failed to record charge failure",
			"subscription_code", invoice.Subscription.SubscriptionCode,
			"error", err,
		)
		h.trackFailure(event.Event, "record_failed")
		return err
	}

	h.logger.Info("renewal charge failure recorded",
		"subscription_code", invoice.Subscription.SubscriptionCode,
	)
	h.trackProcessed(event.Event)
	return nil
}

func (h *PaystackHandler) trackProcessed(event string) {
	if telemetry.Business != nil {
		telemetry.Business.WebhookProcessed.WithLabelValues(event).Inc()
	}
}

func (h *PaystackHandler) trackFailure(event, reason string) {
	if telemetry.Business != nil {
		telemetry.Business.WebhookFailed.WithLabelValues(event, reason).Inc()
	}
}

// parseEventTime parses the timestamp formats Paystack mixes across
// event payloads. Returns the zero time when the field is absent.
func parseEventTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
