package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/service"
)

const testSecretKey = "sk_test_webhook_secret"

// mockReconcileService implements service.ReconcileService for testing
type mockReconcileService struct {
	verifyPaymentFunc       func(ctx context.Context, reference string) error
	applyChargeSuccessFunc  func(ctx context.Context, params service.ChargeSuccessParams) error
	activateMandateFunc     func(ctx context.Context, params service.MandateParams) error
	disableMandateFunc      func(ctx context.Context, subscriptionCode string) error
	notifyUpcomingFunc      func(ctx context.Context, subscriptionCode string) error
	recordChargeFailureFunc func(ctx context.Context, params service.ChargeFailureParams) error
}

func (m *mockReconcileService) VerifyPayment(ctx context.Context, reference string) (*domain.Payment, error) {
	if m.verifyPaymentFunc != nil {
		return nil, m.verifyPaymentFunc(ctx, reference)
	}
	return nil, errors.New("not used in webhook tests")
}

var _ service.ReconcileService = (*mockReconcileService)(nil)

func (m *mockReconcileService) ApplyChargeSuccess(ctx context.Context, params service.ChargeSuccessParams) error {
	if m.applyChargeSuccessFunc != nil {
		return m.applyChargeSuccessFunc(ctx, params)
	}
	return errors.New("not stubbed")
}

func (m *mockReconcileService) ActivateMandate(ctx context.Context, params service.MandateParams) error {
	if m.activateMandateFunc != nil {
		return m.activateMandateFunc(ctx, params)
	}
	return errors.New("not stubbed")
}

func (m *mockReconcileService) DisableMandate(ctx context.Context, subscriptionCode string) error {
	if m.disableMandateFunc != nil {
		return m.disableMandateFunc(ctx, subscriptionCode)
	}
	return errors.New("not stubbed")
}

func (m *mockReconcileService) NotifyUpcomingCharge(ctx context.Context, subscriptionCode string) error {
	if m.notifyUpcomingFunc != nil {
		return m.notifyUpcomingFunc(ctx, subscriptionCode)
	}
	return errors.New("not stubbed")
}

func (m *mockReconcileService) RecordChargeFailure(ctx context.Context, params service.ChargeFailureParams) error {
	if m.recordChargeFailureFunc != nil {
		return m.recordChargeFailureFunc(ctx, params)
	}
	return errors.New("not stubbed")
}

func (m *mockReconcileService) ChargeDueSubscriptions(ctx context.Context) (int, error) {
	return 0, errors.New("not used in webhook tests")
}

// Helper functions

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func newSignedRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(payload))
	req.Header.Set("X-Paystack-Signature", signPayload(payload, testSecretKey))
	return req
}

func newTestHandler(reconcile service.ReconcileService) *PaystackHandler {
	return NewPaystackHandler(reconcile, PaystackWebhookConfig{
		SecretKey: testSecretKey,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func chargeSuccessPayload(reference string, amount int64, metadata string) []byte {
	return []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "` + reference + `",
			"status": "success",
			"amount": ` + jsonInt(amount) + `,
			"currency": "NGN",
			"channel": "card",
			"paid_at": "2026-08-30T11:22:33.000Z",
			"metadata": ` + metadata + `,
			"customer": {
				"customer_code": "CUS_abc123",
				"email": "donor@example.com"
			},
			"authorization": {
				"authorization_code": "AUTH_xyz789"
			}
		}
	}`)
}

func subscriptionEventPayload(event, subscriptionCode string) []byte {
	return []byte(`{
		"event": "` + event + `",
		"data": {
			"subscription_code": "` + subscriptionCode + `",
			"email_token": "tok_xyz",
			"status": "active",
			"amount": 500000,
			"next_payment_date": "2026-10-01T00:00:00.000Z",
			"plan": {"plan_code": "PLN_monthly_1"},
			"customer": {
				"customer_code": "CUS_abc123",
				"email": "donor@example.com"
			}
		}
	}`)
}

func invoiceEventPayload(event, subscriptionCode, reference string) []byte {
	return []byte(`{
		"event": "` + event + `",
		"data": {
			"subscription": {"subscription_code": "` + subscriptionCode + `"},
			"transaction": {"reference": "` + reference + `"},
			"amount": 500000,
			"status": "pending",
			"description": "Insufficient funds"
		}
	}`)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// Tests

func TestPaystackHandler_Security(t *testing.T) {
	payload := chargeSuccessPayload("ref_sec_1", 500000, `{}`)

	tests := []struct {
		name           string
		method         string
		signature      string
		expectedStatus int
	}{
		{
			name:           "rejects_GET_request",
			method:         http.MethodGet,
			signature:      signPayload(payload, testSecretKey),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rejects_PUT_request",
			method:         http.MethodPut,
			signature:      signPayload(payload, testSecretKey),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rejects_missing_signature",
			method:         http.MethodPost,
			signature:      "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "rejects_wrong_signature",
			method:         http.MethodPost,
			signature:      signPayload(payload, "sk_test_other_secret"),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "rejects_signature_over_different_body",
			method:         http.MethodPost,
			signature:      signPayload([]byte(`{"event":"charge.success"}`), testSecretKey),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reconcileCalled := false
			handler := newTestHandler(&mockReconcileService{
				applyChargeSuccessFunc: func(ctx context.Context, params service.ChargeSuccessParams) error {
					reconcileCalled = true
					return nil
				},
			})

			req := httptest.NewRequest(tt.method, "/webhooks/paystack", bytes.NewReader(payload))
			if tt.signature != "" {
				req.Header.Set("X-Paystack-Signature", tt.signature)
			}

			rr := httptest.NewRecorder()
			handler.HandleWebhook(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if reconcileCalled {
				t.Error("reconciliation must not run for rejected requests")
			}
		})
	}
}

func TestPaystackHandler_ChargeSuccess(t *testing.T) {
	var got service.ChargeSuccessParams
	handler := newTestHandler(&mockReconcileService{
		applyChargeSuccessFunc: func(ctx context.Context, params service.ChargeSuccessParams) error {
			got = params
			return nil
		},
	})

	metadata := `{"subscriptionId": "123e4567-e89b-12d3-a456-426614174000", "renewal": true}`
	payload := chargeSuccessPayload("ref_charge_1", 500000, metadata)

	rr := httptest.NewRecorder()
	handler.HandleWebhook(rr, newSignedRequest(t, payload))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got.Reference != "ref_charge_1" {
		t.Errorf("expected reference ref_charge_1, got %q", got.Reference)
	}
	if got.Amount.String() != "5000" {
		t.Errorf("expected amount 5000 major units, got %s", got.Amount)
	}
	if got.Currency != "NGN" {
		t.Errorf("expected currency NGN, got %q", got.Currency)
	}
	if got.AuthorizationCode != "AUTH_xyz789" {
		t.Errorf("expected authorization code AUTH_xyz789, got %q", got.AuthorizationCode)
	}
	if got.CustomerEmail != "donor@example.com" {
		t.Errorf("expected customer email donor@example.com, got %q", got.CustomerEmail)
	}
	wantPaidAt := time.Date(2026, 8, 30, 11, 22, 33, 0, time.UTC)
	if !got.PaidAt.Equal(wantPaidAt) {
		t.Errorf("expected paid_at %v, got %v", wantPaidAt, got.PaidAt)
	}
	if got.Metadata["subscriptionId"] != "123e4567-e89b-12d3-a456-426614174000" {
		t.Errorf("expected subscriptionId metadata to pass through, got %v", got.Metadata)
	}
}

func TestPaystackHandler_ChargeSuccess_MissingPaidAt(t *testing.T) {
	// A charge without paid_at must not push a zero time into the apply
	// path, where it would drive the subscription's next payment date.
	var got service.ChargeSuccessParams
	handler := newTestHandler(&mockReconcileService{
		applyChargeSuccessFunc: func(ctx context.Context, params service.ChargeSuccessParams) error {
			got = params
			return nil
		},
	})

	payload := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "ref_nopaid_1",
			"status": "success",
			"amount": 500000,
			"currency": "NGN",
			"channel": "card",
			"metadata": {},
			"customer": {"customer_code": "CUS_abc123", "email": "donor@example.com"},
			"authorization": {"authorization_code": "AUTH_xyz789"}
		}
	}`)

	before := time.Now().UTC()
	rr := httptest.NewRecorder()
	handler.HandleWebhook(rr, newSignedRequest(t, payload))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got.PaidAt.IsZero() {
		t.Fatal("PaidAt is zero, want receipt-time fallback")
	}
	if got.PaidAt.Before(before) || got.PaidAt.After(time.Now().UTC()) {
		t.Errorf("PaidAt = %v, want roughly now", got.PaidAt)
	}
}

func TestPaystackHandler_SubscriptionCreate(t *testing.T) {
	var got service.MandateParams
	handler := newTestHandler(&mockReconcileService{
		activateMandateFunc: func(ctx context.Context, params service.MandateParams) error {
			got = params
			return nil
		},
	})

	payload := subscriptionEventPayload("subscription.create", "SUB_new_1")

	rr := httptest.NewRecorder()
	handler.HandleWebhook(rr, newSignedRequest(t, payload))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got.SubscriptionCode != "SUB_new_1" {
		t.Errorf("expected subscription code SUB_new_1, got %q", got.SubscriptionCode)
	}
	if got.EmailToken != "tok_xyz" {
		t.Errorf("expected email token tok_xyz, got %q", got.EmailToken)
	}
	if got.PlanCode != "PLN_monthly_1" {
		t.Errorf("expected plan code PLN_monthly_1, got %q", got.PlanCode)
	}
	if got.CustomerEmail != "donor@example.com" {
		t.Errorf("expected customer email donor@example.com, got %q", got.CustomerEmail)
	}
	if got.NextPaymentAt == nil {
		t.Fatal("expected next payment date to be parsed")
	}
	want := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if !got.NextPaymentAt.Equal(want) {
		t.Errorf("expected next payment %v, got %v", want, *got.NextPaymentAt)
	}
}

func TestPaystackHandler_SubscriptionDisable(t *testing.T) {
	for _, event := range []string{"subscription.disable", "subscription.not_renew"} {
		t.Run(event, func(t *testing.T) {
			var gotCode string
			handler := newTestHandler(&mockReconcileService{
				disableMandateFunc: func(ctx context.Context, subscriptionCode string) error {
					gotCode = subscriptionCode
					return nil
				},
			})

			payload := subscriptionEventPayload(event, "SUB_gone_1")

			rr := httptest.NewRecorder()
			handler.HandleWebhook(rr, newSignedRequest(t, payload))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}
			if gotCode != "SUB_gone_1" {
				t.Errorf("expected subscription code SUB_gone_1, got %q", gotCode)
			}
		})
	}
}

func TestPaystackHandler_InvoiceCreate(t *testing.T) {
	var gotCode string
	handler := newTestHandler(&mockReconcileService{
		notifyUpcomingFunc: func(ctx context.Context, subscriptionCode string) error {
			gotCode = subscriptionCode
			return nil
		},
	})

	payload := invoiceEventPayload("invoice.create", "SUB_due_1", "ref_inv_1")

	rr := httptest.NewRecorder()
	handler.HandleWebhook(rr, newSignedRequest(t, payload))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotCode != "SUB_due_1" {
		t.Errorf("expected subscription code SUB_due_1, got %q", gotCode)
	}
}

func TestPaystackHandler_InvoicePaymentFailed(t *testing.T) {
	var got service.ChargeFailureParams
	handler := newTestHandler(&mockReconcileService{
		recordChargeFailureFunc: func(ctx context.Context, params service.ChargeFailureParams) error {
			got = params
			return nil
		},
	})

	payload := invoiceEventPayload("invoice.payment_failed", "SUB_fail_1", "ref_fail_1")

	rr := httptest.NewRecorder()
	handler.HandleWebhook(rr, newSignedRequest(t, payload))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got.SubscriptionCode != "SUB_fail_1" {
		t.Errorf("expected subscription code SUB_fail_1, got %q", got.SubscriptionCode)
	}
	if got.Reference != "ref_fail_1" {
		t.Errorf("expected reference ref_fail_1, got %q", got.Reference)
	}
	if got.Reason != "Insufficient funds" {
		t.Errorf("expected reason from invoice description, got %q", got.Reason)
	}
	if got.Amount.String() != "5000" {
		t.Errorf("expected amount 5000 major units, got %s", got.Amount)
	}
}

func TestPaystackHandler_AcknowledgementPolicy(t *testing.T) {
	// Paystack redelivers on any non-2xx for up to 72 hours. Internal
	// failures get a 500 because a retry against the idempotent apply can
	// succeed once the outage clears; deterministic rejections are acked
	// with 200 since redelivery would repeat the same rejection.

	tests := []struct {
		name           string
		serviceError   error
		expectedStatus int
	}{
		{
			name:           "succeeds",
			serviceError:   nil,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "retries_internal_failure",
			serviceError:   domain.Internal(errors.New("database connection lost"), "payment.apply", "failed to apply payment"),
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "acks_deterministic_rejection",
			serviceError:   domain.ErrSubscriptionNotFound,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&mockReconcileService{
				applyChargeSuccessFunc: func(ctx context.Context, params service.ChargeSuccessParams) error {
					return tt.serviceError
				},
			})

			payload := chargeSuccessPayload("ref_ack_1", 500000, `{}`)

			rr := httptest.NewRecorder()
			handler.HandleWebhook(rr, newSignedRequest(t, payload))

			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var response map[string]interface{}
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if received, ok := response["received"].(bool); !ok || !received {
				t.Errorf("expected response {\"received\": true}, got %v", response)
			}
		})
	}
}

func TestPaystackHandler_ErrorHandling(t *testing.T) {
	tests := []struct {
		name           string
		payload        []byte
		expectedStatus int
	}{
		{
			name:           "rejects_malformed_json",
			payload:        []byte(`{"event": "charge.success"`),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "acknowledges_unhandled_event_type",
			payload:        []byte(`{"event": "transfer.success", "data": {}}`),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "acknowledges_event_with_unparseable_data",
			payload:        []byte(`{"event": "charge.success", "data": "not an object"}`),
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&mockReconcileService{})

			rr := httptest.NewRecorder()
			handler.HandleWebhook(rr, newSignedRequest(t, tt.payload))

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}
}
