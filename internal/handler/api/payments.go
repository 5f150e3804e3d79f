package api

import (
	"net/http"
	"time"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/handler"
	"github.com/sowerhq/sower/internal/middleware"
	"github.com/sowerhq/sower/internal/service"
)

// PaymentHandler exposes payment history and the donor-initiated
// verification endpoint donors land on after checkout.
type PaymentHandler struct {
	payments  service.PaymentService
	reconcile service.ReconcileService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(payments service.PaymentService, reconcile service.ReconcileService) *PaymentHandler {
	return &PaymentHandler{payments: payments, reconcile: reconcile}
}

type paymentResponse struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscriptionId"`
	ProjectID      string     `json:"projectId"`
	Amount         string     `json:"amount"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	Reference      string     `json:"reference"`
	Channel        string     `json:"channel,omitempty"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
	FailureReason  string     `json:"failureReason,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func toPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:             p.ID.String(),
		SubscriptionID: p.SubscriptionID.String(),
		ProjectID:      p.ProjectID.String(),
		Amount:         p.Amount.StringFixed(2),
		Currency:       p.Currency,
		Status:         string(p.Status),
		Reference:      p.ExternalReference,
		Channel:        p.Channel,
		PaidAt:         p.PaidAt,
		FailureReason:  p.FailureReason,
		CreatedAt:      p.CreatedAt,
	}
}

// List handles GET /api/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, offset := pagination(r)

	payments, err := h.payments.ListPayments(r.Context(), userID, limit, offset)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentResponse(&payments[i]))
	}
	handler.JSON(w, http.StatusOK, map[string]any{"payments": out})
}

// Get handles GET /api/payments/{id}.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	paymentID, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), userID, paymentID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, toPaymentResponse(payment))
}

// Verify handles GET /api/payments/verify?reference=...
//
// This is the return leg of checkout: the donor is redirected here and the
// charge outcome is pulled from the gateway. Calling it again for a charge
// the webhook already settled is harmless.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")

	payment, err := h.reconcile.VerifyPayment(r.Context(), reference)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, toPaymentResponse(payment))
}
