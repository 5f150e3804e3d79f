package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/handler"
	"github.com/sowerhq/sower/internal/middleware"
	"github.com/sowerhq/sower/internal/service"
)

// SubscriptionHandler handles donor subscription operations:
// - Creating a recurring donation and starting checkout
// - Listing and inspecting the donor's subscriptions
// - Amount/cadence changes
// - Pause, resume, cancel
type SubscriptionHandler struct {
	subscriptions service.SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(subscriptions service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

type createSubscriptionRequest struct {
	ProjectID  string `json:"projectId"`
	Amount     string `json:"amount"`
	Interval   string `json:"interval"`
	CustomDays int    `json:"customDays,omitempty"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
}

type subscriptionResponse struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"projectId"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Interval      string     `json:"interval"`
	CustomDays    int        `json:"customDays,omitempty"`
	Status        string     `json:"status"`
	StartDate     time.Time  `json:"startDate"`
	NextPaymentAt *time.Time `json:"nextPaymentAt,omitempty"`
	LastPaymentAt *time.Time `json:"lastPaymentAt,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type createSubscriptionResponse struct {
	Subscription subscriptionResponse `json:"subscription"`
	PaymentURL   string               `json:"paymentUrl"`
	Reference    string               `json:"reference"`
}

func toSubscriptionResponse(sub *domain.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:            sub.ID.String(),
		ProjectID:     sub.ProjectID.String(),
		Amount:        sub.Amount.StringFixed(2),
		Currency:      sub.Currency,
		Interval:      string(sub.Interval),
		CustomDays:    sub.CustomDays,
		Status:        string(sub.Status),
		StartDate:     sub.StartDate,
		NextPaymentAt: sub.NextPaymentAt,
		LastPaymentAt: sub.LastPaymentAt,
		EndDate:       sub.EndDate,
		CreatedAt:     sub.CreatedAt,
	}
}

// Create handles POST /api/subscriptions.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createSubscriptionRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("subscription.create", "Invalid project ID"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("subscription.create", "Invalid amount"))
		return
	}

	result, err := h.subscriptions.CreateSubscription(r.Context(), service.CreateSubscriptionParams{
		UserID:     userID,
		ProjectID:  projectID,
		Amount:     amount,
		Interval:   domain.Interval(req.Interval),
		CustomDays: req.CustomDays,
		DonorEmail: req.Email,
		DonorName:  req.Name,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusCreated, createSubscriptionResponse{
		Subscription: toSubscriptionResponse(result.Subscription),
		PaymentURL:   result.PaymentURL,
		Reference:    result.Reference,
	})
}

// List handles GET /api/subscriptions.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, offset := pagination(r)

	subs, err := h.subscriptions.ListSubscriptions(r.Context(), userID, limit, offset)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]subscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, toSubscriptionResponse(&subs[i]))
	}
	handler.JSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

// Get handles GET /api/subscriptions/{id}.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sub, err := h.subscriptions.GetSubscription(r.Context(), userID, subID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

type updateSubscriptionRequest struct {
	Amount     string `json:"amount"`
	Interval   string `json:"interval"`
	CustomDays int    `json:"customDays,omitempty"`
}

// Update handles PATCH /api/subscriptions/{id}.
func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req updateSubscriptionRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	// Every field is optional; absent fields keep their current values.
	var amount decimal.Decimal
	if req.Amount != "" {
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil {
			handler.ErrorResponse(w, r, domain.Invalid("subscription.update", "Invalid amount"))
			return
		}
	}

	sub, err := h.subscriptions.UpdateSubscription(r.Context(), service.UpdateSubscriptionParams{
		UserID:         userID,
		SubscriptionID: subID,
		Amount:         amount,
		Interval:       domain.Interval(req.Interval),
		CustomDays:     req.CustomDays,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// Pause handles POST /api/subscriptions/{id}/pause.
func (h *SubscriptionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.subscriptions.PauseSubscription)
}

// Resume handles POST /api/subscriptions/{id}/resume.
func (h *SubscriptionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.subscriptions.ResumeSubscription)
}

// Cancel handles POST /api/subscriptions/{id}/cancel.
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.subscriptions.CancelSubscription)
}

func (h *SubscriptionHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error),
) {
	userID := middleware.GetUserID(r.Context())
	subID, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sub, err := fn(r.Context(), userID, subID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, toSubscriptionResponse(sub))
}
