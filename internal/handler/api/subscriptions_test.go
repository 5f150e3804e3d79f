package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/service"
)

func TestSubscriptionHandler_Create(t *testing.T) {
	donorID := uuid.New()
	projectID := uuid.New()

	svc := &mockSubscriptionService{
		createFunc: func(_ context.Context, params service.CreateSubscriptionParams) (*service.CreateSubscriptionResult, error) {
			if params.UserID != donorID {
				t.Errorf("UserID = %s, want %s", params.UserID, donorID)
			}
			if params.ProjectID != projectID {
				t.Errorf("ProjectID = %s, want %s", params.ProjectID, projectID)
			}
			if params.Amount.String() != "5000" {
				t.Errorf("Amount = %s, want 5000", params.Amount)
			}
			if params.Interval != domain.IntervalMonthly {
				t.Errorf("Interval = %q, want MONTHLY", params.Interval)
			}
			sub := testSubscription(params.UserID)
			sub.ProjectID = params.ProjectID
			return &service.CreateSubscriptionResult{
				Subscription: sub,
				PaymentURL:   "https://checkout.paystack.com/abc123",
				Reference:    "don_ref_1",
			}, nil
		},
	}
	h := NewSubscriptionHandler(svc)

	body := `{"projectId":"` + projectID.String() + `","amount":"5000","interval":"MONTHLY","email":"donor@example.com"}`
	req := newRequest(http.MethodPost, "/api/subscriptions", body, donorID)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var got createSubscriptionResponse
	decodeBody(t, rec, &got)
	if got.PaymentURL != "https://checkout.paystack.com/abc123" {
		t.Errorf("PaymentURL = %q", got.PaymentURL)
	}
	if got.Reference != "don_ref_1" {
		t.Errorf("Reference = %q, want don_ref_1", got.Reference)
	}
	if got.Subscription.Amount != "5000.00" {
		t.Errorf("Amount = %q, want 5000.00", got.Subscription.Amount)
	}
}

func TestSubscriptionHandler_Create_InvalidRequest(t *testing.T) {
	h := NewSubscriptionHandler(&mockSubscriptionService{})

	tests := []struct {
		name string
		body string
	}{
		{"bad project id", `{"projectId":"nope","amount":"5000","interval":"MONTHLY","email":"a@b.c"}`},
		{"bad amount", `{"projectId":"` + uuid.NewString() + `","amount":"??","interval":"MONTHLY","email":"a@b.c"}`},
		{"malformed json", `{"projectId":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(http.MethodPost, "/api/subscriptions", tt.body, uuid.New())
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSubscriptionHandler_Create_Duplicate(t *testing.T) {
	svc := &mockSubscriptionService{
		createFunc: func(context.Context, service.CreateSubscriptionParams) (*service.CreateSubscriptionResult, error) {
			return nil, domain.ErrDuplicateSubscription
		},
	}
	h := NewSubscriptionHandler(svc)

	body := `{"projectId":"` + uuid.NewString() + `","amount":"5000","interval":"MONTHLY","email":"donor@example.com"}`
	req := newRequest(http.MethodPost, "/api/subscriptions", body, uuid.New())
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestSubscriptionHandler_List(t *testing.T) {
	donorID := uuid.New()

	svc := &mockSubscriptionService{
		listFunc: func(_ context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Subscription, error) {
			if userID != donorID {
				t.Errorf("userID = %s, want %s", userID, donorID)
			}
			return []domain.Subscription{*testSubscription(donorID)}, nil
		},
	}
	h := NewSubscriptionHandler(svc)

	req := newRequest(http.MethodGet, "/api/subscriptions", "", donorID)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		Subscriptions []subscriptionResponse `json:"subscriptions"`
	}
	decodeBody(t, rec, &got)
	if len(got.Subscriptions) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(got.Subscriptions))
	}
	if got.Subscriptions[0].Status != "ACTIVE" {
		t.Errorf("Status = %q, want ACTIVE", got.Subscriptions[0].Status)
	}
}

func TestSubscriptionHandler_Update(t *testing.T) {
	donorID := uuid.New()
	sub := testSubscription(donorID)

	svc := &mockSubscriptionService{
		updateFunc: func(_ context.Context, params service.UpdateSubscriptionParams) (*domain.Subscription, error) {
			if params.SubscriptionID != sub.ID {
				t.Errorf("SubscriptionID = %s, want %s", params.SubscriptionID, sub.ID)
			}
			if params.Amount.String() != "7500" {
				t.Errorf("Amount = %s, want 7500", params.Amount)
			}
			if params.Interval != domain.IntervalWeekly {
				t.Errorf("Interval = %q, want WEEKLY", params.Interval)
			}
			updated := *sub
			updated.Amount = params.Amount
			updated.Interval = params.Interval
			return &updated, nil
		},
	}
	h := NewSubscriptionHandler(svc)

	req := newRequest(http.MethodPatch, "/api/subscriptions/"+sub.ID.String(), `{"amount":"7500","interval":"WEEKLY"}`, donorID)
	req.SetPathValue("id", sub.ID.String())
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got subscriptionResponse
	decodeBody(t, rec, &got)
	if got.Amount != "7500.00" || got.Interval != "WEEKLY" {
		t.Errorf("got %s %s, want 7500.00 WEEKLY", got.Amount, got.Interval)
	}
}

func TestSubscriptionHandler_Update_AmountOnly(t *testing.T) {
	donorID := uuid.New()
	sub := testSubscription(donorID)

	svc := &mockSubscriptionService{
		updateFunc: func(_ context.Context, params service.UpdateSubscriptionParams) (*domain.Subscription, error) {
			if params.Amount.String() != "7500" {
				t.Errorf("Amount = %s, want 7500", params.Amount)
			}
			if params.Interval != "" {
				t.Errorf("Interval = %q, want empty for an amount-only patch", params.Interval)
			}
			updated := *sub
			updated.Amount = params.Amount
			return &updated, nil
		},
	}
	h := NewSubscriptionHandler(svc)

	req := newRequest(http.MethodPatch, "/api/subscriptions/"+sub.ID.String(), `{"amount":"7500"}`, donorID)
	req.SetPathValue("id", sub.ID.String())
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestSubscriptionHandler_Transitions(t *testing.T) {
	donorID := uuid.New()
	sub := testSubscription(donorID)

	tests := []struct {
		name       string
		invoke     func(h *SubscriptionHandler, w http.ResponseWriter, r *http.Request)
		wantStatus domain.SubscriptionStatus
	}{
		{"pause", (*SubscriptionHandler).Pause, domain.SubscriptionStatusPaused},
		{"resume", (*SubscriptionHandler).Resume, domain.SubscriptionStatusActive},
		{"cancel", (*SubscriptionHandler).Cancel, domain.SubscriptionStatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSubscriptionService{
				transitionFunc: func(_ context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
					if userID != donorID || subscriptionID != sub.ID {
						t.Errorf("called with %s/%s, want %s/%s", userID, subscriptionID, donorID, sub.ID)
					}
					out := *sub
					out.Status = tt.wantStatus
					return &out, nil
				},
			}
			h := NewSubscriptionHandler(svc)

			req := newRequest(http.MethodPost, "/api/subscriptions/"+sub.ID.String()+"/"+tt.name, "", donorID)
			req.SetPathValue("id", sub.ID.String())
			rec := httptest.NewRecorder()
			tt.invoke(h, rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var got subscriptionResponse
			decodeBody(t, rec, &got)
			if got.Status != string(tt.wantStatus) {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestSubscriptionHandler_Transition_InvalidState(t *testing.T) {
	svc := &mockSubscriptionService{
		transitionFunc: func(context.Context, uuid.UUID, uuid.UUID) (*domain.Subscription, error) {
			return nil, domain.ErrInvalidTransition
		},
	}
	h := NewSubscriptionHandler(svc)

	id := uuid.NewString()
	req := newRequest(http.MethodPost, "/api/subscriptions/"+id+"/resume", "", uuid.New())
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.Resume(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}
