package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/middleware"
	"github.com/sowerhq/sower/internal/service"
)

var errNotStubbed = errors.New("not stubbed")

type mockProjectService struct {
	createFunc func(ctx context.Context, params service.CreateProjectParams) (*domain.Project, error)
	getFunc    func(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	listFunc   func(ctx context.Context, status domain.ProjectStatus, limit, offset int32) ([]domain.Project, error)
}

func (m *mockProjectService) CreateProject(ctx context.Context, params service.CreateProjectParams) (*domain.Project, error) {
	if m.createFunc == nil {
		return nil, errNotStubbed
	}
	return m.createFunc(ctx, params)
}

func (m *mockProjectService) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	if m.getFunc == nil {
		return nil, errNotStubbed
	}
	return m.getFunc(ctx, id)
}

func (m *mockProjectService) ListProjects(ctx context.Context, status domain.ProjectStatus, limit, offset int32) ([]domain.Project, error) {
	if m.listFunc == nil {
		return nil, errNotStubbed
	}
	return m.listFunc(ctx, status, limit, offset)
}

type mockSubscriptionService struct {
	service.SubscriptionService

	createFunc     func(ctx context.Context, params service.CreateSubscriptionParams) (*service.CreateSubscriptionResult, error)
	getFunc        func(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error)
	listFunc       func(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Subscription, error)
	updateFunc     func(ctx context.Context, params service.UpdateSubscriptionParams) (*domain.Subscription, error)
	transitionFunc func(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error)
}

func (m *mockSubscriptionService) CreateSubscription(ctx context.Context, params service.CreateSubscriptionParams) (*service.CreateSubscriptionResult, error) {
	return m.createFunc(ctx, params)
}

func (m *mockSubscriptionService) GetSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	return m.getFunc(ctx, userID, subscriptionID)
}

func (m *mockSubscriptionService) ListSubscriptions(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Subscription, error) {
	return m.listFunc(ctx, userID, limit, offset)
}

func (m *mockSubscriptionService) UpdateSubscription(ctx context.Context, params service.UpdateSubscriptionParams) (*domain.Subscription, error) {
	return m.updateFunc(ctx, params)
}

func (m *mockSubscriptionService) PauseSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	return m.transitionFunc(ctx, userID, subscriptionID)
}

func (m *mockSubscriptionService) ResumeSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	return m.transitionFunc(ctx, userID, subscriptionID)
}

func (m *mockSubscriptionService) CancelSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	return m.transitionFunc(ctx, userID, subscriptionID)
}

type mockPaymentService struct {
	getFunc  func(ctx context.Context, userID, paymentID uuid.UUID) (*domain.Payment, error)
	listFunc func(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, error)
}

func (m *mockPaymentService) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*domain.Payment, error) {
	return m.getFunc(ctx, userID, paymentID)
}

func (m *mockPaymentService) ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, error) {
	return m.listFunc(ctx, userID, limit, offset)
}

type mockVerifier struct {
	service.ReconcileService

	verifyFunc func(ctx context.Context, reference string) (*domain.Payment, error)
}

func (m *mockVerifier) VerifyPayment(ctx context.Context, reference string) (*domain.Payment, error) {
	return m.verifyFunc(ctx, reference)
}

type mockNotificationService struct {
	listFunc    func(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int32) ([]domain.Notification, error)
	markFunc    func(ctx context.Context, userID, notificationID uuid.UUID) error
	markAllFunc func(ctx context.Context, userID uuid.UUID) (int64, error)
	unreadFunc  func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (m *mockNotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int32) ([]domain.Notification, error) {
	return m.listFunc(ctx, userID, unreadOnly, limit, offset)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return m.markFunc(ctx, userID, notificationID)
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return m.markAllFunc(ctx, userID)
}

func (m *mockNotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return m.unreadFunc(ctx, userID)
}

// newRequest builds a request carrying the donor identity the auth
// middleware would have resolved.
func newRequest(method, target string, body string, userID uuid.UUID) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, userID))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
}

func testProject(name string) *domain.Project {
	return &domain.Project{
		ID:            uuid.New(),
		Name:          name,
		TargetAmount:  decimal.RequireFromString("100000"),
		CurrentAmount: decimal.RequireFromString("2500.50"),
		Currency:      "NGN",
		Status:        domain.ProjectStatusActive,
		OwnerID:       uuid.New(),
		CreatedAt:     time.Now(),
	}
}

func testSubscription(userID uuid.UUID) *domain.Subscription {
	return &domain.Subscription{
		ID:         uuid.New(),
		UserID:     userID,
		ProjectID:  uuid.New(),
		Amount:     decimal.RequireFromString("5000"),
		Currency:   "NGN",
		Interval:   domain.IntervalMonthly,
		Status:     domain.SubscriptionStatusActive,
		StartDate:  time.Now(),
		DonorEmail: "donor@example.com",
		CreatedAt:  time.Now(),
	}
}
