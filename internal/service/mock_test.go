package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/repository"
)

// mockStore implements Store for testing. Each method delegates to its
// function field; unset fields return a "not implemented" error so tests
// fail loudly when a code path touches storage they did not stub.
type mockStore struct {
	CreateProjectFunc          func(ctx context.Context, p *domain.Project) error
	GetProjectFunc             func(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	ListProjectsFunc           func(ctx context.Context, status domain.ProjectStatus, limit, offset int32) ([]domain.Project, error)
	CreateSubscriptionFunc     func(ctx context.Context, sub *domain.Subscription) error
	GetSubscriptionFunc        func(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	ListSubscriptionsByUserFunc func(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Subscription, error)
	FindActiveSubscriptionFunc func(ctx context.Context, userID, projectID uuid.UUID) (*domain.Subscription, error)
	FindActiveByPlanAndEmailFunc func(ctx context.Context, planCode, email string) (*domain.Subscription, error)
	GetSubscriptionByGatewayCodeFunc func(ctx context.Context, code string) (*domain.Subscription, error)
	UpdateSubscriptionStatusFunc func(ctx context.Context, id uuid.UUID, to domain.SubscriptionStatus, from ...domain.SubscriptionStatus) (bool, error)
	MarkSubscriptionCancelledFunc func(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateSubscriptionTermsFunc func(ctx context.Context, id uuid.UUID, amount decimal.Decimal, interval domain.Interval, customDays int, nextPaymentAt time.Time) (bool, error)
	SetNextPaymentDateFunc     func(ctx context.Context, id uuid.UUID, next time.Time) error
	AttachGatewayRefsFunc      func(ctx context.Context, id uuid.UUID, customerCode, subscriptionCode, emailToken, authorizationCode string) error
	ListDueForReminderFunc     func(ctx context.Context, from, to time.Time) ([]domain.Subscription, error)
	ListDueForChargeFunc       func(ctx context.Context, now time.Time) ([]domain.Subscription, error)
	ExpireStaleSubscriptionsFunc func(ctx context.Context, cutoff time.Time) (int64, error)
	CreatePaymentFunc          func(ctx context.Context, p *domain.Payment) error
	GetPaymentFunc             func(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetPaymentByReferenceFunc  func(ctx context.Context, reference string) (*domain.Payment, error)
	ListPaymentsByUserFunc     func(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, error)
	MarkPaymentFailedFunc      func(ctx context.Context, reference, reason string) (bool, error)
	ApplyPaymentSuccessFunc    func(ctx context.Context, params repository.ApplyPaymentSuccessParams) (*domain.Payment, *domain.Subscription, bool, error)
	CreateNotificationFunc     func(ctx context.Context, n *domain.Notification) error
	ListNotificationsFunc      func(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int32) ([]domain.Notification, error)
	MarkNotificationReadFunc   func(ctx context.Context, id, userID uuid.UUID) (bool, error)
	MarkAllNotificationsReadFunc func(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnreadNotificationsFunc func(ctx context.Context, userID uuid.UUID) (int64, error)
}

var errNotStubbed = errors.New("mockStore: method not stubbed")

func (m *mockStore) CreateProject(ctx context.Context, p *domain.Project) error {
	if m.CreateProjectFunc != nil {
		return m.CreateProjectFunc(ctx, p)
	}
	return errNotStubbed
}

func (m *mockStore) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	if m.GetProjectFunc != nil {
		return m.GetProjectFunc(ctx, id)
	}
	return nil, errNotStubbed
}

func (m *mockStore) ListProjects(ctx context.Context, status domain.ProjectStatus, limit, offset int32) ([]domain.Project, error) {
	if m.ListProjectsFunc != nil {
		return m.ListProjectsFunc(ctx, status, limit, offset)
	}
	return nil, errNotStubbed
}

func (m *mockStore) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, sub)
	}
	return errNotStubbed
}

func (m *mockStore) GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, id)
	}
	return nil, errNotStubbed
}

func (m *mockStore) ListSubscriptionsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Subscription, error) {
	if m.ListSubscriptionsByUserFunc != nil {
		return m.ListSubscriptionsByUserFunc(ctx, userID, limit, offset)
	}
	return nil, errNotStubbed
}

func (m *mockStore) FindActiveSubscription(ctx context.Context, userID, projectID uuid.UUID) (*domain.Subscription, error) {
	if m.FindActiveSubscriptionFunc != nil {
		return m.FindActiveSubscriptionFunc(ctx, userID, projectID)
	}
	return nil, errNotStubbed
}

func (m *mockStore) FindActiveByPlanAndEmail(ctx context.Context, planCode, email string) (*domain.Subscription, error) {
	if m.FindActiveByPlanAndEmailFunc != nil {
		return m.FindActiveByPlanAndEmailFunc(ctx, planCode, email)
	}
	return nil, errNotStubbed
}

func (m *mockStore) GetSubscriptionByGatewayCode(ctx context.Context, code string) (*domain.Subscription, error) {
	if m.GetSubscriptionByGatewayCodeFunc != nil {
		return m.GetSubscriptionByGatewayCodeFunc(ctx, code)
	}
	return nil, errNotStubbed
}

func (m *mockStore) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, to domain.SubscriptionStatus, from ...domain.SubscriptionStatus) (bool, error) {
	if m.UpdateSubscriptionStatusFunc != nil {
		return m.UpdateSubscriptionStatusFunc(ctx, id, to, from...)
	}
	return false, errNotStubbed
}

func (m *mockStore) MarkSubscriptionCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.MarkSubscriptionCancelledFunc != nil {
		return m.MarkSubscriptionCancelledFunc(ctx, id)
	}
	return false, errNotStubbed
}

func (m *mockStore) UpdateSubscriptionTerms(ctx context.Context, id uuid.UUID, amount decimal.Decimal, interval domain.Interval, customDays int, nextPaymentAt time.Time) (bool, error) {
	if m.UpdateSubscriptionTermsFunc != nil {
		return m.UpdateSubscriptionTermsFunc(ctx, id, amount, interval, customDays, nextPaymentAt)
	}
	return false, errNotStubbed
}

func (m *mockStore) SetNextPaymentDate(ctx context.Context, id uuid.UUID, next time.Time) error {
	if m.SetNextPaymentDateFunc != nil {
		return m.SetNextPaymentDateFunc(ctx, id, next)
	}
	return errNotStubbed
}

func (m *mockStore) AttachGatewayRefs(ctx context.Context, id uuid.UUID, customerCode, subscriptionCode, emailToken, authorizationCode string) error {
	if m.AttachGatewayRefsFunc != nil {
		return m.AttachGatewayRefsFunc(ctx, id, customerCode, subscriptionCode, emailToken, authorizationCode)
	}
	return errNotStubbed
}

func (m *mockStore) ListDueForReminder(ctx context.Context, from, to time.Time) ([]domain.Subscription, error) {
	if m.ListDueForReminderFunc != nil {
		return m.ListDueForReminderFunc(ctx, from, to)
	}
	return nil, errNotStubbed
}

func (m *mockStore) ListDueForCharge(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	if m.ListDueForChargeFunc != nil {
		return m.ListDueForChargeFunc(ctx, now)
	}
	return nil, errNotStubbed
}

func (m *mockStore) ExpireStaleSubscriptions(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.ExpireStaleSubscriptionsFunc != nil {
		return m.ExpireStaleSubscriptionsFunc(ctx, cutoff)
	}
	return 0, errNotStubbed
}

func (m *mockStore) CreatePayment(ctx context.Context, p *domain.Payment) error {
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, p)
	}
	return errNotStubbed
}

func (m *mockStore) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	if m.GetPaymentFunc != nil {
		return m.GetPaymentFunc(ctx, id)
	}
	return nil, errNotStubbed
}

func (m *mockStore) GetPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	if m.GetPaymentByReferenceFunc != nil {
		return m.GetPaymentByReferenceFunc(ctx, reference)
	}
	return nil, errNotStubbed
}

func (m *mockStore) ListPaymentsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, error) {
	if m.ListPaymentsByUserFunc != nil {
		return m.ListPaymentsByUserFunc(ctx, userID, limit, offset)
	}
	return nil, errNotStubbed
}

func (m *mockStore) MarkPaymentFailed(ctx context.Context, reference, reason string) (bool, error) {
	if m.MarkPaymentFailedFunc != nil {
		return m.MarkPaymentFailedFunc(ctx, reference, reason)
	}
	return false, errNotStubbed
}

func (m *mockStore) ApplyPaymentSuccess(ctx context.Context, params repository.ApplyPaymentSuccessParams) (*domain.Payment, *domain.Subscription, bool, error) {
	if m.ApplyPaymentSuccessFunc != nil {
		return m.ApplyPaymentSuccessFunc(ctx, params)
	}
	return nil, nil, false, errNotStubbed
}

func (m *mockStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if m.CreateNotificationFunc != nil {
		return m.CreateNotificationFunc(ctx, n)
	}
	return errNotStubbed
}

func (m *mockStore) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int32) ([]domain.Notification, error) {
	if m.ListNotificationsFunc != nil {
		return m.ListNotificationsFunc(ctx, userID, unreadOnly, limit, offset)
	}
	return nil, errNotStubbed
}

func (m *mockStore) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	if m.MarkNotificationReadFunc != nil {
		return m.MarkNotificationReadFunc(ctx, id, userID)
	}
	return false, errNotStubbed
}

func (m *mockStore) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.MarkAllNotificationsReadFunc != nil {
		return m.MarkAllNotificationsReadFunc(ctx, userID)
	}
	return 0, errNotStubbed
}

func (m *mockStore) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.CountUnreadNotificationsFunc != nil {
		return m.CountUnreadNotificationsFunc(ctx, userID)
	}
	return 0, errNotStubbed
}

var _ Store = (*mockStore)(nil)

// recordingNotifier captures notifier calls for assertions.
type recordingNotifier struct {
	successes []string
	failures  []string
	reminders []string
	cancelled []string
}

func (n *recordingNotifier) PaymentSuccess(p *domain.Payment, _ *domain.Subscription) {
	n.successes = append(n.successes, p.ExternalReference)
}

func (n *recordingNotifier) PaymentFailed(p *domain.Payment, _ *domain.Subscription) {
	n.failures = append(n.failures, p.ExternalReference)
}

func (n *recordingNotifier) PaymentReminder(sub *domain.Subscription) {
	n.reminders = append(n.reminders, sub.ID.String())
}

func (n *recordingNotifier) SubscriptionCancelled(sub *domain.Subscription) {
	n.cancelled = append(n.cancelled, sub.ID.String())
}
