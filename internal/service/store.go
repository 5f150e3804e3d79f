package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/repository"
)

// Store is the persistence surface the services depend on. Implemented by
// *repository.Store; tests substitute a function-field mock.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *domain.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	ListProjects(ctx context.Context, status domain.ProjectStatus, limit, offset int32) ([]domain.Project, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, sub *domain.Subscription) error
	GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Subscription, error)
	FindActiveSubscription(ctx context.Context, userID, projectID uuid.UUID) (*domain.Subscription, error)
	FindActiveByPlanAndEmail(ctx context.Context, planCode, email string) (*domain.Subscription, error)
	GetSubscriptionByGatewayCode(ctx context.Context, code string) (*domain.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, to domain.SubscriptionStatus, from ...domain.SubscriptionStatus) (bool, error)
	MarkSubscriptionCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateSubscriptionTerms(ctx context.Context, id uuid.UUID, amount decimal.Decimal, interval domain.Interval, customDays int, nextPaymentAt time.Time) (bool, error)
	SetNextPaymentDate(ctx context.Context, id uuid.UUID, next time.Time) error
	AttachGatewayRefs(ctx context.Context, id uuid.UUID, customerCode, subscriptionCode, emailToken, authorizationCode string) error
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]domain.Subscription, error)
	ListDueForCharge(ctx context.Context, now time.Time) ([]domain.Subscription, error)
	ExpireStaleSubscriptions(ctx context.Context, cutoff time.Time) (int64, error)

	// Payments
	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, error)
	MarkPaymentFailed(ctx context.Context, reference, reason string) (bool, error)
	ApplyPaymentSuccess(ctx context.Context, params repository.ApplyPaymentSuccessParams) (*domain.Payment, *domain.Subscription, bool, error)

	// Notifications
	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int32) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Compile-time check that the repository satisfies the service surface.
var _ Store = (*repository.Store)(nil)

// Notifier delivers donor-facing notifications. Implementations must not
// block: a failed or slow delivery never affects the calling operation.
type Notifier interface {
	PaymentSuccess(payment *domain.Payment, sub *domain.Subscription)
	PaymentFailed(payment *domain.Payment, sub *domain.Subscription)
	PaymentReminder(sub *domain.Subscription)
	SubscriptionCancelled(sub *domain.Subscription)
}

// NopNotifier discards all notifications. Useful in tests.
type NopNotifier struct{}

func (NopNotifier) PaymentSuccess(*domain.Payment, *domain.Subscription) {}
func (NopNotifier) PaymentFailed(*domain.Payment, *domain.Subscription)  {}
func (NopNotifier) PaymentReminder(*domain.Subscription)                 {}
func (NopNotifier) SubscriptionCancelled(*domain.Subscription)           {}
