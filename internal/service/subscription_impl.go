package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/gateway"
	"github.com/sowerhq/sower/internal/telemetry"
)

// subscriptionService implements SubscriptionService.
type subscriptionService struct {
	store    Store
	gateway  gateway.Provider
	notifier Notifier
	logger   *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService instance.
func NewSubscriptionService(store Store, provider gateway.Provider, notifier Notifier, logger *slog.Logger) SubscriptionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &subscriptionService{
		store:    store,
		gateway:  provider,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*CreateSubscriptionResult, error) {
	// Step 1: validate
	if err := validateCreateParams(params); err != nil {
		return nil, err
	}

	// Step 2: project must be accepting donations
	project, err := s.store.GetProject(ctx, params.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.AcceptsDonations() {
		return nil, ErrProjectInactive
	}

	// Step 3: one ACTIVE subscription per donor per project
	existing, err := s.store.FindActiveSubscription(ctx, params.UserID, params.ProjectID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateSubscription
	}

	// Step 4: register a gateway plan for fixed cadences. Custom cadences
	// have no gateway equivalent; their renewals are charged directly
	// against the saved card by the charge sweep.
	planCode := ""
	if params.Interval != domain.IntervalCustom {
		plan, err := s.gateway.CreatePlan(ctx, gateway.CreatePlanParams{
			Name:     fmt.Sprintf("%s - %s - %s %s", project.Name, params.Interval, params.Amount, project.Currency),
			Amount:   params.Amount,
			Currency: project.Currency,
			Interval: mapGatewayInterval(params.Interval),
		})
		if err != nil {
			return nil, mapGatewayError(err, "subscription.create")
		}
		planCode = plan.PlanCode
	}

	// Step 5: hosted checkout for the first charge
	reference := gateway.GenerateReference()
	checkout, err := s.gateway.InitializeTransaction(ctx, gateway.InitializeTransactionParams{
		Email:     params.DonorEmail,
		Amount:    params.Amount,
		Currency:  project.Currency,
		Reference: reference,
		PlanCode:  planCode,
		Metadata: map[string]any{
			"userId":           params.UserID.String(),
			"projectId":        params.ProjectID.String(),
			"subscriptionType": "recurring",
			"interval":         string(params.Interval),
			"customDays":       params.CustomDays,
		},
	})
	if err != nil {
		return nil, mapGatewayError(err, "subscription.create")
	}

	// Step 6: persist subscription + pending payment
	now := time.Now()
	next, err := domain.NextPaymentDate(params.Interval, params.CustomDays, now)
	if err != nil {
		return nil, err
	}

	sub := &domain.Subscription{
		UserID:        params.UserID,
		ProjectID:     params.ProjectID,
		Amount:        params.Amount,
		Currency:      project.Currency,
		Interval:      params.Interval,
		CustomDays:    params.CustomDays,
		Status:        domain.SubscriptionStatusActive,
		StartDate:     now,
		NextPaymentAt: &next,
		DonorEmail:    params.DonorEmail,
		DonorName:     params.DonorName,
		PlanCode:      planCode,
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		SubscriptionID:    sub.ID,
		UserID:            params.UserID,
		ProjectID:         params.ProjectID,
		Amount:            params.Amount,
		Currency:          project.Currency,
		Status:            domain.PaymentStatusPending,
		ExternalReference: reference,
		Metadata:          map[string]any{"subscriptionId": sub.ID.String()},
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("subscription created",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("project_id", params.ProjectID.String()),
		slog.String("interval", string(params.Interval)),
		slog.String("reference", reference))

	if telemetry.Business != nil {
		telemetry.Business.SubscriptionsCreated.WithLabelValues(string(params.Interval)).Inc()
		telemetry.Business.PaymentAttempts.WithLabelValues("checkout").Inc()
	}

	return &CreateSubscriptionResult{
		Subscription: sub,
		PaymentURL:   checkout.AuthorizationURL,
		Reference:    reference,
	}, nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	return s.getOwned(ctx, userID, subscriptionID)
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Subscription, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListSubscriptionsByUser(ctx, userID, limit, offset)
}

func (s *subscriptionService) UpdateSubscription(ctx context.Context, params UpdateSubscriptionParams) (*domain.Subscription, error) {
	sub, err := s.getOwned(ctx, params.UserID, params.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.SubscriptionStatusActive {
		return nil, ErrInvalidTransition
	}

	// Absent fields keep their current values, so a donor can change just
	// the amount without restating the cadence.
	if params.Amount.IsZero() {
		params.Amount = sub.Amount
	}
	if params.Interval == "" {
		params.Interval = sub.Interval
		if params.CustomDays == 0 {
			params.CustomDays = sub.CustomDays
		}
	}
	if !params.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !params.Interval.Valid() {
		return nil, ErrInvalidInterval
	}

	now := time.Now()
	next, err := domain.NextPaymentDate(params.Interval, params.CustomDays, now)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateSubscriptionTerms(ctx, sub.ID, params.Amount, params.Interval, params.CustomDays, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	return s.store.GetSubscription(ctx, sub.ID)
}

func (s *subscriptionService) PauseSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.getOwned(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.CanPause() {
		return nil, ErrInvalidTransition
	}

	// Disable the mandate first so the gateway stops charging even if the
	// local update below loses a race.
	if sub.SubscriptionCode != "" {
		if err := s.gateway.DisableSubscription(ctx, sub.SubscriptionCode, sub.EmailToken); err != nil {
			return nil, mapGatewayError(err, "subscription.pause")
		}
	}

	ok, err := s.store.UpdateSubscriptionStatus(ctx, sub.ID, domain.SubscriptionStatusPaused, domain.SubscriptionStatusActive)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	s.logger.Info("subscription paused", slog.String("subscription_id", sub.ID.String()))
	if telemetry.Business != nil {
		telemetry.Business.SubscriptionsPaused.WithLabelValues(string(sub.Interval)).Inc()
	}
	return s.store.GetSubscription(ctx, sub.ID)
}

func (s *subscriptionService) ResumeSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.getOwned(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.CanResume() {
		return nil, ErrInvalidTransition
	}

	if sub.SubscriptionCode != "" {
		if err := s.gateway.EnableSubscription(ctx, sub.SubscriptionCode, sub.EmailToken); err != nil {
			return nil, mapGatewayError(err, "subscription.resume")
		}
	}

	ok, err := s.store.UpdateSubscriptionStatus(ctx, sub.ID, domain.SubscriptionStatusActive, domain.SubscriptionStatusPaused)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	// The paused schedule restarts from now, not from where it stopped.
	next, err := domain.NextPaymentDate(sub.Interval, sub.CustomDays, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.SetNextPaymentDate(ctx, sub.ID, next); err != nil {
		return nil, err
	}

	s.logger.Info("subscription resumed", slog.String("subscription_id", sub.ID.String()))
	if telemetry.Business != nil {
		telemetry.Business.SubscriptionsResumed.WithLabelValues(string(sub.Interval)).Inc()
	}
	return s.store.GetSubscription(ctx, sub.ID)
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.getOwned(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.CanCancel() {
		return nil, ErrInvalidTransition
	}

	if sub.SubscriptionCode != "" {
		if err := s.gateway.DisableSubscription(ctx, sub.SubscriptionCode, sub.EmailToken); err != nil {
			// Cancelling locally matters more than gateway cleanup. The
			// mandate stays disabled on the gateway's side once any later
			// charge fails to find an ACTIVE subscription.
			s.logger.Warn("failed to disable gateway mandate on cancel",
				slog.String("subscription_id", sub.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	ok, err := s.store.MarkSubscriptionCancelled(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	s.logger.Info("subscription cancelled", slog.String("subscription_id", sub.ID.String()))
	if telemetry.Business != nil {
		telemetry.Business.SubscriptionsCancelled.WithLabelValues("donor").Inc()
	}
	s.notifier.SubscriptionCancelled(sub)
	return s.store.GetSubscription(ctx, sub.ID)
}

func (s *subscriptionService) ExpireOverdue(ctx context.Context, gracePeriod time.Duration) (int64, error) {
	cutoff := time.Now().Add(-gracePeriod)
	return s.store.ExpireStaleSubscriptions(ctx, cutoff)
}

func (s *subscriptionService) ListDueWithin(ctx context.Context, window time.Duration) ([]domain.Subscription, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.store.ListDueForReminder(ctx, from, now.Add(window))
}

// getOwned loads a subscription and hides it from everyone but its owner.
func (s *subscriptionService) getOwned(ctx context.Context, userID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

func validateCreateParams(params CreateSubscriptionParams) error {
	if !params.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !params.Interval.Valid() {
		return ErrInvalidInterval
	}
	if params.Interval == domain.IntervalCustom && params.CustomDays < 1 {
		return ErrInvalidInterval
	}
	if params.DonorEmail == "" {
		return ErrMissingEmail
	}
	return nil
}

// mapGatewayInterval converts a billing cadence to the gateway's interval
// vocabulary. CUSTOM never reaches here; anything unrecognized degrades to
// monthly rather than failing checkout.
func mapGatewayInterval(interval domain.Interval) string {
	switch interval {
	case domain.IntervalWeekly:
		return "weekly"
	case domain.IntervalMonthly:
		return "monthly"
	case domain.IntervalQuarterly:
		return "quarterly"
	case domain.IntervalAnnually:
		return "annually"
	default:
		return "monthly"
	}
}

// mapGatewayError converts gateway transport errors into domain errors.
// The result matches ErrGatewayUnavailable or ErrGatewayRejected under
// errors.Is, with the transport cause still reachable.
func mapGatewayError(err error, op string) error {
	sentinel := ErrGatewayRejected
	if errors.Is(err, gateway.ErrUnavailable) {
		sentinel = ErrGatewayUnavailable
	}
	return domain.WrapError(errors.Join(sentinel, err), domain.EPAYMENT, op, domain.ErrorMessage(sentinel))
}
