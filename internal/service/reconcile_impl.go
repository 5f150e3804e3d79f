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
	"github.com/sowerhq/sower/internal/repository"
	"github.com/sowerhq/sower/internal/telemetry"
)

// reconcileService implements ReconcileService.
type reconcileService struct {
	store    Store
	gateway  gateway.Provider
	notifier Notifier
	logger   *slog.Logger
}

// NewReconcileService creates a new ReconcileService instance.
func NewReconcileService(store Store, provider gateway.Provider, notifier Notifier, logger *slog.Logger) ReconcileService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &reconcileService{
		store:    store,
		gateway:  provider,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *reconcileService) VerifyPayment(ctx context.Context, reference string) (*domain.Payment, error) {
	op := "reconcile.verify"

	if reference == "" {
		return nil, domain.Errorf(domain.EINVALID, op, "Payment reference is required")
	}

	// The payment row must exist before we talk to the gateway: a reference
	// we never issued is not ours to reconcile.
	payment, err := s.store.GetPaymentByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentStatusSuccess {
		return payment, nil
	}

	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		if errors.Is(err, gateway.ErrTransactionNotFound) {
			// Issued locally but never reached the gateway, e.g. the donor
			// abandoned checkout before the first redirect.
			return payment, nil
		}
		return nil, mapGatewayError(err, op)
	}

	if !tx.Succeeded() {
		return s.recordFailure(ctx, payment, tx)
	}

	paidAt := time.Now().UTC()
	if tx.PaidAt != nil {
		paidAt = *tx.PaidAt
	}
	return s.apply(ctx, "verify", repository.ApplyPaymentSuccessParams{
		Reference:         reference,
		PaidAt:            paidAt,
		Channel:           tx.Channel,
		Metadata:          tx.Metadata,
		CustomerCode:      tx.CustomerCode,
		AuthorizationCode: tx.AuthorizationCode,
	})
}

func (s *reconcileService) ApplyChargeSuccess(ctx context.Context, params ChargeSuccessParams) error {
	_, err := s.store.GetPaymentByReference(ctx, params.Reference)
	switch {
	case err == nil:
		// Known reference: a charge we initiated ourselves.
	case errors.Is(err, domain.ErrPaymentNotFound):
		// Gateway-raised renewal charge. The subscription id travels in the
		// metadata we attached at checkout; without it the event cannot be
		// tied to anything local and the charge is dropped.
		matched, err := s.createRenewalPayment(ctx, params)
		if err != nil {
			return err
		}
		if !matched {
			return nil
		}
	default:
		return err
	}

	_, err = s.apply(ctx, "webhook", repository.ApplyPaymentSuccessParams{
		Reference:         params.Reference,
		PaidAt:            params.PaidAt,
		Channel:           params.Channel,
		Metadata:          params.Metadata,
		CustomerCode:      params.CustomerCode,
		AuthorizationCode: params.AuthorizationCode,
	})
	return err
}

func (s *reconcileService) ActivateMandate(ctx context.Context, params MandateParams) error {
	sub, err := s.store.FindActiveByPlanAndEmail(ctx, params.PlanCode, params.CustomerEmail)
	if err != nil {
		return err
	}
	if sub == nil {
		// The first-charge webhook usually lands before subscription.create,
		// so the subscription should already be ACTIVE. An unmatched mandate
		// is logged, not failed: retrying the event will not change anything.
		s.logger.Warn("no matching subscription for gateway mandate",
			slog.String("plan_code", params.PlanCode),
			slog.String("subscription_code", params.SubscriptionCode))
		return nil
	}

	if err := s.store.AttachGatewayRefs(ctx, sub.ID, params.CustomerCode, params.SubscriptionCode, params.EmailToken, ""); err != nil {
		return err
	}
	if params.NextPaymentAt != nil {
		if err := s.store.SetNextPaymentDate(ctx, sub.ID, *params.NextPaymentAt); err != nil {
			return err
		}
	}

	s.logger.Info("gateway mandate attached",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("subscription_code", params.SubscriptionCode))
	return nil
}

func (s *reconcileService) DisableMandate(ctx context.Context, subscriptionCode string) error {
	sub, err := s.store.GetSubscriptionByGatewayCode(ctx, subscriptionCode)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			s.logger.Warn("disable event for unknown mandate",
				slog.String("subscription_code", subscriptionCode))
			return nil
		}
		return err
	}

	// A local pause also disables the gateway mandate, and the gateway
	// echoes that back as subscription.disable. Cancelling here would
	// turn every pause into a cancellation, so a PAUSED subscription is
	// left alone and only an ACTIVE one is cancelled. Terminal states
	// have nothing left to cancel.
	if sub.Status == domain.SubscriptionStatusPaused || sub.Status.Terminal() {
		return nil
	}

	ok, err := s.store.MarkSubscriptionCancelled(ctx, sub.ID)
	if err != nil {
		return err
	}
	if ok {
		s.logger.Info("subscription cancelled by gateway",
			slog.String("subscription_id", sub.ID.String()))
		if telemetry.Business != nil {
			telemetry.Business.SubscriptionsCancelled.WithLabelValues("gateway").Inc()
		}
		s.notifier.SubscriptionCancelled(sub)
	}
	return nil
}

func (s *reconcileService) NotifyUpcomingCharge(ctx context.Context, subscriptionCode string) error {
	sub, err := s.store.GetSubscriptionByGatewayCode(ctx, subscriptionCode)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}
	if sub.Status != domain.SubscriptionStatusActive {
		return nil
	}

	s.notifier.PaymentReminder(sub)
	return s.store.CreateNotification(ctx, reminderNotification(sub))
}

func (s *reconcileService) RecordChargeFailure(ctx context.Context, params ChargeFailureParams) error {
	sub, err := s.store.GetSubscriptionByGatewayCode(ctx, params.SubscriptionCode)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			s.logger.Warn("charge failure for unknown mandate",
				slog.String("subscription_code", params.SubscriptionCode))
			return nil
		}
		return err
	}

	reference := params.Reference
	if reference == "" {
		reference = gateway.GenerateReference()
	}
	amount := params.Amount
	if amount.IsZero() {
		amount = sub.Amount
	}

	payment := &domain.Payment{
		SubscriptionID:    sub.ID,
		UserID:            sub.UserID,
		ProjectID:         sub.ProjectID,
		Amount:            amount,
		Currency:          sub.Currency,
		Status:            domain.PaymentStatusFailed,
		ExternalReference: reference,
		FailureReason:     params.Reason,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			// Already recorded, fall through to the status update.
			ok, err := s.store.MarkPaymentFailed(ctx, reference, params.Reason)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			payment, err = s.store.GetPaymentByReference(ctx, reference)
			if err != nil {
				return err
			}
		} else {
			return err
		}
	}

	s.logger.Info("renewal charge failed",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("reference", reference),
		slog.String("reason", params.Reason))

	observePaymentFailed("gateway_reported")
	s.notifier.PaymentFailed(payment, sub)
	return s.store.CreateNotification(ctx, failureNotification(sub, payment))
}

func (s *reconcileService) ChargeDueSubscriptions(ctx context.Context) (int, error) {
	due, err := s.store.ListDueForCharge(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	charged := 0
	for i := range due {
		sub := &due[i]
		if err := s.chargeOne(ctx, sub); err != nil {
			s.logger.Error("renewal charge failed",
				slog.String("subscription_id", sub.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		charged++
	}
	return charged, nil
}

// chargeOne raises a single renewal charge against a saved authorization.
// The PENDING payment row is created before the gateway call, so a crash
// between the two leaves a row the verify path can still reconcile.
func (s *reconcileService) chargeOne(ctx context.Context, sub *domain.Subscription) error {
	reference := gateway.GenerateReference()
	if telemetry.Business != nil {
		telemetry.Business.PaymentAttempts.WithLabelValues("renewal").Inc()
	}

	payment := &domain.Payment{
		SubscriptionID:    sub.ID,
		UserID:            sub.UserID,
		ProjectID:         sub.ProjectID,
		Amount:            sub.Amount,
		Currency:          sub.Currency,
		Status:            domain.PaymentStatusPending,
		ExternalReference: reference,
		Metadata:          map[string]any{"subscriptionId": sub.ID.String(), "renewal": true},
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return err
	}

	tx, err := s.gateway.ChargeAuthorization(ctx, gateway.ChargeAuthorizationParams{
		Email:             sub.DonorEmail,
		Amount:            sub.Amount,
		Currency:          sub.Currency,
		AuthorizationCode: sub.AuthorizationCode,
		Reference:         reference,
		Metadata:          payment.Metadata,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrRejected) {
			if _, ferr := s.store.MarkPaymentFailed(ctx, reference, err.Error()); ferr != nil {
				return ferr
			}
			observePaymentFailed("rejected")
			s.notifier.PaymentFailed(payment, sub)
		}
		return mapGatewayError(err, "reconcile.charge")
	}

	if !tx.Succeeded() {
		if _, ferr := s.store.MarkPaymentFailed(ctx, reference, tx.GatewayResponse); ferr != nil {
			return ferr
		}
		observePaymentFailed("declined")
		s.notifier.PaymentFailed(payment, sub)
		return nil
	}

	paidAt := time.Now().UTC()
	if tx.PaidAt != nil {
		paidAt = *tx.PaidAt
	}
	_, err = s.apply(ctx, "renewal", repository.ApplyPaymentSuccessParams{
		Reference:         reference,
		PaidAt:            paidAt,
		Channel:           tx.Channel,
		Metadata:          tx.Metadata,
		CustomerCode:      tx.CustomerCode,
		AuthorizationCode: tx.AuthorizationCode,
	})
	return err
}

// apply runs the transactional success path and fires notifications when
// this call is the one that applied the effects. The path label records
// which reporting route won: verify, webhook or renewal.
func (s *reconcileService) apply(ctx context.Context, path string, params repository.ApplyPaymentSuccessParams) (*domain.Payment, error) {
	payment, sub, applied, err := s.store.ApplyPaymentSuccess(ctx, params)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The other reconciliation path got there first.
		if telemetry.Business != nil {
			telemetry.Business.ReconcileDuplicate.WithLabelValues(path).Inc()
		}
		return s.store.GetPaymentByReference(ctx, params.Reference)
	}

	if telemetry.Business != nil {
		telemetry.Business.ReconcileApplied.WithLabelValues(path).Inc()
		telemetry.Business.PaymentSucceeded.WithLabelValues(params.Channel).Inc()
		amount, _ := payment.Amount.Float64()
		telemetry.Business.PaymentAmount.WithLabelValues(payment.Currency).Observe(amount)
		telemetry.Business.DonationsCollected.WithLabelValues(payment.Currency).Add(amount)
	}

	s.logger.Info("payment reconciled",
		slog.String("reference", params.Reference),
		slog.String("subscription_id", sub.ID.String()),
		slog.String("amount", payment.Amount.String()))

	s.notifier.PaymentSuccess(payment, sub)
	if err := s.store.CreateNotification(ctx, successNotification(sub, payment)); err != nil {
		s.logger.Error("failed to record notification",
			slog.String("reference", params.Reference),
			slog.String("error", err.Error()))
	}
	return payment, nil
}

// recordFailure marks a pending payment FAILED after the gateway reported a
// non-success terminal state.
func (s *reconcileService) recordFailure(ctx context.Context, payment *domain.Payment, tx *gateway.Transaction) (*domain.Payment, error) {
	reason := tx.GatewayResponse
	if reason == "" {
		reason = tx.Status
	}
	ok, err := s.store.MarkPaymentFailed(ctx, payment.ExternalReference, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Raced with another reconciler; return whatever state won.
		return s.store.GetPaymentByReference(ctx, payment.ExternalReference)
	}

	payment, err = s.store.GetPaymentByReference(ctx, payment.ExternalReference)
	if err != nil {
		return nil, err
	}

	observePaymentFailed("declined")
	sub, err := s.store.GetSubscription(ctx, payment.SubscriptionID)
	if err == nil {
		s.notifier.PaymentFailed(payment, sub)
	}
	return payment, nil
}

// observePaymentFailed counts a failed charge by coarse reason category,
// keeping label cardinality bounded regardless of gateway response text.
func observePaymentFailed(reason string) {
	if telemetry.Business != nil {
		telemetry.Business.PaymentFailed.WithLabelValues(reason).Inc()
	}
}

// createRenewalPayment builds the missing payment row for a gateway-raised
// renewal charge, resolving the subscription from the charge metadata.
// Returns false when the charge cannot be tied to a local subscription.
func (s *reconcileService) createRenewalPayment(ctx context.Context, params ChargeSuccessParams) (bool, error) {
	subID, ok := subscriptionIDFromMetadata(params.Metadata)
	if !ok {
		s.logger.Warn("charge event without subscription metadata, dropping",
			slog.String("reference", params.Reference))
		return false, nil
	}

	sub, err := s.store.GetSubscription(ctx, subID)
	if err != nil {
		return false, err
	}

	amount := params.Amount
	if amount.IsZero() {
		amount = sub.Amount
	}
	payment := &domain.Payment{
		SubscriptionID:    sub.ID,
		UserID:            sub.UserID,
		ProjectID:         sub.ProjectID,
		Amount:            amount,
		Currency:          sub.Currency,
		Status:            domain.PaymentStatusPending,
		ExternalReference: params.Reference,
		Metadata:          params.Metadata,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil && !errors.Is(err, domain.ErrDuplicateReference) {
		return false, err
	}
	return true, nil
}

// subscriptionIDFromMetadata extracts the subscription id we embed in every
// charge's metadata at checkout and renewal time.
func subscriptionIDFromMetadata(metadata map[string]any) (uuid.UUID, bool) {
	raw, ok := metadata["subscriptionId"]
	if !ok {
		return uuid.Nil, false
	}
	str, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func successNotification(sub *domain.Subscription, payment *domain.Payment) *domain.Notification {
	return &domain.Notification{
		UserID:  sub.UserID,
		Type:    domain.NotificationPaymentSuccess,
		Title:   "Donation received",
		Message: fmt.Sprintf("Your donation of %s %s was received. Thank you for your continued support.", payment.Amount.StringFixed(2), payment.Currency),
	}
}

func failureNotification(sub *domain.Subscription, payment *domain.Payment) *domain.Notification {
	return &domain.Notification{
		UserID:  sub.UserID,
		Type:    domain.NotificationPaymentFailed,
		Title:   "Donation payment failed",
		Message: fmt.Sprintf("Your donation of %s %s could not be processed. Please check your payment method.", payment.Amount.StringFixed(2), payment.Currency),
	}
}

func reminderNotification(sub *domain.Subscription) *domain.Notification {
	msg := fmt.Sprintf("Your next donation of %s %s is coming up", sub.Amount.StringFixed(2), sub.Currency)
	if sub.NextPaymentAt != nil {
		msg = fmt.Sprintf("%s on %s", msg, sub.NextPaymentAt.Format("January 2, 2006"))
	}
	return &domain.Notification{
		UserID:  sub.UserID,
		Type:    domain.NotificationPaymentReminder,
		Title:   "Upcoming donation",
		Message: msg + ".",
	}
}
