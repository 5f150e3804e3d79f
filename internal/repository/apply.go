package repository

import (
	"context"
	"time"

	"github.com/sowerhq/sower/internal/domain"
)

// ApplyPaymentSuccessParams carries everything a settled charge reports.
type ApplyPaymentSuccessParams struct {
	Reference string
	PaidAt    time.Time
	Channel   string
	Metadata  map[string]any

	// Gateway references learned from the charge. Empty values are ignored.
	CustomerCode      string
	SubscriptionCode  string
	EmailToken        string
	AuthorizationCode string
}

// ApplyPaymentSuccess applies the full effect of a successful charge in one
// transaction: payment to SUCCESS, project total incremented, subscription
// dates advanced, gateway references stored.
//
// The payment update is the idempotency gate. It only matches while the
// payment is not yet SUCCESS, so when verify and a webhook race over the
// same reference, exactly one caller observes applied=true and performs the
// side effects; the other comes back (nil, nil, false, nil) and must treat
// the charge as already reconciled.
func (s *Store) ApplyPaymentSuccess(ctx context.Context, params ApplyPaymentSuccessParams) (*domain.Payment, *domain.Subscription, bool, error) {
	var (
		payment *domain.Payment
		sub     *domain.Subscription
		applied bool
	)

	err := s.WithTx(ctx, func(tx *Store) error {
		var err error
		payment, applied, err = tx.MarkPaymentSucceeded(ctx, params.Reference, params.PaidAt, params.Channel, params.Metadata)
		if err != nil || !applied {
			return err
		}

		sub, err = tx.GetSubscription(ctx, payment.SubscriptionID)
		if err != nil {
			return err
		}

		next, err := domain.NextPaymentDate(sub.Interval, sub.CustomDays, params.PaidAt)
		if err != nil {
			return err
		}

		if err := tx.AdvanceSubscriptionDates(ctx, sub.ID, params.PaidAt, next); err != nil {
			return err
		}
		if err := tx.AttachGatewayRefs(ctx, sub.ID, params.CustomerCode, params.SubscriptionCode, params.EmailToken, params.AuthorizationCode); err != nil {
			return err
		}
		if err := tx.IncrementProjectAmount(ctx, payment.ProjectID, payment.Amount); err != nil {
			return err
		}

		sub.LastPaymentAt = &params.PaidAt
		sub.NextPaymentAt = &next
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return payment, sub, applied, nil
}
