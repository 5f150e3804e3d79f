package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
)

const subscriptionColumns = `
	id, user_id, project_id, amount, currency, interval, custom_days, status,
	start_date, end_date, next_payment_at, last_payment_at,
	donor_email, donor_name, plan_code, customer_code, subscription_code,
	email_token, authorization_code, created_at, updated_at`

// CreateSubscription inserts a new subscription and fills in generated fields.
func (s *Store) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO subscriptions (
			user_id, project_id, amount, currency, interval, custom_days, status,
			start_date, next_payment_at, donor_email, donor_name, plan_code
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		sub.UserID, sub.ProjectID, sub.Amount, sub.Currency, sub.Interval, sub.CustomDays,
		sub.Status, sub.StartDate, sub.NextPaymentAt, sub.DonorEmail, sub.DonorName, sub.PlanCode,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSubscription
		}
		return domain.Internal(err, "subscription.create", "failed to create subscription")
	}
	return nil
}

// GetSubscription retrieves a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, domain.Internal(err, "subscription.get", "failed to get subscription")
	}
	return sub, nil
}

// ListSubscriptionsByUser returns a donor's subscriptions, newest first.
func (s *Store) ListSubscriptionsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Subscription, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, domain.Internal(err, "subscription.list", "failed to list subscriptions")
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// FindActiveSubscription returns the donor's ACTIVE subscription for a
// project, or nil if none exists.
func (s *Store) FindActiveSubscription(ctx context.Context, userID, projectID uuid.UUID) (*domain.Subscription, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE user_id = $1 AND project_id = $2 AND status = $3`,
		userID, projectID, domain.SubscriptionStatusActive)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, "subscription.find_active", "failed to find active subscription")
	}
	return sub, nil
}

// FindActiveByPlanAndEmail matches a gateway subscription.create event to a
// local subscription. Used when the event carries no local identifiers.
func (s *Store) FindActiveByPlanAndEmail(ctx context.Context, planCode, email string) (*domain.Subscription, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE plan_code = $1 AND donor_email = $2 AND status = $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		planCode, email, domain.SubscriptionStatusActive)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, "subscription.find_by_plan", "failed to find subscription by plan")
	}
	return sub, nil
}

// GetSubscriptionByGatewayCode looks up a subscription by its gateway
// mandate code.
func (s *Store) GetSubscriptionByGatewayCode(ctx context.Context, code string) (*domain.Subscription, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE subscription_code = $1`, code)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, domain.Internal(err, "subscription.get_by_code", "failed to get subscription by code")
	}
	return sub, nil
}

// UpdateSubscriptionStatus moves a subscription from one of the expected
// prior states to a new state. Returns false when the row was not in any
// expected state, which is how concurrent transitions lose the race.
func (s *Store) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, to domain.SubscriptionStatus, from ...domain.SubscriptionStatus) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE subscriptions
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)`,
		id, to, statusStrings(from))
	if err != nil {
		// Resuming can collide with a newer ACTIVE subscription for the
		// same donor and project.
		if isUniqueViolation(err) {
			return false, domain.ErrDuplicateSubscription
		}
		return false, domain.Internal(err, "subscription.update_status", "failed to update subscription status")
	}
	return tag.RowsAffected() > 0, nil
}

// MarkSubscriptionCancelled cancels a subscription unless it is already in
// a terminal state, stamping the end date in the same statement.
func (s *Store) MarkSubscriptionCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE subscriptions
		SET status = $2, end_date = now(), updated_at = now()
		WHERE id = $1 AND status NOT IN ($3, $4)`,
		id, domain.SubscriptionStatusCancelled,
		domain.SubscriptionStatusCancelled, domain.SubscriptionStatusExpired)
	if err != nil {
		return false, domain.Internal(err, "subscription.cancel", "failed to cancel subscription")
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateSubscriptionTerms changes amount and cadence while the subscription
// is ACTIVE. Returns false if the subscription was not ACTIVE.
func (s *Store) UpdateSubscriptionTerms(ctx context.Context, id uuid.UUID, amount decimal.Decimal, interval domain.Interval, customDays int, nextPaymentAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE subscriptions
		SET amount = $2, interval = $3, custom_days = $4, next_payment_at = $5, updated_at = now()
		WHERE id = $1 AND status = $6`,
		id, amount, interval, customDays, nextPaymentAt, domain.SubscriptionStatusActive)
	if err != nil {
		return false, domain.Internal(err, "subscription.update_terms", "failed to update subscription terms")
	}
	return tag.RowsAffected() > 0, nil
}

// SetNextPaymentDate updates only the next payment date. Used on resume,
// where the paused schedule restarts from now.
func (s *Store) SetNextPaymentDate(ctx context.Context, id uuid.UUID, next time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE subscriptions SET next_payment_at = $2, updated_at = now() WHERE id = $1`,
		id, next)
	if err != nil {
		return domain.Internal(err, "subscription.set_next_payment", "failed to set next payment date")
	}
	return nil
}

// AttachGatewayRefs stores the gateway identifiers learned from the first
// successful charge. Empty arguments leave the stored value untouched.
func (s *Store) AttachGatewayRefs(ctx context.Context, id uuid.UUID, customerCode, subscriptionCode, emailToken, authorizationCode string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE subscriptions
		SET customer_code      = COALESCE(NULLIF($2, ''), customer_code),
		    subscription_code  = COALESCE(NULLIF($3, ''), subscription_code),
		    email_token        = COALESCE(NULLIF($4, ''), email_token),
		    authorization_code = COALESCE(NULLIF($5, ''), authorization_code),
		    updated_at = now()
		WHERE id = $1`,
		id, customerCode, subscriptionCode, emailToken, authorizationCode)
	if err != nil {
		return domain.Internal(err, "subscription.attach_refs", "failed to attach gateway references")
	}
	return nil
}

// AdvanceSubscriptionDates records a successful payment and schedules the
// next one.
func (s *Store) AdvanceSubscriptionDates(ctx context.Context, id uuid.UUID, lastPaymentAt, nextPaymentAt time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE subscriptions
		SET last_payment_at = $2, next_payment_at = $3, updated_at = now()
		WHERE id = $1`,
		id, lastPaymentAt, nextPaymentAt)
	if err != nil {
		return domain.Internal(err, "subscription.advance", "failed to advance subscription dates")
	}
	return nil
}

// ListDueForReminder returns ACTIVE subscriptions whose next payment falls
// inside [from, to).
func (s *Store) ListDueForReminder(ctx context.Context, from, to time.Time) ([]domain.Subscription, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE status = $1 AND next_payment_at >= $2 AND next_payment_at < $3
		 ORDER BY next_payment_at`,
		domain.SubscriptionStatusActive, from, to)
	if err != nil {
		return nil, domain.Internal(err, "subscription.list_due_reminder", "failed to list subscriptions due for reminder")
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// ListDueForCharge returns ACTIVE custom-interval subscriptions that are
// past due and have a saved card authorization to charge against.
func (s *Store) ListDueForCharge(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE status = $1 AND interval = $2 AND next_payment_at <= $3 AND authorization_code <> ''
		 ORDER BY next_payment_at`,
		domain.SubscriptionStatusActive, domain.IntervalCustom, now)
	if err != nil {
		return nil, domain.Internal(err, "subscription.list_due_charge", "failed to list subscriptions due for charge")
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// ExpireStaleSubscriptions marks ACTIVE subscriptions whose next payment
// date is older than cutoff as EXPIRED and returns how many rows changed.
// Running it twice over the same window is harmless: the first run moves
// the rows out of ACTIVE and the second matches nothing.
func (s *Store) ExpireStaleSubscriptions(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE subscriptions
		SET status = $1, end_date = now(), updated_at = now()
		WHERE status = $2 AND next_payment_at < $3`,
		domain.SubscriptionStatusExpired, domain.SubscriptionStatusActive, cutoff)
	if err != nil {
		return 0, domain.Internal(err, "subscription.expire_stale", "failed to expire stale subscriptions")
	}
	return tag.RowsAffected(), nil
}

func statusStrings(statuses []domain.SubscriptionStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.ProjectID, &sub.Amount, &sub.Currency,
		&sub.Interval, &sub.CustomDays, &sub.Status,
		&sub.StartDate, &sub.EndDate, &sub.NextPaymentAt, &sub.LastPaymentAt,
		&sub.DonorEmail, &sub.DonorName, &sub.PlanCode, &sub.CustomerCode,
		&sub.SubscriptionCode, &sub.EmailToken, &sub.AuthorizationCode,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, domain.Internal(err, "subscription.scan", "failed to scan subscription")
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
