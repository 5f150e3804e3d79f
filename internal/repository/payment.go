package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sowerhq/sower/internal/domain"
)

const paymentColumns = `
	id, subscription_id, user_id, project_id, amount, currency, status,
	external_reference, channel, paid_at, failure_reason, metadata,
	created_at, updated_at`

// CreatePayment inserts a new payment row. A duplicate external reference
// surfaces as domain.ErrDuplicateReference.
func (s *Store) CreatePayment(ctx context.Context, p *domain.Payment) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO payments (
			subscription_id, user_id, project_id, amount, currency, status,
			external_reference, channel, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		p.SubscriptionID, p.UserID, p.ProjectID, p.Amount, p.Currency, p.Status,
		p.ExternalReference, p.Channel, p.Metadata,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReference
		}
		return domain.Internal(err, "payment.create", "failed to create payment")
	}
	return nil
}

// GetPayment retrieves a payment by ID.
func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)

	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.Internal(err, "payment.get", "failed to get payment")
	}
	return p, nil
}

// GetPaymentByReference retrieves a payment by its external reference.
func (s *Store) GetPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE external_reference = $1`, reference)

	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.Internal(err, "payment.get_by_reference", "failed to get payment by reference")
	}
	return p, nil
}

// ListPaymentsByUser returns a donor's payments, newest first.
func (s *Store) ListPaymentsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, domain.Internal(err, "payment.list", "failed to list payments")
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.Internal(err, "payment.list", "failed to scan payment")
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// MarkPaymentSucceeded flips a payment to SUCCESS, keyed by external
// reference. The status guard makes the operation idempotent: the first
// caller to land wins and gets the row back, every later caller (a second
// webhook delivery, a concurrent verify) gets applied=false. FAILED
// payments may still move to SUCCESS, since the gateway's settled state is
// authoritative over an earlier provisional failure.
func (s *Store) MarkPaymentSucceeded(ctx context.Context, reference string, paidAt time.Time, channel string, metadata map[string]any) (*domain.Payment, bool, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE payments
		SET status = $2,
		    paid_at = $3,
		    channel = COALESCE(NULLIF($4, ''), channel),
		    metadata = COALESCE(metadata, '{}'::jsonb) || COALESCE($5, '{}'::jsonb),
		    updated_at = now()
		WHERE external_reference = $1 AND status <> $2
		RETURNING `+paymentColumns,
		reference, domain.PaymentStatusSuccess, paidAt, channel, metadata)

	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the reference does not exist or it is already SUCCESS.
			return nil, false, nil
		}
		return nil, false, domain.Internal(err, "payment.mark_succeeded", "failed to mark payment succeeded")
	}
	return p, true, nil
}

// MarkPaymentFailed records a failed charge attempt. Only PENDING payments
// move to FAILED; a payment already reconciled as SUCCESS stays SUCCESS.
func (s *Store) MarkPaymentFailed(ctx context.Context, reference, reason string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE payments
		SET status = $2, failure_reason = $3, updated_at = now()
		WHERE external_reference = $1 AND status = $4`,
		reference, domain.PaymentStatusFailed, reason, domain.PaymentStatusPending)
	if err != nil {
		return false, domain.Internal(err, "payment.mark_failed", "failed to mark payment failed")
	}
	return tag.RowsAffected() > 0, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.SubscriptionID, &p.UserID, &p.ProjectID, &p.Amount, &p.Currency,
		&p.Status, &p.ExternalReference, &p.Channel, &p.PaidAt, &p.FailureReason,
		&p.Metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
