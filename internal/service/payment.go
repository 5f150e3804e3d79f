package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sowerhq/sower/internal/domain"
)

// PaymentService is the donor-facing read side of payment history.
type PaymentService interface {
	GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*domain.Payment, error)
	ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, error)
}

type paymentService struct {
	store  Store
	logger *slog.Logger
}

// NewPaymentService creates a new PaymentService instance.
func NewPaymentService(store Store, logger *slog.Logger) PaymentService {
	return &paymentService{store: store, logger: logger}
}

func (s *paymentService) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	// Ownership mismatches read as not-found so payment ids cannot be probed.
	if payment.UserID != userID {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *paymentService) ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListPaymentsByUser(ctx, userID, limit, offset)
}
