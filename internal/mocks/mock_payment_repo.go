package mocks

import (
	"context"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentRepo struct {
	mock.Mock
	domain.PaymentRepository
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetByReservationId(ctx context.Context, reservationID string) (*domain.Payment, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) SetCheckoutSession(ctx context.Context, reservationID string, checkoutSessionID string) error {
	args := m.Called(ctx, reservationID, checkoutSessionID)
	return args.Error(0)
}

func (m *MockPaymentRepo) UpdateStatus(
	ctx context.Context,
	reservationID string,
	status domain.PaymentStatus,
	errMsg string) error {

	args := m.Called(ctx, reservationID, status, errMsg)
	return args.Error(0)
}
