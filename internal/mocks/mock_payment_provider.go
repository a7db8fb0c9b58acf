package mocks

import (
	"context"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentProvider struct {
	mock.Mock
	domain.PaymentProvider
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	ctx context.Context,
	reservation *domain.Reservation,
	screening *domain.Screening) (*domain.CheckoutSession, error) {

	args := m.Called(ctx, reservation, screening)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}
