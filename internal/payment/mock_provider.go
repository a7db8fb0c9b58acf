package payment

import (
	"context"
	"net/url"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

// MockPaymentProvider opens no real session. The redirect goes straight to
// the success page with the reservation id, for local runs without Stripe.
type MockPaymentProvider struct {
	successUrl string
}

func NewMockPaymentProvider(successUrl string) *MockPaymentProvider {
	return &MockPaymentProvider{successUrl: successUrl}
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	ctx context.Context,
	reservation *domain.Reservation,
	screening *domain.Screening) (*domain.CheckoutSession, error) {

	redirect := m.successUrl
	if u, err := url.Parse(m.successUrl); err == nil {
		q := u.Query()
		q.Set(MetadataReservationID, reservation.ID)
		u.RawQuery = q.Encode()
		redirect = u.String()
	}

	return &domain.CheckoutSession{
		ID:          "cs_mock_" + reservation.ID,
		RedirectURL: redirect,
	}, nil
}
