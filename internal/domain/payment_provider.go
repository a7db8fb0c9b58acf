package domain

import "context"

type CheckoutSession struct {
	ID          string
	RedirectURL string
}

type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, reservation *Reservation, screening *Screening) (*CheckoutSession, error)
}
