package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

const (
	MetadataReservationID = "reservation_id"
	MetadataHoldID        = "hold_id"
	MetadataUserID        = "user_id"
)

type StripePaymentProvider struct {
	failureUrl string
	successUrl string
	currency   string
}

func NewStripePaymentProvider(failureUrl, successUrl string) *StripePaymentProvider {
	return &StripePaymentProvider{
		failureUrl: failureUrl,
		successUrl: successUrl,
		currency:   string(stripe.CurrencyUSD),
	}
}

func (s *StripePaymentProvider) CreateCheckoutSession(
	ctx context.Context,
	reservation *domain.Reservation,
	screening *domain.Screening) (*domain.CheckoutSession, error) {

	params := &stripe.CheckoutSessionParams{
		LineItems:  s.lineItems(reservation, screening),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.failureUrl),
		Metadata: map[string]string{
			MetadataReservationID: reservation.ID,
			MetadataHoldID:        reservation.HoldID,
			MetadataUserID:        strconv.Itoa(reservation.UserID),
		},
		ClientReferenceID: stripe.String(reservation.ID),
	}
	if !reservation.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(reservation.ExpiresAt.Unix())
	}
	params.Context = ctx

	cs, err := session.New(params)
	if err != nil {
		return nil, err
	}

	return &domain.CheckoutSession{
		ID:          cs.ID,
		RedirectURL: cs.URL,
	}, nil
}

func (s *StripePaymentProvider) lineItems(
	reservation *domain.Reservation,
	screening *domain.Screening) []*stripe.CheckoutSessionLineItemParams {

	seatPrice := reservation.TotalPrice
	if n := len(reservation.Seats); n > 0 {
		seatPrice = seatPrice.Div(decimal.NewFromInt(int64(n)))
	}
	priceCents := toCents(seatPrice)

	var lineItems []*stripe.CheckoutSessionLineItemParams

	for _, seat := range reservation.Seats {
		lineItem := &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency),
				UnitAmount: stripe.Int64(priceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("%s - Seat %s", screening.MovieTitle, seat)),
					Description: stripe.String(fmt.Sprintf(
						"Hall: %s, Showtime: %s, Booking: %s",
						screening.HallName,
						screening.StartsAt.Format("Jan 2, 2006 15:04"),
						strings.ToUpper(reservation.ConfirmationCode),
					)),
				},
			},
			Quantity: stripe.Int64(1),
		}

		lineItems = append(lineItems, lineItem)
	}

	return lineItems
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
