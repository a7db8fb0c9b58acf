package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/metinatakli/cinex-seat-engine/internal/booking"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// WebhookTranslator verifies Stripe webhook deliveries and turns checkout
// session events into payment results.
type WebhookTranslator struct {
	secret string
}

func NewWebhookTranslator(secret string) *WebhookTranslator {
	return &WebhookTranslator{secret: secret}
}

// Translate returns a nil result for events that do not settle a payment.
func (t *WebhookTranslator) Translate(payload []byte, signature string) (*booking.PaymentResult, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, t.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var success bool
	var reason string

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		success = true
	case stripe.EventTypeCheckoutSessionExpired:
		reason = "checkout session expired"
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		reason = "payment failed"
	default:
		return nil, nil
	}

	var cs stripe.CheckoutSession
	err = json.Unmarshal(event.Data.Raw, &cs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse checkout session: %w", err)
	}

	// completed sessions with delayed payment methods settle later
	if success && event.Type == stripe.EventTypeCheckoutSessionCompleted &&
		cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		return nil, nil
	}

	reservationID := cs.Metadata[MetadataReservationID]
	if reservationID == "" {
		reservationID = cs.ClientReferenceID
	}

	result := &booking.PaymentResult{
		ReservationID: reservationID,
		Success:       success,
		Reason:        reason,
	}

	if reservationID == "" {
		result.HoldID = cs.Metadata[MetadataHoldID]
	}

	if result.ReservationID == "" && result.HoldID == "" {
		return nil, fmt.Errorf("checkout session %s carries no reservation or hold id", cs.ID)
	}

	return result, nil
}
