package app

import (
	"errors"
	"io"
	"net/http"

	"github.com/metinatakli/cinex-seat-engine/internal/booking"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/metinatakli/cinex-seat-engine/internal/payment"
)

const maxWebhookBytes = 65_536

type PaymentWebhook interface {
	Translate(payload []byte, signature string) (*booking.PaymentResult, error)
}

func (app *Application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := app.webhooks.Translate(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			logger.Warn("webhook rejected", "error", err)
			app.errorResponse(w, r, http.StatusBadRequest, ErrInvalidSignature)
			return
		}

		app.badRequestResponse(w, r, err)
		return
	}

	if result == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	reservation, err := app.booking.OnPaymentResult(r.Context(), *result)
	if err != nil {
		if !settledPaymentError(err) {
			app.serverErrorResponse(w, r, err)
			return
		}

		// a redelivered or outdated event must not be retried by the gateway
		logger.Warn("webhook payment result not applied",
			"hold_id", result.HoldID,
			"reservation_id", result.ReservationID,
			"error", err)

		w.WriteHeader(http.StatusOK)
		return
	}

	if reservation != nil {
		logger.Info("webhook payment result applied",
			"reservation_id", reservation.ID,
			"status", reservation.Status)
	}

	w.WriteHeader(http.StatusOK)
}

func settledPaymentError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidReservationState,
		domain.ErrReservationConflict,
		domain.ErrHoldExpired,
		domain.ErrHoldConsumed,
		domain.ErrHoldNotFound,
		domain.ErrRecordNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
