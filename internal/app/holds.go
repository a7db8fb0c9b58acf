package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/metinatakli/cinex-seat-engine/internal/booking"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

func (app *Application) CreateHoldHandler(w http.ResponseWriter, r *http.Request, screeningId int) {
	logger := app.contextGetLogger(r)

	if screeningId < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	var input CreateHoldRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	seats := make([]domain.SeatID, 0, len(input.Seats))
	for _, label := range input.Seats {
		seat, err := domain.ParseSeatID(label)
		if err != nil {
			app.failedValidationResponse(w, r, err)
			return
		}

		seats = append(seats, seat)
	}

	active, err := app.sessionHasActiveHold(r)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if active {
		logger.Warn("hold creation rejected: a hold already exists for this session")
		app.badRequestResponse(w, r, fmt.Errorf("cannot create a new hold while one is active in this session"))
		return
	}

	userId := app.contextGetUserId(r)

	hold, err := app.booking.StartBooking(r.Context(), screeningId, seats, userId)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	app.sessionManager.Put(r.Context(), SessionKeyHoldId.String(), hold.ID)

	err = app.writeJSON(w, http.StatusCreated, toHoldResponse(hold), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// sessionHasActiveHold reports whether the hold remembered by the session is
// still claiming seats. Stale ids are dropped from the session.
func (app *Application) sessionHasActiveHold(r *http.Request) (bool, error) {
	holdId := app.sessionManager.GetString(r.Context(), SessionKeyHoldId.String())
	if holdId == "" {
		return false, nil
	}

	hold, err := app.booking.GetHold(r.Context(), holdId)
	if err != nil && !errors.Is(err, domain.ErrHoldNotFound) {
		return false, err
	}

	if err == nil && hold.State == domain.HoldActive && !hold.Expired(time.Now()) {
		return true, nil
	}

	app.sessionManager.Remove(r.Context(), SessionKeyHoldId.String())

	return false, nil
}

func (app *Application) ReleaseHoldHandler(w http.ResponseWriter, r *http.Request, holdId string) {
	userId := app.contextGetUserId(r)

	err := app.booking.ReleaseHold(r.Context(), holdId, userId)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	app.forgetSessionHold(r, holdId)

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) CheckoutHandler(w http.ResponseWriter, r *http.Request, holdId string) {
	userId := app.contextGetUserId(r)

	reservation, session, err := app.booking.Checkout(r.Context(), holdId, userId)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	app.forgetSessionHold(r, holdId)

	app.contextGetLogger(r).Info("checkout session created",
		"hold_id", holdId,
		"reservation_id", reservation.ID,
		"checkout_session_id", session.ID)

	resp := CheckoutSessionResponse{
		ReservationId: reservation.ID,
		RedirectUrl:   session.RedirectURL,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// HoldPaymentHandler receives the gateway outcome for a hold that was paid
// without a prior checkout.
func (app *Application) HoldPaymentHandler(w http.ResponseWriter, r *http.Request, holdId string) {
	app.paymentResult(w, r, func(success bool, reason string) booking.PaymentResult {
		return booking.PaymentResult{HoldID: holdId, Success: success, Reason: reason}
	})
}

func (app *Application) ReservationPaymentHandler(w http.ResponseWriter, r *http.Request, reservationId string) {
	app.paymentResult(w, r, func(success bool, reason string) booking.PaymentResult {
		return booking.PaymentResult{ReservationID: reservationId, Success: success, Reason: reason}
	})
}

func (app *Application) paymentResult(
	w http.ResponseWriter,
	r *http.Request,
	toResult func(success bool, reason string) booking.PaymentResult) {

	var input PaymentResultRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	reservation, err := app.booking.OnPaymentResult(r.Context(), toResult(*input.Success, input.Reason))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	resp := PaymentResultResponse{Status: "released"}
	if reservation != nil {
		resp.Status = string(reservation.Status)
		resp.Reservation = toReservationResponse(reservation)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) forgetSessionHold(r *http.Request, holdId string) {
	if app.sessionManager.GetString(r.Context(), SessionKeyHoldId.String()) == holdId {
		app.sessionManager.Remove(r.Context(), SessionKeyHoldId.String())
	}
}

func toHoldResponse(hold *domain.Hold) HoldResponse {
	return HoldResponse{
		Id:          hold.ID,
		ScreeningId: hold.ScreeningID,
		Seats:       seatLabels(hold.Seats),
		State:       string(hold.State),
		ExpiresAt:   hold.ExpiresAt,
		ExpiresIn:   int(hold.Remaining(time.Now()).Seconds()),
	}
}

func seatLabels(seats []domain.SeatID) []string {
	labels := make([]string, len(seats))
	for i, s := range seats {
		labels[i] = s.String()
	}

	return labels
}
