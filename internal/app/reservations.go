package app

import (
	"net/http"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

func (app *Application) GetReservationsOfUserHandler(
	w http.ResponseWriter,
	r *http.Request,
	params GetReservationsOfUserHandlerParams) {

	err := app.validator.Struct(params)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)
	pagination := toPagination(params)

	reservations, metadata, err := app.booking.UserReservations(r.Context(), userId, pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := UserReservationsResponse{
		Reservations: toReservationSummaries(reservations),
		Metadata:     toApiMetadata(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetUserReservationById(w http.ResponseWriter, r *http.Request, reservationId string) {
	userId := app.contextGetUserId(r)

	reservation, err := app.booking.Reservation(r.Context(), reservationId, userId)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toReservationResponse(reservation), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetReservationByCodeHandler(w http.ResponseWriter, r *http.Request, code string) {
	reservation, err := app.booking.ReservationByCode(r.Context(), code)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toReservationResponse(reservation), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelReservationHandler(w http.ResponseWriter, r *http.Request, reservationId string) {
	userId := app.contextGetUserId(r)

	_, err := app.booking.Reservation(r.Context(), reservationId, userId)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.booking.Cancel(r.Context(), reservationId)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	app.contextGetLogger(r).Info("reservation cancelled", "reservation_id", reservationId)

	w.WriteHeader(http.StatusNoContent)
}

func toReservationResponse(reservation *domain.Reservation) *ReservationResponse {
	return &ReservationResponse{
		Id:               reservation.ID,
		ConfirmationCode: reservation.ConfirmationCode,
		ScreeningId:      reservation.ScreeningID,
		Seats:            seatLabels(reservation.Seats),
		TotalPrice:       reservation.TotalPrice.StringFixed(2),
		Status:           string(reservation.Status),
		CreatedAt:        reservation.CreatedAt,
	}
}

func toReservationSummaries(reservations []domain.ReservationSummary) []ReservationSummary {
	reservationSummaries := make([]ReservationSummary, len(reservations))

	for i, v := range reservations {
		summary := &reservationSummaries[i]

		summary.Id = v.ReservationID
		summary.ConfirmationCode = v.ConfirmationCode
		summary.ScreeningId = v.ScreeningID
		summary.MovieTitle = v.MovieTitle
		summary.HallName = v.HallName
		summary.Date = v.StartsAt
		summary.SeatCount = v.SeatCount
		summary.TotalPrice = v.TotalPrice.StringFixed(2)
		summary.Status = string(v.Status)
		summary.CreatedAt = v.CreatedAt
	}

	return reservationSummaries
}

func toApiMetadata(metadata *domain.Metadata) Metadata {
	if metadata == nil {
		return Metadata{}
	}

	return Metadata{
		CurrentPage:  metadata.CurrentPage,
		FirstPage:    metadata.FirstPage,
		LastPage:     metadata.LastPage,
		PageSize:     metadata.PageSize,
		TotalRecords: metadata.TotalRecords,
	}
}

func toPagination(params GetReservationsOfUserHandlerParams) domain.Pagination {
	pagination := domain.Pagination{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}

	if params.Page != nil {
		pagination.Page = *params.Page
	}
	if params.PageSize != nil {
		pagination.PageSize = *params.PageSize
	}

	return pagination
}
