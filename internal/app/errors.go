package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	appvalidator "github.com/metinatakli/cinex-seat-engine/internal/validator"
)

const (
	ErrInternalServer     = "The server encountered a problem and could not process your request"
	ErrNotFound           = "The requested resource not found"
	ErrUnauthorizedAccess = "You must be authenticated to access this resource"
	ErrFailedValidation   = "One or more fields are invalid"
	ErrInvalidSignature   = "The webhook signature could not be verified"
)

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, ErrNotFound)
}

func (app *Application) notFoundResponseWithErr(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusNotFound, err.Error())
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, "The method is not supported for this resource")
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusUnauthorized, ErrUnauthorizedAccess)
}

func (app *Application) editConflictResponseWithErr(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusConflict, err.Error())
}

func (app *Application) goneResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusGone, err.Error())
}

func (app *Application) seatConflictResponse(w http.ResponseWriter, r *http.Request, err error, seats []domain.SeatID) {
	resp := SeatConflictResponse{
		Message:   err.Error(),
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
		Seats:     seatLabels(seats),
	}

	err = app.writeJSON(w, http.StatusConflict, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// failedValidationResponse accepts both validator errors and domain
// validation errors.
func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors []ValidationError

	var fieldErrors validator.ValidationErrors
	var domainErr *domain.ValidationError

	switch {
	case errors.As(err, &fieldErrors):
		for _, fe := range fieldErrors {
			validationErrors = append(validationErrors, ValidationError{
				Field: fe.Field(),
				Issue: appvalidator.ValidationMessage(fe),
			})
		}
	case errors.As(err, &domainErr):
		validationErrors = append(validationErrors, ValidationError{
			Field: domainErr.Field,
			Issue: domainErr.Reason,
		})
	default:
		app.badRequestResponse(w, r, err)
		return
	}

	resp := ValidationErrorResponse{
		Message:          ErrFailedValidation,
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		ValidationErrors: validationErrors,
	}

	err = app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// bookingErrorResponse maps errors returned by the booking engine to HTTP
// responses.
func (app *Application) bookingErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr       *domain.ValidationError
		holdConflict        *domain.HoldConflictError
		reservationConflict *domain.ReservationConflictError
		expired             *domain.ExpiredHoldError
	)

	logger := app.contextGetLogger(r)

	switch {
	case errors.As(err, &validationErr):
		app.failedValidationResponse(w, r, validationErr)

	case errors.As(err, &holdConflict):
		logger.Warn("seats could not be held", "seats", seatLabels(holdConflict.Seats))
		app.seatConflictResponse(w, r, holdConflict, holdConflict.Seats)

	case errors.As(err, &reservationConflict):
		app.seatConflictResponse(w, r, reservationConflict, reservationConflict.Seats)

	case errors.As(err, &expired):
		app.goneResponse(w, r, domain.ErrHoldExpired)

	case errors.Is(err, domain.ErrHoldNotFound):
		app.notFoundResponseWithErr(w, r, domain.ErrHoldNotFound)

	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)

	case errors.Is(err, domain.ErrHoldConsumed),
		errors.Is(err, domain.ErrInvalidReservationState),
		errors.Is(err, domain.ErrScreeningInactive):
		app.editConflictResponseWithErr(w, r, unwrapSentinel(err))

	default:
		app.serverErrorResponse(w, r, err)
	}
}

func unwrapSentinel(err error) error {
	for _, sentinel := range []error{
		domain.ErrHoldConsumed,
		domain.ErrInvalidReservationState,
		domain.ErrScreeningInactive,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	return err
}
