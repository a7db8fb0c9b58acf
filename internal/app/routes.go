package app

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(app.requestLogger)
	r.Use(app.recoverPanic)
	r.Use(app.sessionManager.LoadAndSave)

	r.Get("/healthcheck", app.GetHealth)

	r.Get("/screenings/{screeningId}/seat-map", app.withIntParam("screeningId", app.GetSeatMapHandler))
	r.Get("/reservations/code/{code}", withParam("code", app.GetReservationByCodeHandler))
	r.Post("/webhook", app.StripeWebhookHandler)

	r.Group(func(r chi.Router) {
		r.Use(app.requireAuthentication)

		r.Post("/screenings/{screeningId}/holds", app.withIntParam("screeningId", app.CreateHoldHandler))
		r.Delete("/holds/{holdId}", withParam("holdId", app.ReleaseHoldHandler))
		r.Post("/holds/{holdId}/checkout", withParam("holdId", app.CheckoutHandler))

		r.Get("/users/me/reservations", func(w http.ResponseWriter, r *http.Request) {
			params := GetReservationsOfUserHandlerParams{}

			if page := r.URL.Query().Get("page"); page != "" {
				if pageNum, err := strconv.Atoi(page); err == nil {
					params.Page = &pageNum
				}
			}

			if pageSize := r.URL.Query().Get("pageSize"); pageSize != "" {
				if pageSizeNum, err := strconv.Atoi(pageSize); err == nil {
					params.PageSize = &pageSizeNum
				}
			}

			app.GetReservationsOfUserHandler(w, r, params)
		})
		r.Get("/users/me/reservations/{reservationId}", withParam("reservationId", app.GetUserReservationById))
		r.Post("/reservations/{reservationId}/cancel", withParam("reservationId", app.CancelReservationHandler))
	})

	// callbacks from the payment gateway integration and operator tooling
	r.Group(func(r chi.Router) {
		r.Use(app.requireAdminToken)

		r.Post("/holds/{holdId}/payment", withParam("holdId", app.HoldPaymentHandler))
		r.Post("/reservations/{reservationId}/payment", withParam("reservationId", app.ReservationPaymentHandler))

		r.Post("/admin/screenings", app.CreateScreeningHandler)
		r.Patch("/admin/screenings/{screeningId}", app.withIntParam("screeningId", app.UpdateScreeningHandler))
		r.Post("/admin/screenings/{screeningId}/seats/{seat}/release", func(w http.ResponseWriter, r *http.Request) {
			screeningId, err := strconv.Atoi(chi.URLParam(r, "screeningId"))
			if err != nil {
				app.badRequestResponse(w, r, fmt.Errorf("invalid screening ID"))
				return
			}

			app.ForceReleaseSeatHandler(w, r, screeningId, chi.URLParam(r, "seat"))
		})
		r.Get("/admin/screenings/{screeningId}/audit", app.withIntParam("screeningId", app.AuditScreeningHandler))
	})

	return r
}

func (app *Application) withIntParam(
	name string,
	next func(http.ResponseWriter, *http.Request, int)) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, name))
		if err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("invalid %s", name))
			return
		}

		next(w, r, id)
	}
}

func withParam(name string, next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r, chi.URLParam(r, name))
	}
}
