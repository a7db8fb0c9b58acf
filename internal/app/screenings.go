package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/metinatakli/cinex-seat-engine/internal/booking"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/metinatakli/cinex-seat-engine/internal/seatmap"
	appvalidator "github.com/metinatakli/cinex-seat-engine/internal/validator"
	"github.com/shopspring/decimal"
)

func (app *Application) GetSeatMapHandler(w http.ResponseWriter, r *http.Request, screeningId int) {
	if screeningId < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	view, err := app.booking.SeatMap(r.Context(), screeningId)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatMapResponse(view), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSeatMapResponse(view *booking.SeatMapView) SeatMapResponse {
	rows := make([]SeatRow, len(view.Rows))

	for i, row := range view.Rows {
		seats := make([]Seat, len(row.Seats))
		for j, st := range row.Seats {
			seats[j] = Seat{
				Label:  st.Seat.String(),
				Number: st.Seat.Number,
				Status: st.Status.String(),
			}
		}

		rows[i] = SeatRow{Row: row.Label, Seats: seats}
	}

	return SeatMapResponse{
		ScreeningId: view.Screening.ID,
		MovieTitle:  view.Screening.MovieTitle,
		HallName:    view.Screening.HallName,
		StartsAt:    view.Screening.StartsAt,
		Price:       view.Screening.Price.StringFixed(2),
		Available:   view.Available,
		Held:        view.Held,
		Booked:      view.Booked,
		Rows:        rows,
	}
}

func (app *Application) CreateScreeningHandler(w http.ResponseWriter, r *http.Request) {
	var input CreateScreeningRequest

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

	// rows are either listed or generated as A, B, ... from rowCount
	rows := input.Rows
	switch {
	case len(rows) > 0 && input.RowCount > 0:
		app.failedValidationResponse(w, r, &domain.ValidationError{Field: "rowCount", Reason: "must not be set together with rows"})
		return
	case len(rows) == 0 && input.RowCount == 0:
		app.failedValidationResponse(w, r, &domain.ValidationError{Field: "rows", Reason: appvalidator.ErrRequired})
		return
	case len(rows) == 0:
		rows = seatmap.RowLabels(input.RowCount)
	}

	price, err := decimal.NewFromString(input.Price)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	screening, err := app.booking.CreateScreening(r.Context(), domain.Screening{
		MovieTitle:  input.MovieTitle,
		HallName:    input.HallName,
		StartsAt:    input.StartsAt,
		Rows:        rows,
		SeatsPerRow: input.SeatsPerRow,
		Price:       price,
		Active:      active,
	})
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/screenings/%d/seat-map", screening.ID))

	err = app.writeJSON(w, http.StatusCreated, toScreeningResponse(screening), headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// UpdateScreeningHandler changes the price or the booking availability of a
// screening. Seats already held or booked keep their price.
func (app *Application) UpdateScreeningHandler(w http.ResponseWriter, r *http.Request, screeningId int) {
	if screeningId < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	var input UpdateScreeningRequest

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

	var price *decimal.Decimal
	if input.Price != nil {
		p, err := decimal.NewFromString(*input.Price)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		price = &p
	}

	screening, err := app.booking.UpdateScreening(r.Context(), screeningId, price, input.Active)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toScreeningResponse(screening), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toScreeningResponse(s *domain.Screening) ScreeningResponse {
	return ScreeningResponse{
		Id:          s.ID,
		MovieTitle:  s.MovieTitle,
		HallName:    s.HallName,
		StartsAt:    s.StartsAt,
		Rows:        s.Rows,
		SeatsPerRow: s.SeatsPerRow,
		TotalSeats:  s.TotalSeats(),
		Price:       s.Price.StringFixed(2),
		Active:      s.Active,
	}
}

func (app *Application) ForceReleaseSeatHandler(w http.ResponseWriter, r *http.Request, screeningId int, seatLabel string) {
	if screeningId < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	seat, err := domain.ParseSeatID(seatLabel)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.booking.ForceRelease(r.Context(), screeningId, seat)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuditScreeningHandler answers 409 with the violations when seat and
// reservation state disagree.
func (app *Application) AuditScreeningHandler(w http.ResponseWriter, r *http.Request, screeningId int) {
	if screeningId < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("screening ID must be greater than zero"))
		return
	}

	resp := AuditResponse{
		ScreeningId: screeningId,
		Consistent:  true,
		Violations:  []string{},
	}
	status := http.StatusOK

	err := app.booking.Audit(r.Context(), screeningId)
	if err != nil {
		var consistencyErr *domain.ConsistencyError
		if !errors.As(err, &consistencyErr) {
			app.bookingErrorResponse(w, r, err)
			return
		}

		app.contextGetLogger(r).Error("screening audit failed",
			"screening_id", screeningId,
			"violations", len(consistencyErr.Violations))

		resp.Consistent = false
		resp.Violations = consistencyErr.Violations
		status = http.StatusConflict
	}

	err = app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
