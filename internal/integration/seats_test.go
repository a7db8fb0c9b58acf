package integration_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/metinatakli/cinex-seat-engine/internal/app"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SeatMapTestSuite struct {
	BaseSuite
}

func TestSeatMapSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(SeatMapTestSuite))
}

func (s *SeatMapTestSuite) TestGetSeatMap() {
	scenarios := []Scenario{
		{
			Name:             "returns 400 for a non positive screening id",
			Method:           "GET",
			URL:              "/screenings/0/seat-map",
			ExpectedStatus:   http.StatusBadRequest,
			ExpectedResponse: `{"message": "screening ID must be greater than zero"}`,
		},
		{
			Name:             "returns 404 if the screening does not exist",
			Method:           "GET",
			URL:              "/screenings/7/seat-map",
			ExpectedStatus:   http.StatusNotFound,
			ExpectedResponse: `{"message": "The requested resource not found"}`,
		},
		{
			Name:           "returns the seat map with held and booked seats",
			Method:         "GET",
			URL:            "/screenings/1/seat-map",
			ExpectedStatus: http.StatusOK,
			BeforeTestFunc: func(t testing.TB, a *TestApp) {
				truncateTables(t, a)
				screening := createTestScreening(t, a)

				holdTestSeats(t, a, screening.ID, TestUserId, "A1", "A2")

				h := holdTestSeats(t, a, screening.ID, TestOtherUserId, "C5")
				reservation, _, err := a.Booking.Checkout(context.Background(), h.ID, TestOtherUserId)
				require.NoError(t, err)
				_, err = a.Booking.OnPaymentResult(context.Background(), paymentSucceeded(reservation.ID))
				require.NoError(t, err)
			},
			AfterTestFunc: func(t testing.TB, a *TestApp, res *http.Response) {
				seatMap := decodeBody[app.SeatMapResponse](t, res)

				assert.Equal(t, TestMovieTitle, seatMap.MovieTitle)
				assert.Equal(t, TestHallName, seatMap.HallName)
				assert.True(t, TestScreeningStartsAt.Equal(seatMap.StartsAt))
				assert.Equal(t, TestSeatPrice, seatMap.Price)
				assert.Equal(t, 12, seatMap.Available)
				assert.Equal(t, 2, seatMap.Held)
				assert.Equal(t, 1, seatMap.Booked)

				require.Len(t, seatMap.Rows, len(TestScreeningRows))
				for i, row := range seatMap.Rows {
					assert.Equal(t, TestScreeningRows[i], row.Row)
					require.Len(t, row.Seats, TestSeatsPerRow)

					for j, seat := range row.Seats {
						assert.Equal(t, fmt.Sprintf("%s%d", row.Row, j+1), seat.Label)
					}
				}

				assert.Equal(t, "held", seatMap.Rows[0].Seats[0].Status)
				assert.Equal(t, "held", seatMap.Rows[0].Seats[1].Status)
				assert.Equal(t, "available", seatMap.Rows[0].Seats[2].Status)
				assert.Equal(t, "booked", seatMap.Rows[2].Seats[4].Status)
			},
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}

func (s *SeatMapTestSuite) TestAdminScreeningLifecycle() {
	scenarios := []Scenario{
		{
			Name:           "creates a screening and initializes its seats",
			Method:         "POST",
			URL:            "/admin/screenings",
			Headers:        TestAdminHeaders,
			Body:           jsonBody(s.T(), map[string]any{"movieTitle": "Alien", "hallName": "Hall 3", "startsAt": TestScreeningStartsAt, "rows": []string{"a", "b"}, "seatsPerRow": 3, "price": "11"}),
			ExpectedStatus: http.StatusCreated,
			ExpectedResponse: `{
				"id": 1,
				"movieTitle": "Alien",
				"hallName": "Hall 3",
				"startsAt": "2095-01-01T17:00:00Z",
				"rows": ["A", "B"],
				"seatsPerRow": 3,
				"totalSeats": 6,
				"price": "11.00",
				"active": true
			}`,
			AfterTestFunc: func(t testing.TB, a *TestApp, res *http.Response) {
				var count int
				err := a.DB.QueryRow(context.Background(), `SELECT COUNT(*) FROM screenings`).Scan(&count)
				require.NoError(t, err)
				assert.Equal(t, 1, count)

				states, err := a.Stores.Seats.List(context.Background(), 1)
				require.NoError(t, err)
				assert.Len(t, states, 6)
			},
		},
		{
			Name:           "force releases a booked seat",
			Method:         "POST",
			URL:            "/admin/screenings/1/seats/A1/release",
			Headers:        TestAdminHeaders,
			ExpectedStatus: http.StatusNoContent,
			BeforeTestFunc: func(t testing.TB, a *TestApp) {
				h := holdTestSeats(t, a, 1, TestUserId, "A1")
				reservation, _, err := a.Booking.Checkout(context.Background(), h.ID, TestUserId)
				require.NoError(t, err)
				_, err = a.Booking.OnPaymentResult(context.Background(), paymentSucceeded(reservation.ID))
				require.NoError(t, err)
			},
			AfterTestFunc: func(t testing.TB, a *TestApp, res *http.Response) {
				assert.Equal(t, domain.SeatAvailable, seatStatus(t, a, 1, "A1"))
			},
		},
		{
			Name:           "audit reports the released seat of a confirmed reservation",
			Method:         "GET",
			URL:            "/admin/screenings/1/audit",
			Headers:        TestAdminHeaders,
			ExpectedStatus: http.StatusConflict,
			AfterTestFunc: func(t testing.TB, a *TestApp, res *http.Response) {
				audit := decodeBody[app.AuditResponse](t, res)

				assert.False(t, audit.Consistent)
				require.Len(t, audit.Violations, 1)
				assert.Contains(t, audit.Violations[0], "seat A1 of confirmed reservation")
			},
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}

func (s *SeatMapTestSuite) TestUpdateScreening() {
	scenarios := []Scenario{
		{
			Name:           "returns 404 for an unknown screening",
			Method:         "PATCH",
			URL:            "/admin/screenings/42",
			Headers:        TestAdminHeaders,
			Body:           jsonBody(s.T(), map[string]any{"active": false}),
			ExpectedStatus: http.StatusNotFound,
		},
		{
			Name:           "changes price and closes the screening",
			Method:         "PATCH",
			URL:            "/admin/screenings/1",
			Headers:        TestAdminHeaders,
			Body:           jsonBody(s.T(), map[string]any{"price": "12.25", "active": false}),
			ExpectedStatus: http.StatusOK,
			BeforeTestFunc: func(t testing.TB, a *TestApp) {
				createTestScreening(t, a)
			},
			ExpectedResponse: `{
				"id": 1,
				"movieTitle": "Heat",
				"hallName": "Hall 1",
				"startsAt": "2095-01-01T17:00:00Z",
				"rows": ["A", "B", "C"],
				"seatsPerRow": 5,
				"totalSeats": 15,
				"price": "12.25",
				"active": false
			}`,
			AfterTestFunc: func(t testing.TB, a *TestApp, res *http.Response) {
				var price string
				var active bool
				err := a.DB.QueryRow(context.Background(),
					`SELECT price::text, active FROM screenings WHERE id = 1`).Scan(&price, &active)
				require.NoError(t, err)
				assert.Equal(t, "12.25", price)
				assert.False(t, active)

				_, err = a.Booking.StartBooking(context.Background(), 1, []domain.SeatID{{Row: "A", Number: 1}}, TestUserId)
				assert.ErrorIs(t, err, domain.ErrScreeningInactive)
			},
		},
		{
			Name:           "creates a screening from a row count",
			Method:         "POST",
			URL:            "/admin/screenings",
			Headers:        TestAdminHeaders,
			Body:           jsonBody(s.T(), map[string]any{"movieTitle": "Alien", "hallName": "Hall 3", "startsAt": TestScreeningStartsAt, "rowCount": 28, "seatsPerRow": 2, "price": "11"}),
			ExpectedStatus: http.StatusCreated,
			AfterTestFunc: func(t testing.TB, a *TestApp, res *http.Response) {
				screening := decodeBody[app.ScreeningResponse](t, res)
				require.Len(t, screening.Rows, 28)
				assert.Equal(t, "AB", screening.Rows[27])
				assert.Equal(t, 56, screening.TotalSeats)
			},
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}
