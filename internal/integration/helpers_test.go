package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/metinatakli/cinex-seat-engine/internal/app"
	"github.com/metinatakli/cinex-seat-engine/internal/booking"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var keysToIgnore = map[string]struct{}{
	"timestamp": {},
	"requestId": {},
	"createdAt": {},
	"expiresAt": {},
	"expiresIn": {},
}

func prepareRequest(method, path string, body io.Reader, headers map[string]string, cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	return req
}

func compareResponse(t testing.TB, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	cleanMap(actual)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indetermistic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		_, ok := keysToIgnore[k]
		return ok
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func cleanMap(m map[string]any) {
	for k := range m {
		if _, ok := keysToIgnore[k]; ok {
			delete(m, k)
			continue
		}

		switch nested := m[k].(type) {
		case map[string]any:
			cleanMap(nested)
		case []any:
			for _, item := range nested {
				if obj, ok := item.(map[string]any); ok {
					cleanMap(obj)
				}
			}
		}
	}
}

func jsonBody(t testing.TB, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	return bytes.NewReader(data)
}

func decodeBody[T any](t testing.TB, res *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))

	return v
}

func truncateTables(t testing.TB, a *TestApp) {
	t.Helper()

	_, err := a.DB.Exec(context.Background(),
		`TRUNCATE payments, reservation_seats, reservations, holds, seat_states, screenings RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	// sessions survive so cookies stay valid across scenarios
	keys, err := a.Redis.Keys(context.Background(), "seat_state:*").Result()
	require.NoError(t, err)

	if len(keys) > 0 {
		require.NoError(t, a.Redis.Del(context.Background(), keys...).Err())
	}
}

// sessionCookies stores a signed-in session for userId the way the auth
// service does and returns the cookie a browser would send.
func sessionCookies(t testing.TB, a *TestApp, userId int) []*http.Cookie {
	t.Helper()

	ctx, err := a.Sessions.Load(context.Background(), "")
	require.NoError(t, err)

	a.Sessions.Put(ctx, app.SessionKeyUserId.String(), userId)

	token, _, err := a.Sessions.Commit(ctx)
	require.NoError(t, err)

	return []*http.Cookie{{Name: a.Sessions.Cookie.Name, Value: token}}
}

func createTestScreening(t testing.TB, a *TestApp) *domain.Screening {
	t.Helper()

	screening, err := a.Booking.CreateScreening(context.Background(), domain.Screening{
		MovieTitle:  TestMovieTitle,
		HallName:    TestHallName,
		StartsAt:    TestScreeningStartsAt,
		Rows:        TestScreeningRows,
		SeatsPerRow: TestSeatsPerRow,
		Price:       decimal.RequireFromString(TestSeatPrice),
		Active:      true,
	})
	require.NoError(t, err)

	return screening
}

func holdTestSeats(t testing.TB, a *TestApp, screeningId, userId int, labels ...string) *domain.Hold {
	t.Helper()

	seats := make([]domain.SeatID, len(labels))
	for i, l := range labels {
		seat, err := domain.ParseSeatID(l)
		require.NoError(t, err)
		seats[i] = seat
	}

	h, err := a.Booking.StartBooking(context.Background(), screeningId, seats, userId)
	require.NoError(t, err)

	return h
}

func seatStatus(t testing.TB, a *TestApp, screeningId int, label string) domain.SeatStatus {
	t.Helper()

	seat, err := domain.ParseSeatID(label)
	require.NoError(t, err)

	state, found, err := a.Stores.Seats.Get(context.Background(), screeningId, seat)
	require.NoError(t, err)
	require.True(t, found, "seat %s not found", label)

	return state.Status
}

// signedCheckoutEvent builds a Stripe checkout session event signed with the
// test webhook secret.
func signedCheckoutEvent(t testing.TB, eventType string, session map[string]any) (io.Reader, map[string]string) {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"id":          "evt_integration",
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": session},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   raw,
		Secret:    TestWebhookSecret,
		Timestamp: time.Now(),
	})

	return bytes.NewReader(signed.Payload), map[string]string{"Stripe-Signature": signed.Header}
}

func paymentSucceeded(reservationId string) booking.PaymentResult {
	return booking.PaymentResult{ReservationID: reservationId, Success: true}
}
