package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/metinatakli/cinex-seat-engine/internal/booking"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/metinatakli/cinex-seat-engine/internal/events"
	"github.com/metinatakli/cinex-seat-engine/internal/mocks"
	"github.com/metinatakli/cinex-seat-engine/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var (
	discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

	testConfig = Config{
		Env:       "test",
		SeatStore: SeatStoreMemory,
		Hold: HoldConfig{
			TTL:           10 * time.Minute,
			SweepInterval: time.Minute,
			MaxSeats:      8,
		},
	}
)

// testBackend is the booking engine over in-memory stores.
type testBackend struct {
	stores   Stores
	provider *mocks.MockPaymentProvider
	booking  *booking.Orchestrator
}

func newTestBackend(opts ...func(*Stores)) *testBackend {
	stores, err := NewStores(testConfig, nil, nil, domain.NopSeatEventSink{})
	if err != nil {
		panic(err)
	}

	for _, opt := range opts {
		opt(&stores)
	}

	provider := new(mocks.MockPaymentProvider)

	return &testBackend{
		stores:   stores,
		provider: provider,
		booking:  NewBookingService(testConfig, stores, provider, events.NewLogPublisher(discardLogger), discardLogger),
	}
}

func (b *testBackend) createScreening(t *testing.T, active bool) *domain.Screening {
	t.Helper()

	screening, err := b.booking.CreateScreening(context.Background(), domain.Screening{
		MovieTitle:  "Heat",
		HallName:    "Hall 1",
		StartsAt:    time.Date(2026, 3, 15, 19, 0, 0, 0, time.UTC),
		Rows:        []string{"A", "B"},
		SeatsPerRow: 5,
		Price:       decimal.RequireFromString("9.75"),
		Active:      active,
	})
	if err != nil {
		t.Fatalf("failed to create screening: %v", err)
	}

	return screening
}

func (b *testBackend) hold(t *testing.T, screeningId, userId int, labels ...string) *domain.Hold {
	t.Helper()

	seats := make([]domain.SeatID, len(labels))
	for i, l := range labels {
		seat, err := domain.ParseSeatID(l)
		if err != nil {
			t.Fatal(err)
		}
		seats[i] = seat
	}

	h, err := b.booking.StartBooking(context.Background(), screeningId, seats, userId)
	if err != nil {
		t.Fatalf("failed to hold seats: %v", err)
	}

	return h
}

// checkout turns a hold into a pending reservation through the mock provider.
func (b *testBackend) checkout(t *testing.T, h *domain.Hold) *domain.Reservation {
	t.Helper()

	b.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.CheckoutSession{ID: "cs_" + h.ID, RedirectURL: "https://checkout.example.com"}, nil).Once()

	reservation, _, err := b.booking.Checkout(context.Background(), h.ID, h.UserID)
	if err != nil {
		t.Fatalf("failed to check out: %v", err)
	}

	return reservation
}

type mockWebhook struct {
	mock.Mock
}

func (m *mockWebhook) Translate(payload []byte, signature string) (*booking.PaymentResult, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.PaymentResult), args.Error(1)
}

func newTestApplication(opts ...func(*Application)) *Application {
	app := &Application{
		config:         testConfig,
		validator:      validator.NewValidator(),
		logger:         discardLogger,
		sessionManager: scs.New(),
		booking:        newTestBackend().booking,
		webhooks:       new(mockWebhook),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func setupTestSession(t *testing.T, app *Application, r *http.Request, userId int) *http.Request {
	ctx, err := app.sessionManager.Load(r.Context(), "session")
	if err != nil {
		t.Errorf("Failed to load session: %v", err)
	}

	app.sessionManager.Put(ctx, SessionKeyUserId.String(), userId)

	return r.WithContext(ctx)
}

// authenticated wraps handler the way the router does for signed-in routes.
func authenticated(app *Application, handler http.HandlerFunc) http.Handler {
	return app.sessionManager.LoadAndSave(app.requireAuthentication(handler))
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	var reader io.Reader = http.NoBody

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", tt.wantErrMessage)
		}

	default:
		var errorResp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}

func paymentSucceeded(reservationId string) booking.PaymentResult {
	return booking.PaymentResult{ReservationID: reservationId, Success: true}
}
