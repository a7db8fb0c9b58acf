package events

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribersInOrder(t *testing.T) {
	bus := NewBus()

	var calls []string
	bus.Subscribe(func(ctx context.Context, event domain.SeatStateChanged) {
		calls = append(calls, "first:"+event.Seat.String())
	})
	bus.Subscribe(func(ctx context.Context, event domain.SeatStateChanged) {
		calls = append(calls, "second:"+string(event.To))
	})

	bus.SeatStateChanged(context.Background(), domain.SeatStateChanged{
		ScreeningID: 1,
		Seat:        domain.SeatID{Row: "C", Number: 3},
		From:        domain.SeatAvailable,
		To:          domain.SeatHeld,
		HoldID:      "h1",
		At:          time.Now(),
	})

	assert.Equal(t, []string{"first:C3", "second:held"}, calls)
}

func TestBusWithoutSubscribers(t *testing.T) {
	assert.NotPanics(t, func() {
		NewBus().SeatStateChanged(context.Background(), domain.SeatStateChanged{})
	})
}

func TestLogSeatChanges(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogSeatChanges(logger)(context.Background(), domain.SeatStateChanged{
		ScreeningID: 4,
		Seat:        domain.SeatID{Row: "A", Number: 1},
		From:        domain.SeatHeld,
		To:          domain.SeatBooked,
		HoldID:      "h9",
	})

	out := buf.String()
	assert.Contains(t, out, "seat=A1")
	assert.Contains(t, out, "to=booked")
	assert.Contains(t, out, "hold_id=h9")
}

func TestCountSeatChanges(t *testing.T) {
	handler, err := CountSeatChanges()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		handler(context.Background(), domain.SeatStateChanged{From: domain.SeatAvailable, To: domain.SeatHeld})
	})
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	publisher := NewLogPublisher(slog.New(slog.NewTextHandler(&buf, nil)))

	err := publisher.PublishReservationEvent(context.Background(), domain.ReservationEvent{
		Type:          domain.ReservationEventConfirmed,
		ReservationID: "r1",
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "type=booking.confirmed")
	assert.Contains(t, buf.String(), "reservation_id=r1")
}
