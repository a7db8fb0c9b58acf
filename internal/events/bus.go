// Package events fans seat state changes out to in-process subscribers and
// publishes reservation lifecycle events to RabbitMQ.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type SeatHandler func(ctx context.Context, event domain.SeatStateChanged)

// Bus delivers every seat state change to all subscribers, synchronously and
// in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers []SeatHandler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(handler SeatHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = append(b.handlers, handler)
}

func (b *Bus) SeatStateChanged(ctx context.Context, event domain.SeatStateChanged) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, event)
	}
}

func LogSeatChanges(logger *slog.Logger) SeatHandler {
	return func(ctx context.Context, event domain.SeatStateChanged) {
		logger.DebugContext(ctx, "seat state changed",
			"screening_id", event.ScreeningID,
			"seat", event.Seat.String(),
			"from", event.From,
			"to", event.To,
			"hold_id", event.HoldID)
	}
}

// CountSeatChanges records one data point per transition, keyed by the
// source and target status.
func CountSeatChanges() (SeatHandler, error) {
	counter, err := otel.Meter("github.com/metinatakli/cinex-seat-engine/internal/events").Int64Counter(
		"seat.transitions",
		metric.WithDescription("Number of seat status transitions"),
	)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, event domain.SeatStateChanged) {
		counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", string(event.From)),
			attribute.String("to", string(event.To)),
		))
	}, nil
}
