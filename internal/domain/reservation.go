package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	ID               string
	ConfirmationCode string
	ScreeningID      int
	UserID           int
	HoldID           string
	Seats            []SeatID
	TotalPrice       decimal.Decimal
	Status           ReservationStatus
	// ExpiresAt ends the payment window of a pending reservation.
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ReservationSummary struct {
	ReservationID    string
	ConfirmationCode string
	ScreeningID      int
	MovieTitle       string
	HallName         string
	StartsAt         time.Time
	SeatCount        int
	TotalPrice       decimal.Decimal
	Status           ReservationStatus
	CreatedAt        time.Time
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *Reservation) error
	GetById(ctx context.Context, id string) (*Reservation, error)
	GetByConfirmationCode(ctx context.Context, code string) (*Reservation, error)
	// UpdateStatus moves a reservation between statuses only if it is currently in from.
	UpdateStatus(ctx context.Context, id string, from, to ReservationStatus) (bool, error)
	ListByScreening(ctx context.Context, screeningID int, status ReservationStatus) ([]*Reservation, error)
	// ListPendingExpired returns pending reservations whose payment window
	// ended at or before now.
	ListPendingExpired(ctx context.Context, now time.Time) ([]*Reservation, error)
	GetSummariesByUserId(ctx context.Context, userID int, pagination Pagination) ([]ReservationSummary, *Metadata, error)
}

type ReservationEvent struct {
	Type             string          `json:"type"`
	ReservationID    string          `json:"reservation_id"`
	ConfirmationCode string          `json:"confirmation_code"`
	ScreeningID      int             `json:"screening_id"`
	UserID           int             `json:"user_id"`
	Seats            []SeatID        `json:"seats"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

const (
	ReservationEventConfirmed = "booking.confirmed"
	ReservationEventCancelled = "booking.cancelled"
)

type ReservationEventPublisher interface {
	PublishReservationEvent(ctx context.Context, event ReservationEvent) error
}
