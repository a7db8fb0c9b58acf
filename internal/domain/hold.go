package domain

import (
	"context"
	"time"
)

type HoldState string

const (
	HoldActive   HoldState = "active"
	HoldConsumed HoldState = "consumed"
	HoldExpired  HoldState = "expired"
)

// Hold is a time-boxed claim on a set of seats for one screening.
type Hold struct {
	ID          string
	ScreeningID int
	Seats       []SeatID
	UserID      int
	State       HoldState
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

func (h *Hold) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

func (h *Hold) Remaining(now time.Time) time.Duration {
	if h.Expired(now) {
		return 0
	}

	return h.ExpiresAt.Sub(now)
}

type HoldRepository interface {
	Create(ctx context.Context, hold *Hold) error
	GetById(ctx context.Context, id string) (*Hold, error)
	// TransitionState moves a hold between states only if it is currently in from.
	TransitionState(ctx context.Context, id string, from, to HoldState) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]*Hold, error)
	Delete(ctx context.Context, id string) error
}
