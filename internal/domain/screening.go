package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Screening struct {
	ID          int
	MovieTitle  string
	HallName    string
	StartsAt    time.Time
	Rows        []string
	SeatsPerRow int
	Price       decimal.Decimal
	Active      bool
	CreatedAt   time.Time
}

func (s *Screening) TotalSeats() int {
	return len(s.Rows) * s.SeatsPerRow
}

// HasSeat reports whether seat is part of the screening's seat map.
func (s *Screening) HasSeat(seat SeatID) bool {
	if seat.Number < 1 || seat.Number > s.SeatsPerRow {
		return false
	}

	for _, row := range s.Rows {
		if row == seat.Row {
			return true
		}
	}

	return false
}

type ScreeningRepository interface {
	Create(ctx context.Context, screening *Screening) error
	GetById(ctx context.Context, id int) (*Screening, error)
	UpdatePricing(ctx context.Context, id int, price decimal.Decimal, active bool) error
}
