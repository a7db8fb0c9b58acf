package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrRecordNotFound            = errors.New("record not found")
	ErrHoldNotFound              = errors.New("hold not found")
	ErrHoldConflict              = errors.New("seat(s) no longer available")
	ErrHoldConsumed              = errors.New("hold has already been converted to a reservation")
	ErrHoldExpired               = errors.New("your selections have expired, please select your seats again")
	ErrReservationConflict       = errors.New("reservation seats are no longer held")
	ErrInvalidReservationState   = errors.New("reservation is not in a state that allows this operation")
	ErrInvalidTransition         = errors.New("invalid seat status transition")
	ErrScreeningInactive         = errors.New("screening is not open for booking")
	ErrInconsistentState         = errors.New("seat and reservation state are inconsistent")
	ErrDuplicateConfirmationCode = errors.New("confirmation code already exists")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}

	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// HoldConflictError names the seats that could not be held. It is an expected
// outcome under contention, not a failure of the engine.
type HoldConflictError struct {
	Seats []SeatID
}

func (e *HoldConflictError) Error() string {
	return fmt.Sprintf("seat(s) no longer available: %s", joinSeats(e.Seats))
}

func (e *HoldConflictError) Is(target error) bool {
	return target == ErrHoldConflict
}

type ReservationConflictError struct {
	ReservationID string
	Seats         []SeatID
}

func (e *ReservationConflictError) Error() string {
	return fmt.Sprintf("reservation %s: seat(s) %s are no longer held", e.ReservationID, joinSeats(e.Seats))
}

func (e *ReservationConflictError) Is(target error) bool {
	return target == ErrReservationConflict
}

type ExpiredHoldError struct {
	HoldID    string
	ExpiredAt time.Time
}

func (e *ExpiredHoldError) Error() string {
	return fmt.Sprintf("hold %s expired at %s", e.HoldID, e.ExpiredAt.Format(time.RFC3339))
}

func (e *ExpiredHoldError) Is(target error) bool {
	return target == ErrHoldExpired
}

// ConsistencyError lists every violation found by an audit.
type ConsistencyError struct {
	ScreeningID int
	Violations  []string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("screening %d: %d violation(s): %s",
		e.ScreeningID, len(e.Violations), strings.Join(e.Violations, "; "))
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrInconsistentState
}

func joinSeats(seats []SeatID) string {
	labels := make([]string, len(seats))
	for i, s := range seats {
		labels[i] = s.String()
	}

	return strings.Join(labels, ", ")
}
