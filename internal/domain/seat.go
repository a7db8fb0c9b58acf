package domain

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatHeld      SeatStatus = "held"
	SeatBooked    SeatStatus = "booked"
)

func (s SeatStatus) Valid() bool {
	switch s {
	case SeatAvailable, SeatHeld, SeatBooked:
		return true
	}

	return false
}

func (s SeatStatus) String() string {
	return string(s)
}

// CanTransition reports whether a seat may move from one status to another.
// booked -> held is only used to compensate a failed payment confirmation.
func CanTransition(from, to SeatStatus) bool {
	switch from {
	case SeatAvailable:
		return to == SeatHeld
	case SeatHeld:
		return to == SeatAvailable || to == SeatBooked
	case SeatBooked:
		return to == SeatAvailable || to == SeatHeld
	}

	return false
}

// SeatID identifies a seat inside a screening, e.g. row "A" number 7.
type SeatID struct {
	Row    string
	Number int
}

func (s SeatID) String() string {
	return s.Row + strconv.Itoa(s.Number)
}

func (s SeatID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SeatID) UnmarshalText(text []byte) error {
	id, err := ParseSeatID(string(text))
	if err != nil {
		return err
	}

	*s = id
	return nil
}

// ParseSeatID parses labels like "A7" or "AB12".
func ParseSeatID(label string) (SeatID, error) {
	label = strings.TrimSpace(label)

	i := strings.IndexFunc(label, unicode.IsDigit)
	if i <= 0 {
		return SeatID{}, &ValidationError{Field: "seat", Reason: fmt.Sprintf("invalid seat label %q", label)}
	}

	number, err := strconv.Atoi(label[i:])
	if err != nil || number < 1 {
		return SeatID{}, &ValidationError{Field: "seat", Reason: fmt.Sprintf("invalid seat label %q", label)}
	}

	return SeatID{Row: strings.ToUpper(label[:i]), Number: number}, nil
}

// CompareSeatIDs orders seats by row label (shorter labels first, so Z < AA)
// and then by number.
func CompareSeatIDs(a, b SeatID) int {
	if c := cmp.Compare(len(a.Row), len(b.Row)); c != 0 {
		return c
	}
	if c := strings.Compare(a.Row, b.Row); c != 0 {
		return c
	}

	return cmp.Compare(a.Number, b.Number)
}

// SortedSeatIDs returns a sorted copy of ids with duplicates removed.
func SortedSeatIDs(ids []SeatID) []SeatID {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, CompareSeatIDs)

	return slices.Compact(sorted)
}

type Seat struct {
	ScreeningID int
	ID          SeatID
	Status      SeatStatus
}

// SeatState is the mutable part of a seat: its status and the hold that
// claimed it, empty when the seat is available.
type SeatState struct {
	Seat      SeatID
	Status    SeatStatus
	HoldID    string
	UpdatedAt time.Time
}

type SeatStateChanged struct {
	ScreeningID int
	Seat        SeatID
	From        SeatStatus
	To          SeatStatus
	HoldID      string
	At          time.Time
}

type SeatEventSink interface {
	SeatStateChanged(ctx context.Context, event SeatStateChanged)
}

// SeatStateStore is the single source of truth for seat statuses. TryTransition
// is the only way a status changes.
type SeatStateStore interface {
	Init(ctx context.Context, screeningID int, seats []Seat) error
	GetStatuses(ctx context.Context, screeningID int, seats []SeatID) (map[SeatID]SeatStatus, error)
	Get(ctx context.Context, screeningID int, seat SeatID) (SeatState, bool, error)
	List(ctx context.Context, screeningID int) ([]SeatState, error)
	TryTransition(ctx context.Context, screeningID int, seat SeatID, from, to SeatStatus, holdID string) (bool, error)
}

type NopSeatEventSink struct{}

func (NopSeatEventSink) SeatStateChanged(context.Context, SeatStateChanged) {}
