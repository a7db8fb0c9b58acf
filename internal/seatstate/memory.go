// Package seatstate holds the in-process implementation of the seat state
// store. Each seat is guarded by its own mutex, so compare-and-set on one seat
// never blocks requests for other seats.
package seatstate

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

type MemoryStore struct {
	mu         sync.RWMutex
	screenings map[int]*screeningSeats
	sink       domain.SeatEventSink
	now        func() time.Time
}

type screeningSeats struct {
	mu    sync.RWMutex
	seats map[domain.SeatID]*seatCell
}

type seatCell struct {
	mu    sync.Mutex
	state domain.SeatState
}

func NewMemoryStore(sink domain.SeatEventSink) *MemoryStore {
	if sink == nil {
		sink = domain.NopSeatEventSink{}
	}

	return &MemoryStore{
		screenings: make(map[int]*screeningSeats),
		sink:       sink,
		now:        time.Now,
	}
}

// Init registers the seats of a screening. Seats that already exist keep
// their current state.
func (m *MemoryStore) Init(ctx context.Context, screeningID int, seats []domain.Seat) error {
	m.mu.Lock()
	sc, ok := m.screenings[screeningID]
	if !ok {
		sc = &screeningSeats{seats: make(map[domain.SeatID]*seatCell, len(seats))}
		m.screenings[screeningID] = sc
	}
	m.mu.Unlock()

	sc.mu.Lock()
	defer sc.mu.Unlock()

	for _, seat := range seats {
		if seat.ScreeningID != screeningID {
			return fmt.Errorf("seat %s belongs to screening %d, not %d", seat.ID, seat.ScreeningID, screeningID)
		}

		if _, exists := sc.seats[seat.ID]; exists {
			continue
		}

		status := seat.Status
		if status == "" {
			status = domain.SeatAvailable
		}

		sc.seats[seat.ID] = &seatCell{state: domain.SeatState{
			Seat:      seat.ID,
			Status:    status,
			UpdatedAt: m.now(),
		}}
	}

	return nil
}

func (m *MemoryStore) GetStatuses(ctx context.Context, screeningID int, seats []domain.SeatID) (map[domain.SeatID]domain.SeatStatus, error) {
	statuses := make(map[domain.SeatID]domain.SeatStatus, len(seats))

	for _, id := range seats {
		cell := m.cell(screeningID, id)
		if cell == nil {
			continue
		}

		cell.mu.Lock()
		statuses[id] = cell.state.Status
		cell.mu.Unlock()
	}

	return statuses, nil
}

func (m *MemoryStore) Get(ctx context.Context, screeningID int, seat domain.SeatID) (domain.SeatState, bool, error) {
	cell := m.cell(screeningID, seat)
	if cell == nil {
		return domain.SeatState{}, false, nil
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()

	return cell.state, true, nil
}

func (m *MemoryStore) List(ctx context.Context, screeningID int) ([]domain.SeatState, error) {
	m.mu.RLock()
	sc, ok := m.screenings[screeningID]
	m.mu.RUnlock()

	if !ok {
		return []domain.SeatState{}, nil
	}

	sc.mu.RLock()
	cells := make([]*seatCell, 0, len(sc.seats))
	for _, cell := range sc.seats {
		cells = append(cells, cell)
	}
	sc.mu.RUnlock()

	states := make([]domain.SeatState, len(cells))
	for i, cell := range cells {
		cell.mu.Lock()
		states[i] = cell.state
		cell.mu.Unlock()
	}

	slices.SortFunc(states, func(a, b domain.SeatState) int {
		return domain.CompareSeatIDs(a.Seat, b.Seat)
	})

	return states, nil
}

func (m *MemoryStore) TryTransition(
	ctx context.Context,
	screeningID int,
	seat domain.SeatID,
	from, to domain.SeatStatus,
	holdID string) (bool, error) {

	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	cell := m.cell(screeningID, seat)
	if cell == nil {
		return false, nil
	}

	cell.mu.Lock()

	if !matches(cell.state, from, holdID) {
		cell.mu.Unlock()
		return false, nil
	}

	cell.state = apply(cell.state, to, holdID, m.now())
	event := domain.SeatStateChanged{
		ScreeningID: screeningID,
		Seat:        seat,
		From:        from,
		To:          to,
		HoldID:      holdID,
		At:          cell.state.UpdatedAt,
	}

	cell.mu.Unlock()

	m.sink.SeatStateChanged(ctx, event)

	return true, nil
}

func (m *MemoryStore) cell(screeningID int, seat domain.SeatID) *seatCell {
	m.mu.RLock()
	sc, ok := m.screenings[screeningID]
	m.mu.RUnlock()

	if !ok {
		return nil
	}

	sc.mu.RLock()
	defer sc.mu.RUnlock()

	return sc.seats[seat]
}

// matches is the compare half of compare-and-set. A non-empty holdID must own
// a held or booked seat; an empty holdID skips the ownership check.
func matches(state domain.SeatState, from domain.SeatStatus, holdID string) bool {
	if state.Status != from {
		return false
	}

	if from == domain.SeatAvailable || holdID == "" {
		return true
	}

	return state.HoldID == holdID
}

func apply(state domain.SeatState, to domain.SeatStatus, holdID string, now time.Time) domain.SeatState {
	state.Status = to
	state.UpdatedAt = now

	switch {
	case to == domain.SeatAvailable:
		state.HoldID = ""
	case holdID != "":
		state.HoldID = holdID
	}

	return state
}
