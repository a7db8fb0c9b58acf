package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

type MemoryReservationRepository struct {
	mu           sync.Mutex
	reservations map[string]domain.Reservation
	codes        map[string]string
	screenings   domain.ScreeningRepository
}

// NewMemoryReservationRepository returns an in-memory repository. screenings
// fills the movie details of reservation summaries and may be nil.
func NewMemoryReservationRepository(screenings domain.ScreeningRepository) *MemoryReservationRepository {
	return &MemoryReservationRepository{
		reservations: make(map[string]domain.Reservation),
		codes:        make(map[string]string),
		screenings:   screenings,
	}
}

func (m *MemoryReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.codes[reservation.ConfirmationCode]; ok {
		return ErrDuplicateConfirmationCode
	}

	m.reservations[reservation.ID] = cloneReservation(*reservation)
	m.codes[reservation.ConfirmationCode] = reservation.ID

	return nil
}

func (m *MemoryReservationRepository) GetById(ctx context.Context, id string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	r = cloneReservation(r)
	return &r, nil
}

func (m *MemoryReservationRepository) GetByConfirmationCode(ctx context.Context, code string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	r := cloneReservation(m.reservations[id])
	return &r, nil
}

func (m *MemoryReservationRepository) UpdateStatus(
	ctx context.Context,
	id string,
	from, to domain.ReservationStatus) (bool, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[id]
	if !ok {
		return false, domain.ErrRecordNotFound
	}

	if r.Status != from {
		return false, nil
	}

	r.Status = to
	m.reservations[id] = r

	return true, nil
}

func (m *MemoryReservationRepository) ListByScreening(
	ctx context.Context,
	screeningID int,
	status domain.ReservationStatus) ([]*domain.Reservation, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]*domain.Reservation, 0)
	for _, r := range m.reservations {
		if r.ScreeningID != screeningID || r.Status != status {
			continue
		}

		c := cloneReservation(r)
		list = append(list, &c)
	}

	slices.SortFunc(list, func(a, b *domain.Reservation) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return list, nil
}

func (m *MemoryReservationRepository) ListPendingExpired(ctx context.Context, now time.Time) ([]*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]*domain.Reservation, 0)
	for _, r := range m.reservations {
		if r.Status != domain.ReservationPending || now.Before(r.ExpiresAt) {
			continue
		}

		c := cloneReservation(r)
		list = append(list, &c)
	}

	slices.SortFunc(list, func(a, b *domain.Reservation) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})

	return list, nil
}

func (m *MemoryReservationRepository) GetSummariesByUserId(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.ReservationSummary, *domain.Metadata, error) {

	m.mu.Lock()
	owned := make([]domain.Reservation, 0)
	for _, r := range m.reservations {
		if r.UserID == userID {
			owned = append(owned, cloneReservation(r))
		}
	}
	m.mu.Unlock()

	// newest first, as the postgres repository orders them
	slices.SortFunc(owned, func(a, b domain.Reservation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(owned)
	start := min(pagination.Offset(), total)
	end := min(start+pagination.Limit(), total)

	summaries := make([]domain.ReservationSummary, 0, end-start)
	for _, r := range owned[start:end] {
		summary := domain.ReservationSummary{
			ReservationID:    r.ID,
			ConfirmationCode: r.ConfirmationCode,
			ScreeningID:      r.ScreeningID,
			SeatCount:        len(r.Seats),
			TotalPrice:       r.TotalPrice,
			Status:           r.Status,
			CreatedAt:        r.CreatedAt,
		}

		if m.screenings != nil {
			screening, err := m.screenings.GetById(ctx, r.ScreeningID)
			if err == nil {
				summary.MovieTitle = screening.MovieTitle
				summary.HallName = screening.HallName
				summary.StartsAt = screening.StartsAt
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, domain.NewMetadata(total, pagination.Page, pagination.PageSize), nil
}

func cloneReservation(r domain.Reservation) domain.Reservation {
	r.Seats = slices.Clone(r.Seats)
	return r
}
