package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type MemoryScreeningRepository struct {
	mu         sync.Mutex
	nextID     int
	screenings map[int]domain.Screening
}

func NewMemoryScreeningRepository() *MemoryScreeningRepository {
	return &MemoryScreeningRepository{
		screenings: make(map[int]domain.Screening),
	}
}

// Create assigns the next id when screening.ID is zero.
func (m *MemoryScreeningRepository) Create(ctx context.Context, screening *domain.Screening) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if screening.ID == 0 {
		m.nextID++
		screening.ID = m.nextID
	} else {
		if _, ok := m.screenings[screening.ID]; ok {
			return ErrDuplicateScreening
		}
		m.nextID = max(m.nextID, screening.ID)
	}

	s := *screening
	s.Rows = slices.Clone(s.Rows)
	m.screenings[s.ID] = s

	return nil
}

func (m *MemoryScreeningRepository) GetById(ctx context.Context, id int) (*domain.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.screenings[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	s.Rows = slices.Clone(s.Rows)
	return &s, nil
}

func (m *MemoryScreeningRepository) UpdatePricing(ctx context.Context, id int, price decimal.Decimal, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.screenings[id]
	if !ok {
		return domain.ErrRecordNotFound
	}

	s.Price = price
	s.Active = active
	m.screenings[id] = s

	return nil
}
