package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

// MemoryHoldRepository keeps holds in process memory. Returned holds are
// copies; callers may modify them freely.
type MemoryHoldRepository struct {
	mu    sync.Mutex
	holds map[string]domain.Hold
}

func NewMemoryHoldRepository() *MemoryHoldRepository {
	return &MemoryHoldRepository{
		holds: make(map[string]domain.Hold),
	}
}

func (m *MemoryHoldRepository) Create(ctx context.Context, hold *domain.Hold) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.holds[hold.ID] = cloneHold(*hold)
	return nil
}

func (m *MemoryHoldRepository) GetById(ctx context.Context, id string) (*domain.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	h := cloneHold(hold)
	return &h, nil
}

func (m *MemoryHoldRepository) TransitionState(ctx context.Context, id string, from, to domain.HoldState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[id]
	if !ok || hold.State != from {
		return false, nil
	}

	hold.State = to
	m.holds[id] = hold

	return true, nil
}

func (m *MemoryHoldRepository) ListExpired(ctx context.Context, now time.Time) ([]*domain.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := make([]*domain.Hold, 0)

	for _, hold := range m.holds {
		if hold.State == domain.HoldConsumed || !hold.Expired(now) {
			continue
		}

		h := cloneHold(hold)
		expired = append(expired, &h)
	}

	slices.SortFunc(expired, func(a, b *domain.Hold) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})

	return expired, nil
}

func (m *MemoryHoldRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.holds[id]; !ok {
		return domain.ErrRecordNotFound
	}

	delete(m.holds, id)
	return nil
}

func cloneHold(h domain.Hold) domain.Hold {
	h.Seats = slices.Clone(h.Seats)
	return h
}
