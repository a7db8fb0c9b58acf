package repository

import (
	"context"
	"sync"
	"time"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

type MemoryPaymentRepository struct {
	mu       sync.Mutex
	nextID   int
	payments map[string]domain.Payment
	now      func() time.Time
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		payments: make(map[string]domain.Payment),
		now:      time.Now,
	}
}

func (m *MemoryPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	payment.ID = m.nextID
	m.payments[payment.ReservationID] = *payment

	return nil
}

func (m *MemoryPaymentRepository) GetByReservationId(ctx context.Context, reservationID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[reservationID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &p, nil
}

func (m *MemoryPaymentRepository) SetCheckoutSession(ctx context.Context, reservationID string, checkoutSessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[reservationID]
	if !ok {
		return domain.ErrRecordNotFound
	}

	p.CheckoutSessionId = &checkoutSessionID
	m.touch(&p)
	m.payments[reservationID] = p

	return nil
}

func (m *MemoryPaymentRepository) UpdateStatus(
	ctx context.Context,
	reservationID string,
	status domain.PaymentStatus,
	errMsg string) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[reservationID]
	if !ok {
		return domain.ErrRecordNotFound
	}

	p.Status = status
	p.ErrorMsg = nil
	if errMsg != "" {
		p.ErrorMsg = &errMsg
	}

	m.touch(&p)
	if status == domain.PaymentStatusCompleted {
		p.PaymentDate = p.UpdatedAt
	}

	m.payments[reservationID] = p

	return nil
}

func (m *MemoryPaymentRepository) touch(p *domain.Payment) {
	now := m.now()
	p.UpdatedAt = &now
}
