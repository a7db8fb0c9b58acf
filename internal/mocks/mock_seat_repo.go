package mocks

import (
	"context"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockSeatStore struct {
	mock.Mock
	domain.SeatStateStore
}

func (m *MockSeatStore) Init(ctx context.Context, screeningID int, seats []domain.Seat) error {
	args := m.Called(ctx, screeningID, seats)
	return args.Error(0)
}

func (m *MockSeatStore) GetStatuses(
	ctx context.Context,
	screeningID int,
	seats []domain.SeatID) (map[domain.SeatID]domain.SeatStatus, error) {

	args := m.Called(ctx, screeningID, seats)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.SeatID]domain.SeatStatus), args.Error(1)
}

func (m *MockSeatStore) Get(ctx context.Context, screeningID int, seat domain.SeatID) (domain.SeatState, bool, error) {
	args := m.Called(ctx, screeningID, seat)
	return args.Get(0).(domain.SeatState), args.Bool(1), args.Error(2)
}

func (m *MockSeatStore) List(ctx context.Context, screeningID int) ([]domain.SeatState, error) {
	args := m.Called(ctx, screeningID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatState), args.Error(1)
}

func (m *MockSeatStore) TryTransition(
	ctx context.Context,
	screeningID int,
	seat domain.SeatID,
	from, to domain.SeatStatus,
	holdID string) (bool, error) {

	args := m.Called(ctx, screeningID, seat, from, to, holdID)
	return args.Bool(0), args.Error(1)
}
