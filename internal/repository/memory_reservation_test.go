package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReservation(id string, userID int, createdAt time.Time) *domain.Reservation {
	return &domain.Reservation{
		ID:               id,
		ConfirmationCode: "CODE" + id,
		ScreeningID:      1,
		UserID:           userID,
		HoldID:           "hold-" + id,
		Seats:            []domain.SeatID{{Row: "A", Number: 1}},
		TotalPrice:       decimal.NewFromInt(10),
		Status:           domain.ReservationPending,
		CreatedAt:        createdAt,
	}
}

func TestMemoryReservationRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReservationRepository(nil)

	require.NoError(t, repo.Create(ctx, newReservation("r1", 1, time.Now())))

	ok, err := repo.UpdateStatus(ctx, "r1", domain.ReservationPending, domain.ReservationConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, "r1", domain.ReservationPending, domain.ReservationCancelled)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetById(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationConfirmed, got.Status)

	_, err = repo.UpdateStatus(ctx, "missing", domain.ReservationPending, domain.ReservationCancelled)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestMemoryReservationRepository_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReservationRepository(nil)

	first := newReservation("r1", 1, time.Now())
	second := newReservation("r2", 1, time.Now())
	second.ConfirmationCode = first.ConfirmationCode

	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, second), ErrDuplicateConfirmationCode)

	got, err := repo.GetByConfirmationCode(ctx, first.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}

func TestMemoryReservationRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReservationRepository(nil)

	require.NoError(t, repo.Create(ctx, newReservation("r1", 1, time.Now())))

	got, err := repo.GetById(ctx, "r1")
	require.NoError(t, err)
	got.Seats[0] = domain.SeatID{Row: "Z", Number: 9}

	again, err := repo.GetById(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeatID{Row: "A", Number: 1}, again.Seats[0])
}

func TestMemoryReservationRepository_GetSummariesByUserId(t *testing.T) {
	ctx := context.Background()

	screenings := NewMemoryScreeningRepository()
	require.NoError(t, screenings.Create(ctx, &domain.Screening{
		ID:          1,
		MovieTitle:  "Heat",
		HallName:    "Hall 1",
		Rows:        []string{"A"},
		SeatsPerRow: 10,
	}))

	repo := NewMemoryReservationRepository(screenings)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, repo.Create(ctx, newReservation(fmt.Sprintf("r%d", i), 7, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, newReservation("other", 8, base)))

	summaries, metadata, err := repo.GetSummariesByUserId(ctx, 7, domain.Pagination{Page: 2, PageSize: 2})
	require.NoError(t, err)

	require.Len(t, summaries, 2)
	assert.Equal(t, "r2", summaries[0].ReservationID)
	assert.Equal(t, "r1", summaries[1].ReservationID)
	assert.Equal(t, "Heat", summaries[0].MovieTitle)
	assert.Equal(t, 1, summaries[0].SeatCount)
	assert.Equal(t, &domain.Metadata{CurrentPage: 2, FirstPage: 1, LastPage: 3, PageSize: 2, TotalRecords: 5}, metadata)

	summaries, _, err = repo.GetSummariesByUserId(ctx, 7, domain.Pagination{Page: 4, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestMemoryHoldRepository_ListExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHoldRepository()
	now := time.Now()

	holds := []*domain.Hold{
		{ID: "late", State: domain.HoldActive, ExpiresAt: now.Add(-time.Second)},
		{ID: "early", State: domain.HoldActive, ExpiresAt: now.Add(-time.Minute)},
		{ID: "consumed", State: domain.HoldConsumed, ExpiresAt: now.Add(-time.Minute)},
		{ID: "fresh", State: domain.HoldActive, ExpiresAt: now.Add(time.Minute)},
	}
	for _, h := range holds {
		require.NoError(t, repo.Create(ctx, h))
	}

	expired, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)

	ids := make([]string, len(expired))
	for i, h := range expired {
		ids[i] = h.ID
	}
	assert.Equal(t, []string{"early", "late"}, ids)
}

func TestMemoryPaymentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPaymentRepository()

	require.NoError(t, repo.Create(ctx, &domain.Payment{ReservationID: "r1", Status: domain.PaymentStatusPending}))
	require.NoError(t, repo.SetCheckoutSession(ctx, "r1", "cs_123"))
	require.NoError(t, repo.UpdateStatus(ctx, "r1", domain.PaymentStatusCompleted, ""))

	p, err := repo.GetByReservationId(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, p.Status)
	assert.Equal(t, "cs_123", *p.CheckoutSessionId)
	assert.NotNil(t, p.PaymentDate)
	assert.Nil(t, p.ErrorMsg)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", domain.PaymentStatusFailed, "x"), domain.ErrRecordNotFound)
}
