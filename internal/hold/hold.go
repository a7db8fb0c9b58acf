// Package hold acquires time-boxed holds on seat sets. A multi-seat hold is
// all-or-nothing: seats are claimed one by one in a fixed order with the seat
// store's compare-and-set, and claimed seats are handed back if any seat in the
// set is unavailable.
package hold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultTTL      = 10 * time.Minute
	MaxSeatsPerHold = 8
)

type Manager struct {
	seats      domain.SeatStateStore
	holds      domain.HoldRepository
	logger     *slog.Logger
	now        func() time.Time
	defaultTTL time.Duration
	maxSeats   int

	requested metric.Int64Counter
	conflicts metric.Int64Counter
	expired   metric.Int64Counter
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.defaultTTL = ttl
	}
}

func WithMaxSeats(n int) Option {
	return func(m *Manager) {
		m.maxSeats = n
	}
}

func NewManager(seats domain.SeatStateStore, holds domain.HoldRepository, opts ...Option) *Manager {
	m := &Manager{
		seats:      seats,
		holds:      holds,
		logger:     slog.Default(),
		now:        time.Now,
		defaultTTL: DefaultTTL,
		maxSeats:   MaxSeatsPerHold,
	}

	for _, opt := range opts {
		opt(m)
	}

	meter := otel.Meter("github.com/metinatakli/cinex-seat-engine/internal/hold")
	m.requested, _ = meter.Int64Counter("holds.requested", metric.WithDescription("Hold requests received"))
	m.conflicts, _ = meter.Int64Counter("holds.conflicts", metric.WithDescription("Hold requests rejected because a seat was taken"))
	m.expired, _ = meter.Int64Counter("holds.expired", metric.WithDescription("Holds released after their TTL"))

	return m
}

// RequestHold claims every seat in seats for userID, or none of them. A
// *domain.HoldConflictError naming the unavailable seats is returned when the
// set cannot be claimed. A ttl <= 0 uses the manager's default.
func (m *Manager) RequestHold(
	ctx context.Context,
	screeningID int,
	seats []domain.SeatID,
	userID int,
	ttl time.Duration) (*domain.Hold, error) {

	m.requested.Add(ctx, 1, metric.WithAttributes(attribute.Int("screening.id", screeningID)))

	if len(seats) == 0 {
		return nil, &domain.ValidationError{Field: "seats", Reason: "at least one seat is required"}
	}

	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	// Fixed acquisition order keeps concurrent multi-seat requests from
	// starving each other.
	ordered := domain.SortedSeatIDs(seats)

	if len(ordered) > m.maxSeats {
		return nil, &domain.ValidationError{
			Field:  "seats",
			Reason: fmt.Sprintf("at most %d seats can be held at once", m.maxSeats),
		}
	}

	statuses, err := m.seats.GetStatuses(ctx, screeningID, ordered)
	if err != nil {
		return nil, fmt.Errorf("failed to read seat statuses: %w", err)
	}

	for _, seat := range ordered {
		if _, ok := statuses[seat]; !ok {
			return nil, &domain.ValidationError{
				Field:  "seats",
				Reason: fmt.Sprintf("seat %s does not exist for screening %d", seat, screeningID),
			}
		}
	}

	holdID := uuid.NewString()
	acquired := make([]domain.SeatID, 0, len(ordered))

	for i, seat := range ordered {
		ok, err := m.acquire(ctx, screeningID, seat, holdID)
		if err != nil {
			return nil, errors.Join(err, m.rollback(ctx, screeningID, holdID, acquired))
		}

		if ok {
			acquired = append(acquired, seat)
			continue
		}

		conflicts, err := m.unavailable(ctx, screeningID, seat, ordered[i+1:])
		if err != nil {
			return nil, errors.Join(err, m.rollback(ctx, screeningID, holdID, acquired))
		}

		if err := m.rollback(ctx, screeningID, holdID, acquired); err != nil {
			return nil, err
		}

		m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.Int("screening.id", screeningID)))
		m.logger.Warn("hold request conflicted",
			"screening_id", screeningID,
			"user_id", userID,
			"seats", len(ordered),
			"unavailable", len(conflicts))

		return nil, &domain.HoldConflictError{Seats: conflicts}
	}

	now := m.now()
	hold := &domain.Hold{
		ID:          holdID,
		ScreeningID: screeningID,
		Seats:       acquired,
		UserID:      userID,
		State:       domain.HoldActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	err = m.holds.Create(ctx, hold)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to store hold: %w", err), m.rollback(ctx, screeningID, holdID, acquired))
	}

	m.logger.Info("seats held",
		"hold_id", hold.ID,
		"screening_id", screeningID,
		"user_id", userID,
		"seats", len(acquired),
		"expires_at", hold.ExpiresAt)

	return hold, nil
}

// acquire claims one seat. A seat still held by an expired hold is freed on
// the spot and the claim retried once.
func (m *Manager) acquire(ctx context.Context, screeningID int, seat domain.SeatID, holdID string) (bool, error) {
	ok, err := m.seats.TryTransition(ctx, screeningID, seat, domain.SeatAvailable, domain.SeatHeld, holdID)
	if err != nil || ok {
		return ok, err
	}

	state, found, err := m.seats.Get(ctx, screeningID, seat)
	if err != nil || !found {
		return false, err
	}

	if state.Status != domain.SeatHeld || state.HoldID == "" {
		return false, nil
	}

	released, err := m.expireIfStale(ctx, state.HoldID)
	if err != nil || !released {
		return false, err
	}

	return m.seats.TryTransition(ctx, screeningID, seat, domain.SeatAvailable, domain.SeatHeld, holdID)
}

// unavailable lists the conflicting seat plus every later seat that is not
// available right now. Later seats are only read, never claimed; a seat held
// by a stale hold is freed first and not reported.
func (m *Manager) unavailable(
	ctx context.Context,
	screeningID int,
	conflicting domain.SeatID,
	rest []domain.SeatID) ([]domain.SeatID, error) {

	conflicts := []domain.SeatID{conflicting}
	if len(rest) == 0 {
		return conflicts, nil
	}

	statuses, err := m.seats.GetStatuses(ctx, screeningID, rest)
	if err != nil {
		return nil, fmt.Errorf("failed to read seat statuses: %w", err)
	}

	for _, seat := range rest {
		if statuses[seat] == domain.SeatAvailable {
			continue
		}

		freed, err := m.freeStale(ctx, screeningID, seat)
		if err != nil {
			return nil, err
		}

		if !freed {
			conflicts = append(conflicts, seat)
		}
	}

	return conflicts, nil
}

// freeStale releases the hold on seat if that hold has expired, and reports
// whether the seat is available afterwards.
func (m *Manager) freeStale(ctx context.Context, screeningID int, seat domain.SeatID) (bool, error) {
	state, found, err := m.seats.Get(ctx, screeningID, seat)
	if err != nil || !found {
		return false, err
	}

	switch {
	case state.Status == domain.SeatAvailable:
		return true, nil
	case state.Status != domain.SeatHeld || state.HoldID == "":
		return false, nil
	}

	if _, err := m.expireIfStale(ctx, state.HoldID); err != nil {
		return false, err
	}

	state, found, err = m.seats.Get(ctx, screeningID, seat)
	if err != nil || !found {
		return false, err
	}

	return state.Status == domain.SeatAvailable, nil
}

func (m *Manager) rollback(ctx context.Context, screeningID int, holdID string, acquired []domain.SeatID) error {
	var errs []error

	for _, seat := range acquired {
		ok, err := m.seats.TryTransition(ctx, screeningID, seat, domain.SeatHeld, domain.SeatAvailable, holdID)
		if err != nil {
			errs = append(errs, fmt.Errorf("rollback seat %s: %w", seat, err))
			continue
		}

		if !ok {
			m.logger.Error("rollback found seat no longer held by this request",
				"screening_id", screeningID, "seat", seat.String(), "hold_id", holdID)
		}
	}

	return errors.Join(errs...)
}

func (m *Manager) Get(ctx context.Context, holdID string) (*domain.Hold, error) {
	hold, err := m.holds.GetById(ctx, holdID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.ErrHoldNotFound
		}

		return nil, err
	}

	return hold, nil
}

// ReleaseHold returns the hold's seats to available and deletes the hold.
// Seats that are no longer held by this hold are left untouched.
func (m *Manager) ReleaseHold(ctx context.Context, holdID string) error {
	hold, err := m.Get(ctx, holdID)
	if err != nil {
		return err
	}

	if hold.State == domain.HoldActive {
		ok, err := m.holds.TransitionState(ctx, hold.ID, domain.HoldActive, domain.HoldExpired)
		if err != nil {
			return fmt.Errorf("failed to claim hold %s for release: %w", hold.ID, err)
		}

		if !ok {
			hold, err = m.Get(ctx, holdID)
			if err != nil {
				return err
			}
		}
	}

	if hold.State == domain.HoldConsumed {
		return domain.ErrHoldConsumed
	}

	return m.release(ctx, hold)
}

// SweepExpired releases every hold whose expiry is at or before now and
// returns their ids. Holds consumed by a reservation are never swept.
func (m *Manager) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	candidates, err := m.holds.ListExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}

	released := make([]string, 0, len(candidates))
	var errs []error

	for _, hold := range candidates {
		if hold.State == domain.HoldActive {
			ok, err := m.holds.TransitionState(ctx, hold.ID, domain.HoldActive, domain.HoldExpired)
			if err != nil {
				errs = append(errs, err)
				continue
			}

			if !ok {
				continue
			}
		}

		if hold.State == domain.HoldConsumed {
			continue
		}

		err := m.release(ctx, hold)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		m.expired.Add(ctx, 1, metric.WithAttributes(attribute.Int("screening.id", hold.ScreeningID)))
		released = append(released, hold.ID)
	}

	if len(released) > 0 {
		m.logger.Info("expired holds released", "count", len(released))
	}

	return released, errors.Join(errs...)
}

func (m *Manager) expireIfStale(ctx context.Context, holdID string) (bool, error) {
	hold, err := m.holds.GetById(ctx, holdID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			// the owning request has not stored its hold yet
			return false, nil
		}

		return false, err
	}

	if hold.State != domain.HoldActive || !hold.Expired(m.now()) {
		return false, nil
	}

	ok, err := m.holds.TransitionState(ctx, hold.ID, domain.HoldActive, domain.HoldExpired)
	if err != nil || !ok {
		return false, err
	}

	err = m.release(ctx, hold)
	if err != nil {
		return false, err
	}

	m.expired.Add(ctx, 1, metric.WithAttributes(attribute.Int("screening.id", hold.ScreeningID)))
	m.logger.Info("stale hold released on access", "hold_id", hold.ID, "screening_id", hold.ScreeningID)

	return true, nil
}

func (m *Manager) release(ctx context.Context, hold *domain.Hold) error {
	var errs []error

	for _, seat := range hold.Seats {
		_, err := m.seats.TryTransition(ctx, hold.ScreeningID, seat, domain.SeatHeld, domain.SeatAvailable, hold.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("release seat %s: %w", seat, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	err := m.holds.Delete(ctx, hold.ID)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return fmt.Errorf("failed to delete hold %s: %w", hold.ID, err)
	}

	return nil
}
