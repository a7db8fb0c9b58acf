// Package ledger turns holds into durable reservations and owns the
// confirmation and cancellation of those reservations.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency = "USD"
	// Stripe refuses checkout sessions that expire sooner than 30 minutes
	// after creation.
	DefaultPaymentWindow   = 35 * time.Minute
	confirmationCodeLength = 8
	confirmationCodeTries  = 3
	lockStripes            = 64
)

type Ledger struct {
	seats         domain.SeatStateStore
	holds         domain.HoldRepository
	reservations  domain.ReservationRepository
	payments      domain.PaymentRepository
	publisher     domain.ReservationEventPublisher
	logger        *slog.Logger
	now           func() time.Time
	currency      string
	paymentWindow time.Duration

	// serializes confirm and cancel of the same reservation within this process;
	// across processes the reservation status compare-and-set decides.
	locks [lockStripes]sync.Mutex
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithPublisher(publisher domain.ReservationEventPublisher) Option {
	return func(l *Ledger) {
		l.publisher = publisher
	}
}

// WithPaymentWindow sets how long a pending reservation waits for its
// payment before its seats are released.
func WithPaymentWindow(window time.Duration) Option {
	return func(l *Ledger) {
		if window > 0 {
			l.paymentWindow = window
		}
	}
}

func WithCurrency(currency string) Option {
	return func(l *Ledger) {
		l.currency = currency
	}
}

func New(
	seats domain.SeatStateStore,
	holds domain.HoldRepository,
	reservations domain.ReservationRepository,
	payments domain.PaymentRepository,
	opts ...Option) *Ledger {

	l := &Ledger{
		seats:         seats,
		holds:         holds,
		reservations:  reservations,
		payments:      payments,
		publisher:     nopPublisher{},
		logger:        slog.Default(),
		now:           time.Now,
		currency:      DefaultCurrency,
		paymentWindow: DefaultPaymentWindow,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

type nopPublisher struct{}

func (nopPublisher) PublishReservationEvent(context.Context, domain.ReservationEvent) error {
	return nil
}

// CreatePendingReservation consumes an unexpired hold and records a pending
// reservation and payment for its seats. Consuming the hold keeps the expiry
// sweep away from its seats while payment is in flight.
func (l *Ledger) CreatePendingReservation(
	ctx context.Context,
	hold *domain.Hold,
	userID int,
	pricePerSeat decimal.Decimal) (*domain.Reservation, error) {

	if hold == nil {
		return nil, &domain.ValidationError{Field: "hold", Reason: "is required"}
	}

	if pricePerSeat.IsNegative() {
		return nil, &domain.ValidationError{Field: "pricePerSeat", Reason: "must not be negative"}
	}

	now := l.now()
	if hold.Expired(now) {
		return nil, &domain.ExpiredHoldError{HoldID: hold.ID, ExpiredAt: hold.ExpiresAt}
	}

	ok, err := l.holds.TransitionState(ctx, hold.ID, domain.HoldActive, domain.HoldConsumed)
	if err != nil {
		return nil, fmt.Errorf("failed to consume hold %s: %w", hold.ID, err)
	}

	if !ok {
		return nil, l.consumeFailure(ctx, hold)
	}

	reservation := &domain.Reservation{
		ID:               uuid.NewString(),
		ConfirmationCode: newConfirmationCode(),
		ScreeningID:      hold.ScreeningID,
		UserID:           userID,
		HoldID:           hold.ID,
		Seats:            domain.SortedSeatIDs(hold.Seats),
		TotalPrice:       pricePerSeat.Mul(decimal.NewFromInt(int64(len(hold.Seats)))),
		Status:           domain.ReservationPending,
		ExpiresAt:        now.Add(l.paymentWindow),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = l.createReservation(ctx, reservation)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create reservation: %w", err), l.restoreHold(ctx, hold.ID))
	}

	payment := &domain.Payment{
		ReservationID: reservation.ID,
		UserID:        userID,
		Amount:        reservation.TotalPrice,
		Currency:      l.currency,
		Status:        domain.PaymentStatusPending,
		CreatedAt:     now,
	}

	err = l.payments.Create(ctx, payment)
	if err != nil {
		_, cancelErr := l.reservations.UpdateStatus(ctx, reservation.ID, domain.ReservationPending, domain.ReservationCancelled)
		return nil, errors.Join(fmt.Errorf("failed to create payment: %w", err), cancelErr, l.restoreHold(ctx, hold.ID))
	}

	l.logger.Info("pending reservation created",
		"reservation_id", reservation.ID,
		"hold_id", hold.ID,
		"user_id", userID,
		"total_price", reservation.TotalPrice.String())

	return reservation, nil
}

// createReservation stores reservation, drawing a new confirmation code when
// the current one is taken.
func (l *Ledger) createReservation(ctx context.Context, reservation *domain.Reservation) error {
	var err error

	for attempt := range confirmationCodeTries {
		if attempt > 0 {
			l.logger.Warn("confirmation code collision, retrying",
				"reservation_id", reservation.ID, "attempt", attempt)
			reservation.ConfirmationCode = newConfirmationCode()
		}

		err = l.reservations.Create(ctx, reservation)
		if !errors.Is(err, domain.ErrDuplicateConfirmationCode) {
			return err
		}
	}

	return err
}

func (l *Ledger) consumeFailure(ctx context.Context, hold *domain.Hold) error {
	current, err := l.holds.GetById(ctx, hold.ID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.ErrHoldNotFound
		}

		return err
	}

	switch current.State {
	case domain.HoldConsumed:
		return domain.ErrHoldConsumed
	default:
		return &domain.ExpiredHoldError{HoldID: current.ID, ExpiredAt: current.ExpiresAt}
	}
}

func (l *Ledger) restoreHold(ctx context.Context, holdID string) error {
	_, err := l.holds.TransitionState(ctx, holdID, domain.HoldConsumed, domain.HoldActive)
	return err
}

// ConfirmPayment books every seat of a pending reservation. If any seat is no
// longer held by the reservation's hold, the seats booked so far go back to
// held and a *domain.ReservationConflictError is returned.
func (l *Ledger) ConfirmPayment(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	unlock := l.lock(reservationID)
	defer unlock()

	reservation, err := l.reservations.GetById(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if reservation.Status != domain.ReservationPending {
		return nil, fmt.Errorf("%w: reservation %s is %s", domain.ErrInvalidReservationState, reservation.ID, reservation.Status)
	}

	seats := domain.SortedSeatIDs(reservation.Seats)
	booked := make([]domain.SeatID, 0, len(seats))

	for i, seat := range seats {
		ok, err := l.seats.TryTransition(ctx, reservation.ScreeningID, seat, domain.SeatHeld, domain.SeatBooked, reservation.HoldID)
		if err != nil {
			return nil, errors.Join(err, l.unbook(ctx, reservation, booked))
		}

		if ok {
			booked = append(booked, seat)
			continue
		}

		return nil, l.confirmConflict(ctx, reservation, booked, seats[i:])
	}

	ok, err := l.reservations.UpdateStatus(ctx, reservation.ID, domain.ReservationPending, domain.ReservationConfirmed)
	if err != nil || !ok {
		// cancelled by another process while the seats were being booked
		releaseErr := l.releaseSeats(ctx, reservation)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to confirm reservation: %w", err), releaseErr)
		}

		return nil, errors.Join(
			fmt.Errorf("%w: reservation %s changed during confirmation", domain.ErrInvalidReservationState, reservation.ID),
			releaseErr,
		)
	}

	reservation.Status = domain.ReservationConfirmed
	reservation.UpdatedAt = l.now()

	err = l.payments.UpdateStatus(ctx, reservation.ID, domain.PaymentStatusCompleted, "")
	if err != nil {
		l.logger.Error("reservation confirmed but payment record not updated",
			"reservation_id", reservation.ID, "error", err)
	}

	l.discardHold(ctx, reservation.HoldID)
	l.publish(ctx, domain.ReservationEventConfirmed, reservation)

	l.logger.Info("reservation confirmed",
		"reservation_id", reservation.ID,
		"confirmation_code", reservation.ConfirmationCode,
		"seats", len(reservation.Seats))

	return reservation, nil
}

func (l *Ledger) confirmConflict(
	ctx context.Context,
	reservation *domain.Reservation,
	booked []domain.SeatID,
	remaining []domain.SeatID) error {

	lost := make([]domain.SeatID, 0, len(remaining))
	for _, seat := range remaining {
		state, found, err := l.seats.Get(ctx, reservation.ScreeningID, seat)
		if err != nil {
			return errors.Join(err, l.unbook(ctx, reservation, booked))
		}

		if !found || state.Status != domain.SeatHeld || state.HoldID != reservation.HoldID {
			lost = append(lost, seat)
		}
	}

	err := l.unbook(ctx, reservation, booked)

	l.logger.Error("seats lost their hold before payment confirmation",
		"reservation_id", reservation.ID,
		"hold_id", reservation.HoldID,
		"screening_id", reservation.ScreeningID,
		"lost_seats", len(lost))

	current, getErr := l.reservations.GetById(ctx, reservation.ID)
	if getErr == nil && current.Status == domain.ReservationCancelled {
		err = errors.Join(err, l.releaseSeats(ctx, reservation))
	}

	return errors.Join(&domain.ReservationConflictError{ReservationID: reservation.ID, Seats: lost}, err)
}

// unbook puts seats booked during a failed confirmation back to held; the
// consumed hold still owns them.
func (l *Ledger) unbook(ctx context.Context, reservation *domain.Reservation, booked []domain.SeatID) error {
	var errs []error

	for _, seat := range booked {
		_, err := l.seats.TryTransition(ctx, reservation.ScreeningID, seat, domain.SeatBooked, domain.SeatHeld, reservation.HoldID)
		if err != nil {
			errs = append(errs, fmt.Errorf("compensate seat %s: %w", seat, err))
		}
	}

	return errors.Join(errs...)
}

// CancelReservation cancels a pending or confirmed reservation and returns its
// seats to available. Cancelling a cancelled reservation is a no-op.
func (l *Ledger) CancelReservation(ctx context.Context, reservationID string) error {
	unlock := l.lock(reservationID)
	defer unlock()

	return l.cancel(ctx, reservationID, "reservation cancelled")
}

// FailPayment records a failed payment for a pending reservation and releases
// its seats.
func (l *Ledger) FailPayment(ctx context.Context, reservationID string, reason string) error {
	unlock := l.lock(reservationID)
	defer unlock()

	reservation, err := l.reservations.GetById(ctx, reservationID)
	if err != nil {
		return err
	}

	switch reservation.Status {
	case domain.ReservationCancelled:
		return nil
	case domain.ReservationConfirmed:
		return fmt.Errorf("%w: reservation %s is already confirmed", domain.ErrInvalidReservationState, reservation.ID)
	}

	if reason == "" {
		reason = "payment failed"
	}

	return l.cancel(ctx, reservationID, reason)
}

func (l *Ledger) cancel(ctx context.Context, reservationID string, reason string) error {
	reservation, err := l.reservations.GetById(ctx, reservationID)
	if err != nil {
		return err
	}

	var from domain.ReservationStatus

	for range 2 {
		if reservation.Status == domain.ReservationCancelled {
			return nil
		}

		from = reservation.Status
		ok, err := l.reservations.UpdateStatus(ctx, reservation.ID, from, domain.ReservationCancelled)
		if err != nil {
			return fmt.Errorf("failed to cancel reservation %s: %w", reservation.ID, err)
		}

		if ok {
			break
		}

		from = ""
		reservation, err = l.reservations.GetById(ctx, reservationID)
		if err != nil {
			return err
		}
	}

	if from == "" {
		if reservation.Status == domain.ReservationCancelled {
			return nil
		}

		return fmt.Errorf("%w: reservation %s keeps changing", domain.ErrInvalidReservationState, reservation.ID)
	}

	err = l.releaseSeats(ctx, reservation)
	if err != nil {
		return err
	}

	paymentStatus := domain.PaymentStatusFailed
	if from == domain.ReservationConfirmed {
		paymentStatus = domain.PaymentStatusRefunded
		reason = ""
	}

	err = l.payments.UpdateStatus(ctx, reservation.ID, paymentStatus, reason)
	if err != nil {
		l.logger.Error("reservation cancelled but payment record not updated",
			"reservation_id", reservation.ID, "error", err)
	}

	l.discardHold(ctx, reservation.HoldID)

	reservation.Status = domain.ReservationCancelled
	reservation.UpdatedAt = l.now()
	l.publish(ctx, domain.ReservationEventCancelled, reservation)

	l.logger.Info("reservation cancelled",
		"reservation_id", reservation.ID,
		"previous_status", from,
		"seats", len(reservation.Seats))

	return nil
}

// ExpirePending cancels every pending reservation whose payment window ended
// at or before now and returns their ids. A reservation confirmed in the
// meantime is left alone.
func (l *Ledger) ExpirePending(ctx context.Context, now time.Time) ([]string, error) {
	candidates, err := l.reservations.ListPendingExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	expired := make([]string, 0, len(candidates))
	var errs []error

	for _, reservation := range candidates {
		err := l.FailPayment(ctx, reservation.ID, "payment window expired")
		if err != nil {
			if errors.Is(err, domain.ErrInvalidReservationState) {
				continue
			}

			errs = append(errs, err)
			continue
		}

		expired = append(expired, reservation.ID)
	}

	if len(expired) > 0 {
		l.logger.Info("unpaid reservations expired", "count", len(expired))
	}

	return expired, errors.Join(errs...)
}

// releaseSeats frees every seat still owned by the reservation's hold,
// whether booked or held.
func (l *Ledger) releaseSeats(ctx context.Context, reservation *domain.Reservation) error {
	var errs []error

	for _, seat := range reservation.Seats {
		ok, err := l.seats.TryTransition(ctx, reservation.ScreeningID, seat, domain.SeatBooked, domain.SeatAvailable, reservation.HoldID)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if ok {
			continue
		}

		_, err = l.seats.TryTransition(ctx, reservation.ScreeningID, seat, domain.SeatHeld, domain.SeatAvailable, reservation.HoldID)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (l *Ledger) discardHold(ctx context.Context, holdID string) {
	err := l.holds.Delete(ctx, holdID)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		l.logger.Warn("failed to discard consumed hold", "hold_id", holdID, "error", err)
	}
}

func (l *Ledger) publish(ctx context.Context, eventType string, reservation *domain.Reservation) {
	event := domain.ReservationEvent{
		Type:             eventType,
		ReservationID:    reservation.ID,
		ConfirmationCode: reservation.ConfirmationCode,
		ScreeningID:      reservation.ScreeningID,
		UserID:           reservation.UserID,
		Seats:            reservation.Seats,
		TotalPrice:       reservation.TotalPrice,
		OccurredAt:       l.now(),
	}

	err := l.publisher.PublishReservationEvent(ctx, event)
	if err != nil {
		l.logger.Warn("failed to publish reservation event",
			"type", eventType, "reservation_id", reservation.ID, "error", err)
	}
}

func (l *Ledger) Get(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	return l.reservations.GetById(ctx, reservationID)
}

func (l *Ledger) GetByConfirmationCode(ctx context.Context, code string) (*domain.Reservation, error) {
	return l.reservations.GetByConfirmationCode(ctx, strings.ToUpper(code))
}

func (l *Ledger) ListByUser(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.ReservationSummary, *domain.Metadata, error) {

	return l.reservations.GetSummariesByUserId(ctx, userID, pagination)
}

func (l *Ledger) lock(reservationID string) func() {
	h := fnv.New32a()
	h.Write([]byte(reservationID))

	mu := &l.locks[h.Sum32()%lockStripes]
	mu.Lock()

	return mu.Unlock
}

func newConfirmationCode() string {
	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(code[:confirmationCodeLength])
}
