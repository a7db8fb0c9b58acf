// Package booking is the entry point used by the HTTP layer and the payment
// webhook. It checks requests against the screening, then hands seats to the
// hold manager and reservations to the ledger.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/metinatakli/cinex-seat-engine/internal/hold"
	"github.com/metinatakli/cinex-seat-engine/internal/ledger"
	"github.com/metinatakli/cinex-seat-engine/internal/seatmap"
	"github.com/shopspring/decimal"
)

// PaymentResult is the gateway outcome for either a hold that has not been
// converted yet or a pending reservation. Exactly one id is set.
type PaymentResult struct {
	HoldID        string
	ReservationID string
	Success       bool
	Reason        string
}

type SeatMapView struct {
	Screening *domain.Screening
	Rows      []seatmap.Row
	Available int
	Held      int
	Booked    int
}

type Orchestrator struct {
	screenings domain.ScreeningRepository
	seats      domain.SeatStateStore
	holds      *hold.Manager
	ledger     *ledger.Ledger
	payments   domain.PaymentRepository
	provider   domain.PaymentProvider
	logger     *slog.Logger
	holdTTL    time.Duration
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithHoldTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.holdTTL = ttl
	}
}

func WithPaymentProvider(provider domain.PaymentProvider) Option {
	return func(o *Orchestrator) {
		o.provider = provider
	}
}

func New(
	screenings domain.ScreeningRepository,
	seats domain.SeatStateStore,
	holds *hold.Manager,
	ledger *ledger.Ledger,
	payments domain.PaymentRepository,
	opts ...Option) *Orchestrator {

	o := &Orchestrator{
		screenings: screenings,
		seats:      seats,
		holds:      holds,
		ledger:     ledger,
		payments:   payments,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// StartBooking holds seats of an active screening for userID.
func (o *Orchestrator) StartBooking(
	ctx context.Context,
	screeningID int,
	seats []domain.SeatID,
	userID int) (*domain.Hold, error) {

	screening, err := o.screenings.GetById(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	if !screening.Active {
		return nil, domain.ErrScreeningInactive
	}

	for _, seat := range seats {
		if !screening.HasSeat(seat) {
			return nil, &domain.ValidationError{
				Field:  "seats",
				Reason: fmt.Sprintf("seat %s is not part of screening %d", seat, screeningID),
			}
		}
	}

	return o.holds.RequestHold(ctx, screeningID, seats, userID, o.holdTTL)
}

func (o *Orchestrator) GetHold(ctx context.Context, holdID string) (*domain.Hold, error) {
	return o.holds.Get(ctx, holdID)
}

// ReleaseHold gives up a hold owned by userID. Holds of other users are
// reported as not found.
func (o *Orchestrator) ReleaseHold(ctx context.Context, holdID string, userID int) error {
	h, err := o.ownedHold(ctx, holdID, userID)
	if err != nil {
		return err
	}

	return o.holds.ReleaseHold(ctx, h.ID)
}

// OnPaymentResult applies a gateway outcome. A successful payment for a hold
// creates and confirms the reservation in one step. A failed payment for a
// hold releases it and returns a nil reservation.
func (o *Orchestrator) OnPaymentResult(ctx context.Context, result PaymentResult) (*domain.Reservation, error) {
	switch {
	case result.HoldID != "" && result.ReservationID != "":
		return nil, &domain.ValidationError{Field: "paymentResult", Reason: "either a hold or a reservation id is expected, not both"}
	case result.ReservationID != "":
		return o.reservationPaymentResult(ctx, result)
	case result.HoldID != "":
		return o.holdPaymentResult(ctx, result)
	default:
		return nil, &domain.ValidationError{Field: "paymentResult", Reason: "a hold or reservation id is required"}
	}
}

func (o *Orchestrator) reservationPaymentResult(ctx context.Context, result PaymentResult) (*domain.Reservation, error) {
	if result.Success {
		confirmed, err := o.ledger.ConfirmPayment(ctx, result.ReservationID)
		if errors.Is(err, domain.ErrReservationConflict) {
			// the payment went through but the seats cannot be booked
			o.logger.Error("payment received for reservation that lost its seats, refund required",
				"reservation_id", result.ReservationID)

			return nil, errors.Join(err, o.ledger.FailPayment(ctx, result.ReservationID, "seats no longer held"))
		}

		return confirmed, err
	}

	err := o.ledger.FailPayment(ctx, result.ReservationID, result.Reason)
	if err != nil {
		return nil, err
	}

	o.logger.Info("payment failed, reservation cancelled",
		"reservation_id", result.ReservationID, "reason", result.Reason)

	return o.ledger.Get(ctx, result.ReservationID)
}

func (o *Orchestrator) holdPaymentResult(ctx context.Context, result PaymentResult) (*domain.Reservation, error) {
	h, err := o.holds.Get(ctx, result.HoldID)
	if err != nil {
		return nil, err
	}

	if !result.Success {
		o.logger.Info("payment failed, releasing hold", "hold_id", h.ID, "reason", result.Reason)
		return nil, o.holds.ReleaseHold(ctx, h.ID)
	}

	screening, err := o.screenings.GetById(ctx, h.ScreeningID)
	if err != nil {
		return nil, err
	}

	reservation, err := o.ledger.CreatePendingReservation(ctx, h, h.UserID, screening.Price)
	if err != nil {
		return nil, err
	}

	confirmed, err := o.ledger.ConfirmPayment(ctx, reservation.ID)
	if err != nil {
		if errors.Is(err, domain.ErrReservationConflict) {
			// the held seats that survived must not stay locked behind a
			// reservation nobody can confirm
			return nil, errors.Join(err, o.ledger.FailPayment(ctx, reservation.ID, "seats no longer held"))
		}

		return nil, err
	}

	return confirmed, nil
}

func (o *Orchestrator) Cancel(ctx context.Context, reservationID string) error {
	return o.ledger.CancelReservation(ctx, reservationID)
}

// Checkout turns a hold into a pending reservation and opens a checkout
// session with the payment provider. If the session cannot be opened the
// reservation is cancelled and its seats freed.
func (o *Orchestrator) Checkout(
	ctx context.Context,
	holdID string,
	userID int) (*domain.Reservation, *domain.CheckoutSession, error) {

	if o.provider == nil {
		return nil, nil, errors.New("no payment provider configured")
	}

	h, err := o.ownedHold(ctx, holdID, userID)
	if err != nil {
		return nil, nil, err
	}

	screening, err := o.screenings.GetById(ctx, h.ScreeningID)
	if err != nil {
		return nil, nil, err
	}

	reservation, err := o.ledger.CreatePendingReservation(ctx, h, userID, screening.Price)
	if err != nil {
		return nil, nil, err
	}

	session, err := o.provider.CreateCheckoutSession(ctx, reservation, screening)
	if err != nil {
		failErr := o.ledger.FailPayment(ctx, reservation.ID, "checkout session could not be created")
		return nil, nil, errors.Join(fmt.Errorf("failed to create checkout session: %w", err), failErr)
	}

	err = o.payments.SetCheckoutSession(ctx, reservation.ID, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store checkout session: %w", err)
	}

	return reservation, session, nil
}

func (o *Orchestrator) SeatMap(ctx context.Context, screeningID int) (*SeatMapView, error) {
	screening, err := o.screenings.GetById(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	states, err := o.seats.List(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	view := &SeatMapView{
		Screening: screening,
		Rows:      seatmap.Layout(screening.Rows, states),
	}

	for _, st := range states {
		switch st.Status {
		case domain.SeatAvailable:
			view.Available++
		case domain.SeatHeld:
			view.Held++
		case domain.SeatBooked:
			view.Booked++
		}
	}

	return view, nil
}

// CreateScreening stores a screening and initializes its seat map. Row
// labels are normalized to upper case.
func (o *Orchestrator) CreateScreening(ctx context.Context, screening domain.Screening) (*domain.Screening, error) {
	if strings.TrimSpace(screening.MovieTitle) == "" {
		return nil, &domain.ValidationError{Field: "movieTitle", Reason: "must be provided"}
	}

	if screening.Price.IsNegative() {
		return nil, &domain.ValidationError{Field: "price", Reason: "must not be negative"}
	}

	generated, err := seatmap.GenerateSeats(screening.ID, screening.Rows, screening.SeatsPerRow)
	if err != nil {
		return nil, err
	}

	rows := make([]string, 0, len(screening.Rows))
	for _, s := range generated {
		if len(rows) == 0 || rows[len(rows)-1] != s.ID.Row {
			rows = append(rows, s.ID.Row)
		}
	}
	screening.Rows = rows

	err = o.screenings.Create(ctx, &screening)
	if err != nil {
		return nil, err
	}

	for i := range generated {
		generated[i].ScreeningID = screening.ID
	}

	err = o.seats.Init(ctx, screening.ID, generated)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize seats: %w", err)
	}

	o.logger.Info("screening created",
		"screening_id", screening.ID,
		"seats", len(generated))

	return &screening, nil
}

// UpdateScreening changes the seat price and booking availability of a
// screening. Nil arguments keep the current value. Existing holds and
// reservations keep the price they were created with.
func (o *Orchestrator) UpdateScreening(
	ctx context.Context,
	screeningID int,
	price *decimal.Decimal,
	active *bool) (*domain.Screening, error) {

	screening, err := o.screenings.GetById(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	if price != nil {
		if price.IsNegative() {
			return nil, &domain.ValidationError{Field: "price", Reason: "must not be negative"}
		}
		screening.Price = *price
	}

	if active != nil {
		screening.Active = *active
	}

	err = o.screenings.UpdatePricing(ctx, screening.ID, screening.Price, screening.Active)
	if err != nil {
		return nil, err
	}

	o.logger.Info("screening updated",
		"screening_id", screening.ID,
		"price", screening.Price.String(),
		"active", screening.Active)

	return screening, nil
}

// ForceRelease makes a seat available whatever its state or owner.
func (o *Orchestrator) ForceRelease(ctx context.Context, screeningID int, seat domain.SeatID) error {
	for range 3 {
		state, found, err := o.seats.Get(ctx, screeningID, seat)
		if err != nil {
			return err
		}

		if !found {
			return domain.ErrRecordNotFound
		}

		if state.Status == domain.SeatAvailable {
			return nil
		}

		ok, err := o.seats.TryTransition(ctx, screeningID, seat, state.Status, domain.SeatAvailable, "")
		if err != nil {
			return err
		}

		if ok {
			o.logger.Warn("seat force released",
				"screening_id", screeningID,
				"seat", seat.String(),
				"previous_status", state.Status,
				"hold_id", state.HoldID)

			return nil
		}
	}

	return fmt.Errorf("seat %s keeps changing, try again", seat)
}

// SweepExpired releases expired holds and cancels pending reservations whose
// payment window has ended. It returns the ids of the holds whose seats were
// freed.
func (o *Orchestrator) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	released, holdErr := o.holds.SweepExpired(ctx, now)

	expired, err := o.ledger.ExpirePending(ctx, now)
	for _, id := range expired {
		reservation, getErr := o.ledger.Get(ctx, id)
		if getErr != nil {
			continue
		}

		released = append(released, reservation.HoldID)
	}

	return released, errors.Join(holdErr, err)
}

func (o *Orchestrator) Audit(ctx context.Context, screeningID int) error {
	_, err := o.screenings.GetById(ctx, screeningID)
	if err != nil {
		return err
	}

	return o.ledger.AuditConsistency(ctx, screeningID)
}

// Reservation returns a reservation owned by userID.
func (o *Orchestrator) Reservation(ctx context.Context, reservationID string, userID int) (*domain.Reservation, error) {
	reservation, err := o.ledger.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if reservation.UserID != userID {
		return nil, domain.ErrRecordNotFound
	}

	return reservation, nil
}

func (o *Orchestrator) ReservationByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	return o.ledger.GetByConfirmationCode(ctx, code)
}

func (o *Orchestrator) UserReservations(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.ReservationSummary, *domain.Metadata, error) {

	return o.ledger.ListByUser(ctx, userID, pagination)
}

func (o *Orchestrator) ownedHold(ctx context.Context, holdID string, userID int) (*domain.Hold, error) {
	h, err := o.holds.Get(ctx, holdID)
	if err != nil {
		return nil, err
	}

	if h.UserID != userID {
		return nil, domain.ErrHoldNotFound
	}

	return h, nil
}
