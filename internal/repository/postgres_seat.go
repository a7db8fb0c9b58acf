package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

// PostgresSeatStore keeps seat states in the seat_states table. Every
// transition is a single conditional UPDATE, so the row lock taken by
// Postgres is the compare-and-set.
type PostgresSeatStore struct {
	db   *pgxpool.Pool
	sink domain.SeatEventSink
}

func NewPostgresSeatStore(db *pgxpool.Pool, sink domain.SeatEventSink) *PostgresSeatStore {
	if sink == nil {
		sink = domain.NopSeatEventSink{}
	}

	return &PostgresSeatStore{
		db:   db,
		sink: sink,
	}
}

func (p *PostgresSeatStore) Init(ctx context.Context, screeningID int, seats []domain.Seat) error {
	query := `
		INSERT INTO seat_states (screening_id, seat_row, seat_number, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (screening_id, seat_row, seat_number) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, seat := range seats {
		if seat.ScreeningID != screeningID {
			return fmt.Errorf("seat %s belongs to screening %d, not %d", seat.ID, seat.ScreeningID, screeningID)
		}

		status := seat.Status
		if status == "" {
			status = domain.SeatAvailable
		}

		batch.Queue(query, screeningID, seat.ID.Row, seat.ID.Number, status)
	}

	return p.db.SendBatch(ctx, batch).Close()
}

func (p *PostgresSeatStore) GetStatuses(
	ctx context.Context,
	screeningID int,
	seats []domain.SeatID) (map[domain.SeatID]domain.SeatStatus, error) {

	query := `
		SELECT s.seat_row, s.seat_number, s.status
		FROM seat_states s
		JOIN unnest($2::text[], $3::int[]) AS req(seat_row, seat_number)
			ON s.seat_row = req.seat_row AND s.seat_number = req.seat_number
		WHERE s.screening_id = $1
	`

	rowLabels := make([]string, len(seats))
	numbers := make([]int32, len(seats))
	for i, seat := range seats {
		rowLabels[i] = seat.Row
		numbers[i] = int32(seat.Number)
	}

	rows, err := p.db.Query(ctx, query, screeningID, rowLabels, numbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make(map[domain.SeatID]domain.SeatStatus, len(seats))

	for rows.Next() {
		var id domain.SeatID
		var status domain.SeatStatus

		err = rows.Scan(&id.Row, &id.Number, &status)
		if err != nil {
			return nil, err
		}

		statuses[id] = status
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return statuses, nil
}

func (p *PostgresSeatStore) Get(ctx context.Context, screeningID int, seat domain.SeatID) (domain.SeatState, bool, error) {
	query := `
		SELECT status, hold_id, updated_at
		FROM seat_states
		WHERE screening_id = $1 AND seat_row = $2 AND seat_number = $3
	`

	state := domain.SeatState{Seat: seat}

	err := p.db.QueryRow(ctx, query, screeningID, seat.Row, seat.Number).Scan(
		&state.Status,
		&state.HoldID,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SeatState{}, false, nil
		}

		return domain.SeatState{}, false, err
	}

	return state, true, nil
}

func (p *PostgresSeatStore) List(ctx context.Context, screeningID int) ([]domain.SeatState, error) {
	query := `
		SELECT seat_row, seat_number, status, hold_id, updated_at
		FROM seat_states
		WHERE screening_id = $1
	`

	rows, err := p.db.Query(ctx, query, screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make([]domain.SeatState, 0)

	for rows.Next() {
		var state domain.SeatState

		err = rows.Scan(
			&state.Seat.Row,
			&state.Seat.Number,
			&state.Status,
			&state.HoldID,
			&state.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		states = append(states, state)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(states, func(a, b domain.SeatState) int {
		return domain.CompareSeatIDs(a.Seat, b.Seat)
	})

	return states, nil
}

func (p *PostgresSeatStore) TryTransition(
	ctx context.Context,
	screeningID int,
	seat domain.SeatID,
	from, to domain.SeatStatus,
	holdID string) (bool, error) {

	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	// $6 is the owner to check; it is empty when the seat is expected to be
	// available or when the caller skips the ownership check.
	query := `
		UPDATE seat_states
		SET
			status = $5,
			hold_id = CASE
				WHEN $5::text = 'available' THEN ''
				WHEN $7::text <> '' THEN $7
				ELSE hold_id
			END,
			version = version + 1,
			updated_at = NOW()
		WHERE screening_id = $1
			AND seat_row = $2
			AND seat_number = $3
			AND status = $4
			AND ($6::text = '' OR hold_id = $6)
		RETURNING updated_at
	`

	owner := holdID
	if from == domain.SeatAvailable {
		owner = ""
	}

	var updatedAt time.Time

	err := p.db.QueryRow(ctx, query, screeningID, seat.Row, seat.Number, from, to, owner, holdID).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}

		return false, err
	}

	p.sink.SeatStateChanged(ctx, domain.SeatStateChanged{
		ScreeningID: screeningID,
		Seat:        seat,
		From:        from,
		To:          to,
		HoldID:      holdID,
		At:          updatedAt,
	})

	return true, nil
}
