package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

type PostgresReservationRepository struct {
	db *pgxpool.Pool
}

func NewPostgresReservationRepository(db *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{
		db: db,
	}
}

// reservationColumns selects a reservation with its seat labels aggregated;
// queries using it must group by r.id.
const reservationColumns = `
	r.id,
	r.confirmation_code,
	r.screening_id,
	r.user_id,
	r.hold_id,
	r.total_price,
	r.status,
	r.expires_at,
	r.created_at,
	r.updated_at,
	COALESCE(array_agg(rs.seat_row || rs.seat_number ORDER BY length(rs.seat_row), rs.seat_row, rs.seat_number)
		FILTER (WHERE rs.seat_row IS NOT NULL), '{}')
`

func (p *PostgresReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO reservations (id, confirmation_code, screening_id, user_id, hold_id, total_price, status, expires_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		_, err := tx.Exec(
			ctx,
			query,
			reservation.ID,
			reservation.ConfirmationCode,
			reservation.ScreeningID,
			reservation.UserID,
			reservation.HoldID,
			reservation.TotalPrice,
			reservation.Status,
			reservation.ExpiresAt,
			reservation.CreatedAt,
			reservation.UpdatedAt)

		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(reservation.Seats))
		for _, seat := range reservation.Seats {
			rows = append(rows, []any{
				reservation.ID,
				reservation.ScreeningID,
				seat.Row,
				seat.Number,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"reservation_seats"},
			[]string{"reservation_id", "screening_id", "seat_row", "seat_number"},
			pgx.CopyFromRows(rows),
		)

		return err
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == "reservations_confirmation_code_key" {
		return ErrDuplicateConfirmationCode
	}

	return err
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}

func (p *PostgresReservationRepository) GetById(ctx context.Context, id string) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		LEFT JOIN reservation_seats rs ON rs.reservation_id = r.id
		WHERE r.id = $1
		GROUP BY r.id
	`

	return p.getOne(ctx, query, id)
}

func (p *PostgresReservationRepository) GetByConfirmationCode(ctx context.Context, code string) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		LEFT JOIN reservation_seats rs ON rs.reservation_id = r.id
		WHERE r.confirmation_code = $1
		GROUP BY r.id
	`

	return p.getOne(ctx, query, code)
}

func (p *PostgresReservationRepository) getOne(ctx context.Context, query string, arg any) (*domain.Reservation, error) {
	reservation, err := scanReservation(p.db.QueryRow(ctx, query, arg))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return reservation, nil
}

func (p *PostgresReservationRepository) UpdateStatus(
	ctx context.Context,
	id string,
	from, to domain.ReservationStatus) (bool, error) {

	query := `
		UPDATE reservations
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	tag, err := p.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (p *PostgresReservationRepository) ListByScreening(
	ctx context.Context,
	screeningID int,
	status domain.ReservationStatus) ([]*domain.Reservation, error) {

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		LEFT JOIN reservation_seats rs ON rs.reservation_id = r.id
		WHERE r.screening_id = $1 AND r.status = $2
		GROUP BY r.id
		ORDER BY r.created_at
	`

	return p.list(ctx, query, screeningID, status)
}

func (p *PostgresReservationRepository) ListPendingExpired(ctx context.Context, now time.Time) ([]*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		LEFT JOIN reservation_seats rs ON rs.reservation_id = r.id
		WHERE r.status = $1 AND r.expires_at <= $2
		GROUP BY r.id
		ORDER BY r.expires_at
	`

	return p.list(ctx, query, domain.ReservationPending, now)
}

func (p *PostgresReservationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Reservation, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]*domain.Reservation, 0)

	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}

		reservations = append(reservations, reservation)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}

func (p *PostgresReservationRepository) GetSummariesByUserId(
	ctx context.Context,
	userId int,
	pagination domain.Pagination) ([]domain.ReservationSummary, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			r.id,
			r.confirmation_code,
			s.id,
			s.movie_title,
			s.hall_name,
			s.starts_at,
			(SELECT COUNT(*) FROM reservation_seats rs WHERE rs.reservation_id = r.id),
			r.total_price,
			r.status,
			r.created_at
		FROM reservations r
		JOIN screenings s ON r.screening_id = s.id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userId, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	reservations := make([]domain.ReservationSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var reservation domain.ReservationSummary

		err := rows.Scan(
			&totalRecords,
			&reservation.ReservationID,
			&reservation.ConfirmationCode,
			&reservation.ScreeningID,
			&reservation.MovieTitle,
			&reservation.HallName,
			&reservation.StartsAt,
			&reservation.SeatCount,
			&reservation.TotalPrice,
			&reservation.Status,
			&reservation.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		reservations = append(reservations, reservation)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return reservations, metadata, nil
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var reservation domain.Reservation
	var labels []string

	err := row.Scan(
		&reservation.ID,
		&reservation.ConfirmationCode,
		&reservation.ScreeningID,
		&reservation.UserID,
		&reservation.HoldID,
		&reservation.TotalPrice,
		&reservation.Status,
		&reservation.ExpiresAt,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
		&labels,
	)
	if err != nil {
		return nil, err
	}

	reservation.Seats = make([]domain.SeatID, 0, len(labels))
	for _, label := range labels {
		seat, err := domain.ParseSeatID(label)
		if err != nil {
			return nil, err
		}

		reservation.Seats = append(reservation.Seats, seat)
	}

	return &reservation, nil
}
