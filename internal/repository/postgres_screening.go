package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type PostgresScreeningRepository struct {
	db *pgxpool.Pool
}

func NewPostgresScreeningRepository(db *pgxpool.Pool) *PostgresScreeningRepository {
	return &PostgresScreeningRepository{
		db: db,
	}
}

// Create inserts the screening, taking the id from the sequence when
// screening.ID is zero.
func (p *PostgresScreeningRepository) Create(ctx context.Context, screening *domain.Screening) error {
	query := `
		INSERT INTO screenings (id, movie_title, hall_name, starts_at, seat_rows, seats_per_row, price, active)
		VALUES (COALESCE(NULLIF($1, 0), nextval('screenings_id_seq')), $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		screening.ID,
		screening.MovieTitle,
		screening.HallName,
		screening.StartsAt,
		screening.Rows,
		screening.SeatsPerRow,
		screening.Price,
		screening.Active,
	).Scan(&screening.ID, &screening.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateScreening
		}

		return err
	}

	return nil
}

func (p *PostgresScreeningRepository) GetById(ctx context.Context, id int) (*domain.Screening, error) {
	query := `
		SELECT id, movie_title, hall_name, starts_at, seat_rows, seats_per_row, price, active, created_at
		FROM screenings
		WHERE id = $1
	`

	var screening domain.Screening

	err := p.db.QueryRow(ctx, query, id).Scan(
		&screening.ID,
		&screening.MovieTitle,
		&screening.HallName,
		&screening.StartsAt,
		&screening.Rows,
		&screening.SeatsPerRow,
		&screening.Price,
		&screening.Active,
		&screening.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &screening, nil
}

func (p *PostgresScreeningRepository) UpdatePricing(
	ctx context.Context,
	id int,
	price decimal.Decimal,
	active bool) error {

	query := `UPDATE screenings SET price = $1, active = $2 WHERE id = $3`

	tag, err := p.db.Exec(ctx, query, price, active, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}
