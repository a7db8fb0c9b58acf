package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

type PostgresHoldRepository struct {
	db *pgxpool.Pool
}

func NewPostgresHoldRepository(db *pgxpool.Pool) *PostgresHoldRepository {
	return &PostgresHoldRepository{
		db: db,
	}
}

func (p *PostgresHoldRepository) Create(ctx context.Context, hold *domain.Hold) error {
	query := `
		INSERT INTO holds (id, screening_id, user_id, seats, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.db.Exec(
		ctx,
		query,
		hold.ID,
		hold.ScreeningID,
		hold.UserID,
		hold.Seats,
		hold.State,
		hold.CreatedAt,
		hold.ExpiresAt,
	)

	return err
}

func (p *PostgresHoldRepository) GetById(ctx context.Context, id string) (*domain.Hold, error) {
	query := `
		SELECT id, screening_id, user_id, seats, state, created_at, expires_at
		FROM holds
		WHERE id = $1
	`

	hold, err := scanHold(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return hold, nil
}

func (p *PostgresHoldRepository) TransitionState(
	ctx context.Context,
	id string,
	from, to domain.HoldState) (bool, error) {

	query := `UPDATE holds SET state = $1 WHERE id = $2 AND state = $3`

	tag, err := p.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (p *PostgresHoldRepository) ListExpired(ctx context.Context, now time.Time) ([]*domain.Hold, error) {
	query := `
		SELECT id, screening_id, user_id, seats, state, created_at, expires_at
		FROM holds
		WHERE state <> 'consumed' AND expires_at <= $1
		ORDER BY expires_at
	`

	rows, err := p.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holds := make([]*domain.Hold, 0)

	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}

		holds = append(holds, hold)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return holds, nil
}

func (p *PostgresHoldRepository) Delete(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM holds WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func scanHold(row pgx.Row) (*domain.Hold, error) {
	var hold domain.Hold

	err := row.Scan(
		&hold.ID,
		&hold.ScreeningID,
		&hold.UserID,
		&hold.Seats,
		&hold.State,
		&hold.CreatedAt,
		&hold.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	return &hold, nil
}
