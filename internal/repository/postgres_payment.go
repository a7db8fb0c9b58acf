package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			reservation_id,
			user_id, 
			amount, 
			currency,
			status
		)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		payment.ReservationID,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt)

	return err
}

func (p *PostgresPaymentRepository) GetByReservationId(ctx context.Context, reservationID string) (*domain.Payment, error) {
	query := `
		SELECT
			id,
			reservation_id,
			user_id,
			stripe_checkout_session_id,
			amount,
			currency,
			status,
			error_message,
			payment_date,
			created_at,
			updated_at
		FROM payments
		WHERE reservation_id = $1
	`

	var payment domain.Payment

	err := p.db.QueryRow(ctx, query, reservationID).Scan(
		&payment.ID,
		&payment.ReservationID,
		&payment.UserID,
		&payment.CheckoutSessionId,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.ErrorMsg,
		&payment.PaymentDate,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &payment, nil
}

func (p *PostgresPaymentRepository) SetCheckoutSession(
	ctx context.Context,
	reservationID string,
	checkoutSessionID string) error {

	query := `
		UPDATE payments
		SET stripe_checkout_session_id = $1, updated_at = NOW()
		WHERE reservation_id = $2
	`

	tag, err := p.db.Exec(ctx, query, checkoutSessionID, reservationID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (p *PostgresPaymentRepository) UpdateStatus(
	ctx context.Context,
	reservationID string,
	status domain.PaymentStatus,
	errMsg string) error {

	query := `UPDATE payments
		SET
			status = $1,
			error_message = NULLIF($2, ''),
			payment_date = CASE WHEN $1 = 'completed' THEN NOW() ELSE payment_date END,
			updated_at = NOW()
		WHERE reservation_id = $3
	`

	tag, err := p.db.Exec(ctx, query, status, errMsg, reservationID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}
