package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
)

const bookingColumns = `id, user_id, suite_id, location_id, start_time, end_time, duration_minutes,
	status, payment_method, credits_used, preferences, created_at, cancelled_at`

type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	query := `
	INSERT INTO bookings (` + bookingColumns + `)
	VALUES (:id, :user_id, :suite_id, :location_id, :start_time, :end_time, :duration_minutes,
		:status, :payment_method, :credits_used, :preferences, :created_at, :cancelled_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking domain.Booking
	if err := r.db.GetContext(ctx, &booking, query, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &booking, nil
}

func (r *BookingRepository) DeleteBooking(ctx context.Context, bookingID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, bookingID)
	return err
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, from, to domain.BookingStatus, at time.Time) error {
	query := `
	UPDATE bookings
	SET status = $1, cancelled_at = COALESCE($2, cancelled_at)
	WHERE id = $3 AND status = $4
	`

	var cancelledAt *time.Time
	if to == domain.BookingCancelled {
		cancelledAt = &at
	}

	result, err := r.db.ExecContext(ctx, query, to, cancelledAt, bookingID, from)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, bookingID); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidTransition
	}

	return nil
}

func (r *BookingRepository) ListUpcomingByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.Booking, error) {
	query := `
	SELECT ` + bookingColumns + `
	FROM bookings
	WHERE user_id = $1 AND status IN ('confirmed', 'checked_in') AND end_time > $2
	ORDER BY start_time ASC
	`

	var bookings []domain.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, userID, now); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *BookingRepository) ListByStatus(ctx context.Context, statuses ...domain.BookingStatus) ([]domain.Booking, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = ANY($1) ORDER BY created_at ASC`

	var bookings []domain.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, pq.Array(values)); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *BookingRepository) ListSettledSince(ctx context.Context, since time.Time) ([]domain.Booking, error) {
	query := `
	SELECT ` + bookingColumns + `
	FROM bookings
	WHERE status IN ('completed', 'cancelled') AND COALESCE(cancelled_at, created_at) >= $1
	ORDER BY created_at ASC
	`

	var bookings []domain.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, since); err != nil {
		return nil, err
	}

	return bookings, nil
}
