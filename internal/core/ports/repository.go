package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
)

type LocationRepository interface {
	GetByID(ctx context.Context, locationID uuid.UUID) (*domain.Location, error)
}

// SuiteRepository owns suites.is_available. Reserve is the only contention primitive:
// it must be a single conditional update that succeeds for exactly one caller.
type SuiteRepository interface {
	GetByID(ctx context.Context, suiteID uuid.UUID) (*domain.Suite, error)
	ListAvailableByLocation(ctx context.Context, locationID uuid.UUID) ([]domain.Suite, error)
	ListUnavailable(ctx context.Context) ([]domain.Suite, error)
	Reserve(ctx context.Context, suiteID uuid.UUID) error
	Release(ctx context.Context, suiteID uuid.UUID) error
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	// DeleteBooking voids a booking whose commit was rolled back.
	DeleteBooking(ctx context.Context, bookingID uuid.UUID) error
	// UpdateStatus moves a booking from one status to another and fails with
	// domain.ErrInvalidTransition when the row is no longer in from.
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, from, to domain.BookingStatus, at time.Time) error
	ListUpcomingByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.Booking, error)
	ListByStatus(ctx context.Context, statuses ...domain.BookingStatus) ([]domain.Booking, error)
	// ListSettledSince returns completed and cancelled bookings whose cancelled_at,
	// or created_at when never cancelled, is not before since.
	ListSettledSince(ctx context.Context, since time.Time) ([]domain.Booking, error)
}

// CreditStore persists grants and credit transactions.
type CreditStore interface {
	ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.CreditGrant, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]domain.CreditTransaction, error)
	ListTransactionsByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.CreditTransaction, error)
	// WithUserTx runs fn inside a boundary serialized per user. Writes made through
	// tx are kept only if fn returns nil.
	WithUserTx(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, tx CreditTx) error) error
}

// CreditTx is the write side of CreditStore, valid only inside WithUserTx.
type CreditTx interface {
	ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.CreditGrant, error)
	LastDebit(ctx context.Context, userID uuid.UUID) (*domain.CreditTransaction, error)
	InsertGrant(ctx context.Context, grant *domain.CreditGrant) error
	UpdateGrant(ctx context.Context, grant *domain.CreditGrant) error
	InsertTransaction(ctx context.Context, txn *domain.CreditTransaction) error
}
