package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
)

type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]domain.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: map[uuid.UUID]domain.Booking{}}
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.Preferences.Samples = slices.Clone(b.Preferences.Samples)
	return b
}

func (r *BookingRepository) CreateBooking(_ context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[booking.ID] = cloneBooking(*booking)
	return nil
}

func (r *BookingRepository) GetByID(_ context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	b = cloneBooking(b)
	return &b, nil
}

func (r *BookingRepository) DeleteBooking(_ context.Context, bookingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bookings, bookingID)
	return nil
}

func (r *BookingRepository) UpdateStatus(_ context.Context, bookingID uuid.UUID, from, to domain.BookingStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Status != from {
		return domain.ErrInvalidTransition
	}
	b.Status = to
	if to == domain.BookingCancelled {
		b.CancelledAt = &at
	}
	r.bookings[bookingID] = b
	return nil
}

func (r *BookingRepository) ListUpcomingByUser(_ context.Context, userID uuid.UUID, now time.Time) ([]domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Booking
	for _, b := range r.bookings {
		if b.UserID == userID && b.IsUpcoming(now) {
			out = append(out, cloneBooking(b))
		}
	}
	slices.SortFunc(out, func(a, b domain.Booking) int { return a.StartTime.Compare(b.StartTime) })
	return out, nil
}

func (r *BookingRepository) ListByStatus(_ context.Context, statuses ...domain.BookingStatus) ([]domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Booking
	for _, b := range r.bookings {
		if slices.Contains(statuses, b.Status) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (r *BookingRepository) ListSettledSince(_ context.Context, since time.Time) ([]domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Booking
	for _, b := range r.bookings {
		if b.Status != domain.BookingCompleted && b.Status != domain.BookingCancelled {
			continue
		}
		settledAt := b.CreatedAt
		if b.CancelledAt != nil {
			settledAt = *b.CancelledAt
		}
		if !settledAt.Before(since) {
			out = append(out, cloneBooking(b))
		}
	}
	slices.SortFunc(out, func(a, b domain.Booking) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}
