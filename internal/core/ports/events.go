package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
)

// SuiteCache holds point-in-time listings of available suites per location.
// Every Invalidate bumps the location's generation; SetAvailable with an older
// generation is dropped.
type SuiteCache interface {
	GetAvailable(ctx context.Context, locationID uuid.UUID) (suites []domain.Suite, generation int64, ok bool, err error)
	SetAvailable(ctx context.Context, locationID uuid.UUID, generation int64, suites []domain.Suite) error
	Invalidate(ctx context.Context, locationID uuid.UUID) error
}

type EventType string

const (
	EventBookingConfirmed     EventType = "booking.confirmed"
	EventBookingCancelled     EventType = "booking.cancelled"
	EventBookingRefundPending EventType = "booking.refund_pending"
	EventConsistencyViolation EventType = "ledger.consistency_violation"
)

type BookingEvent struct {
	Type        EventType `json:"type"`
	BookingID   uuid.UUID `json:"booking_id"`
	UserID      uuid.UUID `json:"user_id"`
	SuiteID     uuid.UUID `json:"suite_id"`
	LocationID  uuid.UUID `json:"location_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreditsUsed int       `json:"credits_used"`
	Refunded    int       `json:"refunded,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewBookingEvent(t EventType, b *domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        t,
		BookingID:   b.ID,
		UserID:      b.UserID,
		SuiteID:     b.SuiteID,
		LocationID:  b.LocationID,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		CreditsUsed: b.CreditsUsed,
		OccurredAt:  at,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// Clock lets services and tests agree on "now".
type Clock func() time.Time
