package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCheckedIn BookingStatus = "checked_in"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// CanTransitionTo reports whether moving from s to next is a legal, forward-only step.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingConfirmed:
		return next == BookingCheckedIn || next == BookingCancelled
	case BookingCheckedIn:
		return next == BookingCompleted
	}
	return false
}

// IsActive is true while the booking holds its suite.
func (s BookingStatus) IsActive() bool {
	return s == BookingConfirmed || s == BookingCheckedIn
}

// IsFinal is true once the booking can no longer change.
func (s BookingStatus) IsFinal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

type Booking struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	UserID        uuid.UUID     `db:"user_id" json:"user_id"`
	SuiteID       uuid.UUID     `db:"suite_id" json:"suite_id"`
	LocationID    uuid.UUID     `db:"location_id" json:"location_id"`
	StartTime     time.Time     `db:"start_time" json:"start_time"`
	EndTime       time.Time     `db:"end_time" json:"end_time"`
	Duration      Duration      `db:"duration_minutes" json:"duration_minutes"`
	Status        BookingStatus `db:"status" json:"status"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	CreditsUsed   int           `db:"credits_used" json:"credits_used"`
	Preferences   Preferences   `db:"preferences" json:"preferences"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	CancelledAt   *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// IsUpcoming reports whether the booking still shows in the user's upcoming list at now.
func (b *Booking) IsUpcoming(now time.Time) bool {
	return b.Status.IsActive() && b.EndTime.After(now)
}
