package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Business-expected outcomes. Callers surface these to the user and never retry them.
var (
	ErrInsufficientCredit  = errors.New("insufficient credit")
	ErrSuiteUnavailable    = errors.New("suite is not available")
	ErrSampleLimitExceeded = errors.New("sample limit exceeded for this duration")
	ErrIncompleteSelection = errors.New("duration, date and time slot must be selected")
)

var (
	ErrAlreadyReserved       = errors.New("suite already reserved")
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrBookingNotCancellable = errors.New("booking can only be cancelled while confirmed")
	ErrInvalidDuration       = errors.New("invalid duration")
	ErrInvalidPreference     = errors.New("invalid preference")
	ErrSampleUnavailable     = errors.New("sample not stocked in this suite")
	ErrInvalidDraft          = errors.New("invalid booking draft")
	ErrWizardStep            = errors.New("operation not allowed at this step")
)

// CancelStep names the cancellation step that failed after the booking was already cancelled.
type CancelStep string

const (
	CancelStepRefund  CancelStep = "refund"
	CancelStepRelease CancelStep = "release"
)

// RefundPendingError is returned when a booking was cancelled but a later step failed.
// The booking stays cancelled; support has to settle the refund or suite manually.
type RefundPendingError struct {
	BookingID uuid.UUID
	Step      CancelStep
	Err       error
}

func (e *RefundPendingError) Error() string {
	return fmt.Sprintf("booking %s cancelled, %s pending: %v", e.BookingID, e.Step, e.Err)
}

func (e *RefundPendingError) Unwrap() error { return e.Err }
