package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/ports"
)

type CommitResult struct {
	BookingID   uuid.UUID `json:"booking_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreditsUsed int       `json:"credits_used"`
	Status      string    `json:"status"`
}

type CancelResult struct {
	BookingID       uuid.UUID `json:"booking_id"`
	RefundedCredits int       `json:"refunded_credits"`
	Status          string    `json:"status"`
}

// BookingService runs the booking commit and cancel sequences. Suite availability is
// only ever mutated from here.
type BookingService struct {
	availability *AvailabilityService
	ledger       *LedgerService
	bookingRepo  ports.BookingRepository
	publisher    ports.EventPublisher
	now          ports.Clock
	logger       *logrus.Logger
}

func NewBookingService(
	availability *AvailabilityService,
	ledger *LedgerService,
	bookingRepo ports.BookingRepository,
	publisher ports.EventPublisher,
	now ports.Clock,
	logger *logrus.Logger,
) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		availability: availability,
		ledger:       ledger,
		bookingRepo:  bookingRepo,
		publisher:    publisher,
		now:          now,
		logger:       logger,
	}
}

// CommitBooking turns a draft into a confirmed booking: reserve suite, insert booking,
// debit ledger. Any failure after the reserve is rolled back before returning.
func (s *BookingService) CommitBooking(ctx context.Context, draft domain.BookingDraft) (*CommitResult, error) {
	// Once started the sequence runs to completion or rollback, even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err := draft.Validate(); err != nil {
		return nil, err
	}

	startTime, _ := draft.StartTime()
	log := s.logger.WithFields(logrus.Fields{
		"user_id":  draft.UserID,
		"suite_id": draft.SuiteID,
	})

	suite, err := s.availability.GetSuite(ctx, draft.SuiteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: suite %s not found", domain.ErrSuiteUnavailable, draft.SuiteID)
		}
		return nil, fmt.Errorf("failed to load suite: %w", err)
	}
	if suite.LocationID != draft.LocationID {
		return nil, fmt.Errorf("%w: suite does not belong to this location", domain.ErrSuiteUnavailable)
	}
	if !suite.IsOperational {
		return nil, fmt.Errorf("%w: suite is out of service", domain.ErrSuiteUnavailable)
	}
	for _, sample := range draft.Preferences.Samples {
		if !suite.Stocks(sample) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSampleUnavailable, sample)
		}
	}

	if err := s.availability.Reserve(ctx, suite); err != nil {
		if errors.Is(err, domain.ErrAlreadyReserved) {
			return nil, domain.ErrSuiteUnavailable
		}
		return nil, fmt.Errorf("failed to reserve suite: %w", err)
	}

	creditsUsed := draft.CreditCost()
	booking := &domain.Booking{
		ID:            uuid.New(),
		UserID:        draft.UserID,
		SuiteID:       suite.ID,
		LocationID:    suite.LocationID,
		StartTime:     startTime,
		EndTime:       startTime.Add(draft.Duration.Minutes()),
		Duration:      draft.Duration,
		Status:        domain.BookingConfirmed,
		PaymentMethod: draft.PaymentMethod,
		CreditsUsed:   creditsUsed,
		Preferences:   draft.Preferences,
		CreatedAt:     s.now(),
	}
	log = log.WithField("booking_id", booking.ID)

	if err := s.bookingRepo.CreateBooking(ctx, booking); err != nil {
		s.releaseAfterFailedCommit(ctx, suite, log)
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if creditsUsed > 0 {
		if _, err := s.ledger.DebitOne(ctx, draft.UserID, &booking.ID); err != nil {
			s.rollbackBooking(ctx, booking, suite, log)
			if errors.Is(err, domain.ErrInsufficientCredit) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to debit credits: %w", err)
		}
	}

	log.Info("booking confirmed")
	s.publish(ctx, ports.NewBookingEvent(ports.EventBookingConfirmed, booking, s.now()))

	return &CommitResult{
		BookingID:   booking.ID,
		StartTime:   booking.StartTime,
		EndTime:     booking.EndTime,
		CreditsUsed: booking.CreditsUsed,
		Status:      string(booking.Status),
	}, nil
}

func (s *BookingService) rollbackBooking(ctx context.Context, booking *domain.Booking, suite *domain.Suite, log *logrus.Entry) {
	if err := s.bookingRepo.DeleteBooking(ctx, booking.ID); err != nil {
		// The suite stays reserved until the reconciler finding is settled.
		log.WithError(err).WithField("consistency", "fatal").Error("rollback could not void booking without debit")
		return
	}
	s.releaseAfterFailedCommit(ctx, suite, log)
}

func (s *BookingService) releaseAfterFailedCommit(ctx context.Context, suite *domain.Suite, log *logrus.Entry) {
	if err := s.availability.Release(ctx, suite.ID, suite.LocationID); err != nil {
		log.WithError(err).WithField("consistency", "fatal").Error("rollback could not release suite")
	}
}

// CancelBooking cancels a confirmed booking, refunds the credits it used and frees
// the suite. The cancelled status is written first and is never undone; if a later
// step fails the caller gets a *domain.RefundPendingError.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (*CancelResult, error) {
	ctx = context.WithoutCancel(ctx)

	booking, err := s.GetBooking(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingConfirmed {
		return nil, domain.ErrBookingNotCancellable
	}

	now := s.now()
	if err := s.bookingRepo.UpdateStatus(ctx, booking.ID, domain.BookingConfirmed, domain.BookingCancelled, now); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil, domain.ErrBookingNotCancellable
		}
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	booking.Status = domain.BookingCancelled
	booking.CancelledAt = &now

	log := s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"user_id":    booking.UserID,
		"suite_id":   booking.SuiteID,
	})

	var pending *domain.RefundPendingError
	refunded := 0

	if booking.CreditsUsed > 0 {
		if err := s.refund(ctx, booking); err != nil {
			pending = &domain.RefundPendingError{BookingID: booking.ID, Step: domain.CancelStepRefund, Err: err}
		} else {
			refunded = booking.CreditsUsed
		}
	}

	if err := s.availability.Release(ctx, booking.SuiteID, booking.LocationID); err != nil && pending == nil {
		pending = &domain.RefundPendingError{BookingID: booking.ID, Step: domain.CancelStepRelease, Err: err}
	}

	if pending != nil {
		log.WithError(pending.Err).WithFields(logrus.Fields{
			"outcome": "refund_pending",
			"step":    pending.Step,
		}).Warn("booking cancelled with pending follow-up")
		event := ports.NewBookingEvent(ports.EventBookingRefundPending, booking, s.now())
		event.Refunded = refunded
		event.Detail = string(pending.Step)
		s.publish(ctx, event)
		return nil, pending
	}

	log.WithField("refunded", refunded).Info("booking cancelled")
	event := ports.NewBookingEvent(ports.EventBookingCancelled, booking, s.now())
	event.Refunded = refunded
	s.publish(ctx, event)

	return &CancelResult{
		BookingID:       booking.ID,
		RefundedCredits: refunded,
		Status:          string(booking.Status),
	}, nil
}

// refund returns exactly the credits the booking was charged, preferring the grant
// the debit came from.
func (s *BookingService) refund(ctx context.Context, booking *domain.Booking) error {
	var hint *uuid.UUID
	txns, err := s.ledger.BookingTransactions(ctx, booking.ID)
	if err != nil {
		return err
	}
	for i := range txns {
		if txns[i].Type == domain.TxBooking {
			hint = &txns[i].GrantID
		}
	}

	_, err = s.ledger.Refund(ctx, RefundRequest{
		UserID:    booking.UserID,
		Amount:    booking.CreditsUsed,
		BookingID: &booking.ID,
		GrantHint: hint,
	})
	return err
}

// GetBooking loads a booking owned by userID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return booking, nil
}

// CheckIn marks a confirmed booking as started.
func (s *BookingService) CheckIn(ctx context.Context, bookingID uuid.UUID) error {
	return s.advance(ctx, bookingID, domain.BookingConfirmed, domain.BookingCheckedIn)
}

// Complete closes a checked-in booking and frees its suite.
func (s *BookingService) Complete(ctx context.Context, bookingID uuid.UUID) error {
	ctx = context.WithoutCancel(ctx)

	if err := s.advance(ctx, bookingID, domain.BookingCheckedIn, domain.BookingCompleted); err != nil {
		return err
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("booking completed but could not be reloaded: %w", err)
	}
	if err := s.availability.Release(ctx, booking.SuiteID, booking.LocationID); err != nil {
		return fmt.Errorf("booking completed but suite release failed: %w", err)
	}
	return nil
}

func (s *BookingService) advance(ctx context.Context, bookingID uuid.UUID, from, to domain.BookingStatus) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status != from || !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, booking.Status, to)
	}
	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, from, to, s.now()); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"booking_id": bookingID, "status": to}).Info("booking status changed")
	return nil
}

// ListUpcoming returns the user's active bookings that have not ended yet.
func (s *BookingService) ListUpcoming(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	bookings, err := s.bookingRepo.ListUpcomingByUser(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) publish(ctx context.Context, event ports.BookingEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":      event.Type,
			"booking_id": event.BookingID,
		}).Warn("failed to publish booking event")
	}
}
