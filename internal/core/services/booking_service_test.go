package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/ports"
	"github.com/srgjo27/suite_reservation/internal/core/ports/mocks"
	"github.com/srgjo27/suite_reservation/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCommitBooking_SpendThenCancelRestoresCredit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	f.grant(userID, 1, baseTime.Add(-time.Hour), nil)

	res, err := f.service.CommitBooking(ctx, f.draft(userID, f.suiteA))
	require.NoError(t, err)
	assert.Equal(t, string(domain.BookingConfirmed), res.Status)
	assert.Equal(t, 1, res.CreditsUsed)
	assert.Equal(t, res.StartTime.Add(15*time.Minute), res.EndTime)
	assert.Equal(t, 0, f.balance(t, userID))
	assert.False(t, f.suiteAvailable(t, f.suiteA.ID))

	_, err = f.service.CommitBooking(ctx, f.draft(userID, f.suiteB))
	assert.ErrorIs(t, err, domain.ErrInsufficientCredit)
	assert.True(t, f.suiteAvailable(t, f.suiteB.ID))

	all, err := f.bookings.ListByStatus(ctx, domain.BookingConfirmed, domain.BookingCancelled)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	cancel, err := f.service.CancelBooking(ctx, res.BookingID, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, cancel.RefundedCredits)
	assert.Equal(t, string(domain.BookingCancelled), cancel.Status)
	assert.Equal(t, 1, f.balance(t, userID))
	assert.True(t, f.suiteAvailable(t, f.suiteA.ID))

	booking, err := f.bookings.GetByID(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, booking.Status)
	assert.NotNil(t, booking.CancelledAt)

	txns, err := f.ledger.BookingTransactions(ctx, res.BookingID)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, 0, txns[0].Amount+txns[1].Amount)
}

func TestCommitBooking_ConcurrentCommitsOnOneSuite(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const contenders = 16
	users := make([]uuid.UUID, contenders)
	for i := range users {
		users[i] = uuid.New()
		f.grant(users[i], 1, baseTime.Add(-time.Hour), nil)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		winner uuid.UUID
		wins   int
	)
	for _, userID := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CommitBooking(ctx, f.draft(userID, f.suiteA))
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrSuiteUnavailable)
				return
			}
			mu.Lock()
			wins++
			winner = userID
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	for _, userID := range users {
		if userID == winner {
			assert.Equal(t, 0, f.balance(t, userID))
			continue
		}
		assert.Equal(t, 1, f.balance(t, userID))
		assert.Empty(t, f.transactions(t, userID))
	}

	active, err := f.bookings.ListByStatus(ctx, domain.BookingConfirmed)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCommitBooking_RollsBackWhenDebitFails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.service.CommitBooking(ctx, f.draft(userID, f.suiteA))
	assert.ErrorIs(t, err, domain.ErrInsufficientCredit)

	all, err := f.bookings.ListByStatus(ctx, domain.BookingConfirmed)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.True(t, f.suiteAvailable(t, f.suiteA.ID))
	assert.Empty(t, f.fatalEntries())
}

func TestCommitBooking_LedgerOutageRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	f.grant(userID, 1, baseTime.Add(-time.Hour), nil)
	f.store.Break()

	_, err := f.service.CommitBooking(ctx, f.draft(userID, f.suiteA))
	assert.ErrorIs(t, err, errLedgerOffline)
	assert.NotErrorIs(t, err, domain.ErrInsufficientCredit)

	all, err := f.bookings.ListByStatus(ctx, domain.BookingConfirmed)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.True(t, f.suiteAvailable(t, f.suiteA.ID))
}

func TestCommitBooking_ReleasesSuiteWhenInsertFails(t *testing.T) {
	f := newFixture(t, nil)
	bookingRepo := mocks.NewBookingRepository(t)
	svc := services.NewBookingService(f.availability, f.ledger, bookingRepo, nil, f.clock.Now, f.logger)

	userID := uuid.New()
	f.grant(userID, 1, baseTime.Add(-time.Hour), nil)

	bookingRepo.On("CreateBooking", mock.Anything, mock.AnythingOfType("*domain.Booking")).Return(errors.New("connection reset"))

	_, err := svc.CommitBooking(context.Background(), f.draft(userID, f.suiteA))
	assert.Error(t, err)
	assert.True(t, f.suiteAvailable(t, f.suiteA.ID))
	assert.Equal(t, 1, f.balance(t, userID))
}

func TestCommitBooking_KeepsSuiteReservedWhenVoidFails(t *testing.T) {
	f := newFixture(t, nil)
	bookingRepo := mocks.NewBookingRepository(t)
	svc := services.NewBookingService(f.availability, f.ledger, bookingRepo, nil, f.clock.Now, f.logger)

	userID := uuid.New()

	bookingRepo.On("CreateBooking", mock.Anything, mock.AnythingOfType("*domain.Booking")).Return(nil)
	bookingRepo.On("DeleteBooking", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(errors.New("connection reset"))

	_, err := svc.CommitBooking(context.Background(), f.draft(userID, f.suiteA))
	assert.ErrorIs(t, err, domain.ErrInsufficientCredit)
	assert.False(t, f.suiteAvailable(t, f.suiteA.ID))
	assert.Len(t, f.fatalEntries(), 1)
}

func TestCommitBooking_RejectsUnbookableSuite(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	f.grant(userID, 5, baseTime.Add(-time.Hour), nil)

	broken := newSuite(f.location.ID, "Suite C")
	broken.IsOperational = false
	f.suites.Add(broken)

	elsewhere := newSuite(uuid.New(), "Uptown A")
	f.suites.Add(elsewhere)

	tests := []struct {
		name  string
		draft domain.BookingDraft
		want  error
	}{
		{"out of service", f.draft(userID, broken), domain.ErrSuiteUnavailable},
		{"unknown suite", func() domain.BookingDraft {
			d := f.draft(userID, f.suiteA)
			d.SuiteID = uuid.New()
			return d
		}(), domain.ErrSuiteUnavailable},
		{"wrong location", func() domain.BookingDraft {
			d := f.draft(userID, elsewhere)
			d.LocationID = f.location.ID
			return d
		}(), domain.ErrSuiteUnavailable},
		{"sample not stocked", func() domain.BookingDraft {
			d := f.draft(userID, f.suiteA)
			d.Preferences.Samples = []string{"oud_smoke"}
			return d
		}(), domain.ErrSampleUnavailable},
		{"too many samples", func() domain.BookingDraft {
			d := f.draft(userID, f.suiteA)
			d.Duration = domain.Duration10
			d.Preferences.Samples = []string{"lavender_mist", "cedar_wash", "mint_gel"}
			return d
		}(), domain.ErrSampleLimitExceeded},
		{"missing slot", func() domain.BookingDraft {
			d := f.draft(userID, f.suiteA)
			d.TimeSlot = ""
			return d
		}(), domain.ErrIncompleteSelection},
		{"anonymous", f.draft(uuid.Nil, f.suiteA), domain.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CommitBooking(ctx, tt.draft)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 5, f.balance(t, userID))
	assert.True(t, f.suiteAvailable(t, f.suiteA.ID))
	assert.True(t, f.suiteAvailable(t, broken.ID))
}

func TestCommitBooking_CashSkipsLedger(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()

	draft := f.draft(userID, f.suiteA)
	draft.PaymentMethod = domain.PayWithCash
	draft.Preferences.Samples = []string{"mint_gel", "sea_salt"}

	res, err := f.service.CommitBooking(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, 0, res.CreditsUsed)
	assert.Empty(t, f.transactions(t, userID))

	cancel, err := f.service.CancelBooking(ctx, res.BookingID, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, cancel.RefundedCredits)
	assert.Empty(t, f.transactions(t, userID))
	assert.True(t, f.suiteAvailable(t, f.suiteA.ID))
}

func TestCommitBooking_PublishesConfirmedEvent(t *testing.T) {
	publisher := mocks.NewEventPublisher(t)
	f := newFixture(t, publisher)
	userID := uuid.New()
	f.grant(userID, 1, baseTime.Add(-time.Hour), nil)

	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e ports.BookingEvent) bool {
		return e.Type == ports.EventBookingConfirmed && e.UserID == userID && e.SuiteID == f.suiteA.ID && e.CreditsUsed == 1
	})).Return(errors.New("broker down")).Once()

	_, err := f.service.CommitBooking(context.Background(), f.draft(userID, f.suiteA))
	assert.NoError(t, err)
}

func TestCancelBooking_Ownership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	f.grant(userID, 1, baseTime.Add(-time.Hour), nil)

	res, err := f.service.CommitBooking(ctx, f.draft(userID, f.suiteA))
	require.NoError(t, err)

	_, err = f.service.CancelBooking(ctx, res.BookingID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.service.CancelBooking(ctx, uuid.New(), userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 0, f.balance(t, userID))
	assert.False(t, f.suiteAvailable(t, f.suiteA.ID))
}

func TestCancelBooking_OnlyOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	f.grant(userID, 1, baseTime.Add(-time.Hour), nil)

	res, err := f.service.CommitBooking(ctx, f.draft(userID, f.suiteA))
	require.NoError(t, err)

	_, err = f.service.CancelBooking(ctx, res.BookingID, userID)
	require.NoError(t, err)

	_, err = f.service.CancelBooking(ctx, res.BookingID, userID)
	assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)
	assert.Equal(t, 1, f.balance(t, userID))
	assert.Len(t, f.transactions(t, userID), 2)
}

func TestCancelBooking_RefundPendingKeepsCancellation(t *testing.T) {
	publisher := mocks.NewEventPublisher(t)
	f := newFixture(t, publisher)
	ctx := context.Background()
	userID := uuid.New()
	f.grant(userID, 1, baseTime.Add(-time.Hour), nil)

	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e ports.BookingEvent) bool {
		return e.Type == ports.EventBookingConfirmed
	})).Return(nil).Once()
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e ports.BookingEvent) bool {
		return e.Type == ports.EventBookingRefundPending && e.Detail == string(domain.CancelStepRefund) && e.Refunded == 0
	})).Return(nil).Once()

	res, err := f.service.CommitBooking(ctx, f.draft(userID, f.suiteA))
	require.NoError(t, err)

	f.store.Break()

	_, err = f.service.CancelBooking(ctx, res.BookingID, userID)
	var pending *domain.RefundPendingError
	require.ErrorAs(t, err, &pending)
	assert.Equal(t, res.BookingID, pending.BookingID)
	assert.Equal(t, domain.CancelStepRefund, pending.Step)
	assert.ErrorIs(t, err, errLedgerOffline)

	booking, err := f.bookings.GetByID(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, booking.Status)
	assert.True(t, f.suiteAvailable(t, f.suiteA.ID))
}

func TestCancelBooking_ReleaseFailureIsReported(t *testing.T) {
	logger := newFixture(t, nil).logger
	suiteRepo := mocks.NewSuiteRepository(t)
	bookingRepo := mocks.NewBookingRepository(t)

	clock := newTestClock()
	availability := services.NewAvailabilityService(suiteRepo, nil, nil, services.DefaultAvailabilityConfig(), clock.Now, logger)
	svc := services.NewBookingService(availability, nil, bookingRepo, nil, clock.Now, logger)

	userID := uuid.New()
	booking := &domain.Booking{
		ID:            uuid.New(),
		UserID:        userID,
		SuiteID:       uuid.New(),
		LocationID:    uuid.New(),
		Status:        domain.BookingConfirmed,
		PaymentMethod: domain.PayWithCash,
	}

	bookingRepo.On("GetByID", mock.Anything, booking.ID).Return(booking, nil)
	bookingRepo.On("UpdateStatus", mock.Anything, booking.ID, domain.BookingConfirmed, domain.BookingCancelled, baseTime).Return(nil)
	suiteRepo.On("Release", mock.Anything, booking.SuiteID).Return(errors.New("deadlock detected"))

	_, err := svc.CancelBooking(context.Background(), booking.ID, userID)
	var pending *domain.RefundPendingError
	require.ErrorAs(t, err, &pending)
	assert.Equal(t, domain.CancelStepRelease, pending.Step)
}

func TestCancelBooking_LostRaceIsNotCancellable(t *testing.T) {
	logger := newFixture(t, nil).logger
	bookingRepo := mocks.NewBookingRepository(t)
	clock := newTestClock()
	svc := services.NewBookingService(nil, nil, bookingRepo, nil, clock.Now, logger)

	userID := uuid.New()
	booking := &domain.Booking{ID: uuid.New(), UserID: userID, Status: domain.BookingConfirmed}

	bookingRepo.On("GetByID", mock.Anything, booking.ID).Return(booking, nil)
	bookingRepo.On("UpdateStatus", mock.Anything, booking.ID, domain.BookingConfirmed, domain.BookingCancelled, mock.Anything).
		Return(domain.ErrInvalidTransition)

	_, err := svc.CancelBooking(context.Background(), booking.ID, userID)
	assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)
}

func TestCheckInAndComplete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	f.grant(userID, 1, baseTime.Add(-time.Hour), nil)

	res, err := f.service.CommitBooking(ctx, f.draft(userID, f.suiteA))
	require.NoError(t, err)

	assert.ErrorIs(t, f.service.Complete(ctx, res.BookingID), domain.ErrInvalidTransition)

	require.NoError(t, f.service.CheckIn(ctx, res.BookingID))

	_, err = f.service.CancelBooking(ctx, res.BookingID, userID)
	assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)
	assert.False(t, f.suiteAvailable(t, f.suiteA.ID))

	require.NoError(t, f.service.Complete(ctx, res.BookingID))
	assert.True(t, f.suiteAvailable(t, f.suiteA.ID))
	assert.Equal(t, 0, f.balance(t, userID))

	assert.ErrorIs(t, f.service.CheckIn(ctx, res.BookingID), domain.ErrInvalidTransition)
}

func TestListUpcoming(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	f.grant(userID, 2, baseTime.Add(-time.Hour), nil)

	late := f.draft(userID, f.suiteA)
	late.TimeSlot = "18:00"
	early := f.draft(userID, f.suiteB)
	early.TimeSlot = "09:30"

	lateRes, err := f.service.CommitBooking(ctx, late)
	require.NoError(t, err)
	earlyRes, err := f.service.CommitBooking(ctx, early)
	require.NoError(t, err)

	_, err = f.service.CancelBooking(ctx, lateRes.BookingID, userID)
	require.NoError(t, err)

	upcoming, err := f.service.ListUpcoming(ctx, userID)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, earlyRes.BookingID, upcoming[0].ID)

	none, err := f.service.ListUpcoming(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
