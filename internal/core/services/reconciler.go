package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/ports"
)

// ReconcileReport lists states that correct operation never produces.
type ReconcileReport struct {
	BookingsWithoutDebit   []uuid.UUID `json:"bookings_without_debit"`
	OrphanedSuites         []uuid.UUID `json:"orphaned_suites"`
	CancelledWithoutRefund []uuid.UUID `json:"cancelled_without_refund"`
}

func (r *ReconcileReport) Clean() bool {
	return len(r.BookingsWithoutDebit) == 0 && len(r.OrphanedSuites) == 0 && len(r.CancelledWithoutRefund) == 0
}

// DefaultReconcileLookback bounds how far back settled bookings are rechecked.
const DefaultReconcileLookback = 48 * time.Hour

type findingKind string

const (
	findingNoDebit  findingKind = "no_debit"
	findingNoRefund findingKind = "no_refund"
	findingOrphan   findingKind = "orphaned_suite"
)

type finding struct {
	kind findingKind
	id   uuid.UUID
}

// Reconciler detects ledger and suite inconsistencies and reports them. It never repairs.
type Reconciler struct {
	bookingRepo ports.BookingRepository
	suiteRepo   ports.SuiteRepository
	creditStore ports.CreditStore
	publisher   ports.EventPublisher
	now         ports.Clock
	lookback    time.Duration
	logger      *logrus.Logger

	mu sync.Mutex
	// Commits and cancels pass through each of these states on the way to a
	// consistent one, so a finding is only reported once it has been seen on two
	// consecutive passes.
	suspects map[finding]struct{}
}

func NewReconciler(
	bookingRepo ports.BookingRepository,
	suiteRepo ports.SuiteRepository,
	creditStore ports.CreditStore,
	publisher ports.EventPublisher,
	clock ports.Clock,
	lookback time.Duration,
	logger *logrus.Logger,
) *Reconciler {
	if clock == nil {
		clock = time.Now
	}
	if lookback <= 0 {
		lookback = DefaultReconcileLookback
	}
	return &Reconciler{
		bookingRepo: bookingRepo,
		suiteRepo:   suiteRepo,
		creditStore: creditStore,
		publisher:   publisher,
		now:         clock,
		lookback:    lookback,
		logger:      logger,
		suspects:    map[finding]struct{}{},
	}
}

func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.WithFields(logrus.Fields{"interval": interval, "lookback": r.lookback}).Info("reconciler started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.Reconcile(ctx); err != nil {
				r.logger.WithError(err).Error("reconcile pass failed")
			}
		}
	}
}

func (r *Reconciler) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	active, err := r.bookingRepo.ListByStatus(ctx, domain.BookingConfirmed, domain.BookingCheckedIn)
	if err != nil {
		return nil, fmt.Errorf("failed to list active bookings: %w", err)
	}
	settled, err := r.bookingRepo.ListSettledSince(ctx, r.now().Add(-r.lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to list settled bookings: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := map[finding]struct{}{}
	flag := func(f finding) bool {
		next[f] = struct{}{}
		_, seen := r.suspects[f]
		return seen
	}

	occupied := map[uuid.UUID]struct{}{}
	for _, b := range active {
		occupied[b.SuiteID] = struct{}{}
	}

	bookings := slices.Concat(active, settled)
	for i := range bookings {
		b := &bookings[i]
		if b.CreditsUsed == 0 {
			continue
		}

		txns, err := r.creditStore.ListTransactionsByBooking(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions for booking %s: %w", b.ID, err)
		}
		if !hasTransaction(txns, domain.TxBooking) && flag(finding{findingNoDebit, b.ID}) {
			report.BookingsWithoutDebit = append(report.BookingsWithoutDebit, b.ID)
			r.alert(ctx, "booking has no matching debit", b)
		}
		if b.Status == domain.BookingCancelled && !hasTransaction(txns, domain.TxRefund) &&
			flag(finding{findingNoRefund, b.ID}) {
			report.CancelledWithoutRefund = append(report.CancelledWithoutRefund, b.ID)
			r.alert(ctx, "cancelled booking has no refund", b)
		}
	}

	suites, err := r.suiteRepo.ListUnavailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unavailable suites: %w", err)
	}

	for _, suite := range suites {
		if _, ok := occupied[suite.ID]; ok {
			continue
		}
		if flag(finding{findingOrphan, suite.ID}) {
			report.OrphanedSuites = append(report.OrphanedSuites, suite.ID)
			r.alert(ctx, "suite unavailable with no active booking", &domain.Booking{
				SuiteID:    suite.ID,
				LocationID: suite.LocationID,
			})
		}
	}
	r.suspects = next

	return report, nil
}

func (r *Reconciler) alert(ctx context.Context, msg string, b *domain.Booking) {
	fields := logrus.Fields{"consistency": "fatal", "suite_id": b.SuiteID}
	if b.ID != uuid.Nil {
		fields["booking_id"] = b.ID
	}
	r.logger.WithFields(fields).Error(msg)

	if r.publisher == nil {
		return
	}
	event := ports.NewBookingEvent(ports.EventConsistencyViolation, b, r.now())
	event.Detail = msg
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.WithError(err).WithFields(fields).Warn("failed to publish consistency alert")
	}
}

func hasTransaction(txns []domain.CreditTransaction, t domain.TransactionType) bool {
	for _, txn := range txns {
		if txn.Type == t {
			return true
		}
	}
	return false
}
