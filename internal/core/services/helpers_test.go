package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/srgjo27/suite_reservation/internal/adapter/repository/memory"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/ports"
	"github.com/srgjo27/suite_reservation/internal/core/services"
)

var baseTime = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: baseTime} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// switchableStore fails every write boundary while broken is set.
type switchableStore struct {
	ports.CreditStore
	mu     sync.Mutex
	broken bool
}

var errLedgerOffline = errors.New("ledger offline")

func (s *switchableStore) Break() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = true
}

func (s *switchableStore) WithUserTx(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, tx ports.CreditTx) error) error {
	s.mu.Lock()
	broken := s.broken
	s.mu.Unlock()
	if broken {
		return errLedgerOffline
	}
	return s.CreditStore.WithUserTx(ctx, userID, fn)
}

type fixture struct {
	clock     *testClock
	logger    *logrus.Logger
	hook      *test.Hook
	locations *memory.LocationRepository
	suites    *memory.SuiteRepository
	bookings  *memory.BookingRepository
	credits   *memory.CreditStore
	store     *switchableStore

	availability *services.AvailabilityService
	ledger       *services.LedgerService
	service      *services.BookingService

	location domain.Location
	suiteA   domain.Suite
	suiteB   domain.Suite
}

func newFixture(t *testing.T, publisher ports.EventPublisher) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	f := &fixture{
		clock:     newTestClock(),
		logger:    logger,
		hook:      hook,
		locations: memory.NewLocationRepository(),
		suites:    memory.NewSuiteRepository(),
		bookings:  memory.NewBookingRepository(),
		credits:   memory.NewCreditStore(),
	}
	f.store = &switchableStore{CreditStore: f.credits}

	f.location = domain.Location{ID: uuid.New(), Name: "Downtown", Timezone: "UTC", OpeningHour: 6, ClosingHour: 22}
	f.locations.Add(f.location)

	f.suiteA = newSuite(f.location.ID, "Suite A")
	f.suiteB = newSuite(f.location.ID, "Suite B")
	f.suites.Add(f.suiteA)
	f.suites.Add(f.suiteB)

	cfg := services.DefaultAvailabilityConfig()
	cfg.QueueJitter = nil

	f.availability = services.NewAvailabilityService(f.suites, f.locations, nil, cfg, f.clock.Now, logger)
	f.ledger = services.NewLedgerService(f.store, f.clock.Now, logger)
	f.service = services.NewBookingService(f.availability, f.ledger, f.bookings, publisher, f.clock.Now, logger)
	return f
}

func newSuite(locationID uuid.UUID, name string) domain.Suite {
	return domain.Suite{
		ID:              uuid.New(),
		LocationID:      locationID,
		Name:            name,
		IsAvailable:     true,
		IsOperational:   true,
		SampleInventory: []string{"lavender_mist", "cedar_wash", "citrus_foam", "mint_gel", "rose_balm", "sea_salt"},
		Capabilities:    domain.Capabilities{Bidet: true, HeatedSeat: true, MaxOccupancy: 1},
	}
}

func (f *fixture) grant(userID uuid.UUID, amount int, issuedAt time.Time, expiresAt *time.Time) domain.CreditGrant {
	g := domain.CreditGrant{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Status:    domain.GrantActive,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	f.credits.AddGrant(g)
	return g
}

func (f *fixture) draft(userID uuid.UUID, suite domain.Suite) domain.BookingDraft {
	return domain.BookingDraft{
		UserID:        userID,
		LocationID:    suite.LocationID,
		SuiteID:       suite.ID,
		Duration:      domain.Duration15,
		Date:          baseTime.AddDate(0, 0, 1),
		TimeSlot:      "12:00",
		PaymentMethod: domain.PayWithCredits,
		Preferences:   domain.DefaultPreferences(),
	}
}

func (f *fixture) balance(t *testing.T, userID uuid.UUID) int {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func (f *fixture) suiteAvailable(t *testing.T, suiteID uuid.UUID) bool {
	t.Helper()
	s, err := f.suites.GetByID(context.Background(), suiteID)
	if err != nil {
		t.Fatalf("suite: %v", err)
	}
	return s.IsAvailable
}

func (f *fixture) transactions(t *testing.T, userID uuid.UUID) []domain.CreditTransaction {
	t.Helper()
	txns, err := f.credits.ListTransactions(context.Background(), userID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	return txns
}

func (f *fixture) fatalEntries() []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Data["consistency"] == "fatal" {
			out = append(out, e)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
