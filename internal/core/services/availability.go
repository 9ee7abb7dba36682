package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/ports"
)

// AvailabilityConfig holds slot generation settings.
type AvailabilityConfig struct {
	OpeningHour  int           // used when a location has no hours of its own
	ClosingHour  int           // exclusive
	SlotInterval time.Duration // spacing between offered start times
	// QueueJitter returns a value in [0, n). Nil disables jitter.
	QueueJitter func(n int) int
}

// DefaultAvailabilityConfig returns default configuration
func DefaultAvailabilityConfig() AvailabilityConfig {
	return AvailabilityConfig{
		OpeningHour:  6,
		ClosingHour:  22,
		SlotInterval: 15 * time.Minute,
		QueueJitter:  rand.IntN,
	}
}

type QueueBand string

const (
	BandOffPeak     QueueBand = "off_peak"
	BandMorning     QueueBand = "morning"
	BandLunchRush   QueueBand = "lunch_rush"
	BandEveningRush QueueBand = "evening_rush"
)

// Slot is a start time offered for booking, labeled with advisory queue guidance.
type Slot struct {
	Start         time.Time `json:"start"`
	TimeSlot      string    `json:"time_slot"`
	QueueEstimate int       `json:"queue_estimate"`
	Band          QueueBand `json:"band"`
}

type AvailabilityService struct {
	suiteRepo    ports.SuiteRepository
	locationRepo ports.LocationRepository
	cache        ports.SuiteCache
	config       AvailabilityConfig
	now          ports.Clock
	logger       *logrus.Logger
}

// NewAvailabilityService wires the service. cache may be nil.
func NewAvailabilityService(
	suiteRepo ports.SuiteRepository,
	locationRepo ports.LocationRepository,
	cache ports.SuiteCache,
	config AvailabilityConfig,
	now ports.Clock,
	logger *logrus.Logger,
) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{
		suiteRepo:    suiteRepo,
		locationRepo: locationRepo,
		cache:        cache,
		config:       config,
		now:          now,
		logger:       logger,
	}
}

// ListAvailableSuites returns a snapshot of suites that are free and operational.
// Nothing is held: a listed suite may be taken before the caller commits.
func (s *AvailabilityService) ListAvailableSuites(ctx context.Context, locationID uuid.UUID) ([]domain.Suite, error) {
	var generation int64
	fill := false
	if s.cache != nil {
		suites, gen, ok, err := s.cache.GetAvailable(ctx, locationID)
		switch {
		case err != nil:
			s.logger.WithError(err).WithField("location_id", locationID).Warn("suite cache read failed")
		case ok:
			return suites, nil
		default:
			generation, fill = gen, true
		}
	}

	suites, err := s.suiteRepo.ListAvailableByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list suites: %w", err)
	}

	bookable := suites[:0]
	for _, suite := range suites {
		if suite.IsBookable() {
			bookable = append(bookable, suite)
		}
	}

	if fill {
		if err := s.cache.SetAvailable(ctx, locationID, generation, bookable); err != nil {
			s.logger.WithError(err).WithField("location_id", locationID).Warn("suite cache write failed")
		}
	}

	return bookable, nil
}

func (s *AvailabilityService) GetSuite(ctx context.Context, suiteID uuid.UUID) (*domain.Suite, error) {
	return s.suiteRepo.GetByID(ctx, suiteID)
}

// Reserve flips the suite from available to taken. Exactly one concurrent caller wins;
// the rest get domain.ErrAlreadyReserved.
func (s *AvailabilityService) Reserve(ctx context.Context, suite *domain.Suite) error {
	if err := s.suiteRepo.Reserve(ctx, suite.ID); err != nil {
		return err
	}
	s.invalidate(ctx, suite.LocationID)
	return nil
}

// Release marks the suite available again. Releasing a free suite is a no-op.
func (s *AvailabilityService) Release(ctx context.Context, suiteID, locationID uuid.UUID) error {
	if err := s.suiteRepo.Release(ctx, suiteID); err != nil {
		return err
	}
	s.invalidate(ctx, locationID)
	return nil
}

func (s *AvailabilityService) invalidate(ctx context.Context, locationID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, locationID); err != nil {
		s.logger.WithError(err).WithField("location_id", locationID).Warn("suite cache invalidation failed")
	}
}

// EstimateQueue guesses how busy a slot will be from its time of day. The number is
// synthetic guidance for the UI and must never decide whether a booking may proceed.
func (s *AvailabilityService) EstimateQueue(slot time.Time) (int, QueueBand) {
	minute := slot.Hour()*60 + slot.Minute()

	var base, spread int
	band := BandOffPeak
	switch {
	case minute >= 11*60+30 && minute < 13*60+30:
		band, base, spread = BandLunchRush, 5, 4
	case minute >= 17*60 && minute < 19*60+30:
		band, base, spread = BandEveningRush, 4, 4
	case minute >= 7*60 && minute < 9*60:
		band, base, spread = BandMorning, 2, 3
	default:
		base, spread = 0, 2
	}

	if s.config.QueueJitter != nil {
		base += s.config.QueueJitter(spread)
	}
	return base, band
}

// Timezone returns the location's configured zone, UTC when it has none.
func (s *AvailabilityService) Timezone(ctx context.Context, locationID uuid.UUID) (*time.Location, error) {
	location, err := s.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if location.Timezone == "" {
		return time.UTC, nil
	}
	tz, err := time.LoadLocation(location.Timezone)
	if err != nil {
		return nil, fmt.Errorf("location %s has bad timezone %q: %w", locationID, location.Timezone, err)
	}
	return tz, nil
}

// ListSlots offers start times at the location for date, skipping ones already past.
func (s *AvailabilityService) ListSlots(ctx context.Context, locationID uuid.UUID, date time.Time) ([]Slot, error) {
	opening, closing := s.config.OpeningHour, s.config.ClosingHour
	loc := date.Location()

	location, err := s.locationRepo.GetByID(ctx, locationID)
	switch {
	case err == nil:
		if location.ClosingHour > location.OpeningHour {
			opening, closing = location.OpeningHour, location.ClosingHour
		}
		if location.Timezone != "" {
			if tz, tzErr := time.LoadLocation(location.Timezone); tzErr == nil {
				loc = tz
			}
		}
	case errors.Is(err, domain.ErrNotFound):
		return nil, err
	default:
		return nil, fmt.Errorf("failed to load location: %w", err)
	}

	interval := s.config.SlotInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	y, m, d := date.Date()
	start := time.Date(y, m, d, opening, 0, 0, 0, loc)
	end := time.Date(y, m, d, closing, 0, 0, 0, loc)
	now := s.now()

	var slots []Slot
	for t := start; t.Before(end); t = t.Add(interval) {
		if t.Before(now) {
			continue
		}
		queue, band := s.EstimateQueue(t)
		slots = append(slots, Slot{
			Start:         t,
			TimeSlot:      t.Format("15:04"),
			QueueEstimate: queue,
			Band:          band,
		})
	}

	return slots, nil
}
