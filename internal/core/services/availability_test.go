package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/srgjo27/suite_reservation/internal/adapter/repository/memory"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/ports/mocks"
	"github.com/srgjo27/suite_reservation/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListAvailableSuites_FiltersTakenAndBroken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	broken := newSuite(f.location.ID, "Suite C")
	broken.IsOperational = false
	f.suites.Add(broken)
	f.suites.Add(newSuite(uuid.New(), "Elsewhere"))

	require.NoError(t, f.availability.Reserve(ctx, &f.suiteB))

	suites, err := f.availability.ListAvailableSuites(ctx, f.location.ID)
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, f.suiteA.ID, suites[0].ID)
}

func TestListAvailableSuites_ServesFromCache(t *testing.T) {
	logger, _ := test.NewNullLogger()
	suiteRepo := mocks.NewSuiteRepository(t)
	cache := mocks.NewSuiteCache(t)
	svc := services.NewAvailabilityService(suiteRepo, nil, cache, services.DefaultAvailabilityConfig(), nil, logger)

	ctx := context.Background()
	locationID := uuid.New()
	cached := []domain.Suite{newSuite(locationID, "Suite A")}

	cache.On("GetAvailable", ctx, locationID).Return(cached, int64(1), true, nil)

	suites, err := svc.ListAvailableSuites(ctx, locationID)
	require.NoError(t, err)
	assert.Equal(t, cached, suites)
}

func TestListAvailableSuites_FillsCacheOnMiss(t *testing.T) {
	logger, _ := test.NewNullLogger()
	suiteRepo := mocks.NewSuiteRepository(t)
	cache := mocks.NewSuiteCache(t)
	svc := services.NewAvailabilityService(suiteRepo, nil, cache, services.DefaultAvailabilityConfig(), nil, logger)

	ctx := context.Background()
	locationID := uuid.New()
	free := newSuite(locationID, "Suite A")
	broken := newSuite(locationID, "Suite B")
	broken.IsOperational = false

	cache.On("GetAvailable", ctx, locationID).Return(nil, int64(3), false, nil)
	suiteRepo.On("ListAvailableByLocation", ctx, locationID).Return([]domain.Suite{free, broken}, nil)
	cache.On("SetAvailable", ctx, locationID, int64(3), []domain.Suite{free}).Return(nil)

	suites, err := svc.ListAvailableSuites(ctx, locationID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Suite{free}, suites)
}

func TestListAvailableSuites_CacheReadFailureSkipsFill(t *testing.T) {
	logger, hook := test.NewNullLogger()
	suiteRepo := mocks.NewSuiteRepository(t)
	cache := mocks.NewSuiteCache(t)
	svc := services.NewAvailabilityService(suiteRepo, nil, cache, services.DefaultAvailabilityConfig(), nil, logger)

	ctx := context.Background()
	locationID := uuid.New()
	free := newSuite(locationID, "Suite A")

	cache.On("GetAvailable", ctx, locationID).Return(nil, int64(0), false, errors.New("redis: connection refused"))
	suiteRepo.On("ListAvailableByLocation", ctx, locationID).Return([]domain.Suite{free}, nil)

	suites, err := svc.ListAvailableSuites(ctx, locationID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Suite{free}, suites)
	assert.NotEmpty(t, hook.AllEntries())
	cache.AssertNotCalled(t, "SetAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReserveAndRelease_InvalidateCache(t *testing.T) {
	logger, _ := test.NewNullLogger()
	suiteRepo := mocks.NewSuiteRepository(t)
	cache := mocks.NewSuiteCache(t)
	svc := services.NewAvailabilityService(suiteRepo, nil, cache, services.DefaultAvailabilityConfig(), nil, logger)

	ctx := context.Background()
	suite := newSuite(uuid.New(), "Suite A")

	suiteRepo.On("Reserve", ctx, suite.ID).Return(nil).Once()
	suiteRepo.On("Reserve", ctx, suite.ID).Return(domain.ErrAlreadyReserved).Once()
	suiteRepo.On("Release", ctx, suite.ID).Return(nil).Once()
	cache.On("Invalidate", ctx, suite.LocationID).Return(nil).Twice()

	require.NoError(t, svc.Reserve(ctx, &suite))
	assert.ErrorIs(t, svc.Reserve(ctx, &suite), domain.ErrAlreadyReserved)
	require.NoError(t, svc.Release(ctx, suite.ID, suite.LocationID))
}

func TestRelease_IsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.availability.Reserve(ctx, &f.suiteA))
	require.NoError(t, f.availability.Release(ctx, f.suiteA.ID, f.location.ID))
	require.NoError(t, f.availability.Release(ctx, f.suiteA.ID, f.location.ID))
	assert.True(t, f.suiteAvailable(t, f.suiteA.ID))

	require.NoError(t, f.availability.Reserve(ctx, &f.suiteA))
	assert.ErrorIs(t, f.availability.Reserve(ctx, &f.suiteA), domain.ErrAlreadyReserved)

	assert.ErrorIs(t, f.availability.Release(ctx, uuid.New(), f.location.ID), domain.ErrNotFound)
}

func TestEstimateQueue_Bands(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := services.DefaultAvailabilityConfig()
	cfg.QueueJitter = nil
	svc := services.NewAvailabilityService(nil, nil, nil, cfg, nil, logger)

	at := func(h, m int) time.Time { return time.Date(2026, 3, 3, h, m, 0, 0, time.UTC) }

	tests := []struct {
		at    time.Time
		band  services.QueueBand
		queue int
	}{
		{at(6, 0), services.BandOffPeak, 0},
		{at(7, 0), services.BandMorning, 2},
		{at(8, 59), services.BandMorning, 2},
		{at(11, 29), services.BandOffPeak, 0},
		{at(11, 30), services.BandLunchRush, 5},
		{at(13, 29), services.BandLunchRush, 5},
		{at(13, 30), services.BandOffPeak, 0},
		{at(17, 0), services.BandEveningRush, 4},
		{at(19, 30), services.BandOffPeak, 0},
	}

	for _, tt := range tests {
		queue, band := svc.EstimateQueue(tt.at)
		assert.Equal(t, tt.band, band, tt.at.Format("15:04"))
		assert.Equal(t, tt.queue, queue, tt.at.Format("15:04"))
	}
}

func TestEstimateQueue_JitterStaysInSpread(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := services.DefaultAvailabilityConfig()
	cfg.QueueJitter = func(n int) int { return n - 1 }
	svc := services.NewAvailabilityService(nil, nil, nil, cfg, nil, logger)

	queue, band := svc.EstimateQueue(time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, services.BandLunchRush, band)
	assert.Equal(t, 8, queue)

	queue, _ = svc.EstimateQueue(time.Date(2026, 3, 3, 22, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, queue)
}

func TestListSlots_UsesLocationHoursAndSkipsPast(t *testing.T) {
	logger, _ := test.NewNullLogger()
	locations := memory.NewLocationRepository()
	location := domain.Location{ID: uuid.New(), Name: "Harbor", Timezone: "UTC", OpeningHour: 8, ClosingHour: 10}
	locations.Add(location)

	cfg := services.DefaultAvailabilityConfig()
	cfg.SlotInterval = 30 * time.Minute
	cfg.QueueJitter = nil
	now := func() time.Time { return time.Date(2026, 3, 2, 8, 45, 0, 0, time.UTC) }
	svc := services.NewAvailabilityService(memory.NewSuiteRepository(), locations, nil, cfg, now, logger)

	ctx := context.Background()

	today, err := svc.ListSlots(ctx, location.ID, now())
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, "09:00", today[0].TimeSlot)
	assert.Equal(t, "09:30", today[1].TimeSlot)
	assert.Equal(t, services.BandOffPeak, today[0].Band)

	tomorrow, err := svc.ListSlots(ctx, location.ID, now().AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, tomorrow, 4)
	assert.Equal(t, "08:00", tomorrow[0].TimeSlot)
	assert.Equal(t, services.BandMorning, tomorrow[0].Band)
	assert.Equal(t, 2, tomorrow[0].QueueEstimate)

	_, err = svc.ListSlots(ctx, uuid.New(), now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListSlots_LocationLookupFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	locations := mocks.NewLocationRepository(t)
	svc := services.NewAvailabilityService(nil, locations, nil, services.DefaultAvailabilityConfig(), nil, logger)

	ctx := context.Background()
	locationID := uuid.New()
	locations.On("GetByID", mock.Anything, locationID).Return(nil, errors.New("pq: too many connections"))

	_, err := svc.ListSlots(ctx, locationID, time.Now())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestTimezone(t *testing.T) {
	logger, _ := test.NewNullLogger()
	locations := memory.NewLocationRepository()
	bare := domain.Location{ID: uuid.New(), Name: "Bare"}
	bad := domain.Location{ID: uuid.New(), Name: "Bad", Timezone: "Mars/Olympus"}
	locations.Add(bare)
	locations.Add(bad)
	svc := services.NewAvailabilityService(nil, locations, nil, services.DefaultAvailabilityConfig(), nil, logger)

	ctx := context.Background()

	tz, err := svc.Timezone(ctx, bare.ID)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, tz)

	_, err = svc.Timezone(ctx, bad.ID)
	assert.Error(t, err)
}
