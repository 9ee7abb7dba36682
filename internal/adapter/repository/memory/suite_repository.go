// Package memory keeps every repository port in process memory. It backs the
// dev server when no database is configured and the service-level tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
)

type LocationRepository struct {
	mu        sync.RWMutex
	locations map[uuid.UUID]domain.Location
}

func NewLocationRepository() *LocationRepository {
	return &LocationRepository{locations: map[uuid.UUID]domain.Location{}}
}

func (r *LocationRepository) Add(location domain.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[location.ID] = location
}

func (r *LocationRepository) GetByID(_ context.Context, locationID uuid.UUID) (*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	location, ok := r.locations[locationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &location, nil
}

type SuiteRepository struct {
	mu     sync.Mutex
	suites map[uuid.UUID]domain.Suite
}

func NewSuiteRepository() *SuiteRepository {
	return &SuiteRepository{suites: map[uuid.UUID]domain.Suite{}}
}

func (r *SuiteRepository) Add(suite domain.Suite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suites[suite.ID] = cloneSuite(suite)
}

func cloneSuite(s domain.Suite) domain.Suite {
	s.SampleInventory = slices.Clone(s.SampleInventory)
	return s
}

func (r *SuiteRepository) GetByID(_ context.Context, suiteID uuid.UUID) (*domain.Suite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	suite, ok := r.suites[suiteID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	suite = cloneSuite(suite)
	return &suite, nil
}

func (r *SuiteRepository) ListAvailableByLocation(_ context.Context, locationID uuid.UUID) ([]domain.Suite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var suites []domain.Suite
	for _, s := range r.suites {
		if s.LocationID == locationID && s.IsAvailable && s.IsOperational {
			suites = append(suites, cloneSuite(s))
		}
	}
	slices.SortFunc(suites, func(a, b domain.Suite) int { return cmp.Compare(a.Name, b.Name) })
	return suites, nil
}

func (r *SuiteRepository) ListUnavailable(_ context.Context) ([]domain.Suite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var suites []domain.Suite
	for _, s := range r.suites {
		if !s.IsAvailable {
			suites = append(suites, cloneSuite(s))
		}
	}
	return suites, nil
}

// Reserve is a compare-and-swap on IsAvailable under the repository lock.
func (r *SuiteRepository) Reserve(_ context.Context, suiteID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	suite, ok := r.suites[suiteID]
	if !ok {
		return domain.ErrNotFound
	}
	if !suite.IsAvailable {
		return domain.ErrAlreadyReserved
	}
	suite.IsAvailable = false
	suite.Version++
	r.suites[suiteID] = suite
	return nil
}

func (r *SuiteRepository) Release(_ context.Context, suiteID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	suite, ok := r.suites[suiteID]
	if !ok {
		return domain.ErrNotFound
	}
	if suite.IsAvailable {
		return nil
	}
	suite.IsAvailable = true
	suite.Version++
	r.suites[suiteID] = suite
	return nil
}
