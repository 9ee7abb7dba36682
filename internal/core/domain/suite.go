package domain

import (
	"slices"

	"github.com/google/uuid"
)

type Location struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Timezone    string    `db:"timezone" json:"timezone"`
	OpeningHour int       `db:"opening_hour" json:"opening_hour"`
	ClosingHour int       `db:"closing_hour" json:"closing_hour"`
}

type Capabilities struct {
	Shower       bool `db:"has_shower" json:"shower"`
	Bidet        bool `db:"has_bidet" json:"bidet"`
	HeatedSeat   bool `db:"has_heated_seat" json:"heated_seat"`
	Vanity       bool `db:"has_vanity" json:"vanity"`
	MaxOccupancy int  `db:"max_occupancy" json:"max_occupancy"`
}

type Suite struct {
	ID              uuid.UUID `db:"id" json:"id"`
	LocationID      uuid.UUID `db:"location_id" json:"location_id"`
	Name            string    `db:"name" json:"name"`
	IsAvailable     bool      `db:"is_available" json:"is_available"`
	IsOperational   bool      `db:"is_operational" json:"is_operational"`
	SampleInventory []string  `db:"-" json:"sample_inventory"`
	Version         int       `db:"version" json:"-"`

	Capabilities `json:"capabilities"`
}

// IsBookable is the listing filter: free and in service.
func (s *Suite) IsBookable() bool {
	return s.IsAvailable && s.IsOperational
}

// Stocks reports whether sample is part of the suite's inventory. An empty inventory stocks nothing.
func (s *Suite) Stocks(sample string) bool {
	return slices.Contains(s.SampleInventory, sample)
}
