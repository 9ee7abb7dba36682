package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Duration is a booking length in minutes. Only the enumerated values are valid.
type Duration int

const (
	Duration10 Duration = 10
	Duration15 Duration = 15
	Duration30 Duration = 30
	Duration60 Duration = 60
)

func (d Duration) Valid() bool {
	switch d {
	case Duration10, Duration15, Duration30, Duration60:
		return true
	}
	return false
}

func (d Duration) Minutes() time.Duration { return time.Duration(d) * time.Minute }

// SampleCap is the number of samples a booking of this length may include.
func (d Duration) SampleCap() int {
	if d == Duration10 {
		return 2
	}
	return 5
}

// CreditCost is the number of credits a booking of this length costs.
func (d Duration) CreditCost() int { return 1 }

type PaymentMethod string

const (
	PayWithCredits PaymentMethod = "credits"
	PayWithCash    PaymentMethod = "cash"
)

func (p PaymentMethod) Valid() bool { return p == PayWithCredits || p == PayWithCash }

type BidetTemperature string

const (
	BidetCold BidetTemperature = "cold"
	BidetWarm BidetTemperature = "warm"
	BidetHot  BidetTemperature = "hot"
)

type Music string

const (
	MusicNone      Music = "none"
	MusicAmbient   Music = "ambient"
	MusicClassical Music = "classical"
	MusicJazz      Music = "jazz"
	MusicNature    Music = "nature"
)

const (
	MinLighting    = 0
	MaxLighting    = 100
	MinTemperature = 68
	MaxTemperature = 76
)

// Preferences is the suite environment requested for a booking.
type Preferences struct {
	Lighting         int              `json:"lighting"`
	TemperatureF     int              `json:"temperature_f"`
	BidetTemperature BidetTemperature `json:"bidet_temperature"`
	HeatedSeat       bool             `json:"heated_seat"`
	Music            Music            `json:"music"`
	Samples          []string         `json:"samples"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Lighting:         50,
		TemperatureF:     72,
		BidetTemperature: BidetWarm,
		Music:            MusicNone,
	}
}

func (p Preferences) Validate() error {
	if p.Lighting < MinLighting || p.Lighting > MaxLighting {
		return fmt.Errorf("%w: lighting %d outside %d-%d", ErrInvalidPreference, p.Lighting, MinLighting, MaxLighting)
	}
	if p.TemperatureF < MinTemperature || p.TemperatureF > MaxTemperature {
		return fmt.Errorf("%w: temperature %d outside %d-%d", ErrInvalidPreference, p.TemperatureF, MinTemperature, MaxTemperature)
	}
	switch p.BidetTemperature {
	case BidetCold, BidetWarm, BidetHot:
	default:
		return fmt.Errorf("%w: bidet temperature %q", ErrInvalidPreference, p.BidetTemperature)
	}
	switch p.Music {
	case MusicNone, MusicAmbient, MusicClassical, MusicJazz, MusicNature:
	default:
		return fmt.Errorf("%w: music %q", ErrInvalidPreference, p.Music)
	}
	return nil
}

// Value stores preferences as a JSON document.
func (p Preferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Preferences) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = Preferences{}
		return nil
	}
	return errors.New("preferences: unsupported scan type")
}

// BookingDraft is what the wizard collects before confirm.
type BookingDraft struct {
	UserID        uuid.UUID     `json:"-"`
	LocationID    uuid.UUID     `json:"location_id"`
	SuiteID       uuid.UUID     `json:"suite_id"`
	Duration      Duration      `json:"duration_minutes"`
	Date          time.Time     `json:"date"`
	TimeSlot      string        `json:"time_slot"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Preferences   Preferences   `json:"preferences"`
}

// HasSchedule reports whether duration, date and slot are all chosen.
func (d *BookingDraft) HasSchedule() bool {
	return d.Duration != 0 && !d.Date.IsZero() && d.TimeSlot != ""
}

// StartTime combines the draft's date and "HH:MM" slot in the date's location.
func (d *BookingDraft) StartTime() (time.Time, error) {
	slot, err := time.Parse("15:04", d.TimeSlot)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time slot %q", ErrInvalidDraft, d.TimeSlot)
	}
	y, m, day := d.Date.Date()
	return time.Date(y, m, day, slot.Hour(), slot.Minute(), 0, 0, d.Date.Location()), nil
}

// CreditCost is what committing this draft will debit from the ledger.
func (d *BookingDraft) CreditCost() int {
	if d.PaymentMethod == PayWithCash {
		return 0
	}
	return d.Duration.CreditCost()
}

// Validate checks everything about the draft that does not need the stores.
func (d *BookingDraft) Validate() error {
	if d.UserID == uuid.Nil {
		return ErrUnauthenticated
	}
	if d.LocationID == uuid.Nil || d.SuiteID == uuid.Nil {
		return fmt.Errorf("%w: location and suite are required", ErrInvalidDraft)
	}
	if !d.HasSchedule() {
		return ErrIncompleteSelection
	}
	if !d.Duration.Valid() {
		return fmt.Errorf("%w: %d minutes", ErrInvalidDuration, d.Duration)
	}
	if !d.PaymentMethod.Valid() {
		return fmt.Errorf("%w: payment method %q", ErrInvalidDraft, d.PaymentMethod)
	}
	if _, err := d.StartTime(); err != nil {
		return err
	}
	if len(d.Preferences.Samples) > d.Duration.SampleCap() {
		return ErrSampleLimitExceeded
	}
	return d.Preferences.Validate()
}
