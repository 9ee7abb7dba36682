package services

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
)

type WizardStep int

const (
	StepTime WizardStep = iota
	StepEnvironment
	StepSamples
	StepReview
	StepConfirmed
)

func (s WizardStep) String() string {
	switch s {
	case StepTime:
		return "time"
	case StepEnvironment:
		return "environment"
	case StepSamples:
		return "samples"
	case StepReview:
		return "review"
	case StepConfirmed:
		return "confirmed"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Remedy is a way out offered when the time step is blocked on credit.
type Remedy string

const (
	RemedyPayWithCash Remedy = "pay_with_cash"
	RemedyTopUp       Remedy = "top_up_credits"
)

type BalanceReader interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
}

type BookingCommitter interface {
	CommitBooking(ctx context.Context, draft domain.BookingDraft) (*CommitResult, error)
}

// BookingWizard walks a user through time, environment, samples and review before
// handing the draft to the committer. Moves are one step at a time in either
// direction and going back never clears what was entered.
type BookingWizard struct {
	draft     domain.BookingDraft
	step      WizardStep
	balances  BalanceReader
	committer BookingCommitter

	remedies []Remedy
	result   *CommitResult
	lastErr  error
	pending  atomic.Bool
}

func NewBookingWizard(userID, locationID, suiteID uuid.UUID, balances BalanceReader, committer BookingCommitter) *BookingWizard {
	return &BookingWizard{
		draft: domain.BookingDraft{
			UserID:        userID,
			LocationID:    locationID,
			SuiteID:       suiteID,
			PaymentMethod: domain.PayWithCredits,
			Preferences:   domain.DefaultPreferences(),
		},
		balances:  balances,
		committer: committer,
	}
}

func (w *BookingWizard) Step() WizardStep { return w.step }

// Draft returns a copy of what has been collected so far.
func (w *BookingWizard) Draft() domain.BookingDraft {
	d := w.draft
	d.Preferences.Samples = slices.Clone(w.draft.Preferences.Samples)
	return d
}

// Remedies lists the ways past a credit block on the time step. Empty when not blocked.
func (w *BookingWizard) Remedies() []Remedy { return w.remedies }

// Pending is true while a confirm is in flight and its outcome is not yet known.
func (w *BookingWizard) Pending() bool { return w.pending.Load() }

// LastError is the error from the most recent failed confirm.
func (w *BookingWizard) LastError() error { return w.lastErr }

func (w *BookingWizard) Result() *CommitResult { return w.result }

func (w *BookingWizard) requireStep(step WizardStep) error {
	if w.step != step {
		return fmt.Errorf("%w: at %s, need %s", domain.ErrWizardStep, w.step, step)
	}
	return nil
}

// SetDuration picks the booking length. Shortening below the number of samples
// already chosen is refused; the user has to deselect first.
func (w *BookingWizard) SetDuration(d domain.Duration) error {
	if err := w.requireStep(StepTime); err != nil {
		return err
	}
	if !d.Valid() {
		return fmt.Errorf("%w: %d minutes", domain.ErrInvalidDuration, d)
	}
	if len(w.draft.Preferences.Samples) > d.SampleCap() {
		return fmt.Errorf("%w: deselect samples before shortening to %d minutes", domain.ErrSampleLimitExceeded, d)
	}
	w.draft.Duration = d
	return nil
}

func (w *BookingWizard) SetDate(date time.Time) error {
	if err := w.requireStep(StepTime); err != nil {
		return err
	}
	w.draft.Date = date
	return nil
}

func (w *BookingWizard) SetTimeSlot(slot string) error {
	if err := w.requireStep(StepTime); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", slot); err != nil {
		return fmt.Errorf("%w: time slot %q", domain.ErrInvalidDraft, slot)
	}
	w.draft.TimeSlot = slot
	return nil
}

func (w *BookingWizard) SetPaymentMethod(method domain.PaymentMethod) error {
	if err := w.requireStep(StepTime); err != nil {
		return err
	}
	if !method.Valid() {
		return fmt.Errorf("%w: payment method %q", domain.ErrInvalidDraft, method)
	}
	w.draft.PaymentMethod = method
	w.remedies = nil
	return nil
}

// SetEnvironment replaces the environment preferences. Samples are kept.
func (w *BookingWizard) SetEnvironment(prefs domain.Preferences) error {
	if err := w.requireStep(StepEnvironment); err != nil {
		return err
	}
	prefs.Samples = w.draft.Preferences.Samples
	if err := prefs.Validate(); err != nil {
		return err
	}
	w.draft.Preferences = prefs
	return nil
}

// SelectSample adds a sample, refusing once the duration's cap is reached.
func (w *BookingWizard) SelectSample(sample string) error {
	if err := w.requireStep(StepSamples); err != nil {
		return err
	}
	if slices.Contains(w.draft.Preferences.Samples, sample) {
		return nil
	}
	if len(w.draft.Preferences.Samples) >= w.draft.Duration.SampleCap() {
		return domain.ErrSampleLimitExceeded
	}
	w.draft.Preferences.Samples = append(w.draft.Preferences.Samples, sample)
	return nil
}

// DeselectSample always succeeds.
func (w *BookingWizard) DeselectSample(sample string) error {
	if err := w.requireStep(StepSamples); err != nil {
		return err
	}
	w.draft.Preferences.Samples = slices.DeleteFunc(w.draft.Preferences.Samples, func(s string) bool {
		return s == sample
	})
	return nil
}

// Next moves forward one step once the current step's gate passes. Review moves on
// only through Confirm.
func (w *BookingWizard) Next(ctx context.Context) error {
	switch w.step {
	case StepTime:
		if err := w.checkTime(ctx); err != nil {
			return err
		}
	case StepEnvironment:
	case StepSamples:
		if len(w.draft.Preferences.Samples) > w.draft.Duration.SampleCap() {
			return domain.ErrSampleLimitExceeded
		}
	default:
		return fmt.Errorf("%w: cannot advance from %s", domain.ErrWizardStep, w.step)
	}
	w.step++
	return nil
}

func (w *BookingWizard) checkTime(ctx context.Context) error {
	w.remedies = nil
	if !w.draft.HasSchedule() {
		return domain.ErrIncompleteSelection
	}
	cost := w.draft.CreditCost()
	if cost == 0 {
		return nil
	}
	balance, err := w.balances.Balance(ctx, w.draft.UserID)
	if err != nil {
		return fmt.Errorf("failed to check credit balance: %w", err)
	}
	if balance < cost {
		w.remedies = []Remedy{RemedyPayWithCash, RemedyTopUp}
		return fmt.Errorf("%w: need %d, have %d", domain.ErrInsufficientCredit, cost, balance)
	}
	return nil
}

// Back returns to the previous step. Nothing entered is discarded.
func (w *BookingWizard) Back() error {
	if w.step == StepTime || w.step == StepConfirmed {
		return fmt.Errorf("%w: cannot go back from %s", domain.ErrWizardStep, w.step)
	}
	w.step--
	return nil
}

// Confirm commits the draft. On failure the wizard stays on review with the error kept.
func (w *BookingWizard) Confirm(ctx context.Context) (*CommitResult, error) {
	if err := w.requireStep(StepReview); err != nil {
		return nil, err
	}
	if !w.pending.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: confirm already in progress", domain.ErrWizardStep)
	}
	defer w.pending.Store(false)

	result, err := w.committer.CommitBooking(ctx, w.Draft())
	if err != nil {
		w.lastErr = err
		return nil, err
	}

	w.lastErr = nil
	w.result = result
	w.step = StepConfirmed
	return result, nil
}
