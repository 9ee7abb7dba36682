package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/services"
	"github.com/srgjo27/suite_reservation/internal/platform/identity"
)

type CreateBookingRequest struct {
	LocationID    string               `json:"location_id"`
	SuiteID       string               `json:"suite_id"`
	Duration      int                  `json:"duration_minutes"`
	Date          string               `json:"date"`
	TimeSlot      string               `json:"time_slot"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	// Preferences fields left out of the body keep their defaults.
	Preferences   domain.Preferences   `json:"preferences"`
}

type BookingHandler struct {
	bookings     *services.BookingService
	ledger       *services.LedgerService
	availability *services.AvailabilityService
	logger       *logrus.Logger
}

func NewBookingHandler(bookings *services.BookingService, ledger *services.LedgerService, availability *services.AvailabilityService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings:     bookings,
		ledger:       ledger,
		availability: availability,
		logger:       logger,
	}
}

// Routes registers the authenticated API.
func (h *BookingHandler) Routes(r chi.Router) {
	r.Get("/credits/balance", h.GetBalance)
	r.Get("/credits/history", h.GetHistory)
	r.Get("/locations/{locationID}/suites", h.ListSuites)
	r.Get("/locations/{locationID}/slots", h.ListSlots)
	r.Post("/bookings", h.CreateBooking)
	r.Get("/bookings/upcoming", h.ListUpcoming)
	r.Post("/bookings/{bookingID}/cancel", h.CancelBooking)
	r.Post("/bookings/{bookingID}/check-in", h.CheckIn)
	r.Post("/bookings/{bookingID}/complete", h.Complete)
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.CurrentUserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated)
		return
	}

	req := CreateBookingRequest{Preferences: domain.DefaultPreferences()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid location id"})
		return
	}

	suiteID, err := uuid.Parse(req.SuiteID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid suite id"})
		return
	}

	tz, err := h.availability.Timezone(r.Context(), locationID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	draft := domain.BookingDraft{
		UserID:        userID,
		LocationID:    locationID,
		SuiteID:       suiteID,
		Duration:      domain.Duration(req.Duration),
		TimeSlot:      req.TimeSlot,
		PaymentMethod: req.PaymentMethod,
		Preferences:   req.Preferences,
	}
	if draft.PaymentMethod == "" {
		draft.PaymentMethod = domain.PayWithCredits
	}
	if req.Date != "" {
		date, err := time.ParseInLocation(time.DateOnly, req.Date, tz)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
		draft.Date = date
	}

	resp, err := h.bookings.CommitBooking(r.Context(), draft)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.CurrentUserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated)
		return
	}

	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booking id"})
		return
	}

	resp, err := h.bookings.CancelBooking(r.Context(), bookingID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.bookings.CheckIn)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.bookings.Complete)
}

func (h *BookingHandler) advance(w http.ResponseWriter, r *http.Request, step func(ctx context.Context, id uuid.UUID) error) {
	userID, ok := identity.CurrentUserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated)
		return
	}

	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booking id"})
		return
	}

	if _, err := h.bookings.GetBooking(r.Context(), bookingID, userID); err != nil {
		h.writeError(w, err)
		return
	}

	if err := step(r.Context(), bookingID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.CurrentUserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated)
		return
	}

	bookings, err := h.bookings.ListUpcoming(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *BookingHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.CurrentUserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated)
		return
	}

	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

func (h *BookingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.CurrentUserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated)
		return
	}

	txns, err := h.ledger.History(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if txns == nil {
		txns = []domain.CreditTransaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

func (h *BookingHandler) ListSuites(w http.ResponseWriter, r *http.Request) {
	locationID, err := uuid.Parse(chi.URLParam(r, "locationID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid location id"})
		return
	}

	suites, err := h.availability.ListAvailableSuites(r.Context(), locationID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if suites == nil {
		suites = []domain.Suite{}
	}
	writeJSON(w, http.StatusOK, suites)
}

func (h *BookingHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	locationID, err := uuid.Parse(chi.URLParam(r, "locationID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid location id"})
		return
	}

	tz, err := h.availability.Timezone(r.Context(), locationID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	date := time.Now().In(tz)
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err = time.ParseInLocation(time.DateOnly, raw, tz)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
	}

	slots, err := h.availability.ListSlots(r.Context(), locationID, date)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if slots == nil {
		slots = []services.Slot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	var pending *domain.RefundPendingError
	if errors.As(err, &pending) {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"booking_id": pending.BookingID,
			"status":     "refund_pending",
			"step":       pending.Step,
			"message":    "booking cancelled; refund is pending, please contact support if it does not appear",
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInsufficientCredit):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":    err.Error(),
			"remedies": []services.Remedy{services.RemedyPayWithCash, services.RemedyTopUp},
		})
	case errors.Is(err, domain.ErrSuiteUnavailable),
		errors.Is(err, domain.ErrBookingNotCancellable),
		errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrSampleLimitExceeded),
		errors.Is(err, domain.ErrIncompleteSelection),
		errors.Is(err, domain.ErrInvalidDraft),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvalidPreference),
		errors.Is(err, domain.ErrSampleUnavailable):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
	default:
		h.logger.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
