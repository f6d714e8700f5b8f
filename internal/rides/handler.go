package rides

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"rideconnect/internal/store"
	"rideconnect/pkg/jwt"
)

// Handler exposes ride and booking HTTP endpoints.
type Handler struct {
	store *store.Store
	log   *zap.Logger
}

// NewHandler wires a handler to the store.
func NewHandler(s *store.Store, log *zap.Logger) *Handler {
	return &Handler{store: s, log: log.With(zap.String("component", "rides"))}
}

// Routes returns the /api/rides routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.Get("/search", h.Search)
	r.Get("/all", h.All)
	r.With(jwt.RequireRole(string(store.RoleDriver))).Post("/post", h.Post)
	r.With(jwt.RequireRole(string(store.RoleDriver))).Get("/my-rides", h.MyRides)

	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireRole(string(store.RoleDriver), string(store.RoleAdmin)))
		r.Put("/{id}/cancel", h.Cancel)
		r.Put("/{id}/complete", h.Complete)
	})
	return r
}

// BookingRoutes returns the /api/bookings routes.
func (h *Handler) BookingRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireRole(string(store.RolePassenger)))

	r.Post("/book", h.Book)
	r.Get("/my-bookings", h.MyBookings)
	r.Put("/{rideId}/cancel", h.CancelBooking)
	return r
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	var req PostRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	driver, err := h.actor(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	data, err := req.Validate(driver)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ride, err := h.store.CreateRide(r.Context(), data)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.RideFilter{
		From: q.Get("source"),
		To:   q.Get("destination"),
		Date: q.Get("date"),
	}
	if raw := q.Get("minPrice"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "minPrice must be a number"})
			return
		}
		f.MinPrice = &p
	}
	rides, err := h.store.SearchRides(r.Context(), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	rides, err := h.store.ListRides(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (h *Handler) MyRides(w http.ResponseWriter, r *http.Request) {
	rides, err := h.store.RidesByDriver(r.Context(), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.store.CancelRide)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.store.CompleteRide)
}

// transition applies a status change after checking the caller owns the ride
// or is an administrator.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id string) (store.Ride, error)) {
	id := chi.URLParam(r, "id")
	claims := jwt.GetClaims(r.Context())

	ride, err := h.store.GetRide(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if claims.Role != string(store.RoleAdmin) && ride.DriverID != claims.UserID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your ride"})
		return
	}
	ride, err = apply(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rideID := q.Get("rideId")
	if rideID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rideId is required"})
		return
	}
	if raw := q.Get("seats"); raw != "" {
		if n, err := strconv.Atoi(raw); err != nil || n != 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bookings are for exactly one seat"})
			return
		}
	}
	passenger, err := h.actor(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.store.BookRide(r.Context(), rideID, passenger.ID); err != nil {
		h.fail(w, err)
		return
	}
	ride, err := h.store.GetRide(r.Context(), rideID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, BookingResponse{
		RideID:         ride.ID,
		AvailableSeats: ride.AvailableSeats,
		Status:         string(BookingConfirmed),
	})
}

func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request) {
	rides, err := h.store.BookingsOf(r.Context(), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]BookingView, 0, len(rides))
	for _, ride := range rides {
		out = append(out, NewBookingView(ride))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "rideId")
	if err := h.store.CancelBooking(r.Context(), rideID, jwt.GetClaims(r.Context()).UserID); err != nil {
		h.fail(w, err)
		return
	}
	ride, err := h.store.GetRide(r.Context(), rideID)
	if err != nil {
		h.fail(w, err)
		return
	}
	view := NewBookingView(ride)
	view.Status = BookingCancelled
	writeJSON(w, http.StatusOK, view)
}

// actor loads the caller's account; tokens outlive a block, the record does not.
func (h *Handler) actor(r *http.Request) (store.User, error) {
	u, err := h.store.GetUser(r.Context(), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		return store.User{}, err
	}
	if u.Blocked {
		return store.User{}, &store.BlockedError{Reason: u.BlockReason}
	}
	return u, nil
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// StatusFor maps store errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrBlocked):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNoSeats),
		errors.Is(err, store.ErrAlreadyBooked),
		errors.Is(err, store.ErrNotBooked),
		errors.Is(err, store.ErrRideClosed),
		errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
