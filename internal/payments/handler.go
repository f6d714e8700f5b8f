package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"rideconnect/internal/rides"
	"rideconnect/internal/store"
	"rideconnect/pkg/jwt"
)

// Handler exposes payment HTTP endpoints.
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler wires a handler to the payment service.
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log.With(zap.String("component", "payments"))}
}

// Routes returns the /api/payments routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireRole(string(store.RolePassenger)))

	r.Post("/create-order", h.CreateOrder)
	r.Post("/verify", h.Verify)
	r.Get("/history", h.History)
	return r
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Ride() == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rideId or bookingId is required"})
		return
	}
	o, err := h.svc.CreateOrder(r.Context(), req.Ride(), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId, paymentId and signature are required"})
		return
	}
	tx, err := h.svc.Verify(r.Context(), jwt.GetClaims(r.Context()).UserID, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.History(r.Context(), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, ErrInvalidSignature):
		status = http.StatusBadRequest
	case errors.Is(err, ErrOrderSettled):
		status = http.StatusConflict
	default:
		status = rides.StatusFor(err)
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
