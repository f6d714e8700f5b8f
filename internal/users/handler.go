package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"rideconnect/internal/store"
	"rideconnect/pkg/jwt"
)

// Handler exposes auth, profile and admin HTTP endpoints.
type Handler struct {
	store *store.Store
	log   *zap.Logger
}

// NewHandler wires a handler to the store.
func NewHandler(s *store.Store, log *zap.Logger) *Handler {
	return &Handler{store: s, log: log.With(zap.String("component", "users"))}
}

// AuthRoutes returns the public /api/auth routes.
func (h *Handler) AuthRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	return r
}

// ProfileRoutes returns the /api/users routes.
func (h *Handler) ProfileRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/profile", h.GetProfile)
	r.Put("/profile", h.UpdateProfile)
	return r
}

// AdminRoutes returns the /api/admin routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireRole(string(store.RoleAdmin)))
	r.Get("/users", h.ListUsers)
	r.Put("/users/{id}/verify", h.Verify)
	r.Put("/users/{id}/block", h.Block)
	r.Put("/users/{id}/unblock", h.Unblock)
	r.Delete("/users/{id}", h.Delete)
	r.Get("/rides", h.ListRides)
	return r
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	data, err := req.Validate()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	u, err := h.store.Register(r.Context(), data)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.issue(w, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	u, err := h.store.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user not found"})
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	if u.Role == store.RoleAdmin && !h.store.AdminCredential(req.Email, req.Password) {
		h.log.Warn("admin login rejected", zap.String("email", u.Email))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	h.issue(w, http.StatusOK, u)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.GetUser(r.Context(), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := jwt.GetClaims(r.Context()).UserID
	var req ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	cur, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	patch, err := req.Patch(cur)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.store.UpdateUser(r.Context(), id, patch); err != nil {
		h.fail(w, err)
		return
	}
	h.GetProfile(w, r)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]store.User, 0, len(all))
	for _, u := range all {
		if u.Role != store.RoleAdmin {
			out = append(out, u)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListRides(w http.ResponseWriter, r *http.Request) {
	rides, err := h.store.ListRides(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, func(id string) error { return h.store.VerifyUser(r.Context(), id) })
}

func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reason is required"})
		return
	}
	h.adminAction(w, r, func(id string) error { return h.store.BlockUser(r.Context(), id, reason) })
}

func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, func(id string) error { return h.store.UnblockUser(r.Context(), id) })
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == store.AdminID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot delete the administrator"})
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	h.log.Info("user deleted by admin", zap.String("user_id", id),
		zap.String("admin_id", jwt.GetClaims(r.Context()).UserID))
	w.WriteHeader(http.StatusNoContent)
}

// adminAction checks the target exists, applies fn and returns the updated user.
func (h *Handler) adminAction(w http.ResponseWriter, r *http.Request, fn func(id string) error) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetUser(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	if err := fn(id); err != nil {
		h.fail(w, err)
		return
	}
	u, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) issue(w http.ResponseWriter, status int, u store.User) {
	token, err := jwt.Generate(u.ID, u.Email, string(u.Role))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, User: &u})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, store.ErrBlocked):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
