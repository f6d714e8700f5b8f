package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rideconnect/internal/store"
	"rideconnect/pkg/jwt"
)

func init() {
	if err := jwt.Init("test-secret"); err != nil {
		panic(err)
	}
}

func newTestServer(t *testing.T, opts ...store.Option) (*httptest.Server, *store.Store) {
	t.Helper()
	s := store.New(store.NewMemoryBackend(), opts...)
	require.NoError(t, s.Init(context.Background()))
	h := NewHandler(s, zap.NewNop())

	r := chi.NewRouter()
	r.Use(jwt.OptionalAuth)
	r.Mount("/api/auth", h.AuthRoutes())
	r.Mount("/api/users", h.ProfileRoutes())
	r.Mount("/api/admin", h.AdminRoutes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func register(t *testing.T, srv *httptest.Server, req RegisterRequest) AuthResponse {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/api/auth/register", "", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[AuthResponse](t, resp)
}

func adminToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/api/auth/login", "", LoginRequest{Email: store.AdminEmail, Password: store.DefaultAdminPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[AuthResponse](t, resp).Token
}

var passenger = RegisterRequest{Name: "Asha", Email: "a@x.com", Phone: "+919800000001", Password: "secret1", Role: "passenger"}

func TestRegister_IssuesTokenAndRejectsDuplicate(t *testing.T) {
	srv, _ := newTestServer(t)

	got := register(t, srv, passenger)
	require.NotNil(t, got.User)
	assert.NotEmpty(t, got.Token)
	assert.Equal(t, store.RolePassenger, got.User.Role)
	assert.False(t, got.User.Verified)

	claims, err := jwt.Validate(got.Token)
	require.NoError(t, err)
	assert.Equal(t, got.User.ID, claims.UserID)

	resp := do(t, http.MethodPost, srv.URL+"/api/auth/register", "", passenger)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegister_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		mut  func(r *RegisterRequest)
	}{
		{"bad email", func(r *RegisterRequest) { r.Email = "nope" }},
		{"short password", func(r *RegisterRequest) { r.Password = "1" }},
		{"admin role", func(r *RegisterRequest) { r.Role = "admin" }},
		{"unknown role", func(r *RegisterRequest) { r.Role = "pilot" }},
		{"driver without vehicle", func(r *RegisterRequest) { r.Role = "driver" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := passenger
			tc.mut(&req)
			resp := do(t, http.MethodPost, srv.URL+"/api/auth/register", "", req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestRegister_Driver(t *testing.T) {
	srv, _ := newTestServer(t)
	req := RegisterRequest{
		Name: "Dev", Email: "d@x.com", Phone: "+919800000002", Password: "secret1", Role: "driver",
		VehicleModel: "Innova", LicensePlate: "MH01AA0001", VehicleCapacity: 6,
	}

	got := register(t, srv, req)
	v, ok := got.User.Driver()
	require.True(t, ok)
	require.NotNil(t, v)
	assert.Equal(t, 6, v.Capacity)
}

func TestLogin(t *testing.T) {
	srv, s := newTestServer(t)
	u := register(t, srv, passenger).User

	resp := do(t, http.MethodPost, srv.URL+"/api/auth/login", "", LoginRequest{Email: "missing@x.com", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, s.BlockUser(context.Background(), u.ID, "fraud"))
	resp = do(t, http.MethodPost, srv.URL+"/api/auth/login", "", LoginRequest{Email: passenger.Email, Password: "x"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "fraud")

	assert.NotEmpty(t, adminToken(t, srv))
}

func TestProfile_GetAndUpdate(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := register(t, srv, passenger)

	resp := do(t, http.MethodGet, srv.URL+"/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	name := "Asha K"
	resp = do(t, http.MethodPut, srv.URL+"/api/users/profile", auth.Token, ProfileUpdate{Name: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Asha K", decode[store.User](t, resp).Name)

	model := "Swift"
	resp = do(t, http.MethodPut, srv.URL+"/api/users/profile", auth.Token, ProfileUpdate{VehicleModel: &model})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_Moderation(t *testing.T) {
	srv, _ := newTestServer(t)
	u := register(t, srv, passenger)
	admin := adminToken(t, srv)
	base := srv.URL + "/api/admin/users/" + u.User.ID

	resp := do(t, http.MethodGet, srv.URL+"/api/admin/users", u.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]store.User](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, u.User.ID, list[0].ID)

	resp = do(t, http.MethodPut, base+"/verify", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[store.User](t, resp).Verified)

	resp = do(t, http.MethodPut, base+"/block", admin, BlockRequest{Reason: " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPut, base+"/block", admin, BlockRequest{Reason: "fraud"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	blocked := decode[store.User](t, resp)
	assert.True(t, blocked.Blocked)
	assert.Equal(t, "fraud", blocked.BlockReason)

	resp = do(t, http.MethodPut, base+"/unblock", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[store.User](t, resp).Blocked)

	resp = do(t, http.MethodPut, srv.URL+"/api/admin/users/ghost/verify", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/api/admin/users/"+store.AdminID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodDelete, base, admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodPut, base+"/verify", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogin_AdminNeedsAdminPassword(t *testing.T) {
	srv, _ := newTestServer(t, store.WithAdminPassword("s3cret-admin"))
	login := srv.URL + "/api/auth/login"

	for _, pw := range []string{"definitely-wrong", store.DefaultAdminPassword, ""} {
		resp := do(t, http.MethodPost, login, "", LoginRequest{Email: store.AdminEmail, Password: pw})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, pw)
	}

	resp := do(t, http.MethodPost, login, "", LoginRequest{Email: store.AdminEmail, Password: "s3cret-admin"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[AuthResponse](t, resp)
	require.NotNil(t, got.User)
	assert.Equal(t, store.RoleAdmin, got.User.Role)
}
