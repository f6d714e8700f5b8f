package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rideconnect/internal/payments"
	"rideconnect/internal/rides"
	"rideconnect/internal/store"
	"rideconnect/internal/users"
	"rideconnect/pkg/jwt"
)

const paySecret = "pay"

// newAPI serves the real handlers over a fresh in-memory store.
func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	require.NoError(t, jwt.Init("test-secret"))
	b := store.NewMemoryBackend()
	s := store.New(b)
	require.NoError(t, s.Init(context.Background()))
	log := zap.NewNop()

	uh := users.NewHandler(s, log)
	rh := rides.NewHandler(s, log)
	ph := payments.NewHandler(payments.NewService(b, s, paySecret, log), log)

	r := chi.NewRouter()
	r.Use(jwt.OptionalAuth)
	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", uh.AuthRoutes())
		r.Mount("/users", uh.ProfileRoutes())
		r.Mount("/admin", uh.AdminRoutes())
		r.Mount("/rides", rh.Routes())
		r.Mount("/bookings", rh.BookingRoutes())
		r.Mount("/payments", ph.Routes())
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, base string) (*Client, *store.Store) {
	t.Helper()
	local := store.New(store.NewMemoryBackend())
	return New(base, local, zap.NewNop()), local
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	srv := newAPI(t)

	driver, driverSess := newClient(t, srv.URL+"/api")
	d, err := driver.Register(ctx, users.RegisterRequest{
		Name: "Dev", Email: "d@x.com", Phone: "+919800000002", Password: "secret1", Role: "driver",
		VehicleModel: "Innova", LicensePlate: "MH01", VehicleCapacity: 4,
	})
	require.NoError(t, err)
	sess, err := driverSess.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, d.ID, sess.ID)
	assert.NotEmpty(t, sess.Token)

	ride, err := driver.PostRide(ctx, rides.PostRideRequest{
		Source: "Pune", Destination: "Goa", Date: "2026-12-01", Time: "07:00", PricePerSeat: 900, Seats: 2,
	})
	require.NoError(t, err)

	passenger, _ := newClient(t, srv.URL+"/api")
	_, err = passenger.Register(ctx, users.RegisterRequest{
		Name: "Pia", Email: "p@x.com", Phone: "+919800000003", Password: "secret1",
	})
	require.NoError(t, err)

	found, err := passenger.SearchRides(ctx, store.RideFilter{From: "pune", To: "goa"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	booked, err := passenger.Book(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, booked.AvailableSeats)

	_, err = passenger.Book(ctx, ride.ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "ride "+ride.ID+": already booked", apiErr.Message)

	bookings, err := passenger.MyBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	order, err := passenger.CreateOrder(ctx, ride.ID)
	require.NoError(t, err)
	tx, err := passenger.VerifyPayment(ctx, payments.VerifyRequest{
		OrderID: order.ID, PaymentID: "pay_1", Signature: payments.Sign(paySecret, order.ID, "pay_1"),
	})
	require.NoError(t, err)
	assert.Equal(t, payments.TransactionSuccess, tx.Status)

	hist, err := passenger.PaymentHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	completed, err := driver.CompleteRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RideCompleted, completed.Status)

	admin, _ := newClient(t, srv.URL+"/api")
	_, err = admin.Login(ctx, store.AdminEmail, store.DefaultAdminPassword)
	require.NoError(t, err)
	all, err := admin.AdminUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	blocked, err := admin.BlockUser(ctx, d.ID, "fraud")
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)
	require.NoError(t, admin.DeleteUser(ctx, d.ID))
}

func TestUnauthorizedClearsSession(t *testing.T) {
	ctx := context.Background()
	srv := newAPI(t)
	c, local := newClient(t, srv.URL+"/api")
	require.NoError(t, local.SetSession(ctx, store.Session{
		User:  store.User{ID: "user-1", Role: store.RolePassenger},
		Token: "not-a-jwt",
	}))

	_, err := c.Profile(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	sess, err := local.Session(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestErrorMessageFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"ride is full"}`, "ride is full"},
		{"error field", `{"error":"bad input"}`, "bad input"},
		{"message wins", `{"message":"m","error":"e"}`, "m"},
		{"empty object", `{}`, genericMessage},
		{"not json", `<html>oops</html>`, genericMessage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, _ := newClient(t, srv.URL)
			_, err := c.AllRides(context.Background())
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Message)
		})
	}
}

func TestLogin_UnknownUserLeavesSessionEmpty(t *testing.T) {
	ctx := context.Background()
	srv := newAPI(t)
	c, local := newClient(t, srv.URL+"/api")

	_, err := c.Login(ctx, "nobody@x.com", "whatever")
	assert.ErrorIs(t, err, ErrUnauthorized)

	sess, err := local.Session(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}
