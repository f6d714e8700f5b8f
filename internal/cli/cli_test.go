package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rideconnect/internal/rides"
	"rideconnect/internal/store"
	"rideconnect/internal/users"
	"rideconnect/pkg/jwt"
)

func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	cmd, a := newRoot()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := a.run(context.Background(), cmd)
	return out.String(), err
}

func mustRun(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, err := run(t, db, args...)
	require.NoError(t, err, out)
	return out
}

var rideIDPattern = regexp.MustCompile(`ride-[0-9a-f-]+`)

func signUpDriver(t *testing.T, db string) {
	mustRun(t, db, "signup", "--name", "Dev Driver", "--email", "d@x.com", "--phone", "+919800000001",
		"--password", "secret1", "--role", "driver", "--vehicle-model", "Innova", "--plate", "MH01", "--capacity", "4")
}

func postRide(t *testing.T, db string, seats string) string {
	out := mustRun(t, db, "rides", "create", "--from", "Pune", "--to", "Mumbai", "--date", "2026-11-01",
		"--time", "08:00", "--seats", seats, "--price", "350")
	id := rideIDPattern.FindString(out)
	require.NotEmpty(t, id, out)
	return id
}

func TestWhoAmI_SignedOut(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")
	assert.Contains(t, mustRun(t, db, "whoami"), "Not signed in.")
}

func TestFailedCommandClosesStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")

	for _, args := range [][]string{
		{"rides", "book", "ride-ghost"},
		{"signin", "--email", "nobody@x.com", "--password", "wrong"},
	} {
		cmd, a := newRoot()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"--db", db}, args...))
		require.Error(t, a.run(context.Background(), cmd))
		assert.Nil(t, a.db, "sqlite handle left open after %v", args)
		assert.Nil(t, a.store)
	}

	require.NoError(t, os.Remove(db))
	assert.Contains(t, mustRun(t, db, "whoami"), "Not signed in.")
}

func TestDriverAndPassengerFlow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")

	signUpDriver(t, db)
	assert.Contains(t, mustRun(t, db, "whoami"), "vehicle: Innova MH01, 4 seats")
	rideID := postRide(t, db, "1")

	_, err := run(t, db, "rides", "book", rideID)
	assert.ErrorContains(t, err, "passenger account")

	mustRun(t, db, "signup", "--name", "Pia", "--email", "p@x.com", "--phone", "+919800000002", "--password", "secret1")
	out := mustRun(t, db, "rides", "search", "--from", "pune")
	assert.Contains(t, out, rideID)

	assert.Contains(t, mustRun(t, db, "rides", "book", rideID), "0 seats left")
	_, err = run(t, db, "rides", "book", rideID)
	assert.ErrorIs(t, err, store.ErrNoSeats)

	assert.Contains(t, mustRun(t, db, "rides", "search", "--from", "pune"), "No rides found.")
	assert.Contains(t, mustRun(t, db, "rides", "bookings"), "CONFIRMED")

	mustRun(t, db, "rides", "cancel-booking", rideID)
	assert.Contains(t, mustRun(t, db, "rides", "bookings"), "No bookings.")

	mustRun(t, db, "signin", "--email", "d@x.com")
	assert.Contains(t, mustRun(t, db, "rides", "mine"), rideID)
	assert.Contains(t, mustRun(t, db, "rides", "complete", rideID), "completed")
	_, err = run(t, db, "rides", "cancel", rideID)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestCreateRide_Validation(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")
	signUpDriver(t, db)

	_, err := run(t, db, "rides", "create", "--from", "Pune", "--to", "Mumbai", "--date", "tomorrow", "--time", "08:00")
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestAdminModeration(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")
	mustRun(t, db, "signup", "--name", "Pia", "--email", "p@x.com", "--phone", "+919800000002", "--password", "secret1")

	_, err := run(t, db, "admin", "users")
	assert.ErrorContains(t, err, "admin account")

	mustRun(t, db, "signin", "--email", store.AdminEmail, "--password", store.DefaultAdminPassword)
	out := mustRun(t, db, "admin", "users")
	assert.Contains(t, out, "p@x.com")
	assert.NotContains(t, out, store.AdminEmail)

	id := regexp.MustCompile(`user-[0-9a-f-]+`).FindString(out)
	require.NotEmpty(t, id)

	_, err = run(t, db, "admin", "block", id)
	assert.ErrorContains(t, err, "--reason")
	mustRun(t, db, "admin", "block", id, "--reason", "fraud")

	_, err = run(t, db, "signin", "--email", "p@x.com")
	var blocked *store.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "fraud", blocked.Reason)

	mustRun(t, db, "signin", "--email", store.AdminEmail, "--password", store.DefaultAdminPassword)
	mustRun(t, db, "admin", "unblock", id)
	mustRun(t, db, "admin", "verify", id)
	_, err = run(t, db, "admin", "delete", store.AdminID)
	assert.ErrorContains(t, err, "administrator")
	mustRun(t, db, "admin", "delete", id)

	_, err = run(t, db, "admin", "verify", id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoteCommands(t *testing.T) {
	require.NoError(t, jwt.Init("cli-test"))
	server := store.New(store.NewMemoryBackend())
	ctx := context.Background()
	require.NoError(t, server.Init(ctx))
	_, err := server.CreateRide(ctx, store.RideData{DriverID: "d", DriverName: "Dev", From: "Pune", To: "Goa",
		Date: "2026-12-01", Time: "07:00", Seats: 3, Price: 900})
	require.NoError(t, err)
	_, err = server.Register(ctx, store.SignUpData{Name: "Pia", Email: "p@x.com", Role: store.RolePassenger})
	require.NoError(t, err)

	uh := users.NewHandler(server, zap.NewNop())
	rh := rides.NewHandler(server, zap.NewNop())
	r := chi.NewRouter()
	r.Use(jwt.OptionalAuth)
	r.Mount("/api/auth", uh.AuthRoutes())
	r.Mount("/api/rides", rh.Routes())
	r.Mount("/api/bookings", rh.BookingRoutes())
	srv := httptest.NewServer(r)
	defer srv.Close()

	db := filepath.Join(t.TempDir(), "store.db")
	api := srv.URL + "/api"

	_, err = run(t, db, "--api", api, "remote", "search", "--from", "pune")
	assert.ErrorContains(t, err, "session expired")

	assert.Contains(t, mustRun(t, db, "--api", api, "remote", "login", "--email", "p@x.com"), "passenger")
	out := mustRun(t, db, "--api", api, "remote", "search", "--from", "pune")
	id := rideIDPattern.FindString(out)
	require.NotEmpty(t, id, out)

	assert.Contains(t, mustRun(t, db, "--api", api, "remote", "book", id), "2 seats left")
	assert.Contains(t, mustRun(t, db, "--api", api, "remote", "bookings"), "CONFIRMED")
}
