package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rideconnect/internal/store"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(context.Background(), mr.Addr(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClient_SetGetRemove(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	v, err := c.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, "k", []byte(`[1,2]`)))
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1,2]`), v)
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, got)

	require.NoError(t, c.Remove(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestClient_BacksStore(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	s := store.New(c)
	require.NoError(t, s.Init(ctx))

	r, err := s.CreateRide(ctx, store.RideData{DriverID: "d1", From: "A", To: "B", Seats: 1})
	require.NoError(t, err)
	require.NoError(t, s.BookRide(ctx, r.ID, "p1"))
	require.ErrorIs(t, s.BookRide(ctx, r.ID, "p2"), store.ErrNoSeats)

	assert.True(t, mr.Exists(store.RidesKey))
	assert.True(t, mr.Exists(store.UsersKey))
}
