package tracking

import (
	"context"
	"sync/atomic"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_BroadcastReachesRideSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub.Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/rides/ride-1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return hub.Subscribers("ride-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("ride-2", map[string]any{"ride_id": "ride-2"})
	hub.Broadcast("ride-1", map[string]any{"ride_id": "ride-1", "available_seats": 2})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]any
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, "ride-1", got["ride_id"])
	assert.EqualValues(t, 2, got["available_seats"])
}

func TestHub_DisconnectRemovesSubscriber(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub.Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/rides/ride-1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers("ride-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return hub.Subscribers("ride-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SnapshotGreetsAndRejectsUnknownRides(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.SetSnapshot(func(_ context.Context, rideID string) (any, bool) {
		if rideID != "ride-1" {
			return nil, false
		}
		return map[string]any{"ride_id": rideID, "event": "snapshot", "available_seats": 3}, true
	})
	srv := httptest.NewServer(hub.Routes())
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/rides/"

	_, resp, err := websocket.DefaultDialer.Dial(base+"ghost", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(base+"ride-1", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]any
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, "snapshot", got["event"])
	assert.EqualValues(t, 3, got["available_seats"])
}

func TestHub_UpdateDuringSubscribeFollowsSnapshot(t *testing.T) {
	hub := NewHub(zap.NewNop())
	var seats atomic.Int32
	seats.Store(3)
	var fired atomic.Bool
	hub.SetSnapshot(func(_ context.Context, rideID string) (any, bool) {
		// A booking lands as soon as the subscriber is registered.
		if hub.Subscribers(rideID) == 1 && fired.CompareAndSwap(false, true) {
			n := seats.Add(-1)
			go hub.Broadcast(rideID, map[string]any{"event": "booked", "available_seats": n})
		}
		return map[string]any{"event": "snapshot", "available_seats": seats.Load()}, true
	})
	srv := httptest.NewServer(hub.Routes())
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/rides/ride-1", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first, second map[string]any
	require.NoError(t, ws.ReadJSON(&first))
	require.NoError(t, ws.ReadJSON(&second), "update must not be lost")
	assert.Equal(t, "snapshot", first["event"])
	assert.Equal(t, "booked", second["event"])
	assert.EqualValues(t, 2, second["available_seats"])
}
