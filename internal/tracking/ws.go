package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer; this enforces that.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *safeConn) readMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

func (c *safeConn) close() { c.ws.Close() }

// SnapshotFunc returns the current state of a ride, sent to each new
// subscriber. ok is false for unknown rides.
type SnapshotFunc func(ctx context.Context, rideID string) (msg any, ok bool)

// Hub manages WebSocket subscribers per ride.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string][]*safeConn
	snapshot SnapshotFunc
	log      *zap.Logger
}

// NewHub creates a tracking hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{conns: make(map[string][]*safeConn), log: log.With(zap.String("component", "ws"))}
}

// SetSnapshot makes the hub reject unknown rides and greet subscribers with fn's message.
func (h *Hub) SetSnapshot(fn SnapshotFunc) { h.snapshot = fn }

// Routes returns a chi.Router for the /ws mount point.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/rides/{id}", h.HandleWS)
	return r
}

// HandleWS upgrades the connection and subscribes it to a ride.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "id")

	if h.snapshot != nil {
		if _, ok := h.snapshot(r.Context(), rideID); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "ride not found"})
			return
		}
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade error", zap.Error(err))
		return
	}

	// The snapshot is taken after registering and written under the conn's
	// write lock, so every broadcast the client sees follows it.
	conn := &safeConn{ws: ws}
	conn.mu.Lock()
	h.mu.Lock()
	h.conns[rideID] = append(h.conns[rideID], conn)
	h.mu.Unlock()

	if h.snapshot != nil {
		if msg, ok := h.snapshot(r.Context(), rideID); ok {
			err = conn.ws.WriteJSON(msg)
		}
	}
	conn.mu.Unlock()
	if err != nil {
		h.removeConn(rideID, conn)
		conn.close()
		return
	}

	h.log.Debug("client subscribed", zap.String("ride_id", rideID))

	// Block until the client disconnects
	for {
		if _, _, err := conn.readMessage(); err != nil {
			break
		}
	}

	h.removeConn(rideID, conn)
	conn.close()
	h.log.Debug("client unsubscribed", zap.String("ride_id", rideID))
}

// Broadcast pushes msg to every subscriber of a ride.
// Safe for concurrent calls; each safeConn serialises its own writes.
func (h *Hub) Broadcast(rideID string, msg any) {
	h.mu.RLock()
	conns := append([]*safeConn(nil), h.conns[rideID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeJSON(msg); err != nil {
			h.log.Warn("write error", zap.String("ride_id", rideID), zap.Error(err))
		}
	}
}

// Subscribers returns the number of open connections for a ride.
func (h *Hub) Subscribers(rideID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[rideID])
}

func (h *Hub) removeConn(rideID string, conn *safeConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[rideID]
	for i, c := range conns {
		if c == conn {
			h.conns[rideID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[rideID]) == 0 {
		delete(h.conns, rideID)
	}
}
