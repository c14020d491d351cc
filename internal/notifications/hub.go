package notifications

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/pizzabox/pizzabox-backend/pkg/metrics"
)

// Conn is one live websocket subscriber. The api layer provides the
// gorilla-backed implementation.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// Hub tracks live websocket connections per user plus a flat admin list.
// A user may hold several connections (multiple tabs/devices); sends sweep
// every connection and prune the ones that fail.
type Hub struct {
	mu      sync.Mutex
	users   map[uuid.UUID][]Conn
	admins  []Conn
	metrics *metrics.EventMetrics
}

func NewHub(eventMetrics *metrics.EventMetrics) *Hub {
	return &Hub{
		users:   make(map[uuid.UUID][]Conn),
		metrics: eventMetrics,
	}
}

// ConnectUser registers a connection after the websocket handshake.
func (h *Hub) ConnectUser(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[userID] = append(h.users[userID], conn)
	h.metrics.SetConnections("user", h.userConnCountLocked())
}

// DisconnectUser drops one connection; the map entry goes away with the last
// connection.
func (h *Hub) DisconnectUser(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.users[userID]
	for i, candidate := range conns {
		if candidate == conn {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(h.users, userID)
	} else {
		h.users[userID] = conns
	}
	h.metrics.SetConnections("user", h.userConnCountLocked())
}

func (h *Hub) ConnectAdmin(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.admins = append(h.admins, conn)
	h.metrics.SetConnections("admin", len(h.admins))
}

func (h *Hub) DisconnectAdmin(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, candidate := range h.admins {
		if candidate == conn {
			h.admins = append(h.admins[:i], h.admins[i+1:]...)
			break
		}
	}
	h.metrics.SetConnections("admin", len(h.admins))
}

// SendToUser delivers the payload to every live connection of the user and
// returns how many received it. Failed connections are closed and removed.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.users[userID]
	kept := conns[:0]
	sent := 0
	for _, conn := range conns {
		if err := conn.Send(payload); err != nil {
			_ = conn.Close()
			continue
		}
		kept = append(kept, conn)
		sent++
	}
	if len(kept) == 0 {
		delete(h.users, userID)
	} else {
		h.users[userID] = kept
	}
	if sent > 0 {
		h.metrics.IncNotified("websocket")
	}
	h.metrics.SetConnections("user", h.userConnCountLocked())
	return sent
}

// SendToAdmin fans the payload out to every admin connection.
func (h *Hub) SendToAdmin(payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.admins[:0]
	sent := 0
	for _, conn := range h.admins {
		if err := conn.Send(payload); err != nil {
			_ = conn.Close()
			continue
		}
		kept = append(kept, conn)
		sent++
	}
	h.admins = kept
	if sent > 0 {
		h.metrics.IncNotified("websocket")
	}
	h.metrics.SetConnections("admin", len(h.admins))
	return sent
}

// Close shuts every connection down, aggregating close errors.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	for userID, conns := range h.users {
		for _, conn := range conns {
			err = multierr.Append(err, conn.Close())
		}
		delete(h.users, userID)
	}
	for _, conn := range h.admins {
		err = multierr.Append(err, conn.Close())
	}
	h.admins = nil
	h.metrics.SetConnections("user", 0)
	h.metrics.SetConnections("admin", 0)
	return err
}

func (h *Hub) userConnCountLocked() int {
	total := 0
	for _, conns := range h.users {
		total += len(conns)
	}
	return total
}
