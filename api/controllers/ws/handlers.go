package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apimiddleware "github.com/pizzabox/pizzabox-backend/api/middleware"
	"github.com/pizzabox/pizzabox-backend/api/responses"
	notificationsvc "github.com/pizzabox/pizzabox-backend/internal/notifications"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS layer; websocket handshakes from
	// browsers carry the same origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// socketConn adapts a gorilla websocket connection to the hub's Conn
// interface. Writes are serialized because gorilla allows one writer at a time.
type socketConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socketConn) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *socketConn) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *socketConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// ConnectUser upgrades the request and registers the socket for the caller's
// personal notification stream.
func ConnectUser(hub *notificationsvc.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the handshake failure.
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "websocket upgrade failed")
			return
		}
		conn := &socketConn{conn: raw}
		hub.ConnectUser(userID, conn)
		logg.Info(logg.WithUserID(r.Context(), userID.String()), "websocket connected")

		serve(raw, conn)

		hub.DisconnectUser(userID, conn)
		logg.Info(logg.WithUserID(r.Context(), userID.String()), "websocket disconnected")
	}
}

// ConnectAdmin registers the socket for the admin broadcast stream.
func ConnectAdmin(hub *notificationsvc.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "websocket upgrade failed")
			return
		}
		conn := &socketConn{conn: raw}
		hub.ConnectAdmin(conn)
		logg.Info(r.Context(), "admin websocket connected")

		serve(raw, conn)

		hub.DisconnectAdmin(conn)
		logg.Info(r.Context(), "admin websocket disconnected")
	}
}

// serve pumps pings and drains inbound frames until the peer goes away. The
// stream is push-only so inbound payloads are discarded.
func serve(raw *websocket.Conn, conn *socketConn) {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := raw.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
}
