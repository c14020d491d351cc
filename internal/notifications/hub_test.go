package notifications

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzabox/pizzabox-backend/pkg/metrics"
)

type stubConn struct {
	sent     [][]byte
	failSend bool
	closed   bool
}

func (c *stubConn) Send(payload []byte) error {
	if c.failSend {
		return errors.New("send failed")
	}
	c.sent = append(c.sent, payload)
	return nil
}

func (c *stubConn) Close() error {
	c.closed = true
	return nil
}

func newTestHub() *Hub {
	return NewHub(metrics.NewEventMetrics(nil))
}

func TestSendToUserFansOutToAllConnections(t *testing.T) {
	hub := newTestHub()
	userID := uuid.New()
	first := &stubConn{}
	second := &stubConn{}

	hub.ConnectUser(userID, first)
	hub.ConnectUser(userID, second)

	sent := hub.SendToUser(userID, []byte("hi"))
	assert.Equal(t, 2, sent)
	assert.Len(t, first.sent, 1)
	assert.Len(t, second.sent, 1)
}

func TestSendToUserPrunesFailedConnections(t *testing.T) {
	hub := newTestHub()
	userID := uuid.New()
	healthy := &stubConn{}
	broken := &stubConn{failSend: true}

	hub.ConnectUser(userID, healthy)
	hub.ConnectUser(userID, broken)

	sent := hub.SendToUser(userID, []byte("hi"))
	assert.Equal(t, 1, sent)
	assert.True(t, broken.closed, "failed connection should be closed")

	// the pruned connection is gone on the next send
	sent = hub.SendToUser(userID, []byte("again"))
	assert.Equal(t, 1, sent)
	assert.Len(t, healthy.sent, 2)
}

func TestSendToUnknownUserIsNoop(t *testing.T) {
	hub := newTestHub()
	assert.Zero(t, hub.SendToUser(uuid.New(), []byte("hi")))
}

func TestDisconnectUserRemovesEmptyEntry(t *testing.T) {
	hub := newTestHub()
	userID := uuid.New()
	conn := &stubConn{}

	hub.ConnectUser(userID, conn)
	hub.DisconnectUser(userID, conn)

	hub.mu.Lock()
	_, exists := hub.users[userID]
	hub.mu.Unlock()
	assert.False(t, exists, "empty user entries must be removed")
}

func TestSendToAdmin(t *testing.T) {
	hub := newTestHub()
	dashboard := &stubConn{}
	broken := &stubConn{failSend: true}

	hub.ConnectAdmin(dashboard)
	hub.ConnectAdmin(broken)

	sent := hub.SendToAdmin([]byte("new order"))
	assert.Equal(t, 1, sent)
	assert.True(t, broken.closed)

	assert.Equal(t, 1, hub.SendToAdmin([]byte("another")))
	assert.Len(t, dashboard.sent, 2)
}

func TestCloseShutsEverythingDown(t *testing.T) {
	hub := newTestHub()
	userID := uuid.New()
	userConn := &stubConn{}
	adminConn := &stubConn{}

	hub.ConnectUser(userID, userConn)
	hub.ConnectAdmin(adminConn)

	require.NoError(t, hub.Close())
	assert.True(t, userConn.closed)
	assert.True(t, adminConn.closed)
	assert.Zero(t, hub.SendToUser(userID, []byte("late")))
	assert.Zero(t, hub.SendToAdmin([]byte("late")))
}
