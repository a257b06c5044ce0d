package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialTestConn produces a server-side Connection backed by a real upgraded
// WebSocket pair.
func dialTestConn(t *testing.T) *Connection {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		connCh <- c
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { client.Close() })

	return NewConnection(<-connCh, zerolog.Nop())
}

func TestRegisterReplacesConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	player := uuid.New()

	first := dialTestConn(t)
	second := dialTestConn(t)

	hub.Register(player, first)
	hub.Register(player, second)

	// The replaced connection is closed; the player stays reachable.
	assert.ErrorIs(t, first.Send(NewMessage(TypeQueueLeft, struct{}{})), ErrConnectionClosed)
	assert.NoError(t, hub.SendToPlayer(player, NewMessage(TypeQueueLeft, struct{}{})))
}

func TestUnregisterIgnoresReplacedConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	player := uuid.New()
	matchID := uuid.New()

	first := dialTestConn(t)
	second := dialTestConn(t)

	hub.Register(player, first)
	hub.Register(player, second)
	hub.JoinRoom(matchID, player)

	// The stale connection's teardown must not evict the reconnect.
	assert.False(t, hub.Unregister(player, first))
	assert.NoError(t, hub.SendToPlayer(player, NewMessage(TypeQueueLeft, struct{}{})))
	assert.NoError(t, hub.BroadcastToRoom(matchID, NewMessage(TypeQueueLeft, struct{}{})))

	// The active connection's teardown removes the mapping for real.
	assert.True(t, hub.Unregister(player, second))
	assert.ErrorIs(t, hub.SendToPlayer(player, NewMessage(TypeQueueLeft, struct{}{})), ErrConnectionNotFound)
}

func TestUnregisterUnknownPlayer(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	assert.False(t, hub.Unregister(uuid.New(), dialTestConn(t)))
}
