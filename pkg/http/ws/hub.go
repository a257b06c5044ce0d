package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub tracks live player connections and per-match rooms. A room holds the two
// connections belonging to one duel so outbound events can be fanned out to
// both sides at once.
type Hub struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]*Connection // player_id -> connection
	rooms  map[uuid.UUID][]uuid.UUID // match_id -> player ids
	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		conns:  make(map[uuid.UUID]*Connection),
		rooms:  make(map[uuid.UUID][]uuid.UUID),
		logger: logger,
	}
}

// Register adds a connection for a player, closing any previous one.
func (h *Hub) Register(playerID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.conns[playerID]; ok {
		old.Close()
	}
	h.conns[playerID] = conn
	h.logger.Info().Str("player_id", playerID.String()).Msg("connection registered")
}

// Unregister removes a player's connection and drops the player from every
// room, but only when conn is still the registered instance. A connection
// replaced by a newer Register must not tear down its successor's mapping.
// Reports whether conn was the active registration.
func (h *Hub) Unregister(playerID uuid.UUID, conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.conns[playerID]
	if !ok || current != conn {
		return false
	}
	current.Close()
	delete(h.conns, playerID)

	for matchID, players := range h.rooms {
		for i, id := range players {
			if id == playerID {
				h.rooms[matchID] = append(players[:i], players[i+1:]...)
				break
			}
		}
	}
	return true
}

// JoinRoom adds a player to a match room for targeted broadcasts.
func (h *Hub) JoinRoom(matchID, playerID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range h.rooms[matchID] {
		if id == playerID {
			return
		}
	}
	h.rooms[matchID] = append(h.rooms[matchID], playerID)
}

// CloseRoom removes the room once a match is over.
func (h *Hub) CloseRoom(matchID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, matchID)
}

// BroadcastToRoom sends an event to every player in a match room.
func (h *Hub) BroadcastToRoom(matchID uuid.UUID, msg Message) error {
	h.mu.RLock()
	players := append([]uuid.UUID(nil), h.rooms[matchID]...)
	h.mu.RUnlock()

	var firstErr error
	for _, playerID := range players {
		if err := h.SendToPlayer(playerID, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendToPlayer delivers an event to one connection.
func (h *Hub) SendToPlayer(playerID uuid.UUID, msg Message) error {
	h.mu.RLock()
	conn, ok := h.conns[playerID]
	h.mu.RUnlock()

	if !ok {
		return ErrConnectionNotFound
	}
	return conn.Send(msg)
}

// Connection wraps a WebSocket connection with a buffered send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps an upgraded WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger,
	}
}

// Send queues an event for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump drains the send queue onto the wire.
func (c *Connection) WritePump() {
	defer c.conn.Close()

	for msg := range c.sendCh {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump reads inbound events and hands them to handler until the connection
// drops. Returns when the peer disconnects.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			return
		}
		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Str("type", msg.Type).Msg("event handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "Player connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
