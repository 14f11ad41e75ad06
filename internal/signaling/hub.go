package signaling

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/rexdotsh/valeo/internal/models"
)

// bufferedPerPeer caps how many early messages one party may queue while
// waiting for the counterpart.
const bufferedPerPeer = 100

// Client is one connected signaling party.
type Client struct {
	ID        uuid.UUID
	SessionID string
	Role      models.SenderRole
	Conn      *websocket.Conn
	Send      chan []byte
	Done      chan struct{}

	closeOnce sync.Once
}

// Close shuts the client down. Idempotent. Send is left open so a
// concurrent deliver can never hit a closed channel; writers bail out on
// Done instead.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.Done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// IsConnected reports whether the client has not been closed yet.
func (c *Client) IsConnected() bool {
	select {
	case <-c.Done:
		return false
	default:
		return true
	}
}

// Room holds the at-most-two parties of one session's signaling exchange,
// plus a per-role buffer for messages sent before the counterpart joined.
type Room struct {
	SessionID string

	mu      sync.RWMutex
	clients map[models.SenderRole]*Client
	buffers map[models.SenderRole]*MessageBuffer
}

func newRoom(sessionID string) *Room {
	return &Room{
		SessionID: sessionID,
		clients:   make(map[models.SenderRole]*Client),
		buffers: map[models.SenderRole]*MessageBuffer{
			models.SenderPatient: NewMessageBuffer(bufferedPerPeer),
			models.SenderDoctor:  NewMessageBuffer(bufferedPerPeer),
		},
	}
}

// Counterpart returns the other party, or nil.
func (r *Room) Counterpart(role models.SenderRole) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[role.Counterpart()]
}

// BothJoined reports whether both parties are present.
func (r *Room) BothJoined() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[models.SenderPatient] != nil && r.clients[models.SenderDoctor] != nil
}

// Hub tracks active signaling rooms, keyed by session token.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*Room)}
}

// AddClient registers a party in its session's room, creating the room on
// first join. A second connection for the same role replaces the first;
// the stale one is closed so a reconnect always wins.
func (h *Hub) AddClient(client *Client) *Room {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		room = newRoom(client.SessionID)
		h.rooms[client.SessionID] = room
	}
	h.mu.Unlock()

	room.mu.Lock()
	if old := room.clients[client.Role]; old != nil && old.ID != client.ID {
		log.Debug().Str("session_id", client.SessionID).Str("role", string(client.Role)).
			Msg("closing stale signaling connection")
		old.Close()
	}
	room.clients[client.Role] = client
	room.mu.Unlock()

	return room
}

// Room returns the room for a session, or nil.
func (h *Hub) Room(sessionID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[sessionID]
}

// RemoveClient drops a party from its room and deletes the room once both
// sides are gone. The departing party's unflushed buffer is discarded.
func (h *Hub) RemoveClient(sessionID string, role models.SenderRole) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}

	room.mu.Lock()
	delete(room.clients, role)
	room.buffers[role] = NewMessageBuffer(bufferedPerPeer)
	empty := len(room.clients) == 0
	room.mu.Unlock()

	if empty {
		delete(h.rooms, sessionID)
	}
}

// Relay forwards an envelope from one party to the other. If the
// counterpart has not joined yet the envelope is buffered and delivered
// on join; the sender sees no error for that (the peer being absent is a
// transient condition, not a failure).
func (r *Room) Relay(from models.SenderRole, env Envelope) error {
	other := r.Counterpart(from)
	if other == nil {
		r.mu.RLock()
		buf := r.buffers[from]
		r.mu.RUnlock()
		return buf.Add(env)
	}
	return deliver(other, env)
}

// FlushTo delivers all messages the counterpart queued while role was
// absent, in their original order.
func (r *Room) FlushTo(role models.SenderRole) {
	r.mu.RLock()
	buf := r.buffers[role.Counterpart()]
	target := r.clients[role]
	r.mu.RUnlock()

	if target == nil {
		return
	}
	for _, env := range buf.Flush() {
		if err := deliver(target, env); err != nil {
			log.Warn().Str("session_id", r.SessionID).Err(err).Msg("dropping buffered signaling message")
		}
	}
}

// Announce tells the counterpart that role has joined.
func (r *Room) Announce(role models.SenderRole) {
	other := r.Counterpart(role)
	if other == nil {
		return
	}
	env, err := NewEnvelope(TypePeerJoined, PeerJoinedPayload{Role: string(role)})
	if err != nil {
		return
	}
	_ = deliver(other, env)
}

func deliver(c *Client, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case <-c.Done:
		return ErrPeerNotJoined
	case c.Send <- raw:
		return nil
	default:
		// Slow consumer: drop the connection rather than block the room.
		c.Close()
		return ErrPeerNotJoined
	}
}
