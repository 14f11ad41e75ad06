package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/rexdotsh/valeo/internal/middlewares"
	"github.com/rexdotsh/valeo/internal/signaling"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS layer in front
	},
}

// relayTypes are the message types a party may send through the hub.
var relayTypes = map[string]bool{
	signaling.TypeOffer:        true,
	signaling.TypeAnswer:       true,
	signaling.TypeICECandidate: true,
	signaling.TypeLeave:        true,
}

type SignalingHandler struct {
	hub *signaling.Hub
}

func NewSignalingHandler(hub *signaling.Hub) *SignalingHandler {
	return &SignalingHandler{hub: hub}
}

// HandleSignaling upgrades an authenticated join to a WebSocket and
// wires the party into its session's room. Must sit behind
// SignalingAuthMiddleware.
func (h *SignalingHandler) HandleSignaling(c *gin.Context) {
	auth, err := middlewares.GetSignalingAuth(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Str("session_id", auth.SessionID).Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &signaling.Client{
		ID:        uuid.New(),
		SessionID: auth.SessionID,
		Role:      auth.Role,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		Done:      make(chan struct{}),
	}

	room := h.hub.AddClient(client)
	log.Info().Str("peer", auth.PeerAddress()).Msg("signaling peer joined")

	// Either party may have dialed first: tell both sides about each
	// other, then replay anything the counterpart queued while alone.
	if room.BothJoined() {
		room.Announce(client.Role)
		if other := room.Counterpart(client.Role); other != nil {
			if env, err := signaling.NewEnvelope(signaling.TypePeerJoined, signaling.PeerJoinedPayload{
				Role: string(other.Role),
			}); err == nil {
				if raw, err := json.Marshal(env); err == nil {
					select {
					case client.Send <- raw:
					default:
					}
				}
			}
		}
		room.FlushTo(client.Role)
	}

	go h.writePump(client)
	go h.readPump(client, room)
}

func (h *SignalingHandler) readPump(client *signaling.Client, room *signaling.Room) {
	defer func() {
		// Disconnects without an explicit leave still notify the peer.
		if env, err := signaling.NewEnvelope(signaling.TypePeerLeft, signaling.PeerJoinedPayload{
			Role: string(client.Role),
		}); err == nil {
			_ = room.Relay(client.Role, env)
		}
		h.hub.RemoveClient(client.SessionID, client.Role)
		client.Close()
	}()

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Str("session_id", client.SessionID).Err(err).Msg("signaling connection closed")
			}
			return
		}

		var env signaling.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Warn().Str("session_id", client.SessionID).Err(err).Msg("invalid signaling message")
			continue
		}

		if !relayTypes[env.Type] {
			log.Warn().Str("session_id", client.SessionID).Str("type", env.Type).Msg("unsupported signaling type")
			continue
		}

		if err := room.Relay(client.Role, env); err != nil {
			log.Warn().Str("session_id", client.SessionID).Str("type", env.Type).Err(err).Msg("signaling relay failed")
		}

		if env.Type == signaling.TypeLeave {
			return
		}
	}
}

func (h *SignalingHandler) writePump(client *signaling.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case raw := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Done:
			return
		}
	}
}
