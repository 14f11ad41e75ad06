package call

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rexdotsh/valeo/internal/signaling"
)

// SignalTransport carries signaling envelopes between the two peers. The
// production implementation is a websocket to the signaling hub; tests
// wire the two engine ends directly.
type SignalTransport interface {
	Send(env signaling.Envelope) error
	Close() error
}

// WebsocketSignal is the production SignalTransport. Received envelopes
// are dispatched to the handler installed with OnEnvelope from a single
// reader goroutine.
type WebsocketSignal struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu   sync.Mutex
	handlerMu sync.Mutex
	handler   func(signaling.Envelope)

	closeOnce sync.Once
}

// DialSignal connects to the signaling endpoint. The URL must already
// carry the session and role query parameters.
func DialSignal(ctx context.Context, wsURL string, log zerolog.Logger) (*WebsocketSignal, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, &SignalingError{Op: "dial", Err: err, Transient: true}
	}
	s := &WebsocketSignal{conn: conn, log: log}
	go s.readLoop()
	return s, nil
}

// OnEnvelope installs the receive handler. Envelopes read before a
// handler is installed are dropped.
func (s *WebsocketSignal) OnEnvelope(handler func(signaling.Envelope)) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// Send writes one envelope to the peer.
func (s *WebsocketSignal) Send(env signaling.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return &SignalingError{Op: "encode", Err: err}
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return &SignalingError{Op: "send", Err: err, Transient: true}
	}
	return nil
}

// Close shuts the websocket down. Idempotent.
func (s *WebsocketSignal) Close() error {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
	return nil
}

func (s *WebsocketSignal) readLoop() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Debug().Err(err).Msg("signaling read closed")
			return
		}
		var env signaling.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.log.Warn().Err(err).Msg("discarding malformed signaling envelope")
			continue
		}
		s.handlerMu.Lock()
		handler := s.handler
		s.handlerMu.Unlock()
		if handler != nil {
			handler(env)
		}
	}
}
