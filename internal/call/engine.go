package call

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog"

	"github.com/rexdotsh/valeo/internal/models"
	"github.com/rexdotsh/valeo/internal/signaling"
)

const chatChannelLabel = "chat"

// chatChannelID is fixed so both sides can open the channel as negotiated
// and no in-band open race exists.
const chatChannelID uint16 = 0

// Events are the engine's callbacks. Any of them may be nil. They are
// invoked from the engine's internal goroutines and must not block.
type Events struct {
	OnConnected   func()
	OnRemoteTrack func(track *webrtc.TrackRemote)
	OnData        func(data []byte)
	OnPeerLeft    func()
	OnError       func(err error)
}

// Engine drives one peer-to-peer consultation call: a single peer
// connection carrying the chat data channel, the microphone track, and
// optionally the camera track. Video can be toggled mid-call through
// renegotiation without disturbing the data channel.
//
// The patient acts as the polite peer when both sides offer at once.
type Engine struct {
	role      models.SenderRole
	transport SignalTransport
	device    CaptureDevice
	profile   CaptureProfile
	events    Events
	log       zerolog.Logger

	mu          sync.Mutex
	pc          *webrtc.PeerConnection
	dc          *webrtc.DataChannel
	audioTrack  webrtc.TrackLocal
	videoTrack  webrtc.TrackLocal
	audioSender *webrtc.RTPSender
	videoSender *webrtc.RTPSender
	pendingICE  []webrtc.ICECandidateInit
	makingOffer bool
	muted       bool
	generation  int
	closed      bool
}

// NewEngine creates a call engine for the given role. The transport must
// already be authenticated for the session.
func NewEngine(role models.SenderRole, transport SignalTransport, device CaptureDevice, events Events, log zerolog.Logger) *Engine {
	return &Engine{
		role:      role,
		transport: transport,
		device:    device,
		profile:   DefaultCaptureProfile(),
		events:    events,
		log:       log,
	}
}

func (e *Engine) polite() bool { return e.role == models.SenderPatient }

// Start opens local capture and prepares the peer connection. Calling it
// again tears down the previous attempt first, so the most recent call
// wins. A camera failure degrades the call to audio only and is reported
// through OnError rather than aborting.
func (e *Engine) Start(ctx context.Context, withVideo bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return &SignalingError{Op: "start", Err: context.Canceled}
	}
	e.teardownLocked()
	e.muted = false

	audio, err := e.device.OpenAudio(e.profile)
	if err != nil {
		return err
	}
	e.audioTrack = audio

	if withVideo {
		video, err := e.device.OpenVideo(e.profile)
		if err != nil {
			e.emitError(err)
		} else {
			e.videoTrack = video
		}
	}

	if err := e.buildLocked(); err != nil {
		e.audioTrack = nil
		e.videoTrack = nil
		return err
	}
	return nil
}

// buildLocked stands up a fresh peer connection carrying the current
// local tracks and the negotiated chat channel, and wires its callbacks
// to the new generation so stale ones turn into no-ops.
func (e *Engine) buildLocked() error {
	e.generation++
	gen := e.generation

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	})
	if err != nil {
		return err
	}
	e.pc = pc
	e.pendingICE = nil
	e.makingOffer = false

	sender, err := pc.AddTrack(e.audioTrack)
	if err != nil {
		pc.Close()
		e.pc = nil
		return err
	}
	e.audioSender = sender
	if e.muted {
		if err := sender.ReplaceTrack(nil); err != nil {
			e.muted = false
		}
	}

	if e.videoTrack != nil {
		videoSender, err := pc.AddTrack(e.videoTrack)
		if err != nil {
			pc.Close()
			e.pc = nil
			e.audioSender = nil
			return err
		}
		e.videoSender = videoSender
	}

	negotiated := true
	id := chatChannelID
	dc, err := pc.CreateDataChannel(chatChannelLabel, &webrtc.DataChannelInit{
		Negotiated: &negotiated,
		ID:         &id,
	})
	if err != nil {
		pc.Close()
		e.pc = nil
		e.audioSender = nil
		e.videoSender = nil
		return err
	}
	e.dc = dc
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if !e.current(gen) {
			return
		}
		if e.events.OnData != nil {
			e.events.OnData(msg.Data)
		}
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil || !e.current(gen) {
			return
		}
		init := cand.ToJSON()
		env, err := signaling.NewEnvelope(signaling.TypeICECandidate, signaling.ICECandidatePayload{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		})
		if err != nil {
			return
		}
		if err := e.transport.Send(env); err != nil {
			e.emitError(err)
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if !e.current(gen) {
			return
		}
		if e.events.OnRemoteTrack != nil {
			e.events.OnRemoteTrack(track)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if !e.current(gen) {
			return
		}
		switch state {
		case webrtc.PeerConnectionStateConnected:
			if e.events.OnConnected != nil {
				e.events.OnConnected()
			}
		case webrtc.PeerConnectionStateFailed:
			e.emitError(&SignalingError{Op: "ice", Err: errConnectionFailed, Transient: true})
		}
	})

	return nil
}

// HandleEnvelope dispatches one incoming signaling envelope. Wire it to
// the transport's receive path.
func (e *Engine) HandleEnvelope(env signaling.Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.pc == nil {
		return
	}
	switch env.Type {
	case signaling.TypePeerJoined:
		// Exactly one side initiates the first negotiation.
		if !e.polite() {
			e.negotiateLocked()
		}
	case signaling.TypeOffer:
		var payload signaling.OfferPayload
		if err := env.Decode(&payload); err != nil {
			return
		}
		e.handleOfferLocked(payload.SDP)
	case signaling.TypeAnswer:
		var payload signaling.AnswerPayload
		if err := env.Decode(&payload); err != nil {
			return
		}
		desc := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: payload.SDP}
		if err := e.pc.SetRemoteDescription(desc); err != nil {
			e.emitError(err)
			return
		}
		e.flushICELocked()
	case signaling.TypeICECandidate:
		var payload signaling.ICECandidatePayload
		if err := env.Decode(&payload); err != nil {
			return
		}
		init := webrtc.ICECandidateInit{
			Candidate:     payload.Candidate,
			SDPMid:        payload.SDPMid,
			SDPMLineIndex: payload.SDPMLineIndex,
		}
		if e.pc.RemoteDescription() == nil {
			e.pendingICE = append(e.pendingICE, init)
			return
		}
		if err := e.pc.AddICECandidate(init); err != nil {
			e.log.Warn().Err(err).Msg("discarding ice candidate")
		}
	case signaling.TypePeerLeft, signaling.TypeLeave:
		if e.events.OnPeerLeft != nil {
			e.events.OnPeerLeft()
		}
	}
}

// handleOfferLocked applies an incoming offer. On a glare the impolite
// peer ignores the remote offer and lets its own stand; the polite peer
// abandons its own offer and answers instead. pion cannot roll a local
// offer back, so abandoning means rebuilding the peer connection with
// the same local tracks before applying the remote offer (the brief
// media interruption is the same one a video toggle causes).
func (e *Engine) handleOfferLocked(sdp string) {
	collision := e.makingOffer || e.pc.SignalingState() != webrtc.SignalingStateStable
	if collision && !e.polite() {
		return
	}
	if collision {
		if err := e.rebuildLocked(); err != nil {
			e.emitError(err)
			return
		}
	}
	desc := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := e.pc.SetRemoteDescription(desc); err != nil {
		e.emitError(err)
		return
	}
	e.flushICELocked()
	answer, err := e.pc.CreateAnswer(nil)
	if err != nil {
		e.emitError(err)
		return
	}
	if err := e.pc.SetLocalDescription(answer); err != nil {
		e.emitError(err)
		return
	}
	env, err := signaling.NewEnvelope(signaling.TypeAnswer, signaling.AnswerPayload{SDP: answer.SDP})
	if err != nil {
		return
	}
	if err := e.transport.Send(env); err != nil {
		e.emitError(err)
	}
}

// rebuildLocked swaps the current peer connection for a fresh one while
// keeping the captured tracks and mute state. Candidates buffered for
// the discarded connection are dropped; the counterpart re-gathers
// against the new one.
func (e *Engine) rebuildLocked() error {
	if e.dc != nil {
		_ = e.dc.Close()
		e.dc = nil
	}
	if e.pc != nil {
		_ = e.pc.Close()
		e.pc = nil
	}
	e.audioSender = nil
	e.videoSender = nil
	return e.buildLocked()
}

func (e *Engine) negotiateLocked() {
	e.makingOffer = true
	defer func() { e.makingOffer = false }()

	offer, err := e.pc.CreateOffer(nil)
	if err != nil {
		e.emitError(err)
		return
	}
	if err := e.pc.SetLocalDescription(offer); err != nil {
		e.emitError(err)
		return
	}
	env, err := signaling.NewEnvelope(signaling.TypeOffer, signaling.OfferPayload{SDP: offer.SDP})
	if err != nil {
		return
	}
	if err := e.transport.Send(env); err != nil {
		e.emitError(err)
	}
}

func (e *Engine) flushICELocked() {
	for _, init := range e.pendingICE {
		if err := e.pc.AddICECandidate(init); err != nil {
			e.log.Warn().Err(err).Msg("discarding buffered ice candidate")
		}
	}
	e.pendingICE = nil
}

// ToggleVideo turns the camera on or off mid-call through renegotiation.
// The chat data channel is untouched. It returns whether video is now on.
func (e *Engine) ToggleVideo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.pc == nil {
		return false, &SignalingError{Op: "toggle_video", Err: errNotStarted}
	}
	if e.videoSender != nil {
		if err := e.pc.RemoveTrack(e.videoSender); err != nil {
			return true, err
		}
		e.videoSender = nil
		e.videoTrack = nil
		e.negotiateLocked()
		return false, nil
	}
	if err := e.addVideoLocked(); err != nil {
		return false, err
	}
	e.negotiateLocked()
	return true, nil
}

func (e *Engine) addVideoLocked() error {
	video, err := e.device.OpenVideo(e.profile)
	if err != nil {
		return err
	}
	sender, err := e.pc.AddTrack(video)
	if err != nil {
		return err
	}
	e.videoTrack = video
	e.videoSender = sender
	return nil
}

// VideoEnabled reports whether a camera track is currently being sent.
func (e *Engine) VideoEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.videoSender != nil
}

// SetMuted pauses or resumes the microphone without renegotiating.
func (e *Engine) SetMuted(muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.audioSender == nil {
		return &SignalingError{Op: "mute", Err: errNotStarted}
	}
	if muted == e.muted {
		return nil
	}
	var err error
	if muted {
		err = e.audioSender.ReplaceTrack(nil)
	} else {
		err = e.audioSender.ReplaceTrack(e.audioTrack)
	}
	if err != nil {
		return err
	}
	e.muted = muted
	return nil
}

// Muted reports whether the microphone is paused.
func (e *Engine) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// Send writes one chat payload over the data channel.
func (e *Engine) Send(data []byte) error {
	e.mu.Lock()
	dc := e.dc
	e.mu.Unlock()
	if dc == nil {
		return &SignalingError{Op: "send", Err: errNotStarted}
	}
	return dc.Send(data)
}

// GetStats exposes the peer connection statistics for quality sampling.
// Nil when no connection exists yet.
func (e *Engine) GetStats() webrtc.StatsReport {
	e.mu.Lock()
	pc := e.pc
	e.mu.Unlock()
	if pc == nil {
		return nil
	}
	return pc.GetStats()
}

// Close ends the call and releases media and signaling resources.
// Idempotent; events fired by the closing peer connection are dropped.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.teardownLocked()
	e.mu.Unlock()

	if env, err := signaling.NewEnvelope(signaling.TypeLeave, nil); err == nil {
		_ = e.transport.Send(env)
	}
	_ = e.device.Close()
	return e.transport.Close()
}

// teardownLocked drops the current peer connection and tracks, if any.
// The generation bump in buildLocked makes stale callbacks from the old
// connection no-ops.
func (e *Engine) teardownLocked() {
	if e.dc != nil {
		_ = e.dc.Close()
		e.dc = nil
	}
	if e.pc != nil {
		_ = e.pc.Close()
		e.pc = nil
	}
	e.audioTrack = nil
	e.videoTrack = nil
	e.audioSender = nil
	e.videoSender = nil
	e.pendingICE = nil
	e.makingOffer = false
}

func (e *Engine) current(gen int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && e.generation == gen && e.pc != nil
}

func (e *Engine) emitError(err error) {
	e.log.Error().Err(err).Msg("call engine error")
	if e.events.OnError != nil {
		e.events.OnError(err)
	}
}
