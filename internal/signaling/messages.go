package signaling

import "encoding/json"

// Envelope is the wire format for every signaling message, both
// directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Signaling message types.
const (
	TypePeerJoined   = "peer_joined"
	TypePeerLeft     = "peer_left"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice_candidate"
	TypeLeave        = "leave"
	TypeError        = "error"
)

// PeerJoinedPayload announces the counterpart's arrival.
type PeerJoinedPayload struct {
	Role string `json:"role"`
}

// OfferPayload carries an SDP offer.
type OfferPayload struct {
	SDP string `json:"sdp"`
}

// AnswerPayload carries an SDP answer.
type AnswerPayload struct {
	SDP string `json:"sdp"`
}

// ICECandidatePayload carries one trickled ICE candidate.
type ICECandidatePayload struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
}

// ErrorPayload carries a human-readable relay error.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Decode unmarshals the payload into out.
func (e Envelope) Decode(out interface{}) error {
	return json.Unmarshal(e.Payload, out)
}

// NewEnvelope marshals payload into an Envelope of the given type.
func NewEnvelope(msgType string, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}
