package utils

import (
	"crypto/rand"
	"fmt"
)

// SessionTokenLength is the number of base-36 digits in a session token.
const SessionTokenLength = 16

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionToken generates an unpredictable lowercase base-36 session
// token. The token doubles as the signaling peer-address seed, so it must
// come from a cryptographically strong source: guessing a token means
// hijacking a session.
func NewSessionToken() (string, error) {
	var raw [SessionTokenLength]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	out := make([]byte, SessionTokenLength)
	for i, b := range raw {
		out[i] = base36[int(b)%36]
	}
	return string(out), nil
}

// PeerAddress derives the deterministic signaling address for one party
// of a session.
func PeerAddress(role, sessionID string) string {
	return role + "-" + sessionID
}
