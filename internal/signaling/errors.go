package signaling

import "errors"

var (
	ErrMessageBufferFull = errors.New("message buffer is full")
	ErrPeerNotJoined     = errors.New("counterpart has not joined")
)
