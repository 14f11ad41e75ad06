package session

import (
	"sync"

	"github.com/rexdotsh/valeo/internal/models"
)

// State tracks the locally observed lifecycle of one session. Status only
// moves forward; stale observations from a lagging poller are ignored so a
// claimed session never appears to rejoin the queue.
type State struct {
	mu     sync.Mutex
	status models.SessionStatus
}

// NewState starts a session in the waiting status.
func NewState() *State {
	return &State{status: models.SessionStatusWaiting}
}

// Observe merges a remotely observed status. It returns true when the
// local status advanced. Unknown statuses and backward transitions are
// ignored, and ended is terminal.
func (s *State) Observe(status models.SessionStatus) bool {
	if !status.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if status.Rank() <= s.status.Rank() {
		return false
	}
	s.status = status
	return true
}

// Status returns the current local status.
func (s *State) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Ended reports whether the session reached its terminal status.
func (s *State) Ended() bool {
	return s.Status() == models.SessionStatusEnded
}
