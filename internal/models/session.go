package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusWaiting SessionStatus = "waiting"
	SessionStatusClaimed SessionStatus = "claimed"
	SessionStatusInCall  SessionStatus = "in_call"
	SessionStatusEnded   SessionStatus = "ended"
)

// Rank orders statuses along the session lifecycle. Transitions may only
// move to an equal or higher rank; ended is terminal.
func (s SessionStatus) Rank() int {
	switch s {
	case SessionStatusWaiting:
		return 0
	case SessionStatusClaimed:
		return 1
	case SessionStatusInCall:
		return 2
	case SessionStatusEnded:
		return 3
	}
	return -1
}

// Valid reports whether s is one of the four lifecycle statuses.
func (s SessionStatus) Valid() bool {
	return s.Rank() >= 0
}

type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

// Rank returns the queue ordering rank: emergency first.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyEmergency:
		return 0
	case UrgencyUrgent:
		return 1
	case UrgencyRoutine:
		return 2
	}
	return 3
}

func (u Urgency) Valid() bool {
	return u == UrgencyRoutine || u == UrgencyUrgent || u == UrgencyEmergency
}

// TriageSnapshot is the immutable intake summary attached to a session
// at enqueue time.
type TriageSnapshot struct {
	Category string  `json:"category"`
	Urgency  Urgency `json:"urgency"`
	Language string  `json:"language"`
	Symptoms string  `json:"symptoms"`
}

// Session is one patient-doctor consultation, keyed by a client-generated
// unpredictable token. Sessions are never deleted; ended sessions are
// retained for history and summaries.
type Session struct {
	ID              uuid.UUID      `db:"id"`
	SessionID       string         `db:"session_id"`
	Status          SessionStatus  `db:"status"`
	Triage          TriageSnapshot `db:"triage"`
	ClaimedByDoctor *string        `db:"claimed_by_doctor"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	EndedAt   *time.Time `db:"ended_at"`
}
