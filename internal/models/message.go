package models

import (
	"time"

	"github.com/google/uuid"
)

type SenderRole string

const (
	SenderPatient SenderRole = "patient"
	SenderDoctor  SenderRole = "doctor"
)

func (r SenderRole) Valid() bool {
	return r == SenderPatient || r == SenderDoctor
}

// Counterpart returns the other party's role.
func (r SenderRole) Counterpart() SenderRole {
	if r == SenderDoctor {
		return SenderPatient
	}
	return SenderDoctor
}

// Message belongs to exactly one session. Append-only; both roles may
// append and both read the same insertion order.
type Message struct {
	ID        uuid.UUID  `db:"id"`
	SessionID string     `db:"session_id"`
	Sender    SenderRole `db:"sender"`
	Text      string     `db:"text"`
	CreatedAt time.Time  `db:"created_at"`
}

// Note holds the doctor's free-text notes for a session. One row per
// session, overwritten on upsert.
type Note struct {
	SessionID string    `db:"session_id"`
	Body      string    `db:"body"`
	UpdatedAt time.Time `db:"updated_at"`
}
