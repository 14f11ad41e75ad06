package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Doctor is an authorization record. Only active doctors may claim
// sessions or write notes.
type Doctor struct {
	ID        uuid.UUID      `db:"id"`
	Name      string         `db:"name"`
	CodeHash  string         `db:"code_hash"`
	Languages pq.StringArray `db:"languages"`
	Active    bool           `db:"active"`
	CreatedAt time.Time      `db:"created_at"`
}

// PastConsultation is a history entry for the doctor dashboard, filtered
// to ended sessions.
type PastConsultation struct {
	SessionID string    `db:"session_id"`
	Date      time.Time `db:"ended_at"`
	Category  string    `db:"category"`
	Urgency   Urgency   `db:"urgency"`
	Summary   *string   `db:"summary"`
}
