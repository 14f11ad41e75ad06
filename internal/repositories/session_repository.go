package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rexdotsh/valeo/internal/models"
)

// ErrSessionNotFound is returned when no session matches the token.
var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new waiting session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `
	INSERT INTO sessions (
		id,
		session_id,
		status,
		category,
		urgency,
		language,
		symptoms,
		created_at,
		updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	RETURNING created_at, updated_at
	`

	return r.db.QueryRowContext(
		ctx,
		query,
		session.ID,
		session.SessionID,
		session.Status,
		session.Triage.Category,
		session.Triage.Urgency,
		session.Triage.Language,
		session.Triage.Symptoms,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
}

// GetBySessionID fetches a session by its token.
func (r *SessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	const query = `
	SELECT
		id,
		session_id,
		status,
		category,
		urgency,
		language,
		symptoms,
		claimed_by_doctor,
		created_at,
		updated_at,
		ended_at
	FROM sessions
	WHERE session_id = $1
	LIMIT 1
	`

	var session models.Session

	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.SessionID,
		&session.Status,
		&session.Triage.Category,
		&session.Triage.Urgency,
		&session.Triage.Language,
		&session.Triage.Symptoms,
		&session.ClaimedByDoctor,
		&session.CreatedAt,
		&session.UpdatedAt,
		&session.EndedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// ListWaiting returns sessions still in the queue, emergency first, then
// arrival order. An empty urgency means no filter.
func (r *SessionRepository) ListWaiting(ctx context.Context, urgency models.Urgency) ([]*models.Session, error) {
	const query = `
	SELECT
		id,
		session_id,
		status,
		category,
		urgency,
		language,
		symptoms,
		claimed_by_doctor,
		created_at,
		updated_at,
		ended_at
	FROM sessions
	WHERE status = 'waiting'
	  AND ($1 = '' OR urgency = $1)
	ORDER BY
		CASE urgency
			WHEN 'emergency' THEN 0
			WHEN 'urgent' THEN 1
			ELSE 2
		END,
		created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(urgency))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(
			&session.ID,
			&session.SessionID,
			&session.Status,
			&session.Triage.Category,
			&session.Triage.Urgency,
			&session.Triage.Language,
			&session.Triage.Symptoms,
			&session.ClaimedByDoctor,
			&session.CreatedAt,
			&session.UpdatedAt,
			&session.EndedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// Claim atomically takes ownership of a waiting session. It is a
// compare-and-set against the waiting status: a session already claimed
// by a concurrent doctor yields false, never two owners.
func (r *SessionRepository) Claim(ctx context.Context, sessionID string, doctorID uuid.UUID) (bool, error) {
	const query = `
	UPDATE sessions
	SET status = 'claimed', claimed_by_doctor = $2, updated_at = NOW()
	WHERE session_id = $1 AND status = 'waiting'
	`

	res, err := r.db.ExecContext(ctx, query, sessionID, doctorID.String())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateStatusIf advances the status only when the stored status still
// matches from, so concurrent writers cannot move a session backward.
func (r *SessionRepository) UpdateStatusIf(ctx context.Context, sessionID string, from, to models.SessionStatus) (bool, error) {
	const query = `
	UPDATE sessions
	SET status = $3,
	    updated_at = NOW(),
	    ended_at = CASE WHEN $3 = 'ended' THEN NOW() ELSE ended_at END
	WHERE session_id = $1 AND status = $2
	`

	res, err := r.db.ExecContext(ctx, query, sessionID, from, to)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListEndedByDoctor returns the doctor's ended consultations, newest
// first, with the session summary when one exists.
func (r *SessionRepository) ListEndedByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]*models.PastConsultation, error) {
	const query = `
	SELECT
		s.session_id,
		COALESCE(s.ended_at, s.updated_at),
		s.category,
		s.urgency,
		sm.body
	FROM sessions s
	LEFT JOIN summaries sm ON sm.session_id = s.session_id
	WHERE s.status = 'ended' AND s.claimed_by_doctor = $1
	ORDER BY COALESCE(s.ended_at, s.updated_at) DESC
	LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, doctorID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.PastConsultation
	for rows.Next() {
		var item models.PastConsultation
		if err := rows.Scan(&item.SessionID, &item.Date, &item.Category, &item.Urgency, &item.Summary); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
