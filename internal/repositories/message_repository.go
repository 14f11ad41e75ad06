package repositories

import (
	"context"
	"database/sql"

	"github.com/rexdotsh/valeo/internal/models"
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a message to a session's transcript.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	const query = `
	INSERT INTO messages (id, session_id, sender, body, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	RETURNING created_at
	`

	return r.db.QueryRowContext(
		ctx,
		query,
		message.ID,
		message.SessionID,
		message.Sender,
		message.Text,
	).Scan(&message.CreatedAt)
}

// ListBySession returns the full transcript in insertion order.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.Message, error) {
	const query = `
	SELECT id, session_id, sender, body, created_at
	FROM messages
	WHERE session_id = $1
	ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Upsert creates or overwrites the doctor notes for a session.
func (r *NoteRepository) Upsert(ctx context.Context, sessionID, body string) error {
	const query = `
	INSERT INTO notes (session_id, body, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (session_id)
	DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, sessionID, body)
	return err
}

// Get returns the notes for a session, or nil when none exist.
func (r *NoteRepository) Get(ctx context.Context, sessionID string) (*models.Note, error) {
	const query = `
	SELECT session_id, body, updated_at
	FROM notes
	WHERE session_id = $1
	LIMIT 1
	`

	var note models.Note
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&note.SessionID, &note.Body, &note.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// UpsertSummary stores the post-consultation summary shown in history.
func (r *NoteRepository) UpsertSummary(ctx context.Context, sessionID, body string) error {
	const query = `
	INSERT INTO summaries (session_id, body, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (session_id)
	DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, sessionID, body)
	return err
}
