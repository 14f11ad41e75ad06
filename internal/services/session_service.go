package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rexdotsh/valeo/internal/models"
	"github.com/rexdotsh/valeo/internal/repositories"
)

// ErrNotAuthorized is returned for claim or notes writes by an unknown or
// inactive doctor. The session state is left unchanged.
var ErrNotAuthorized = errors.New("not authorized")

// ErrInvalidInput is returned for malformed statuses, urgencies or roles.
var ErrInvalidInput = errors.New("invalid input")

// ErrConflict is returned when a status write keeps losing races with
// concurrent transitions and the requested status still has not landed.
var ErrConflict = errors.New("conflicting concurrent update")

// SessionStore is the session persistence surface the service depends on.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	ListWaiting(ctx context.Context, urgency models.Urgency) ([]*models.Session, error)
	Claim(ctx context.Context, sessionID string, doctorID uuid.UUID) (bool, error)
	UpdateStatusIf(ctx context.Context, sessionID string, from, to models.SessionStatus) (bool, error)
	ListEndedByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]*models.PastConsultation, error)
}

type MessageStore interface {
	Create(ctx context.Context, message *models.Message) error
	ListBySession(ctx context.Context, sessionID string) ([]*models.Message, error)
}

type NoteStore interface {
	Upsert(ctx context.Context, sessionID, body string) error
	Get(ctx context.Context, sessionID string) (*models.Note, error)
	UpsertSummary(ctx context.Context, sessionID, body string) error
}

type DoctorStore interface {
	Create(ctx context.Context, doctor *models.Doctor) error
	GetByID(ctx context.Context, doctorID uuid.UUID) (*models.Doctor, error)
	SetActive(ctx context.Context, doctorID uuid.UUID, active bool) error
}

type SessionService struct {
	sessionRepo SessionStore
	messageRepo MessageStore
	noteRepo    NoteStore
	doctorRepo  DoctorStore
}

func NewSessionService(
	sessionRepo SessionStore,
	messageRepo MessageStore,
	noteRepo NoteStore,
	doctorRepo DoctorStore,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		noteRepo:    noteRepo,
		doctorRepo:  doctorRepo,
	}
}

// Enqueue creates a waiting session for the token, or returns the
// existing one untouched. Re-enqueueing an existing token never mutates
// the stored triage snapshot, so a retried submit is harmless.
func (s *SessionService) Enqueue(ctx context.Context, sessionID string, triage models.TriageSnapshot) (*models.Session, error) {
	if !triage.Urgency.Valid() {
		return nil, fmt.Errorf("%w: urgency %q", ErrInvalidInput, triage.Urgency)
	}

	existing, err := s.sessionRepo.GetBySessionID(ctx, sessionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrSessionNotFound) {
		return nil, err
	}

	session := &models.Session{
		ID:        uuid.New(),
		SessionID: sessionID,
		Status:    models.SessionStatusWaiting,
		Triage:    triage,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// ListQueue returns waiting sessions ordered emergency-first, optionally
// filtered by urgency.
func (s *SessionService) ListQueue(ctx context.Context, urgency models.Urgency) ([]*models.Session, error) {
	if urgency != "" && !urgency.Valid() {
		return nil, fmt.Errorf("%w: urgency %q", ErrInvalidInput, urgency)
	}
	return s.sessionRepo.ListWaiting(ctx, urgency)
}

// Claim takes ownership of a waiting session for a doctor. Returns false
// when the session does not exist or was already claimed by someone else;
// the caller must treat false as "someone else got it" and not enter the
// call.
func (s *SessionService) Claim(ctx context.Context, sessionID string, doctorID uuid.UUID) (bool, error) {
	if err := s.requireActiveDoctor(ctx, doctorID); err != nil {
		return false, err
	}

	if _, err := s.sessionRepo.GetBySessionID(ctx, sessionID); err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	return s.sessionRepo.Claim(ctx, sessionID, doctorID)
}

// SetStatus advances a session's lifecycle status. Backward transitions
// are ignored rather than rejected: polling clients routinely report
// stale observations and treating them as errors would surface noise, not
// faults. Returns false without error when the session does not exist,
// and ErrConflict when concurrent writers keep winning the status race.
func (s *SessionService) SetStatus(ctx context.Context, sessionID string, status models.SessionStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}

	for attempt := 0; attempt < 3; attempt++ {
		current, err := s.sessionRepo.GetBySessionID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repositories.ErrSessionNotFound) {
				return false, nil
			}
			return false, err
		}

		if status.Rank() <= current.Status.Rank() {
			// Stale or idempotent re-entry; nothing to do.
			return true, nil
		}

		ok, err := s.sessionRepo.UpdateStatusIf(ctx, sessionID, current.Status, status)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		// Lost a race with a concurrent transition; re-read and re-decide.
	}

	// Three straight lost races. Report what the store actually holds
	// instead of pretending our write landed.
	current, err := s.sessionRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	if status.Rank() <= current.Status.Rank() {
		return true, nil
	}
	return false, ErrConflict
}

// GetSession fetches one session, or nil when the token is unknown.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessionRepo.GetBySessionID(ctx, sessionID)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// SendMessage appends a chat message to a session.
func (s *SessionService) SendMessage(ctx context.Context, sessionID string, sender models.SenderRole, text string) (uuid.UUID, error) {
	if !sender.Valid() {
		return uuid.Nil, fmt.Errorf("%w: sender %q", ErrInvalidInput, sender)
	}
	if _, err := s.sessionRepo.GetBySessionID(ctx, sessionID); err != nil {
		return uuid.Nil, err
	}

	message := &models.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Sender:    sender,
		Text:      text,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return uuid.Nil, fmt.Errorf("create message: %w", err)
	}
	return message.ID, nil
}

// ListMessages returns a session's transcript in insertion order.
func (s *SessionService) ListMessages(ctx context.Context, sessionID string) ([]*models.Message, error) {
	return s.messageRepo.ListBySession(ctx, sessionID)
}

// UpsertNotes writes the doctor notes for a session. Doctor-only.
func (s *SessionService) UpsertNotes(ctx context.Context, sessionID string, doctorID uuid.UUID, body string) error {
	if err := s.requireActiveDoctor(ctx, doctorID); err != nil {
		return err
	}
	if _, err := s.sessionRepo.GetBySessionID(ctx, sessionID); err != nil {
		return err
	}
	return s.noteRepo.Upsert(ctx, sessionID, body)
}

// GetNotes returns the notes for a session, or nil.
func (s *SessionService) GetNotes(ctx context.Context, sessionID string) (*models.Note, error) {
	return s.noteRepo.Get(ctx, sessionID)
}

// UpsertSummary stores the consultation summary shown in history.
// Doctor-only.
func (s *SessionService) UpsertSummary(ctx context.Context, sessionID string, doctorID uuid.UUID, body string) error {
	if err := s.requireActiveDoctor(ctx, doctorID); err != nil {
		return err
	}
	if _, err := s.sessionRepo.GetBySessionID(ctx, sessionID); err != nil {
		return err
	}
	return s.noteRepo.UpsertSummary(ctx, sessionID, body)
}

// ListPastConsultations returns the doctor's ended sessions, newest
// first.
func (s *SessionService) ListPastConsultations(ctx context.Context, doctorID uuid.UUID, limit int) ([]*models.PastConsultation, error) {
	if err := s.requireActiveDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.sessionRepo.ListEndedByDoctor(ctx, doctorID, limit)
}

// RegisterDoctor creates an active doctor record with a bcrypt-hashed
// access code.
func (s *SessionService) RegisterDoctor(ctx context.Context, name, code string, languages []string) (*models.Doctor, error) {
	if name == "" || code == "" {
		return nil, fmt.Errorf("%w: name and code required", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash access code: %w", err)
	}

	doctor := &models.Doctor{
		ID:        uuid.New(),
		Name:      name,
		CodeHash:  string(hash),
		Languages: languages,
		Active:    true,
	}
	if err := s.doctorRepo.Create(ctx, doctor); err != nil {
		return nil, fmt.Errorf("create doctor: %w", err)
	}
	return doctor, nil
}

// IsDoctor reports whether the identity is a registered, active doctor.
func (s *SessionService) IsDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	doctor, err := s.doctorRepo.GetByID(ctx, doctorID)
	if errors.Is(err, repositories.ErrDoctorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return doctor.Active, nil
}

// DeactivateDoctor removes the doctor from the on-call roster. Their
// token keeps validating but claim and notes operations start failing
// the active check.
func (s *SessionService) DeactivateDoctor(ctx context.Context, doctorID uuid.UUID) error {
	if err := s.requireActiveDoctor(ctx, doctorID); err != nil {
		return err
	}
	return s.doctorRepo.SetActive(ctx, doctorID, false)
}

func (s *SessionService) requireActiveDoctor(ctx context.Context, doctorID uuid.UUID) error {
	doctor, err := s.doctorRepo.GetByID(ctx, doctorID)
	if errors.Is(err, repositories.ErrDoctorNotFound) {
		return ErrNotAuthorized
	}
	if err != nil {
		return err
	}
	if !doctor.Active {
		return ErrNotAuthorized
	}
	return nil
}
