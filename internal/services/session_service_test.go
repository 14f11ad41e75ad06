package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rexdotsh/valeo/internal/models"
	"github.com/rexdotsh/valeo/internal/repositories"
)

// Mocks

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionStore) ListWaiting(ctx context.Context, urgency models.Urgency) ([]*models.Session, error) {
	args := m.Called(ctx, urgency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Session), args.Error(1)
}

func (m *MockSessionStore) Claim(ctx context.Context, sessionID string, doctorID uuid.UUID) (bool, error) {
	args := m.Called(ctx, sessionID, doctorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) UpdateStatusIf(ctx context.Context, sessionID string, from, to models.SessionStatus) (bool, error) {
	args := m.Called(ctx, sessionID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) ListEndedByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]*models.PastConsultation, error) {
	args := m.Called(ctx, doctorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PastConsultation), args.Error(1)
}

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Create(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageStore) ListBySession(ctx context.Context, sessionID string) ([]*models.Message, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

type MockNoteStore struct {
	mock.Mock
}

func (m *MockNoteStore) Upsert(ctx context.Context, sessionID, body string) error {
	args := m.Called(ctx, sessionID, body)
	return args.Error(0)
}

func (m *MockNoteStore) Get(ctx context.Context, sessionID string) (*models.Note, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Note), args.Error(1)
}

func (m *MockNoteStore) UpsertSummary(ctx context.Context, sessionID, body string) error {
	args := m.Called(ctx, sessionID, body)
	return args.Error(0)
}

type MockDoctorStore struct {
	mock.Mock
}

func (m *MockDoctorStore) Create(ctx context.Context, doctor *models.Doctor) error {
	args := m.Called(ctx, doctor)
	return args.Error(0)
}

func (m *MockDoctorStore) GetByID(ctx context.Context, doctorID uuid.UUID) (*models.Doctor, error) {
	args := m.Called(ctx, doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Doctor), args.Error(1)
}

func (m *MockDoctorStore) SetActive(ctx context.Context, doctorID uuid.UUID, active bool) error {
	args := m.Called(ctx, doctorID, active)
	return args.Error(0)
}

func newServiceForTest() (*SessionService, *MockSessionStore, *MockMessageStore, *MockNoteStore, *MockDoctorStore) {
	sessions := new(MockSessionStore)
	messages := new(MockMessageStore)
	notes := new(MockNoteStore)
	doctors := new(MockDoctorStore)
	return NewSessionService(sessions, messages, notes, doctors), sessions, messages, notes, doctors
}

func activeDoctor(id uuid.UUID) *models.Doctor {
	return &models.Doctor{ID: id, Name: "Dr. Osei", Active: true}
}

func waitingSession(sessionID string) *models.Session {
	return &models.Session{
		ID:        uuid.New(),
		SessionID: sessionID,
		Status:    models.SessionStatusWaiting,
		Triage: models.TriageSnapshot{
			Category: "general",
			Urgency:  models.UrgencyRoutine,
			Language: "en",
			Symptoms: "headache",
		},
	}
}

func TestEnqueue_CreatesWaitingSession(t *testing.T) {
	svc, sessions, _, _, _ := newServiceForTest()
	sessions.On("GetBySessionID", mock.Anything, "tok123456789abcd").
		Return(nil, repositories.ErrSessionNotFound)
	sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *models.Session) bool {
		return s.SessionID == "tok123456789abcd" && s.Status == models.SessionStatusWaiting
	})).Return(nil)

	created, err := svc.Enqueue(context.Background(), "tok123456789abcd", models.TriageSnapshot{
		Category: "general", Urgency: models.UrgencyUrgent, Language: "en", Symptoms: "fever",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.SessionStatusWaiting, created.Status)
	sessions.AssertExpectations(t)
}

func TestEnqueue_ExistingTokenIsReturnedUntouched(t *testing.T) {
	svc, sessions, _, _, _ := newServiceForTest()
	existing := waitingSession("tok123456789abcd")
	existing.Status = models.SessionStatusClaimed
	sessions.On("GetBySessionID", mock.Anything, "tok123456789abcd").Return(existing, nil)

	got, err := svc.Enqueue(context.Background(), "tok123456789abcd", models.TriageSnapshot{
		Category: "general", Urgency: models.UrgencyEmergency, Language: "en", Symptoms: "different",
	})

	assert.NoError(t, err)
	assert.Same(t, existing, got)
	assert.Equal(t, models.SessionStatusClaimed, got.Status)
	sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEnqueue_RejectsUnknownUrgency(t *testing.T) {
	svc, _, _, _, _ := newServiceForTest()

	_, err := svc.Enqueue(context.Background(), "tok123456789abcd", models.TriageSnapshot{
		Urgency: "critical",
	})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClaim_InactiveDoctorIsRejected(t *testing.T) {
	svc, sessions, _, _, doctors := newServiceForTest()
	doctorID := uuid.New()
	inactive := activeDoctor(doctorID)
	inactive.Active = false
	doctors.On("GetByID", mock.Anything, doctorID).Return(inactive, nil)

	ok, err := svc.Claim(context.Background(), "tok123456789abcd", doctorID)

	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.False(t, ok)
	sessions.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
}

func TestClaim_UnknownSessionIsFalseWithoutError(t *testing.T) {
	svc, sessions, _, _, doctors := newServiceForTest()
	doctorID := uuid.New()
	doctors.On("GetByID", mock.Anything, doctorID).Return(activeDoctor(doctorID), nil)
	sessions.On("GetBySessionID", mock.Anything, "missing").
		Return(nil, repositories.ErrSessionNotFound)

	ok, err := svc.Claim(context.Background(), "missing", doctorID)

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestClaim_LostRaceReturnsFalse(t *testing.T) {
	svc, sessions, _, _, doctors := newServiceForTest()
	doctorID := uuid.New()
	doctors.On("GetByID", mock.Anything, doctorID).Return(activeDoctor(doctorID), nil)
	sessions.On("GetBySessionID", mock.Anything, "tok123456789abcd").
		Return(waitingSession("tok123456789abcd"), nil)
	sessions.On("Claim", mock.Anything, "tok123456789abcd", doctorID).Return(false, nil)

	ok, err := svc.Claim(context.Background(), "tok123456789abcd", doctorID)

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSetStatus_BackwardTransitionIsIgnored(t *testing.T) {
	svc, sessions, _, _, _ := newServiceForTest()
	claimed := waitingSession("tok123456789abcd")
	claimed.Status = models.SessionStatusClaimed
	sessions.On("GetBySessionID", mock.Anything, "tok123456789abcd").Return(claimed, nil)

	ok, err := svc.SetStatus(context.Background(), "tok123456789abcd", models.SessionStatusWaiting)

	assert.NoError(t, err)
	assert.True(t, ok)
	sessions.AssertNotCalled(t, "UpdateStatusIf", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatus_ForwardTransitionUsesCompareAndSet(t *testing.T) {
	svc, sessions, _, _, _ := newServiceForTest()
	sessions.On("GetBySessionID", mock.Anything, "tok123456789abcd").
		Return(waitingSession("tok123456789abcd"), nil)
	sessions.On("UpdateStatusIf", mock.Anything, "tok123456789abcd",
		models.SessionStatusWaiting, models.SessionStatusClaimed).Return(true, nil)

	ok, err := svc.SetStatus(context.Background(), "tok123456789abcd", models.SessionStatusClaimed)

	assert.NoError(t, err)
	assert.True(t, ok)
	sessions.AssertExpectations(t)
}

func TestSetStatus_ExhaustedRacesReportConflict(t *testing.T) {
	svc, sessions, _, _, _ := newServiceForTest()
	sessions.On("GetBySessionID", mock.Anything, "tok123456789abcd").
		Return(waitingSession("tok123456789abcd"), nil)
	sessions.On("UpdateStatusIf", mock.Anything, "tok123456789abcd",
		models.SessionStatusWaiting, models.SessionStatusClaimed).Return(false, nil)

	ok, err := svc.SetStatus(context.Background(), "tok123456789abcd", models.SessionStatusClaimed)

	assert.ErrorIs(t, err, ErrConflict)
	assert.False(t, ok)
}

func TestSetStatus_ExhaustedRacesButStatusLandedAnyway(t *testing.T) {
	svc, sessions, _, _, _ := newServiceForTest()
	waiting := waitingSession("tok123456789abcd")
	ended := waitingSession("tok123456789abcd")
	ended.Status = models.SessionStatusEnded
	// Every CAS loses, but the final re-read shows a concurrent writer
	// carried the session past the requested status.
	sessions.On("GetBySessionID", mock.Anything, "tok123456789abcd").
		Return(waiting, nil).Times(3)
	sessions.On("GetBySessionID", mock.Anything, "tok123456789abcd").
		Return(ended, nil).Once()
	sessions.On("UpdateStatusIf", mock.Anything, "tok123456789abcd",
		models.SessionStatusWaiting, models.SessionStatusClaimed).Return(false, nil)

	ok, err := svc.SetStatus(context.Background(), "tok123456789abcd", models.SessionStatusClaimed)

	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestSetStatus_UnknownSessionIsFalse(t *testing.T) {
	svc, sessions, _, _, _ := newServiceForTest()
	sessions.On("GetBySessionID", mock.Anything, "missing").
		Return(nil, repositories.ErrSessionNotFound)

	ok, err := svc.SetStatus(context.Background(), "missing", models.SessionStatusEnded)

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSetStatus_RejectsInvalidStatus(t *testing.T) {
	svc, _, _, _, _ := newServiceForTest()

	_, err := svc.SetStatus(context.Background(), "tok123456789abcd", "cancelled")

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSendMessage_RejectsUnknownSender(t *testing.T) {
	svc, _, messages, _, _ := newServiceForTest()

	_, err := svc.SendMessage(context.Background(), "tok123456789abcd", "nurse", "hello")

	assert.ErrorIs(t, err, ErrInvalidInput)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendMessage_AppendsForExistingSession(t *testing.T) {
	svc, sessions, messages, _, _ := newServiceForTest()
	sessions.On("GetBySessionID", mock.Anything, "tok123456789abcd").
		Return(waitingSession("tok123456789abcd"), nil)
	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Message) bool {
		return m.Sender == models.SenderPatient && m.Text == "hello"
	})).Return(nil)

	id, err := svc.SendMessage(context.Background(), "tok123456789abcd", models.SenderPatient, "hello")

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	messages.AssertExpectations(t)
}

func TestUpsertNotes_RequiresKnownDoctor(t *testing.T) {
	svc, _, _, notes, doctors := newServiceForTest()
	doctorID := uuid.New()
	doctors.On("GetByID", mock.Anything, doctorID).
		Return(nil, repositories.ErrDoctorNotFound)

	err := svc.UpsertNotes(context.Background(), "tok123456789abcd", doctorID, "stable")

	assert.ErrorIs(t, err, ErrNotAuthorized)
	notes.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterDoctor_HashesAccessCode(t *testing.T) {
	svc, _, _, _, doctors := newServiceForTest()
	doctors.On("Create", mock.Anything, mock.MatchedBy(func(d *models.Doctor) bool {
		return d.Active && d.CodeHash != "" && d.CodeHash != "opensesame"
	})).Return(nil)

	doctor, err := svc.RegisterDoctor(context.Background(), "Dr. Osei", "opensesame", []string{"en"})

	assert.NoError(t, err)
	assert.True(t, doctor.Active)
	assert.NotContains(t, doctor.CodeHash, "opensesame")
	doctors.AssertExpectations(t)
}

func TestDeactivateDoctor_TakesActiveDoctorOffRoster(t *testing.T) {
	svc, _, _, _, doctors := newServiceForTest()
	id := uuid.New()
	doctors.On("GetByID", mock.Anything, id).Return(activeDoctor(id), nil)
	doctors.On("SetActive", mock.Anything, id, false).Return(nil)

	err := svc.DeactivateDoctor(context.Background(), id)

	assert.NoError(t, err)
	doctors.AssertExpectations(t)
}

func TestDeactivateDoctor_UnknownDoctorRejected(t *testing.T) {
	svc, _, _, _, doctors := newServiceForTest()
	id := uuid.New()
	doctors.On("GetByID", mock.Anything, id).Return(nil, repositories.ErrDoctorNotFound)

	err := svc.DeactivateDoctor(context.Background(), id)

	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestIsDoctor_UnknownIsFalseWithoutError(t *testing.T) {
	svc, _, _, _, doctors := newServiceForTest()
	id := uuid.New()
	doctors.On("GetByID", mock.Anything, id).Return(nil, repositories.ErrDoctorNotFound)

	ok, err := svc.IsDoctor(context.Background(), id)

	assert.NoError(t, err)
	assert.False(t, ok)
}
