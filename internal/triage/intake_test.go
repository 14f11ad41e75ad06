package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexdotsh/valeo/internal/models"
)

type fakeEnqueuer struct {
	calls    []string
	failNext bool
	lastSnap models.TriageSnapshot
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, sessionID string, triage models.TriageSnapshot) (string, error) {
	if f.failNext {
		f.failNext = false
		return "", errors.New("connection refused")
	}
	f.calls = append(f.calls, sessionID)
	f.lastSnap = triage
	return "rec-" + sessionID, nil
}

func TestIntake_AdvanceAndBackStayInBounds(t *testing.T) {
	in := NewIntake(&fakeEnqueuer{}, "general", "en")

	assert.False(t, in.Back())
	assert.Equal(t, 0, in.Step())

	for i := 0; i < NumSteps+5; i++ {
		in.Advance()
	}
	assert.True(t, in.SubmitReady())
	assert.Equal(t, NumSteps, in.Step())

	assert.True(t, in.Back())
	assert.Equal(t, NumSteps-1, in.Step())
	assert.False(t, in.SubmitReady())
}

func TestIntake_RiskTracksAnswerUpdates(t *testing.T) {
	in := NewIntake(&fakeEnqueuer{}, "general", "en")
	assert.Equal(t, models.UrgencyRoutine, in.Risk())

	five := 5
	in.UpdateAnswers(Patch{Severity: &five})
	assert.Equal(t, models.UrgencyEmergency, in.Risk())

	two := 2
	in.UpdateAnswers(Patch{Severity: &two})
	assert.Equal(t, models.UrgencyRoutine, in.Risk())
}

func TestIntake_SeverityIsClamped(t *testing.T) {
	in := NewIntake(&fakeEnqueuer{}, "general", "en")

	nine := 9
	in.UpdateAnswers(Patch{Severity: &nine})
	require.NotNil(t, in.Answers().Severity)
	assert.Equal(t, 5, *in.Answers().Severity)

	zero := 0
	in.UpdateAnswers(Patch{Severity: &zero})
	assert.Equal(t, 1, *in.Answers().Severity)
}

func TestIntake_EmergencyShortcutSkipsQuestionnaire(t *testing.T) {
	in := NewIntake(&fakeEnqueuer{}, "general", "en")
	in.Emergency()

	assert.True(t, in.SubmitReady())
	assert.Equal(t, models.UrgencyEmergency, in.Risk())
	assert.Equal(t, models.UrgencyEmergency, in.Snapshot().Urgency)
}

func TestIntake_SnapshotJoinsSymptomText(t *testing.T) {
	in := NewIntake(&fakeEnqueuer{}, "general", "fr")
	main := "headache"
	details := "behind the eyes"
	in.UpdateAnswers(Patch{MainSymptom: &main, OtherDetails: &details})

	snap := in.Snapshot()
	assert.Equal(t, "headache - behind the eyes", snap.Symptoms)
	assert.Equal(t, "general", snap.Category)
	assert.Equal(t, "fr", snap.Language)
}

func TestIntake_SnapshotFallsBackWhenNothingEntered(t *testing.T) {
	in := NewIntake(&fakeEnqueuer{}, "general", "en")
	assert.Equal(t, "unspecified", in.Snapshot().Symptoms)
}

func TestIntake_SubmitRetryReusesToken(t *testing.T) {
	enqueuer := &fakeEnqueuer{failNext: true}
	in := NewIntake(enqueuer, "general", "en")
	main := "cough"
	in.UpdateAnswers(Patch{MainSymptom: &main})

	_, err := in.Submit(context.Background())
	require.Error(t, err)
	// Answers survive the failure.
	assert.Equal(t, "cough", in.Answers().MainSymptom)

	token, err := in.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, enqueuer.calls, 1)
	assert.Equal(t, token, enqueuer.calls[0])

	// A second successful submit converges on the same token.
	again, err := in.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, again)
}
