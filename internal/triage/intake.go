package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rexdotsh/valeo/internal/models"
	"github.com/rexdotsh/valeo/internal/utils"
)

// Step identifies one question in the ordered intake flow.
type Step int

const (
	StepMainSymptom Step = iota
	StepDuration
	StepOnset
	StepSeverity
	StepFever
	StepAgeGroup
	StepPregnancy
	StepRedFlagChestPain
	StepRedFlagBreathing
	StepRedFlagUnconscious
	StepRedFlagBleeding

	stepCount
)

// NumSteps is the number of questions in the intake flow.
const NumSteps = int(stepCount)

// Patch carries partial answer updates. Nil fields are left untouched.
type Patch struct {
	MainSymptom  *string
	OtherDetails *string
	Duration     *DurationBucket
	Onset        *Onset
	Severity     *int
	Fever        *bool
	AgeGroup     *AgeGroup
	Pregnant     *bool

	RedFlagChestPain   *bool
	RedFlagBreathing   *bool
	RedFlagUnconscious *bool
	RedFlagBleeding    *bool
}

// Enqueuer is the slice of the repository contract the intake needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, sessionID string, triage models.TriageSnapshot) (string, error)
}

// Intake walks the patient through the ordered question steps, keeping a
// running risk classification. Not safe for concurrent use; it belongs to
// a single UI loop.
type Intake struct {
	enqueuer Enqueuer
	category string
	language string

	step     int
	answers  Answers
	declared models.Urgency
	risk     models.Urgency

	// token is generated on the first submit attempt and reused on
	// retries, so a retried submit lands on the same idempotent enqueue.
	token string
}

// NewIntake creates an intake flow for the given consultation category
// and language.
func NewIntake(enqueuer Enqueuer, category, language string) *Intake {
	return &Intake{
		enqueuer: enqueuer,
		category: category,
		language: language,
		risk:     models.UrgencyRoutine,
	}
}

// UpdateAnswers merges the patch into the current answers and re-runs the
// risk assessment. Input is never rejected; severity is clamped to 1-5.
func (in *Intake) UpdateAnswers(p Patch) {
	if p.MainSymptom != nil {
		in.answers.MainSymptom = *p.MainSymptom
	}
	if p.OtherDetails != nil {
		in.answers.OtherDetails = *p.OtherDetails
	}
	if p.Duration != nil {
		in.answers.Duration = *p.Duration
	}
	if p.Onset != nil {
		in.answers.Onset = *p.Onset
	}
	if p.Severity != nil {
		s := *p.Severity
		if s < 1 {
			s = 1
		}
		if s > 5 {
			s = 5
		}
		in.answers.Severity = &s
	}
	if p.Fever != nil {
		in.answers.Fever = *p.Fever
	}
	if p.AgeGroup != nil {
		in.answers.AgeGroup = *p.AgeGroup
	}
	if p.Pregnant != nil {
		in.answers.Pregnant = *p.Pregnant
	}
	if p.RedFlagChestPain != nil {
		in.answers.RedFlagChestPain = *p.RedFlagChestPain
	}
	if p.RedFlagBreathing != nil {
		in.answers.RedFlagBreathing = *p.RedFlagBreathing
	}
	if p.RedFlagUnconscious != nil {
		in.answers.RedFlagUnconscious = *p.RedFlagUnconscious
	}
	if p.RedFlagBleeding != nil {
		in.answers.RedFlagBleeding = *p.RedFlagBleeding
	}
	in.risk = AssessRisk(in.answers, in.declared)
}

// SetDeclaredUrgency records the patient's self-declared urgency and
// re-runs the risk assessment.
func (in *Intake) SetDeclaredUrgency(u models.Urgency) {
	in.declared = u
	in.risk = AssessRisk(in.answers, in.declared)
}

// Emergency is the shortcut that skips the questionnaire: declared
// urgency is forced to emergency and the flow becomes submit-ready.
func (in *Intake) Emergency() {
	in.SetDeclaredUrgency(models.UrgencyEmergency)
	in.step = NumSteps
}

// Advance moves to the next step. Stepping past the last question means
// submit-ready, not a new step.
func (in *Intake) Advance() {
	if in.step < NumSteps {
		in.step++
	}
}

// Back moves to the previous step, flooring at the first. It returns
// false at step 0; escaping the flow entirely is the caller's concern.
func (in *Intake) Back() bool {
	if in.step == 0 {
		return false
	}
	in.step--
	return true
}

// Step returns the current step index.
func (in *Intake) Step() int { return in.step }

// SubmitReady reports whether the flow has advanced past the last step.
func (in *Intake) SubmitReady() bool { return in.step >= NumSteps }

// Answers returns a copy of the current answers.
func (in *Intake) Answers() Answers { return in.answers }

// Risk returns the current risk classification.
func (in *Intake) Risk() models.Urgency { return in.risk }

// Snapshot packages the current answers into the triage snapshot that is
// persisted with the session.
func (in *Intake) Snapshot() models.TriageSnapshot {
	return models.TriageSnapshot{
		Category: in.category,
		Urgency:  in.risk,
		Language: in.language,
		Symptoms: in.symptomsText(),
	}
}

func (in *Intake) symptomsText() string {
	parts := make([]string, 0, 2)
	if in.answers.MainSymptom != "" {
		parts = append(parts, in.answers.MainSymptom)
	}
	if in.answers.OtherDetails != "" {
		parts = append(parts, in.answers.OtherDetails)
	}
	if len(parts) == 0 {
		return "unspecified"
	}
	return strings.Join(parts, " - ")
}

// Submit enqueues the triage snapshot and returns the session token. On
// repository failure the answers and token are retained so the caller can
// retry without re-entering anything.
func (in *Intake) Submit(ctx context.Context) (string, error) {
	if in.token == "" {
		token, err := utils.NewSessionToken()
		if err != nil {
			return "", fmt.Errorf("generate session token: %w", err)
		}
		in.token = token
	}
	if _, err := in.enqueuer.Enqueue(ctx, in.token, in.Snapshot()); err != nil {
		return "", fmt.Errorf("enqueue session: %w", err)
	}
	return in.token, nil
}
