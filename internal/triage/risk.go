package triage

import (
	"strings"

	"github.com/rexdotsh/valeo/internal/models"
)

type AgeGroup string

const (
	AgeInfant AgeGroup = "infant"
	AgeChild  AgeGroup = "child"
	AgeAdult  AgeGroup = "adult"
	AgeElder  AgeGroup = "elder"
)

type DurationBucket string

const (
	DurationHours  DurationBucket = "hours"
	DurationDays   DurationBucket = "days"
	DurationWeeks  DurationBucket = "weeks"
	DurationMonths DurationBucket = "months"
)

type Onset string

const (
	OnsetSudden  Onset = "sudden"
	OnsetGradual Onset = "gradual"
)

// Answers collects the intake questionnaire. All fields are optional;
// Severity is nil until answered and treated as 3 when missing.
type Answers struct {
	MainSymptom  string
	OtherDetails string
	Duration     DurationBucket
	Onset        Onset
	Severity     *int
	Fever        bool
	AgeGroup     AgeGroup
	Pregnant     bool

	RedFlagChestPain   bool
	RedFlagBreathing   bool
	RedFlagUnconscious bool
	RedFlagBleeding    bool
}

// AnyRedFlag reports whether any of the four red-flag answers is set.
func (a Answers) AnyRedFlag() bool {
	return a.RedFlagChestPain || a.RedFlagBreathing || a.RedFlagUnconscious || a.RedFlagBleeding
}

// defaultSeverity is the assumed mid-scale severity when the question has
// not been answered yet.
const defaultSeverity = 3

// AssessRisk classifies the answers into a risk level. Pure and total:
// it never fails and must be re-run after every answer mutation. Rules
// are an ordered cascade; the first match wins.
func AssessRisk(a Answers, declared models.Urgency) models.Urgency {
	if declared == models.UrgencyEmergency {
		return models.UrgencyEmergency
	}
	if a.AnyRedFlag() {
		return models.UrgencyEmergency
	}

	severity := defaultSeverity
	if a.Severity != nil {
		severity = *a.Severity
	}
	if severity >= 5 {
		return models.UrgencyEmergency
	}
	if severity >= 4 {
		return models.UrgencyUrgent
	}

	if a.Fever && (a.AgeGroup == AgeInfant || a.AgeGroup == AgeElder) {
		return models.UrgencyUrgent
	}
	if a.Pregnant && a.Fever {
		return models.UrgencyUrgent
	}
	if strings.EqualFold(a.MainSymptom, "chest pain") || strings.EqualFold(a.MainSymptom, "shortness of breath") {
		return models.UrgencyUrgent
	}

	return models.UrgencyRoutine
}
