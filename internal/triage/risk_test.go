package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rexdotsh/valeo/internal/models"
)

func sev(n int) *int { return &n }

func TestAssessRisk_DeclaredEmergencyWinsOverEverything(t *testing.T) {
	got := AssessRisk(Answers{MainSymptom: "mild rash", Severity: sev(1)}, models.UrgencyEmergency)
	assert.Equal(t, models.UrgencyEmergency, got)
}

func TestAssessRisk_AnyRedFlagIsEmergency(t *testing.T) {
	cases := map[string]Answers{
		"chest pain":    {RedFlagChestPain: true},
		"breathing":     {RedFlagBreathing: true},
		"unconsciousness": {RedFlagUnconscious: true},
		"bleeding":      {RedFlagBleeding: true},
	}
	for name, answers := range cases {
		t.Run(name, func(t *testing.T) {
			answers.Severity = sev(1)
			assert.Equal(t, models.UrgencyEmergency, AssessRisk(answers, models.UrgencyRoutine))
		})
	}
}

func TestAssessRisk_SeverityThresholds(t *testing.T) {
	assert.Equal(t, models.UrgencyEmergency, AssessRisk(Answers{Severity: sev(5)}, ""))
	assert.Equal(t, models.UrgencyUrgent, AssessRisk(Answers{Severity: sev(4)}, ""))
	assert.Equal(t, models.UrgencyRoutine, AssessRisk(Answers{Severity: sev(3)}, ""))
	assert.Equal(t, models.UrgencyRoutine, AssessRisk(Answers{Severity: sev(1)}, ""))
}

func TestAssessRisk_MissingSeverityIsTreatedAsMidScale(t *testing.T) {
	// Nothing else set: an unanswered severity must not trip the >=4 rule.
	assert.Equal(t, models.UrgencyRoutine, AssessRisk(Answers{}, ""))
}

func TestAssessRisk_FeverInVulnerableAgeGroups(t *testing.T) {
	assert.Equal(t, models.UrgencyUrgent, AssessRisk(Answers{Fever: true, AgeGroup: AgeInfant}, ""))
	assert.Equal(t, models.UrgencyUrgent, AssessRisk(Answers{Fever: true, AgeGroup: AgeElder}, ""))
	assert.Equal(t, models.UrgencyRoutine, AssessRisk(Answers{Fever: true, AgeGroup: AgeAdult}, ""))
	assert.Equal(t, models.UrgencyRoutine, AssessRisk(Answers{AgeGroup: AgeInfant}, ""))
}

func TestAssessRisk_PregnancyWithFever(t *testing.T) {
	assert.Equal(t, models.UrgencyUrgent, AssessRisk(Answers{Pregnant: true, Fever: true}, ""))
	assert.Equal(t, models.UrgencyRoutine, AssessRisk(Answers{Pregnant: true}, ""))
}

func TestAssessRisk_ConcerningSymptomNames(t *testing.T) {
	assert.Equal(t, models.UrgencyUrgent, AssessRisk(Answers{MainSymptom: "Chest Pain"}, ""))
	assert.Equal(t, models.UrgencyUrgent, AssessRisk(Answers{MainSymptom: "shortness of breath"}, ""))
	assert.Equal(t, models.UrgencyRoutine, AssessRisk(Answers{MainSymptom: "sore throat"}, ""))
}

func TestAssessRisk_CascadeOrderRedFlagBeatsSeverity(t *testing.T) {
	// Red flag and low severity: the earlier rule wins.
	got := AssessRisk(Answers{RedFlagBleeding: true, Severity: sev(2)}, models.UrgencyRoutine)
	assert.Equal(t, models.UrgencyEmergency, got)
}

func TestAssessRisk_NeverDowngradesDeclaredUrgency(t *testing.T) {
	// A declared urgent stays at least urgent only through its own rules;
	// declared urgent does not force the result, unlike emergency.
	got := AssessRisk(Answers{Severity: sev(5)}, models.UrgencyUrgent)
	assert.Equal(t, models.UrgencyEmergency, got)
}
