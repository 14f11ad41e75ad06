package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rexdotsh/valeo/internal/triage"
)

// Question prompts per intake step, in flow order.
var intakePrompts = map[triage.Step]string{
	triage.StepMainSymptom:        "What is your main symptom? (add details after a comma)",
	triage.StepDuration:           "How long has this been going on? (hours/days/weeks/months)",
	triage.StepOnset:              "Did it start suddenly or gradually? (sudden/gradual)",
	triage.StepSeverity:           "How severe is it from 1 to 5?",
	triage.StepFever:              "Do you have a fever? (y/n)",
	triage.StepAgeGroup:           "Age group? (infant/child/adult/elder)",
	triage.StepPregnancy:          "Are you pregnant? (y/n)",
	triage.StepRedFlagChestPain:   "Any chest pain or pressure? (y/n)",
	triage.StepRedFlagBreathing:   "Any trouble breathing? (y/n)",
	triage.StepRedFlagUnconscious: "Any fainting or loss of consciousness? (y/n)",
	triage.StepRedFlagBleeding:    "Any severe bleeding? (y/n)",
}

func (m Model) updateIntake(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "esc":
		// Back through the questions; at the first one esc exits.
		if !m.intake.Back() {
			return m, tea.Quit
		}
		m.input.SetValue("")
		return m, nil

	case "ctrl+e":
		// Emergency shortcut: skip the rest of the questionnaire.
		m.intake.Emergency()
		return m, m.submitCmd()

	case "enter":
		if m.intake.SubmitReady() {
			return m, m.submitCmd()
		}
		answer := strings.TrimSpace(m.input.Value())
		if applyAnswer(m.intake, answer) {
			m.intakeErr = ""
			m.input.SetValue("")
			m.intake.Advance()
		} else {
			m.intakeErr = "that answer was not understood, try again"
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyAnswer parses one free-text answer into the current step's patch.
// Returns false when the answer cannot be parsed; empty answers skip
// optional questions.
func applyAnswer(in *triage.Intake, answer string) bool {
	step := triage.Step(in.Step())
	if answer == "" && step != triage.StepMainSymptom {
		return true
	}
	lower := strings.ToLower(answer)

	switch step {
	case triage.StepMainSymptom:
		main, details := answer, ""
		if i := strings.Index(answer, ","); i >= 0 {
			main = strings.TrimSpace(answer[:i])
			details = strings.TrimSpace(answer[i+1:])
		}
		if main == "" {
			return false
		}
		in.UpdateAnswers(triage.Patch{MainSymptom: &main, OtherDetails: &details})
	case triage.StepDuration:
		bucket := triage.DurationBucket(lower)
		switch bucket {
		case triage.DurationHours, triage.DurationDays, triage.DurationWeeks, triage.DurationMonths:
			in.UpdateAnswers(triage.Patch{Duration: &bucket})
		default:
			return false
		}
	case triage.StepOnset:
		onset := triage.Onset(lower)
		if onset != triage.OnsetSudden && onset != triage.OnsetGradual {
			return false
		}
		in.UpdateAnswers(triage.Patch{Onset: &onset})
	case triage.StepSeverity:
		n, err := strconv.Atoi(lower)
		if err != nil || n < 1 || n > 5 {
			return false
		}
		in.UpdateAnswers(triage.Patch{Severity: &n})
	case triage.StepFever:
		v, ok := parseYesNo(lower)
		if !ok {
			return false
		}
		in.UpdateAnswers(triage.Patch{Fever: &v})
	case triage.StepAgeGroup:
		group := triage.AgeGroup(lower)
		switch group {
		case triage.AgeInfant, triage.AgeChild, triage.AgeAdult, triage.AgeElder:
			in.UpdateAnswers(triage.Patch{AgeGroup: &group})
		default:
			return false
		}
	case triage.StepPregnancy:
		v, ok := parseYesNo(lower)
		if !ok {
			return false
		}
		in.UpdateAnswers(triage.Patch{Pregnant: &v})
	case triage.StepRedFlagChestPain:
		v, ok := parseYesNo(lower)
		if !ok {
			return false
		}
		in.UpdateAnswers(triage.Patch{RedFlagChestPain: &v})
	case triage.StepRedFlagBreathing:
		v, ok := parseYesNo(lower)
		if !ok {
			return false
		}
		in.UpdateAnswers(triage.Patch{RedFlagBreathing: &v})
	case triage.StepRedFlagUnconscious:
		v, ok := parseYesNo(lower)
		if !ok {
			return false
		}
		in.UpdateAnswers(triage.Patch{RedFlagUnconscious: &v})
	case triage.StepRedFlagBleeding:
		v, ok := parseYesNo(lower)
		if !ok {
			return false
		}
		in.UpdateAnswers(triage.Patch{RedFlagBleeding: &v})
	}
	return true
}

func parseYesNo(s string) (bool, bool) {
	switch s {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}

func (m Model) submitCmd() tea.Cmd {
	intake := m.intake
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		token, err := intake.Submit(ctx)
		return submitDoneMsg{token: token, err: err}
	}
}

func (m Model) viewIntake() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("valeo intake"))
	b.WriteString("\n\n")

	if m.intake.SubmitReady() {
		b.WriteString(fmt.Sprintf("assessed urgency: %s\n\n", m.styles.status.Render(string(m.intake.Risk()))))
		b.WriteString("press enter to join the queue\n")
	} else {
		step := triage.Step(m.intake.Step())
		b.WriteString(m.styles.faint.Render(fmt.Sprintf("question %d of %d", m.intake.Step()+1, triage.NumSteps)))
		b.WriteString("\n")
		b.WriteString(intakePrompts[step])
		b.WriteString("\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	if m.intakeErr != "" {
		b.WriteString("\n" + m.styles.warning.Render(m.intakeErr) + "\n")
	}
	b.WriteString("\n" + m.styles.faint.Render("esc back, ctrl+e emergency, ctrl+c quit") + "\n")
	return b.String()
}
