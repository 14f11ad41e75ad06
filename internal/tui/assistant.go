package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rexdotsh/valeo/internal/ai"
)

type assistantState struct {
	assistant *ai.Assistant
	history   []ai.Turn
	streaming bool
	partial   string
}

func newAssistantState(assistant *ai.Assistant) *assistantState {
	return &assistantState{assistant: assistant}
}

type aiTokenMsg string

type aiDoneMsg struct {
	full string
	err  error
}

func (m Model) updateAssistant(msg tea.Msg) (tea.Model, tea.Cmd) {
	a := m.assistant

	switch msg := msg.(type) {
	case aiTokenMsg:
		a.partial += string(msg)
		m.renderAssistant()
		return m, m.listen()

	case aiDoneMsg:
		a.streaming = false
		if msg.err != nil {
			m.statusLine = "assistant unavailable: " + msg.err.Error()
		} else {
			a.history = append(a.history, ai.Turn{FromUser: false, Text: msg.full})
		}
		a.partial = ""
		m.renderAssistant()
		return m, m.listen()

	case tea.KeyMsg:
		if msg.String() == "enter" {
			question := strings.TrimSpace(m.input.Value())
			if question == "" || a.streaming {
				return m, nil
			}
			if !a.assistant.Configured() {
				m.statusLine = "no assistant endpoint configured"
				return m, nil
			}
			m.input.SetValue("")
			m.statusLine = ""
			history := append([]ai.Turn(nil), a.history...)
			a.history = append(a.history, ai.Turn{FromUser: true, Text: question})
			a.streaming = true
			m.renderAssistant()
			return m, m.askCmd(history, question)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) askCmd(history []ai.Turn, question string) tea.Cmd {
	a := m.assistant.assistant
	events := m.events
	return func() tea.Msg {
		var full string
		err := a.Ask(context.Background(), history, question, ai.StreamEvents{
			OnToken: func(token string) {
				events <- aiTokenMsg(token)
			},
			OnComplete: func(text string) {
				full = text
			},
		})
		return aiDoneMsg{full: full, err: err}
	}
}

func (m *Model) renderAssistant() {
	a := m.assistant
	var b strings.Builder
	for _, turn := range a.history {
		label := m.styles.status.Render("assistant")
		if turn.FromUser {
			label = m.styles.patient.Render("you")
		}
		b.WriteString(label + ": " + turn.Text + "\n")
	}
	if a.streaming {
		b.WriteString(m.styles.status.Render("assistant") + ": " + a.partial)
		if a.partial == "" {
			b.WriteString(m.styles.faint.Render("thinking..."))
		}
		b.WriteString("\n")
	}
	m.view.SetContent(b.String())
	m.view.GotoBottom()
}

func (m Model) viewAssistant() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("valeo assistant"))
	b.WriteString("  ")
	b.WriteString(m.styles.faint.Render("not a diagnosis, see a clinician for anything serious"))
	b.WriteString("\n\n")
	b.WriteString(m.view.View())
	b.WriteString("\n")
	if m.statusLine != "" {
		b.WriteString(m.styles.warning.Render(m.statusLine) + "\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	return b.String()
}
