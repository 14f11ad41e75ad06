package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rexdotsh/valeo/internal/models"
)

func (m Model) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.sending {
			return m, nil
		}
		m.input.SetValue("")
		m.sending = true
		// The line shows up when the transcript poller reads it back,
		// which doubles as delivery confirmation.
		line := chatLine{sender: models.SenderPatient, text: text}
		return m, m.sendCmd(line)
	case "up":
		m.view.LineUp(1)
		return m, nil
	case "down":
		m.view.LineDown(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) sendCmd(line chatLine) tea.Cmd {
	c := m.client
	sessionID := m.sessionID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err := c.SendMessage(ctx, sessionID, line.sender, line.text)
		return sendDoneMsg{line: line, err: err}
	}
}

func (m *Model) renderTranscript() {
	var b strings.Builder
	for _, line := range m.transcript {
		label := m.styles.doctor.Render("doctor")
		if line.sender == models.SenderPatient {
			label = m.styles.patient.Render("you")
		}
		b.WriteString(label + ": " + line.text + "\n")
	}
	m.view.SetContent(b.String())
	m.view.GotoBottom()
}

func (m Model) viewChat() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("valeo consultation"))
	b.WriteString("  ")
	b.WriteString(m.styles.faint.Render(m.sessionID))
	b.WriteString("\n")

	switch m.state.Status() {
	case models.SessionStatusWaiting:
		pos := "..."
		if m.position != nil {
			pos = fmt.Sprintf("%d", *m.position)
		}
		b.WriteString(m.styles.status.Render("waiting, place in line: " + pos))
	default:
		b.WriteString(m.styles.status.Render(m.statusLine))
	}
	b.WriteString("\n\n")

	b.WriteString(m.view.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	return b.String()
}
