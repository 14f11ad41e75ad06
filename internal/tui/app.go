package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rexdotsh/valeo/internal/ai"
	"github.com/rexdotsh/valeo/internal/client"
	"github.com/rexdotsh/valeo/internal/dtos"
	"github.com/rexdotsh/valeo/internal/models"
	"github.com/rexdotsh/valeo/internal/session"
	"github.com/rexdotsh/valeo/internal/triage"
)

type mode int

const (
	modeIntake mode = iota
	modeWaiting
	modeChat
	modeAssistant
	modeEnded
)

// Options configure the terminal client.
type Options struct {
	// Token joins an existing session directly in text-only mode. Empty
	// means the intake questionnaire runs first.
	Token string
	// Category and Language seed the triage snapshot of a new session.
	Category string
	Language string
	// Assistant switches to the standalone medical assistant chat. It is
	// nil when no endpoint is configured.
	Assistant *ai.Assistant
	// AssistantMode starts in assistant chat instead of a consultation.
	AssistantMode bool
}

type styles struct {
	title   lipgloss.Style
	status  lipgloss.Style
	warning lipgloss.Style
	patient lipgloss.Style
	doctor  lipgloss.Style
	faint   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		patient: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		doctor:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		faint:   lipgloss.NewStyle().Faint(true),
	}
}

// Model is the root bubbletea model for the terminal client.
type Model struct {
	mode   mode
	opts   Options
	client *client.Client
	styles styles

	intake    *triage.Intake
	intakeErr string

	sessionID string
	state     *session.State
	position  *int

	// events carries poller callbacks into the update loop.
	events      chan tea.Msg
	queuePoller *session.QueuePoller
	msgPoller   *session.MessagePoller
	pollCancel  context.CancelFunc

	transcript []chatLine
	sending    bool

	assistant  *assistantState
	input      textinput.Model
	view       viewport.Model
	width      int
	height     int
	ready      bool
	fatal      error
	statusLine string
}

type chatLine struct {
	sender models.SenderRole
	text   string
}

// New builds the root model.
func New(c *client.Client, opts Options) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	m := Model{
		opts:   opts,
		client: c,
		styles: newStyles(),
		state:  session.NewState(),
		events: make(chan tea.Msg, 64),
		input:  input,
		view:   viewport.New(0, 0),
	}

	switch {
	case opts.AssistantMode:
		m.mode = modeAssistant
		m.assistant = newAssistantState(opts.Assistant)
	case opts.Token != "":
		m.mode = modeWaiting
		m.sessionID = opts.Token
		m.statusLine = "joining session..."
	default:
		m.mode = modeIntake
		m.intake = triage.NewIntake(c, opts.Category, opts.Language)
	}
	return m
}

// Init starts the event pump and, when joining by token, the pollers.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.listen()}
	if m.mode == modeWaiting {
		cmds = append(cmds, m.startPollingCmd())
	}
	return tea.Batch(cmds...)
}

// listen forwards one poller event into the update loop, then re-arms.
func (m Model) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

type queueUpdateMsg session.QueueUpdate

type inboundChatMsg dtos.MessageEntry

type submitDoneMsg struct {
	token string
	err   error
}

type sendDoneMsg struct {
	line chatLine
	err  error
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Width = msg.Width
		m.view.Height = msg.Height - 5
		if m.view.Height < 3 {
			m.view.Height = 3
		}
		m.ready = true
		m.renderTranscript()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.stopPolling()
			return m, tea.Quit
		}

	case queueUpdateMsg:
		m.position = msg.Position
		if m.state.Observe(msg.Status) {
			m.onStatusAdvance()
		}
		return m, m.listen()

	case inboundChatMsg:
		m.transcript = append(m.transcript, chatLine{
			sender: models.SenderRole(msg.Sender),
			text:   msg.Text,
		})
		m.renderTranscript()
		return m, m.listen()

	case submitDoneMsg:
		if msg.err != nil {
			m.intakeErr = "could not reach the clinic, press enter to retry"
			return m, nil
		}
		m.sessionID = msg.token
		m.mode = modeWaiting
		m.statusLine = "you are in the queue"
		return m, m.startPollingCmd()

	case sendDoneMsg:
		m.sending = false
		if msg.err != nil {
			m.statusLine = "message failed to send, it was not delivered"
		}
		return m, nil
	}

	switch m.mode {
	case modeIntake:
		return m.updateIntake(msg)
	case modeWaiting, modeChat:
		return m.updateChat(msg)
	case modeAssistant:
		return m.updateAssistant(msg)
	case modeEnded:
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) onStatusAdvance() {
	switch m.state.Status() {
	case models.SessionStatusClaimed, models.SessionStatusInCall:
		m.mode = modeChat
		m.statusLine = "a doctor has joined, you can chat below"
	case models.SessionStatusEnded:
		m.mode = modeEnded
		m.stopPolling()
		m.statusLine = "the consultation has ended"
	}
}

func (m *Model) startPollingCmd() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.pollCancel = cancel

	events := m.events
	m.queuePoller = session.NewQueuePoller(m.client, m.sessionID, 0, func(u session.QueueUpdate) {
		events <- queueUpdateMsg(u)
	})
	m.msgPoller = session.NewMessagePoller(m.client, m.sessionID, 0, func(entry dtos.MessageEntry) {
		events <- inboundChatMsg(entry)
	})
	m.queuePoller.Start(ctx)
	m.msgPoller.Start(ctx)
	return nil
}

func (m *Model) stopPolling() {
	if m.queuePoller != nil {
		m.queuePoller.Stop()
	}
	if m.msgPoller != nil {
		m.msgPoller.Stop()
	}
	if m.pollCancel != nil {
		m.pollCancel()
	}
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.fatal != nil {
		return m.styles.warning.Render("error: "+m.fatal.Error()) + "\n"
	}
	switch m.mode {
	case modeIntake:
		return m.viewIntake()
	case modeWaiting, modeChat:
		return m.viewChat()
	case modeAssistant:
		return m.viewAssistant()
	case modeEnded:
		return m.styles.title.Render("consultation ended") + "\n\n" +
			m.styles.faint.Render("press enter to exit") + "\n"
	}
	return ""
}
