// Package chat is the interactive terminal view of a roleplay session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mastertrainer/mt/internal/adapters/render/session"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
)

const (
	endCommand  = "/end"
	quitCommand = "/quit"

	defaultWidth  = 80
	defaultHeight = 24
	inputHeight   = 3
)

// Controller is the part of the roleplay controller the chat view drives.
type Controller interface {
	SendMessage(ctx context.Context, content string) (application.SendResult, error)
	EndSession(ctx context.Context, confirm application.ConfirmFunc) (application.EndResult, error)
	Session() domain.Session
	Scenario() *domain.Scenario
	Progress() application.Progress
}

type phase int

const (
	phaseComposing phase = iota
	phaseSending
	phaseConfirmEnd
	phaseEnding
	phaseEnded
)

type sentMsg struct {
	result application.SendResult
	err    error
}

type endedMsg struct {
	result application.EndResult
	err    error
}

type Model struct {
	ctx        context.Context
	controller Controller

	input      textarea.Model
	transcript viewport.Model
	spinner    spinner.Model

	phase  phase
	status string
	err    error
	width  int
}

func New(ctx context.Context, controller Controller) Model {
	input := textarea.New()
	input.Placeholder = "Type your pitch, " + endCommand + " to finish, " + quitCommand + " to leave"
	input.ShowLineNumbers = false
	input.CharLimit = domain.DefaultMaxMessageLength
	input.SetWidth(defaultWidth)
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	m := Model{
		ctx:        ctx,
		controller: controller,
		input:      input,
		transcript: viewport.New(defaultWidth, defaultHeight-inputHeight-4),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		width: defaultWidth,
	}
	if controller.Progress().TurnsRemaining == 0 {
		m.status = "No turns left, type " + endCommand + " to finish."
	}
	m.refreshTranscript()
	return m
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width)
		m.transcript.Width = msg.Width
		m.transcript.Height = max(msg.Height-inputHeight-4, 1)
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sentMsg:
		m.phase = phaseComposing
		m.err = msg.err
		m.status = ""
		if msg.err == nil {
			m.input.Reset()
			if msg.result.MustEnd {
				m.status = "Turn limit reached, type " + endCommand + " to finish."
			}
		}
		m.refreshTranscript()
		return m, nil

	case endedMsg:
		if msg.err != nil {
			m.phase = phaseComposing
			m.err = msg.err
			return m, nil
		}
		m.phase = phaseEnded
		m.err = nil
		m.status = fmt.Sprintf("Session %s ended. Feedback will be available shortly.", msg.result.Session.ID)
		m.refreshTranscript()
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.phase {
	case phaseSending, phaseEnding, phaseEnded:
		return m, nil
	case phaseConfirmEnd:
		switch strings.ToLower(msg.String()) {
		case "y":
			m.phase = phaseEnding
			m.status = ""
			return m, tea.Batch(m.spinner.Tick, m.end())
		case "n", "esc":
			m.phase = phaseComposing
			m.status = ""
		}
		return m, nil
	}

	if msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown {
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	content := strings.TrimSpace(m.input.Value())
	switch content {
	case "":
		return m, nil
	case quitCommand:
		return m, tea.Quit
	case endCommand:
		m.input.Reset()
		m.phase = phaseConfirmEnd
		progress := m.controller.Progress()
		m.status = fmt.Sprintf("End the session after %s turns? (y/n)", progress)
		return m, nil
	}

	m.phase = phaseSending
	m.err = nil
	return m, tea.Batch(m.spinner.Tick, m.send(content))
}

func (m Model) send(content string) tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		result, err := controller.SendMessage(ctx, content)
		return sentMsg{result: result, err: err}
	}
}

// end runs after the y/n prompt, so the controller confirmation always
// accepts.
func (m Model) end() tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		result, err := controller.EndSession(ctx, func(application.Progress) bool { return true })
		return endedMsg{result: result, err: err}
	}
}

func (m Model) busy() bool {
	return m.phase == phaseSending || m.phase == phaseEnding
}

func (m *Model) refreshTranscript() {
	messages := m.controller.Session().Messages
	wrap := lipgloss.NewStyle().Width(max(m.width, 20))

	lines := make([]string, 0, len(messages))
	for _, message := range messages {
		label := labelStyle(message.Role).Render(session.RoleLabel(message.Role) + ":")
		lines = append(lines, wrap.Render(label+" "+message.Content))
	}
	if len(lines) == 0 {
		lines = append(lines, faintStyle.Render("Open the conversation."))
	}

	m.transcript.SetContent(strings.Join(lines, "\n"))
	m.transcript.GotoBottom()
}

// Err is the last send or end failure still shown to the user.
func (m Model) Err() error {
	return m.err
}

// Ended reports whether the session was ended from the view.
func (m Model) Ended() bool {
	return m.phase == phaseEnded
}

// ErrUnexpectedChatModel is returned when the program exits with a model of
// another type.
var ErrUnexpectedChatModel = errors.New("unexpected final chat model type")

// Run blocks until the user ends the session or leaves the view.
func Run(ctx context.Context, controller Controller, input io.Reader, output io.Writer) (Model, error) {
	p := tea.NewProgram(
		New(ctx, controller),
		tea.WithContext(ctx),
		tea.WithInput(input),
		tea.WithOutput(output),
		tea.WithAltScreen(),
	)

	finalModel, err := p.Run()
	if err != nil {
		return Model{}, err
	}

	result, ok := finalModel.(Model)
	if !ok {
		return Model{}, ErrUnexpectedChatModel
	}
	return result, nil
}
