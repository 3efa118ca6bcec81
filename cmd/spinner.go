package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

type requestFinishedMsg struct{ err error }

// pendingRequest draws "<spinner> label" until its request reports back.
type pendingRequest struct {
	label    string
	run      tea.Cmd
	spinner  spinner.Model
	finished bool
	err      error
}

func (m pendingRequest) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m pendingRequest) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case requestFinishedMsg:
		m.finished, m.err = true, msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m pendingRequest) View() string {
	if m.finished {
		return ""
	}
	return m.spinner.View() + " " + m.label
}

// runWithSpinner runs request, animating a spinner on output while it is
// in flight. Output that is not a terminal gets no animation.
func runWithSpinner(ctx context.Context, output io.Writer, label string, request func(context.Context) error) error {
	if !isTerminal(output) {
		return request(ctx)
	}

	model := pendingRequest{
		label:   label,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		run: func() tea.Msg {
			return requestFinishedMsg{err: request(ctx)}
		},
	}

	final, err := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(output),
	).Run()
	if err != nil {
		return err
	}

	done, ok := final.(pendingRequest)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", final)
	}
	return done.err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
