package session

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// snapshot is a program that draws one frame and exits. Rendering inside
// bubbletea keeps lipgloss output identical to the interactive chat view.
type snapshot struct {
	draw  func() string
	frame string
}

type drawMsg struct{}

func (s snapshot) Init() tea.Cmd {
	return func() tea.Msg { return drawMsg{} }
}

func (s snapshot) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(drawMsg); ok {
		s.frame = s.draw()
		return s, tea.Quit
	}
	return s, nil
}

func (s snapshot) View() string {
	return s.frame
}

// Render lays out a session transcript with its turn progress.
func Render(view View, opts RenderOptions) (string, error) {
	st := newStyles()
	program := tea.NewProgram(
		snapshot{draw: func() string { return renderView(view, opts, st) }},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := program.Run()
	if err != nil {
		return "", err
	}
	done, ok := final.(snapshot)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}
	return done.frame, nil
}
