package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mastertrainer/mt/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	aiStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("159"))
)

func labelStyle(role domain.Role) lipgloss.Style {
	switch role {
	case domain.RoleUser:
		return userStyle
	case domain.RoleAI:
		return aiStyle
	default:
		return faintStyle
	}
}

func (m Model) View() string {
	sections := []string{m.header(), m.transcript.View(), m.statusLine()}
	if m.phase != phaseEnded {
		sections = append(sections, m.input.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) header() string {
	title := "Roleplay"
	if scenario := m.controller.Scenario(); scenario != nil && strings.TrimSpace(scenario.Title) != "" {
		title = scenario.Title
		if name := strings.TrimSpace(scenario.Persona.Name); name != "" {
			title += " with " + name
		}
	}

	progress := m.controller.Progress()
	meta := fmt.Sprintf("turns %s, %d left", progress, progress.TurnsRemaining)
	return titleStyle.Render(title) + "  " + headerStyle.Render(meta)
}

func (m Model) statusLine() string {
	switch {
	case m.phase == phaseSending:
		return m.spinner.View() + " Waiting for the buyer..."
	case m.phase == phaseEnding:
		return m.spinner.View() + " Ending session..."
	case m.err != nil:
		return errorStyle.Render("error: " + m.err.Error())
	case m.status != "":
		return statusStyle.Render(m.status)
	default:
		return ""
	}
}
