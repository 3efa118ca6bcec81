package session

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	persona    lipgloss.Style
	detail     lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	userRole   lipgloss.Style
	aiRole     lipgloss.Style
	systemRole lipgloss.Style
	content    lipgloss.Style
	timestamp  lipgloss.Style
	score      lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		persona:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		userRole:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		aiRole:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		systemRole: lipgloss.NewStyle().Faint(true),
		content:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		timestamp:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		score:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
