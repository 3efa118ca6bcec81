package session

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
)

const progressBarWidth = 24

// View is everything shown for one practice session.
type View struct {
	Session  domain.Session
	Scenario *domain.Scenario
	Progress application.Progress
	Feedback *domain.Feedback
	// Notice is printed under the header, e.g. for offline demo sessions.
	Notice string
}

type RenderOptions struct {
	Now time.Time
	// HideTranscript limits output to the header and progress line.
	HideTranscript bool
}

func renderView(view View, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(sessionTitle(view)),
		s.header.Render(sessionHeader(view.Session, opts.Now)),
	}
	if view.Scenario != nil && strings.TrimSpace(view.Scenario.Persona.Name) != "" {
		lines = append(lines, s.persona.Render(personaLine(view.Scenario.Persona)))
	}
	if view.Notice != "" {
		lines = append(lines, s.warning.Render(view.Notice))
	}
	lines = append(lines, progressLine(view.Progress, view.Session.Status, s))

	if !opts.HideTranscript {
		lines = append(lines, s.section.Render(renderTranscript(view.Session.Messages, s)))
	}

	if view.Feedback != nil {
		lines = append(lines, s.section.Render(RenderFeedback(*view.Feedback)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func sessionTitle(view View) string {
	if view.Scenario != nil && strings.TrimSpace(view.Scenario.Title) != "" {
		return fmt.Sprintf("%s (%s)", strings.TrimSpace(view.Scenario.Title), view.Session.ID)
	}
	return fmt.Sprintf("Session %s", view.Session.ID)
}

func sessionHeader(session domain.Session, now time.Time) string {
	status := string(session.Status)
	if status == "" {
		status = "unknown"
	}

	parts := []string{"status: " + status}
	if !session.StartedAt.IsZero() {
		parts = append(parts, "started: "+formatTimestamp(session.StartedAt, now))
		if duration := session.Duration(now); duration > 0 {
			parts = append(parts, "duration: "+formatDuration(duration))
		}
	}
	return strings.Join(parts, "  ")
}

func personaLine(persona domain.Persona) string {
	line := strings.TrimSpace(persona.Name)
	role := strings.TrimSpace(persona.Role)
	company := strings.TrimSpace(persona.Company)
	switch {
	case role != "" && company != "":
		line += fmt.Sprintf(", %s at %s", role, company)
	case role != "":
		line += ", " + role
	case company != "":
		line += ", " + company
	}
	return line
}

func progressLine(progress application.Progress, status domain.SessionStatus, s styles) string {
	if progress.MaxTurns <= 0 {
		return s.detail.Render(fmt.Sprintf("messages: %d", progress.MessagesSent))
	}

	usedPercent := float64(progress.MessagesSent) / float64(progress.MaxTurns) * 100
	leftPercent := clampPercent(100 - usedPercent)
	remainingStyle := lipgloss.NewStyle().Foreground(interpolateColor(leftPercent, 0, 100))

	parts := []string{
		s.detail.Render("turns:"),
		renderProgressBar(usedPercent, progressBarWidth, s),
		s.detail.Render(progress.String()),
		remainingStyle.Render(fmt.Sprintf("(%d left)", progress.TurnsRemaining)),
	}
	if progress.TurnsRemaining == 0 && status == domain.SessionActive {
		parts = append(parts, s.warning.Render("[end the session]"))
	}

	return strings.Join(parts, " ")
}

func renderTranscript(messages []domain.Message, s styles) string {
	if len(messages) == 0 {
		return s.empty.Render("No messages yet.")
	}

	lines := make([]string, 0, len(messages))
	for _, message := range messages {
		lines = append(lines, messageLine(message, s))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func messageLine(message domain.Message, s styles) string {
	label := roleStyle(message.Role, s).Render(RoleLabel(message.Role) + ":")
	line := label + " " + s.content.Render(message.Content)
	if !message.Timestamp.IsZero() {
		line = s.timestamp.Render(message.Timestamp.Format("15:04")) + " " + line
	}
	return line
}

func roleStyle(role domain.Role, s styles) lipgloss.Style {
	switch role {
	case domain.RoleUser:
		return s.userRole
	case domain.RoleAI:
		return s.aiRole
	default:
		return s.systemRole
	}
}

// RoleLabel is the speaker label printed before a message.
func RoleLabel(role domain.Role) string {
	switch role {
	case domain.RoleUser:
		return "You"
	case domain.RoleAI:
		return "Buyer"
	case domain.RoleSystem:
		return "System"
	default:
		return string(role)
	}
}

// RenderFeedback lays out scored feedback without running a program.
func RenderFeedback(feedback domain.Feedback) string {
	s := newStyles()
	lines := []string{
		s.title.Render("Feedback"),
		s.score.Render(fmt.Sprintf("overall: %s", formatScore(feedback.OverallScore))),
	}

	for _, name := range feedback.Dimensions() {
		score := feedback.Scores[name]
		lines = append(lines, fmt.Sprintf("%s %s %s",
			s.detail.Render(fmt.Sprintf("%-16s", name+":")),
			renderProgressBar(score*10, 10, s),
			s.detail.Render(formatScore(score)),
		))
	}

	if summary := strings.TrimSpace(feedback.Summary); summary != "" {
		lines = append(lines, s.section.Render(s.content.Render(summary)))
	}

	if len(feedback.Recommendations) > 0 {
		lines = append(lines, s.section.Render(s.header.Render("recommendations:")))
		for _, recommendation := range feedback.Recommendations {
			lines = append(lines, s.content.Render("- "+recommendation))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.1f/10", score)
}

func renderProgressBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	used := clampPercent(usedPercent)
	filled := int(math.Round(float64(width) * used / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	empty := width - filled
	fillSegment := s.barFill.Render(strings.Repeat("=", filled))
	emptySegment := s.barEmpty.Render(strings.Repeat("-", empty))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillSegment,
		emptySegment,
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatTimestamp(at, now time.Time) string {
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04")
	}

	return at.Format("15:04 on 02 Jan")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	if minutes == 0 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm%02ds", minutes, seconds)
}

// interpolateColor walks the greyscale ramp from 240 at min to 255 at max.
func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	colorCode := int(240.0 + 15.0*normalized)
	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
