// Package catalog renders the list screens: scenarios, session history and
// the admin tables.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mastertrainer/mt/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	emptyStyle  = lipgloss.NewStyle().Faint(true)
	noticeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
)

// Options are shared by every list.
type Options struct {
	// Notice is printed under the title, e.g. when fallback data is shown.
	Notice string
}

func Scenarios(page domain.Page[domain.Scenario], opts Options) string {
	rows := make([][]string, 0, len(page.Items))
	for _, scenario := range page.Items {
		rows = append(rows, []string{
			string(scenario.ID),
			scenario.Title,
			scenario.Category,
			scenario.Difficulty.Label(),
			formatMinutes(scenario.EstimatedDuration),
			scenario.Persona.Name,
		})
	}

	return render("Scenarios", opts, []string{"ID", "TITLE", "CATEGORY", "DIFFICULTY", "DURATION", "PERSONA"}, rows, footer(page.Page, page.TotalPages, page.Total))
}

// Scenario is the detail view of one scenario.
func Scenario(scenario domain.Scenario) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s (%s)", scenario.Title, scenario.ID)),
		footerStyle.Render(fmt.Sprintf("%s  %s  %s", scenario.Difficulty.Label(), scenario.Category, formatMinutes(scenario.EstimatedDuration))),
	}
	if scenario.Description != "" {
		lines = append(lines, "", scenario.Description)
	}

	persona := scenario.Persona
	lines = append(lines, "", headerStyle.Render("Persona"), fmt.Sprintf("%s, %s at %s", persona.Name, persona.Role, persona.Company))
	if persona.Personality != "" {
		lines = append(lines, "personality: "+persona.Personality)
	}
	if persona.Background != "" {
		lines = append(lines, "background: "+persona.Background)
	}
	lines = appendList(lines, "Concerns", persona.Concerns)
	lines = appendList(lines, "Objections", scenario.Objections)
	lines = appendList(lines, "Ideal responses", scenario.IdealResponses)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func History(page domain.Page[domain.Session], now time.Time, opts Options) string {
	rows := make([][]string, 0, len(page.Items))
	for _, session := range page.Items {
		started := ""
		if !session.StartedAt.IsZero() {
			started = session.StartedAt.Format("2006-01-02 15:04")
		}
		score := ""
		if session.Feedback != nil {
			score = strconv.FormatFloat(session.Feedback.OverallScore, 'f', 1, 64)
		}
		rows = append(rows, []string{
			string(session.ID),
			string(session.ScenarioID),
			string(session.Status),
			started,
			strconv.Itoa(session.UserTurns()),
			formatDuration(session.Duration(now)),
			score,
		})
	}

	return render("History", opts, []string{"SESSION", "SCENARIO", "STATUS", "STARTED", "TURNS", "DURATION", "SCORE"}, rows, footer(page.Page, page.TotalPages, page.Total))
}

func Users(page domain.Page[domain.User], opts Options) string {
	rows := make([][]string, 0, len(page.Items))
	for _, user := range page.Items {
		created := ""
		if !user.CreatedAt.IsZero() {
			created = user.CreatedAt.Format("2006-01-02")
		}
		rows = append(rows, []string{string(user.ID), user.Email, user.Name, user.Role, created})
	}

	return render("Users", opts, []string{"ID", "EMAIL", "NAME", "ROLE", "CREATED"}, rows, footer(page.Page, page.TotalPages, page.Total))
}

func Models(models []domain.AIModel, opts Options) string {
	rows := make([][]string, 0, len(models))
	for _, model := range models {
		active := "no"
		if model.Active {
			active = "yes"
		}
		rows = append(rows, []string{model.ID, model.Name, model.Provider, model.Purpose, active})
	}

	return render("Models", opts, []string{"ID", "NAME", "PROVIDER", "PURPOSE", "ACTIVE"}, rows, fmt.Sprintf("models: %d", len(models)))
}

func render(title string, opts Options, headers []string, rows [][]string, foot string) string {
	lines := []string{titleStyle.Render(title)}
	if opts.Notice != "" {
		lines = append(lines, noticeStyle.Render(opts.Notice))
	}

	if len(rows) == 0 {
		lines = append(lines, emptyStyle.Render(fmt.Sprintf("No %s found.", strings.ToLower(title))))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.PaddingRight(1)
			}
			return cellStyle
		})

	lines = append(lines, t.String(), footerStyle.Render(foot))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func appendList(lines []string, heading string, items []string) []string {
	if len(items) == 0 {
		return lines
	}
	lines = append(lines, "", headerStyle.Render(heading))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return lines
}

func footer(page, totalPages, total int) string {
	if totalPages < 1 {
		totalPages = 1
	}
	return fmt.Sprintf("page %d/%d  total: %d", page, totalPages, total)
}

func formatMinutes(minutes int) string {
	if minutes <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d min", minutes)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	return fmt.Sprintf("%dm", int(d/time.Minute))
}
