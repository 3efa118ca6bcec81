package session

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 10, 12, 30, 0, time.UTC)

func testView() View {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return View{
		Session: domain.Session{
			ID:        "sess-1",
			Status:    domain.SessionActive,
			StartedAt: started,
			Messages: []domain.Message{
				{Role: domain.RoleUser, Content: "Thanks for taking the call today.", Timestamp: started.Add(time.Minute)},
				{Role: domain.RoleAI, Content: "Dana: Make it quick.", Timestamp: started.Add(2 * time.Minute)},
			},
		},
		Scenario: &domain.Scenario{
			Title:   "Cold call",
			Persona: domain.Persona{Name: "Dana", Role: "Ops lead", Company: "Freightly"},
		},
		Progress: application.Progress{MessagesSent: 1, MaxTurns: 4, TurnsRemaining: 3},
	}
}

func TestRenderSessionTranscript(t *testing.T) {
	out, err := Render(testView(), RenderOptions{Now: testNow})
	require.NoError(t, err)

	assert.Contains(t, out, "Cold call (sess-1)")
	assert.Contains(t, out, "status: active")
	assert.Contains(t, out, "duration: 12m30s")
	assert.Contains(t, out, "Dana, Ops lead at Freightly")
	assert.Contains(t, out, "turns:")
	assert.Contains(t, out, "1/4")
	assert.Contains(t, out, "(3 left)")
	assert.Contains(t, out, "10:01 You: Thanks for taking the call today.")
	assert.Contains(t, out, "Buyer: Dana: Make it quick.")
	assert.NotContains(t, out, "[end the session]")
}

func TestRenderWarnsWhenTurnsAreSpent(t *testing.T) {
	view := testView()
	view.Progress = application.Progress{MessagesSent: 4, MaxTurns: 4, TurnsRemaining: 0}

	out, err := Render(view, RenderOptions{Now: testNow, HideTranscript: true})
	require.NoError(t, err)

	assert.Contains(t, out, "[end the session]")
	assert.NotContains(t, out, "Make it quick")
}

func TestRenderEmptyTranscriptAndNotice(t *testing.T) {
	out, err := Render(View{
		Session: domain.Session{ID: "demo", Status: domain.SessionActive},
		Notice:  "offline demo session",
	}, RenderOptions{})
	require.NoError(t, err)

	assert.Contains(t, out, "Session demo")
	assert.Contains(t, out, "offline demo session")
	assert.Contains(t, out, "No messages yet.")
	assert.Contains(t, out, "messages: 0")
}

func TestRenderIncludesFeedback(t *testing.T) {
	view := testView()
	view.Feedback = &domain.Feedback{
		OverallScore:    7.5,
		Scores:          map[string]float64{"rapport": 8, "discovery": 6},
		Summary:         "Good opener.",
		Recommendations: []string{"Ask about budget earlier."},
	}

	out, err := Render(view, RenderOptions{Now: testNow})
	require.NoError(t, err)

	assert.Contains(t, out, "overall: 7.5/10")
	assert.Less(t, strings.Index(out, "discovery:"), strings.Index(out, "rapport:"))
	assert.Contains(t, out, "Good opener.")
	assert.Contains(t, out, "- Ask about budget earlier.")
}

func TestRenderProgressBar(t *testing.T) {
	s := newStyles()

	assert.Equal(t, "[====----]", stripANSI(renderProgressBar(50, 8, s)))
	assert.Equal(t, "[--------]", stripANSI(renderProgressBar(-5, 8, s)))
	assert.Equal(t, "[========]", stripANSI(renderProgressBar(150, 8, s)))
	assert.Empty(t, renderProgressBar(50, 0, s))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m05s", formatDuration(2*time.Minute+5*time.Second))
}

func TestInterpolateColor(t *testing.T) {
	assert.Equal(t, lipgloss.Color("240"), interpolateColor(0, 0, 100))
	assert.Equal(t, lipgloss.Color("255"), interpolateColor(100, 0, 100))
	assert.Equal(t, lipgloss.Color("255"), interpolateColor(5, 5, 5))
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
