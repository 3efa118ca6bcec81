package application

import (
	"time"

	"github.com/mastertrainer/mt/internal/domain"
)

const (
	ResourceScenarios = "scenarios"
	ResourceScenario  = "scenario"
	ResourceHistory   = "history"
	ResourceUsers     = "users"
	ResourceModels    = "models"
)

type FallbackProvider interface {
	Fallback(resource string) (any, bool)
}

// Fallbacks maps a resource key to the payload served when its fetch fails.
// An empty map disables fallbacks.
type Fallbacks map[string]any

func (f Fallbacks) Fallback(resource string) (any, bool) {
	payload, ok := f[resource]
	return payload, ok
}

// DemoFallbacks keeps read-only views populated without a gateway.
func DemoFallbacks() Fallbacks {
	scenarios := DemoScenarios()
	users := DemoUsers()

	return Fallbacks{
		ResourceScenarios: domain.Paginate(scenarios, domain.PageQuery{}),
		ResourceScenario:  scenarios[0],
		ResourceHistory:   domain.Paginate(DemoSessions(), domain.PageQuery{}),
		ResourceUsers:     domain.Paginate(users, domain.PageQuery{}),
		ResourceModels:    DemoModels(),
	}
}

var demoEpoch = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

func DemoScenarios() []domain.Scenario {
	return []domain.Scenario{
		{
			ID:          "demo-cold-call",
			Title:       "Cold call to an operations lead",
			Description: "Open a first conversation with a logistics company that has never heard of you.",
			Persona: domain.Persona{
				Name:        "Dana Whitfield",
				Role:        "Head of Operations",
				Company:     "Northwind Freight",
				Background:  "Runs a 40-person dispatch team and owns the current routing tooling.",
				Concerns:    []string{"switching costs", "team training time"},
				Personality: "Busy, direct, skeptical of vendors",
			},
			Objections: []string{
				"I only have a couple of minutes, what is this about?",
				"We already have a routing vendor we are happy with.",
				"Send me an email and I will look at it.",
			},
			IdealResponses: []string{
				"Lead with a specific outcome relevant to dispatch teams.",
				"Ask about the gaps in the current vendor before pitching.",
				"Secure a concrete follow-up slot instead of an email.",
			},
			Difficulty:        domain.DifficultyBeginner,
			Category:          "prospecting",
			EstimatedDuration: 10,
		},
		{
			ID:          "demo-pricing",
			Title:       "Pricing pushback at renewal",
			Description: "The customer wants a 30% discount before they sign the renewal.",
			Persona: domain.Persona{
				Name:        "Marcus Lee",
				Role:        "Procurement Manager",
				Company:     "Helios Retail",
				Background:  "Measured on cost savings and has a competing quote.",
				Concerns:    []string{"budget cuts", "the competing quote"},
				Personality: "Analytical, patient negotiator",
			},
			Objections: []string{
				"Your competitor is offering the same thing for much less.",
				"Our budget was cut this quarter.",
				"I need a 30% reduction to get this approved.",
			},
			IdealResponses: []string{
				"Reframe around value delivered during the last term.",
				"Trade concessions for commitments such as term length.",
			},
			Difficulty:        domain.DifficultyIntermediate,
			Category:          "negotiation",
			EstimatedDuration: 16,
		},
		{
			ID:          "demo-executive",
			Title:       "Executive sponsor meeting",
			Description: "Present the business case to a CFO who joined the deal late.",
			Persona: domain.Persona{
				Name:        "Priya Raman",
				Role:        "Chief Financial Officer",
				Company:     "Atlas Manufacturing",
				Background:  "Joined the evaluation in its final week and questions the ROI model.",
				Concerns:    []string{"payback period", "implementation risk", "data security"},
				Personality: "Sharp, numbers-driven, impatient with jargon",
			},
			Objections: []string{
				"Walk me through how you got to these ROI numbers.",
				"What happens if the rollout slips by six months?",
				"Why should this be a priority this year?",
			},
			IdealResponses: []string{
				"Anchor the ROI on the customer's own metrics.",
				"Describe the mitigation plan and reference customers.",
			},
			Difficulty:        domain.DifficultyAdvanced,
			Category:          "executive",
			EstimatedDuration: 24,
		},
	}
}

func DemoSessions() []domain.Session {
	completed := demoEpoch.Add(14 * time.Minute)
	abandoned := demoEpoch.Add(24*time.Hour + 6*time.Minute)
	return []domain.Session{
		{
			ID:          "demo-session-1",
			UserID:      "demo-user",
			ScenarioID:  "demo-cold-call",
			Status:      domain.SessionCompleted,
			StartedAt:   demoEpoch,
			CompletedAt: &completed,
			Feedback: &domain.Feedback{
				SessionID:       "demo-session-1",
				OverallScore:    7.5,
				Scores:          map[string]float64{"opening": 8, "discovery": 7, "closing": 7.5},
				Summary:         "Strong opening, discovery questions could go deeper.",
				Recommendations: []string{"Ask about the cost of the current process before pitching."},
			},
		},
		{
			ID:          "demo-session-2",
			UserID:      "demo-user",
			ScenarioID:  "demo-pricing",
			Status:      domain.SessionAbandoned,
			StartedAt:   demoEpoch.Add(24 * time.Hour),
			CompletedAt: &abandoned,
		},
	}
}

func DemoUsers() []domain.User {
	return []domain.User{
		{ID: "demo-admin", Email: "admin@example.com", Name: "Demo Admin", Role: "admin", CreatedAt: demoEpoch},
		{ID: "demo-user", Email: "rep@example.com", Name: "Demo Rep", Role: "user", CreatedAt: demoEpoch},
	}
}

func DemoModels() []domain.AIModel {
	return []domain.AIModel{
		{ID: "qwen-plus", Name: "Qwen Plus", Provider: "dashscope", Purpose: "persona", Active: true},
		{ID: "text-embedding-v2", Name: "Text Embedding v2", Provider: "dashscope", Purpose: "embedding", Active: true},
		{ID: "paraformer-realtime-v2", Name: "Paraformer Realtime", Provider: "dashscope", Purpose: "speech", Active: false},
	}
}
