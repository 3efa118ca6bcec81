package ports

import (
	"context"

	"github.com/mastertrainer/mt/internal/domain"
)

// Gateway is the remote Master Trainer API. Failed envelopes and non-2xx
// responses come back as *domain.TransportError.
type Gateway interface {
	Login(ctx context.Context, email, password string) (domain.Credentials, error)

	StartSession(ctx context.Context, scenarioID domain.ScenarioID) (domain.Session, error)
	SendMessage(ctx context.Context, sessionID domain.SessionID, content string) (domain.MessageExchange, error)
	EndSession(ctx context.Context, sessionID domain.SessionID) (domain.Session, error)
	GetSession(ctx context.Context, sessionID domain.SessionID) (domain.Session, error)
	History(ctx context.Context, query domain.PageQuery) (domain.Envelope[domain.Page[domain.Session]], error)
	Feedback(ctx context.Context, sessionID domain.SessionID) (domain.Feedback, error)

	ListScenarios(ctx context.Context, filter domain.ScenarioFilter) (domain.Envelope[domain.Page[domain.Scenario]], error)
	GetScenario(ctx context.Context, id domain.ScenarioID) (domain.Envelope[domain.Scenario], error)
	CreateScenario(ctx context.Context, scenario domain.Scenario) (domain.Envelope[domain.Scenario], error)
	DeleteScenario(ctx context.Context, id domain.ScenarioID) error

	ListUsers(ctx context.Context, query domain.PageQuery) (domain.Envelope[domain.Page[domain.User]], error)
	ListModels(ctx context.Context) (domain.Envelope[[]domain.AIModel], error)
}
