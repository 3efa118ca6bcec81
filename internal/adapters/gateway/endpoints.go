package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mastertrainer/mt/internal/adapters/wire"
	"github.com/mastertrainer/mt/internal/domain"
)

func (c *Client) Login(ctx context.Context, email, password string) (domain.Credentials, error) {
	envelope, err := do[wire.LoginResponse](ctx, c, call{
		op:     "login",
		method: http.MethodPost,
		path:   "/auth/login",
		body:   wire.LoginRequest{Email: email, Password: password},
		anon:   true,
	})
	if err != nil {
		return domain.Credentials{}, err
	}

	resp, err := data("login", envelope)
	if err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{Token: resp.Token, User: wire.ToUser(resp.User)}, nil
}

func (c *Client) StartSession(ctx context.Context, scenarioID domain.ScenarioID) (domain.Session, error) {
	return c.session(ctx, call{
		op:       "start session",
		method:   http.MethodPost,
		path:     "/roleplay/start",
		body:     wire.StartRequest{ScenarioID: string(scenarioID)},
		notFound: domain.ErrScenarioNotFound,
	})
}

func (c *Client) SendMessage(ctx context.Context, sessionID domain.SessionID, content string) (domain.MessageExchange, error) {
	envelope, err := do[wire.Exchange](ctx, c, call{
		op:       "send message",
		method:   http.MethodPost,
		path:     "/roleplay/message",
		body:     wire.MessageRequest{SessionID: string(sessionID), Content: content},
		notFound: domain.ErrSessionNotFound,
	})
	if err != nil {
		return domain.MessageExchange{}, err
	}

	exchange, err := data("send message", envelope)
	if err != nil {
		return domain.MessageExchange{}, err
	}
	return wire.ToExchange(exchange), nil
}

func (c *Client) EndSession(ctx context.Context, sessionID domain.SessionID) (domain.Session, error) {
	return c.session(ctx, call{
		op:       "end session",
		method:   http.MethodPost,
		path:     "/roleplay/end",
		body:     wire.EndRequest{SessionID: string(sessionID)},
		notFound: domain.ErrSessionNotFound,
	})
}

func (c *Client) GetSession(ctx context.Context, sessionID domain.SessionID) (domain.Session, error) {
	return c.session(ctx, call{
		op:       "get session",
		method:   http.MethodGet,
		path:     "/roleplay/session/" + url.PathEscape(string(sessionID)),
		notFound: domain.ErrSessionNotFound,
	})
}

func (c *Client) session(ctx context.Context, request call) (domain.Session, error) {
	envelope, err := do[wire.Session](ctx, c, request)
	if err != nil {
		return domain.Session{}, err
	}

	session, err := data(request.op, envelope)
	if err != nil {
		return domain.Session{}, err
	}
	return wire.ToSession(session), nil
}

func (c *Client) History(ctx context.Context, query domain.PageQuery) (domain.Envelope[domain.Page[domain.Session]], error) {
	envelope, err := do[wire.Page[wire.Session]](ctx, c, call{
		op:     "list history",
		method: http.MethodGet,
		path:   "/roleplay/history",
		query:  pageParams(query),
	})
	if err != nil {
		return domain.Envelope[domain.Page[domain.Session]]{}, err
	}
	return toDomainEnvelope(envelope, func(page wire.Page[wire.Session]) domain.Page[domain.Session] {
		return wire.MapPage(page, wire.ToSession)
	}), nil
}

// Feedback answers domain.ErrFeedbackPending until the session has been
// scored.
func (c *Client) Feedback(ctx context.Context, sessionID domain.SessionID) (domain.Feedback, error) {
	envelope, err := do[wire.Feedback](ctx, c, call{
		op:       "get feedback",
		method:   http.MethodGet,
		path:     "/feedback/session/" + url.PathEscape(string(sessionID)),
		notFound: domain.ErrFeedbackPending,
	})
	if err != nil {
		return domain.Feedback{}, err
	}
	if envelope.Success && envelope.Data == nil {
		return domain.Feedback{}, domain.ErrFeedbackPending
	}

	feedback, err := data("get feedback", envelope)
	if err != nil {
		return domain.Feedback{}, err
	}
	return wire.ToFeedback(feedback), nil
}

func (c *Client) ListScenarios(ctx context.Context, filter domain.ScenarioFilter) (domain.Envelope[domain.Page[domain.Scenario]], error) {
	filter = filter.Normalize()
	params := pageParams(domain.PageQuery{Page: filter.Page, PageSize: filter.PageSize})
	if filter.Category != "" {
		params["category"] = filter.Category
	}
	if filter.Difficulty != "" {
		params["difficulty"] = string(filter.Difficulty)
	}
	if filter.Search != "" {
		params["search"] = filter.Search
	}

	envelope, err := do[wire.Page[wire.Scenario]](ctx, c, call{
		op:     "list scenarios",
		method: http.MethodGet,
		path:   "/scenarios",
		query:  params,
	})
	if err != nil {
		return domain.Envelope[domain.Page[domain.Scenario]]{}, err
	}
	return toDomainEnvelope(envelope, func(page wire.Page[wire.Scenario]) domain.Page[domain.Scenario] {
		return wire.MapPage(page, wire.ToScenario)
	}), nil
}

func (c *Client) GetScenario(ctx context.Context, id domain.ScenarioID) (domain.Envelope[domain.Scenario], error) {
	envelope, err := do[wire.Scenario](ctx, c, call{
		op:       "get scenario",
		method:   http.MethodGet,
		path:     "/scenarios/" + url.PathEscape(string(id)),
		notFound: domain.ErrScenarioNotFound,
	})
	if err != nil {
		return domain.Envelope[domain.Scenario]{}, err
	}
	return toDomainEnvelope(envelope, wire.ToScenario), nil
}

func (c *Client) CreateScenario(ctx context.Context, scenario domain.Scenario) (domain.Envelope[domain.Scenario], error) {
	envelope, err := do[wire.Scenario](ctx, c, call{
		op:     "create scenario",
		method: http.MethodPost,
		path:   "/scenarios",
		body:   wire.FromScenario(scenario),
	})
	if err != nil {
		return domain.Envelope[domain.Scenario]{}, err
	}
	return toDomainEnvelope(envelope, wire.ToScenario), nil
}

func (c *Client) DeleteScenario(ctx context.Context, id domain.ScenarioID) error {
	envelope, err := do[struct{}](ctx, c, call{
		op:       "delete scenario",
		method:   http.MethodDelete,
		path:     "/scenarios/" + url.PathEscape(string(id)),
		notFound: domain.ErrScenarioNotFound,
	})
	if err != nil {
		return err
	}
	if !envelope.Success {
		return &domain.TransportError{Op: "delete scenario", Message: envelope.Message, Err: &domain.EnvelopeError{Message: envelope.Message}}
	}
	return nil
}

func (c *Client) ListUsers(ctx context.Context, query domain.PageQuery) (domain.Envelope[domain.Page[domain.User]], error) {
	envelope, err := do[wire.Page[wire.User]](ctx, c, call{
		op:     "list users",
		method: http.MethodGet,
		path:   "/admin/users",
		query:  pageParams(query),
	})
	if err != nil {
		return domain.Envelope[domain.Page[domain.User]]{}, err
	}
	return toDomainEnvelope(envelope, func(page wire.Page[wire.User]) domain.Page[domain.User] {
		return wire.MapPage(page, wire.ToUser)
	}), nil
}

func (c *Client) ListModels(ctx context.Context) (domain.Envelope[[]domain.AIModel], error) {
	envelope, err := do[[]wire.AIModel](ctx, c, call{
		op:     "list models",
		method: http.MethodGet,
		path:   "/admin/models",
	})
	if err != nil {
		return domain.Envelope[[]domain.AIModel]{}, err
	}
	return toDomainEnvelope(envelope, func(models []wire.AIModel) []domain.AIModel {
		out := make([]domain.AIModel, 0, len(models))
		for _, model := range models {
			out = append(out, wire.ToModel(model))
		}
		return out
	}), nil
}

func pageParams(query domain.PageQuery) map[string]string {
	query = query.Normalize()
	return map[string]string{
		"page":     strconv.Itoa(query.Page),
		"pageSize": strconv.Itoa(query.PageSize),
	}
}
