package mocks

import (
	"context"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/stretchr/testify/mock"
)

// Gateway is a testify mock of ports.Gateway.
type Gateway struct {
	mock.Mock
}

// NewGateway registers AssertExpectations on test cleanup.
func NewGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *Gateway {
	m := &Gateway{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Gateway) Login(ctx context.Context, email, password string) (domain.Credentials, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.Credentials), args.Error(1)
}

func (m *Gateway) StartSession(ctx context.Context, scenarioID domain.ScenarioID) (domain.Session, error) {
	args := m.Called(ctx, scenarioID)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *Gateway) SendMessage(ctx context.Context, sessionID domain.SessionID, content string) (domain.MessageExchange, error) {
	args := m.Called(ctx, sessionID, content)
	return args.Get(0).(domain.MessageExchange), args.Error(1)
}

func (m *Gateway) EndSession(ctx context.Context, sessionID domain.SessionID) (domain.Session, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *Gateway) GetSession(ctx context.Context, sessionID domain.SessionID) (domain.Session, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *Gateway) History(ctx context.Context, query domain.PageQuery) (domain.Envelope[domain.Page[domain.Session]], error) {
	args := m.Called(ctx, query)
	return args.Get(0).(domain.Envelope[domain.Page[domain.Session]]), args.Error(1)
}

func (m *Gateway) Feedback(ctx context.Context, sessionID domain.SessionID) (domain.Feedback, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.Feedback), args.Error(1)
}

func (m *Gateway) ListScenarios(ctx context.Context, filter domain.ScenarioFilter) (domain.Envelope[domain.Page[domain.Scenario]], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(domain.Envelope[domain.Page[domain.Scenario]]), args.Error(1)
}

func (m *Gateway) GetScenario(ctx context.Context, id domain.ScenarioID) (domain.Envelope[domain.Scenario], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Envelope[domain.Scenario]), args.Error(1)
}

func (m *Gateway) CreateScenario(ctx context.Context, scenario domain.Scenario) (domain.Envelope[domain.Scenario], error) {
	args := m.Called(ctx, scenario)
	return args.Get(0).(domain.Envelope[domain.Scenario]), args.Error(1)
}

func (m *Gateway) DeleteScenario(ctx context.Context, id domain.ScenarioID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Gateway) ListUsers(ctx context.Context, query domain.PageQuery) (domain.Envelope[domain.Page[domain.User]], error) {
	args := m.Called(ctx, query)
	return args.Get(0).(domain.Envelope[domain.Page[domain.User]]), args.Error(1)
}

func (m *Gateway) ListModels(ctx context.Context) (domain.Envelope[[]domain.AIModel], error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Envelope[[]domain.AIModel]), args.Error(1)
}
