package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
)

// SessionService continues one practice session across CLI invocations by
// keeping the active session id in a StateRepository.
type SessionService struct {
	gateway ports.Gateway
	state   ports.StateRepository
	clock   ports.Clock
	logger  *slog.Logger
	config  ControllerConfig
}

func NewSessionService(gateway ports.Gateway, state ports.StateRepository, config ControllerConfig, clock ports.Clock, logger *slog.Logger) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &SessionService{
		gateway: gateway,
		state:   state,
		clock:   clock,
		logger:  logger,
		config:  config,
	}
}

// NewController returns a controller sharing the service's configuration.
func (s *SessionService) NewController() *RoleplayController {
	return NewRoleplayController(s.gateway, s.config, s.clock, s.logger)
}

func (s *SessionService) Start(ctx context.Context, scenarioID domain.ScenarioID) (*RoleplayController, error) {
	scenario := domain.Scenario{ID: scenarioID}
	envelope, err := s.gateway.GetScenario(ctx, scenarioID)
	switch {
	case err != nil:
		return nil, fmt.Errorf("get scenario: %w", err)
	case envelope.Success && envelope.Data != nil:
		scenario = *envelope.Data
	default:
		return nil, fmt.Errorf("get scenario: %w", &domain.EnvelopeError{Message: envelope.Message})
	}

	controller := s.NewController()
	session, err := controller.Start(ctx, scenario)
	if err != nil {
		return nil, err
	}

	active := ports.ActiveSession{
		SessionID:  session.ID,
		ScenarioID: scenario.ID,
		MaxTurns:   controller.Progress().MaxTurns,
	}
	if err := s.state.SaveActive(ctx, active); err != nil {
		return nil, fmt.Errorf("save active session: %w", err)
	}

	return controller, nil
}

// Resume loads the stored active session into a fresh controller. The
// stored turn budget wins over the configured policy.
func (s *SessionService) Resume(ctx context.Context) (*RoleplayController, ports.ActiveSession, error) {
	return s.resume(ctx, false)
}

// Attach is Resume with the scenario fetched for display. A failed scenario
// fetch only costs the title and persona.
func (s *SessionService) Attach(ctx context.Context) (*RoleplayController, ports.ActiveSession, error) {
	return s.resume(ctx, true)
}

func (s *SessionService) resume(ctx context.Context, withScenario bool) (*RoleplayController, ports.ActiveSession, error) {
	active, err := s.state.Active(ctx)
	if err != nil {
		return nil, ports.ActiveSession{}, fmt.Errorf("get active session: %w", err)
	}

	config := s.config
	if active.MaxTurns > 0 {
		config.Policy.Fixed = active.MaxTurns
	}
	controller := NewRoleplayController(s.gateway, config, s.clock, s.logger)

	scenario := &domain.Scenario{ID: active.ScenarioID}
	if withScenario && !IsDemoSession(active.SessionID) {
		envelope, err := s.gateway.GetScenario(ctx, active.ScenarioID)
		switch {
		case err != nil:
			s.logger.Warn("get scenario for display", "scenario", active.ScenarioID, "error", err)
		case envelope.Success && envelope.Data != nil:
			scenario = envelope.Data
		}
	}

	if _, err := controller.Load(ctx, active.SessionID, scenario); err != nil {
		return nil, active, err
	}

	return controller, active, nil
}

func (s *SessionService) Send(ctx context.Context, content string) (SendResult, error) {
	controller, _, err := s.Resume(ctx)
	if err != nil {
		return SendResult{}, err
	}
	defer controller.Close()

	return controller.SendMessage(ctx, content)
}

// End ends the stored session and marks it ended so a repeated end is a
// local no-op.
func (s *SessionService) End(ctx context.Context, confirm ConfirmFunc) (EndResult, error) {
	controller, active, err := s.Resume(ctx)
	if err != nil {
		return EndResult{}, err
	}
	defer controller.Close()

	if active.Ended {
		session := controller.Session()
		if IsDemoSession(active.SessionID) {
			session.Status = domain.SessionCompleted
		}
		return EndResult{Session: session, AlreadyEnded: true}, nil
	}

	result, err := controller.EndSession(ctx, confirm)
	if err != nil {
		return EndResult{}, err
	}

	active.Ended = true
	if err := s.state.SaveActive(ctx, active); err != nil {
		return result, fmt.Errorf("save active session: %w", err)
	}

	return result, nil
}

// Feedback fetches feedback for the stored session. With wait set it polls
// until the feedback is ready.
func (s *SessionService) Feedback(ctx context.Context, wait bool, interval, timeout time.Duration) (domain.Feedback, error) {
	active, err := s.state.Active(ctx)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("get active session: %w", err)
	}

	fetch := func(ctx context.Context) (domain.Feedback, error) {
		feedback, err := s.gateway.Feedback(ctx, active.SessionID)
		if err != nil {
			return domain.Feedback{}, fmt.Errorf("get feedback: %w", err)
		}
		return feedback, nil
	}
	if IsDemoSession(active.SessionID) {
		fetch = func(context.Context) (domain.Feedback, error) {
			return domain.Feedback{}, domain.ErrFeedbackPending
		}
	}

	if !wait {
		return fetch(ctx)
	}
	return PollFeedback(ctx, fetch, interval, timeout)
}

// MarkEnded records that the stored session was ended outside End, such as
// from the interactive chat.
func (s *SessionService) MarkEnded(ctx context.Context) error {
	active, err := s.state.Active(ctx)
	if err != nil {
		return fmt.Errorf("get active session: %w", err)
	}
	if active.Ended {
		return nil
	}

	active.Ended = true
	if err := s.state.SaveActive(ctx, active); err != nil {
		return fmt.Errorf("save active session: %w", err)
	}
	return nil
}

func (s *SessionService) Forget(ctx context.Context) error {
	if err := s.state.ClearActive(ctx); err != nil && !errors.Is(err, domain.ErrNoActiveSession) {
		return fmt.Errorf("clear active session: %w", err)
	}
	return nil
}
