package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
)

type ControllerState string

const (
	StateIdle    ControllerState = "idle"
	StateLoading ControllerState = "loading"
	StateActive  ControllerState = "active"
	StateEnding  ControllerState = "ending"
	StateEnded   ControllerState = "ended"
)

// DemoSessionIDs never reach the gateway; loading one starts an offline
// session with an empty transcript.
var DemoSessionIDs = []domain.SessionID{"demo", "new", "placeholder"}

func IsDemoSession(id domain.SessionID) bool {
	for _, demo := range DemoSessionIDs {
		if id == demo {
			return true
		}
	}
	return false
}

type ControllerConfig struct {
	Policy domain.TurnPolicy
	Limits domain.MessageLimits
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Policy: domain.DefaultTurnPolicy(),
		Limits: domain.DefaultMessageLimits(),
	}
}

type Progress struct {
	MessagesSent   int
	MaxTurns       int
	TurnsRemaining int
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.MessagesSent, p.MaxTurns)
}

type SendResult struct {
	Exchange       domain.MessageExchange
	TurnsRemaining int
	// MustEnd is set once the turn budget is spent.
	MustEnd bool
}

type EndResult struct {
	Session      domain.Session
	AlreadyEnded bool
}

// ConfirmFunc sees the current progress before an end request commits.
// Returning false keeps the session active.
type ConfirmFunc func(Progress) bool

// RoleplayController drives one practice session from load to end. The
// transcript and turn counter are only mutated here. The lock is released
// across gateway calls; the sending flag keeps sends single-flight.
type RoleplayController struct {
	gateway ports.Gateway
	clock   ports.Clock
	logger  *slog.Logger
	config  ControllerConfig

	mu       sync.Mutex
	state    ControllerState
	session  domain.Session
	scenario *domain.Scenario
	maxTurns int
	demo     bool
	sending  bool
	closed   bool
	err      error
}

func NewRoleplayController(gateway ports.Gateway, config ControllerConfig, clock ports.Clock, logger *slog.Logger) *RoleplayController {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &RoleplayController{
		gateway:  gateway,
		clock:    clock,
		logger:   logger,
		config:   config,
		state:    StateIdle,
		maxTurns: config.Policy.MaxTurnsFor(nil),
	}
}

// Start opens a new session for scenario.
func (c *RoleplayController) Start(ctx context.Context, scenario domain.Scenario) (domain.Session, error) {
	if err := c.beginLoading(&scenario); err != nil {
		return domain.Session{}, err
	}

	session, err := c.gateway.StartSession(ctx, scenario.ID)
	return c.finishLoading(session, err, "start session")
}

// Load fetches an existing session. scenario may be nil; it only feeds the
// turn budget and persona display.
func (c *RoleplayController) Load(ctx context.Context, id domain.SessionID, scenario *domain.Scenario) (domain.Session, error) {
	if err := c.beginLoading(scenario); err != nil {
		return domain.Session{}, err
	}

	if IsDemoSession(id) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.demo = true
		c.session = domain.Session{ID: id, Status: domain.SessionActive, StartedAt: c.clock.Now()}
		if scenario != nil {
			c.session.ScenarioID = scenario.ID
		}
		c.state = StateActive
		return cloneSession(c.session), nil
	}

	session, err := c.gateway.GetSession(ctx, id)
	return c.finishLoading(session, err, "load session")
}

func (c *RoleplayController) beginLoading(scenario *domain.Scenario) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}
	if c.state != StateIdle {
		return fmt.Errorf("controller is %s: %w", c.state, ErrSessionAlreadyLoaded)
	}

	c.state = StateLoading
	c.err = nil
	c.demo = false
	c.scenario = scenario
	c.maxTurns = c.config.Policy.MaxTurnsFor(scenario)
	return nil
}

func (c *RoleplayController) finishLoading(session domain.Session, err error, op string) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.Session{}, ErrControllerClosed
	}
	if err != nil {
		c.state = StateIdle
		c.err = fmt.Errorf("%s: %w", op, err)
		return domain.Session{}, c.err
	}

	c.session = cloneSession(session)
	if session.Status == domain.SessionActive || session.Status == "" {
		c.state = StateActive
	} else {
		c.state = StateEnded
	}
	return cloneSession(c.session), nil
}

// SendMessage validates content locally, then sends it. Rejections never
// reach the gateway.
func (c *RoleplayController) SendMessage(ctx context.Context, content string) (SendResult, error) {
	c.mu.Lock()
	if err := c.checkSendLocked(content); err != nil {
		c.mu.Unlock()
		return SendResult{}, err
	}
	c.sending = true
	sessionID := c.session.ID
	demo := c.demo
	turn := domain.UserTurns(c.session.Messages)
	c.mu.Unlock()

	var (
		exchange domain.MessageExchange
		err      error
	)
	if demo {
		exchange = c.demoExchange(sessionID, content, turn)
	} else {
		exchange, err = c.gateway.SendMessage(ctx, sessionID, content)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false

	if c.closed {
		return SendResult{}, ErrControllerClosed
	}
	if err != nil {
		return SendResult{}, fmt.Errorf("send message: %w", err)
	}

	c.session.Messages = append(c.session.Messages, exchange.UserMessage, exchange.AIMessage)
	remaining := c.turnsRemainingLocked()
	return SendResult{
		Exchange:       exchange,
		TurnsRemaining: remaining,
		MustEnd:        remaining == 0,
	}, nil
}

func (c *RoleplayController) checkSendLocked(content string) error {
	if c.closed {
		return ErrControllerClosed
	}
	if c.state != StateActive {
		return fmt.Errorf("controller is %s: %w", c.state, domain.ErrSessionNotActive)
	}
	if c.sending {
		return domain.ErrSendInFlight
	}
	if c.turnsRemainingLocked() <= 0 {
		return domain.ErrTurnLimitReached
	}
	return c.config.Limits.Validate(content)
}

func (c *RoleplayController) demoExchange(sessionID domain.SessionID, content string, turn int) domain.MessageExchange {
	now := c.clock.Now()
	reply := domain.Scenario{}.Reply(turn)
	c.mu.Lock()
	if c.scenario != nil {
		reply = c.scenario.Reply(turn)
	}
	c.mu.Unlock()

	return domain.MessageExchange{
		UserMessage: domain.Message{
			ID:        fmt.Sprintf("%s-u%d", sessionID, turn+1),
			SessionID: sessionID,
			Role:      domain.RoleUser,
			Content:   content,
			Timestamp: now,
		},
		AIMessage: domain.Message{
			ID:        fmt.Sprintf("%s-a%d", sessionID, turn+1),
			SessionID: sessionID,
			Role:      domain.RoleAI,
			Content:   reply,
			Timestamp: now,
		},
	}
}

// EndSession asks confirm (when set) and then ends the session. Ending an
// already ended session returns the stored session without a request.
func (c *RoleplayController) EndSession(ctx context.Context, confirm ConfirmFunc) (EndResult, error) {
	c.mu.Lock()
	if c.state == StateEnded {
		result := EndResult{Session: cloneSession(c.session), AlreadyEnded: true}
		c.mu.Unlock()
		return result, nil
	}
	if err := c.checkEndLocked(); err != nil {
		c.mu.Unlock()
		return EndResult{}, err
	}
	progress := c.progressLocked()
	c.mu.Unlock()

	if confirm != nil && !confirm(progress) {
		return EndResult{}, domain.ErrEndDeclined
	}

	c.mu.Lock()
	if err := c.checkEndLocked(); err != nil {
		c.mu.Unlock()
		return EndResult{}, err
	}
	c.state = StateEnding
	sessionID := c.session.ID
	demo := c.demo
	c.mu.Unlock()

	var (
		ended domain.Session
		err   error
	)
	if demo {
		ended = c.demoEnd()
	} else {
		ended, err = c.gateway.EndSession(ctx, sessionID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return EndResult{}, ErrControllerClosed
	}
	if err != nil {
		c.state = StateActive
		return EndResult{}, fmt.Errorf("end session: %w", err)
	}

	if len(ended.Messages) < len(c.session.Messages) {
		ended.Messages = c.session.Messages
	}
	c.session = cloneSession(ended)
	c.state = StateEnded
	c.logger.Debug("session ended", "session_id", sessionID, "status", ended.Status)
	return EndResult{Session: cloneSession(c.session)}, nil
}

func (c *RoleplayController) checkEndLocked() error {
	if c.closed {
		return ErrControllerClosed
	}
	switch c.state {
	case StateActive:
	case StateEnding:
		return domain.ErrEndInFlight
	default:
		return fmt.Errorf("controller is %s: %w", c.state, domain.ErrSessionNotActive)
	}
	if c.sending {
		return domain.ErrSendInFlight
	}
	return nil
}

func (c *RoleplayController) demoEnd() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := cloneSession(c.session)
	completed := c.clock.Now()
	session.Status = domain.SessionCompleted
	session.CompletedAt = &completed
	return session
}

// Feedback hands off to the feedback service for the current session.
func (c *RoleplayController) Feedback(ctx context.Context) (domain.Feedback, error) {
	c.mu.Lock()
	sessionID := c.session.ID
	demo := c.demo
	state := c.state
	c.mu.Unlock()

	if state == StateIdle || state == StateLoading || sessionID == "" {
		return domain.Feedback{}, domain.ErrNoActiveSession
	}
	if demo {
		return domain.Feedback{}, domain.ErrFeedbackPending
	}

	feedback, err := c.gateway.Feedback(ctx, sessionID)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("get feedback: %w", err)
	}
	return feedback, nil
}

// AwaitFeedback polls Feedback until it is ready, ctx ends or timeout
// passes.
func (c *RoleplayController) AwaitFeedback(ctx context.Context, interval, timeout time.Duration) (domain.Feedback, error) {
	return PollFeedback(ctx, c.Feedback, interval, timeout)
}

// Close drops any response that arrives afterwards.
func (c *RoleplayController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *RoleplayController) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *RoleplayController) Session() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneSession(c.session)
}

func (c *RoleplayController) Scenario() *domain.Scenario {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scenario == nil {
		return nil
	}
	scenario := *c.scenario
	return &scenario
}

func (c *RoleplayController) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Err is the last load failure.
func (c *RoleplayController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *RoleplayController) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

func (c *RoleplayController) TurnsRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnsRemainingLocked()
}

func (c *RoleplayController) progressLocked() Progress {
	return Progress{
		MessagesSent:   domain.UserTurns(c.session.Messages),
		MaxTurns:       c.maxTurns,
		TurnsRemaining: c.turnsRemainingLocked(),
	}
}

func (c *RoleplayController) turnsRemainingLocked() int {
	remaining := c.maxTurns - domain.UserTurns(c.session.Messages)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func cloneSession(session domain.Session) domain.Session {
	if session.Messages != nil {
		session.Messages = append([]domain.Message(nil), session.Messages...)
	}
	return session
}

var (
	ErrControllerClosed     = errors.New("roleplay controller closed")
	ErrSessionAlreadyLoaded = errors.New("session already loaded")
)
