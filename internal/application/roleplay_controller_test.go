package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
	"github.com/mastertrainer/mt/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRoleplayControllerEightTurnScenario(t *testing.T) {
	gateway := newFakeGateway()
	controller := NewRoleplayController(gateway, DefaultControllerConfig(), fixedClock{now: testNow}, nil)

	_, err := controller.Start(context.Background(), domain.Scenario{ID: "scn-1", Title: "Cold call"})
	require.NoError(t, err)
	require.Equal(t, StateActive, controller.State())
	require.Equal(t, 8, controller.Progress().MaxTurns)

	for i := 1; i <= 8; i++ {
		result, err := controller.SendMessage(context.Background(), fmt.Sprintf("valid message number %d", i))
		require.NoError(t, err)
		assert.Equal(t, 8-i, result.TurnsRemaining)
		assert.Equal(t, i == 8, result.MustEnd)
	}
	assert.Equal(t, 0, controller.TurnsRemaining())

	_, err = controller.SendMessage(context.Background(), "one message too many")
	require.ErrorIs(t, err, domain.ErrTurnLimitReached)
	assert.Equal(t, 8, gateway.sendCount())
	assert.Len(t, controller.Session().Messages, 16)

	result, err := controller.EndSession(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, result.Session.Status)
	assert.Equal(t, StateEnded, controller.State())
}

func TestRoleplayControllerRejectsShortMessageWithoutNetworkCall(t *testing.T) {
	gateway := mocks.NewGateway(t)
	gateway.On("GetSession", mock.Anything, domain.SessionID("sess-1")).
		Return(domain.Session{ID: "sess-1", Status: domain.SessionActive}, nil).Once()

	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Load(context.Background(), "sess-1", nil)
	require.NoError(t, err)

	_, err = controller.SendMessage(context.Background(), "hi")
	require.ErrorIs(t, err, domain.ErrMessageTooShort)

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 2, validationErr.Length)
	assert.Empty(t, controller.Session().Messages)
	gateway.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoleplayControllerRejectsLongMessageWithoutNetworkCall(t *testing.T) {
	gateway := mocks.NewGateway(t)
	gateway.On("GetSession", mock.Anything, domain.SessionID("sess-1")).
		Return(domain.Session{ID: "sess-1", Status: domain.SessionActive}, nil).Once()

	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Load(context.Background(), "sess-1", nil)
	require.NoError(t, err)

	_, err = controller.SendMessage(context.Background(), strings.Repeat("x", 2001))
	require.ErrorIs(t, err, domain.ErrMessageTooLong)
	gateway.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoleplayControllerTranscriptPairsUserAndAIMessages(t *testing.T) {
	gateway := newFakeGateway()
	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Start(context.Background(), domain.Scenario{ID: "scn-1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := controller.SendMessage(context.Background(), "tell me about your current process")
		require.NoError(t, err)
	}

	messages := controller.Session().Messages
	require.Len(t, messages, 6)
	for i, message := range messages {
		if message.Role == domain.RoleUser {
			require.Less(t, i+1, len(messages))
			assert.Equal(t, domain.RoleAI, messages[i+1].Role)
		}
	}
}

func TestRoleplayControllerEndSessionIsIdempotent(t *testing.T) {
	gateway := mocks.NewGateway(t)
	gateway.On("GetSession", mock.Anything, domain.SessionID("sess-1")).
		Return(domain.Session{ID: "sess-1", Status: domain.SessionActive}, nil).Once()
	gateway.On("EndSession", mock.Anything, domain.SessionID("sess-1")).
		Return(domain.Session{ID: "sess-1", Status: domain.SessionCompleted}, nil).Once()

	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Load(context.Background(), "sess-1", nil)
	require.NoError(t, err)

	first, err := controller.EndSession(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, first.AlreadyEnded)

	second, err := controller.EndSession(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, second.AlreadyEnded)
	assert.Equal(t, first.Session, second.Session)
}

func TestRoleplayControllerEndSessionConfirmationSeesProgress(t *testing.T) {
	gateway := newFakeGateway()
	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Start(context.Background(), domain.Scenario{ID: "scn-1"})
	require.NoError(t, err)
	_, err = controller.SendMessage(context.Background(), "what does your week look like")
	require.NoError(t, err)

	var seen Progress
	_, err = controller.EndSession(context.Background(), func(progress Progress) bool {
		seen = progress
		return false
	})
	require.ErrorIs(t, err, domain.ErrEndDeclined)
	assert.Equal(t, Progress{MessagesSent: 1, MaxTurns: 8, TurnsRemaining: 7}, seen)
	assert.Equal(t, "1/8", seen.String())
	assert.Equal(t, StateActive, controller.State())
	assert.Equal(t, 0, gateway.endCount())
}

func TestRoleplayControllerEndSessionFailureRollsBack(t *testing.T) {
	gateway := newFakeGateway()
	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Start(context.Background(), domain.Scenario{ID: "scn-1"})
	require.NoError(t, err)
	_, err = controller.SendMessage(context.Background(), "can we talk about pricing")
	require.NoError(t, err)
	before := controller.Session().Messages

	gateway.setEndErr(&domain.TransportError{Op: "end session", StatusCode: 502, Message: "bad gateway"})
	_, err = controller.EndSession(context.Background(), nil)
	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, StateActive, controller.State())
	assert.Equal(t, before, controller.Session().Messages)

	_, err = controller.SendMessage(context.Background(), "still able to keep talking")
	require.NoError(t, err)

	gateway.setEndErr(nil)
	result, err := controller.EndSession(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, result.Session.Status)
	assert.Len(t, result.Session.Messages, 4)
}

func TestRoleplayControllerSendIsSingleFlight(t *testing.T) {
	gateway := newFakeGateway()
	gateway.block = make(chan struct{})
	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Start(context.Background(), domain.Scenario{ID: "scn-1"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = controller.SendMessage(context.Background(), "first message in flight")
	}()

	require.Eventually(t, controller.Sending, time.Second, time.Millisecond)
	_, err = controller.SendMessage(context.Background(), "second message too early")
	require.ErrorIs(t, err, domain.ErrSendInFlight)

	_, err = controller.EndSession(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrSendInFlight)

	close(gateway.block)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, 1, gateway.sendCount())
	assert.Len(t, controller.Session().Messages, 2)
}

func TestRoleplayControllerSendFailureKeepsTranscript(t *testing.T) {
	gateway := newFakeGateway()
	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Start(context.Background(), domain.Scenario{ID: "scn-1"})
	require.NoError(t, err)

	gateway.setSendErr(errors.New("connection reset"))
	_, err = controller.SendMessage(context.Background(), "this one will not arrive")
	require.ErrorContains(t, err, "send message: connection reset")
	assert.Empty(t, controller.Session().Messages)
	assert.Equal(t, 8, controller.TurnsRemaining())
	assert.False(t, controller.Sending())
}

func TestRoleplayControllerLoadFailureReturnsToIdle(t *testing.T) {
	gateway := mocks.NewGateway(t)
	gateway.On("GetSession", mock.Anything, domain.SessionID("missing")).
		Return(domain.Session{}, domain.ErrSessionNotFound).Once()

	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Load(context.Background(), "missing", nil)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, StateIdle, controller.State())
	assert.ErrorIs(t, controller.Err(), domain.ErrSessionNotFound)

	_, err = controller.SendMessage(context.Background(), "nobody is listening")
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
}

func TestRoleplayControllerLoadCompletedSessionIsEnded(t *testing.T) {
	gateway := mocks.NewGateway(t)
	gateway.On("GetSession", mock.Anything, domain.SessionID("sess-done")).
		Return(domain.Session{ID: "sess-done", Status: domain.SessionCompleted}, nil).Once()

	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Load(context.Background(), "sess-done", nil)
	require.NoError(t, err)
	assert.Equal(t, StateEnded, controller.State())

	result, err := controller.EndSession(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.AlreadyEnded)
	gateway.AssertNotCalled(t, "EndSession", mock.Anything, mock.Anything)
}

func TestRoleplayControllerDemoSessionStaysOffline(t *testing.T) {
	gateway := mocks.NewGateway(t)
	scenario := &domain.Scenario{
		ID:         "scn-demo",
		Persona:    domain.Persona{Name: "Dana"},
		Objections: []string{"We already have a vendor."},
	}

	controller := NewRoleplayController(gateway, DefaultControllerConfig(), fixedClock{now: testNow}, nil)
	session, err := controller.Load(context.Background(), "demo", scenario)
	require.NoError(t, err)
	assert.Equal(t, StateActive, controller.State())
	assert.Empty(t, session.Messages)

	result, err := controller.SendMessage(context.Background(), "hello, do you have a minute")
	require.NoError(t, err)
	assert.Equal(t, "Dana: We already have a vendor.", result.Exchange.AIMessage.Content)

	ended, err := controller.EndSession(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, ended.Session.Status)
	require.NotNil(t, ended.Session.CompletedAt)
	assert.Equal(t, testNow, *ended.Session.CompletedAt)

	_, err = controller.Feedback(context.Background())
	assert.ErrorIs(t, err, domain.ErrFeedbackPending)
	gateway.AssertExpectations(t)
}

func TestRoleplayControllerCloseDropsLateResponse(t *testing.T) {
	gateway := newFakeGateway()
	gateway.block = make(chan struct{})
	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Start(context.Background(), domain.Scenario{ID: "scn-1"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := controller.SendMessage(context.Background(), "response arrives after close")
		done <- err
	}()
	require.Eventually(t, controller.Sending, time.Second, time.Millisecond)

	controller.Close()
	close(gateway.block)

	require.ErrorIs(t, <-done, ErrControllerClosed)
	assert.Empty(t, controller.Session().Messages)
}

func TestRoleplayControllerStartDerivesTurnsFromDuration(t *testing.T) {
	gateway := newFakeGateway()
	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)

	_, err := controller.Start(context.Background(), domain.Scenario{ID: "scn-long", EstimatedDuration: 24})
	require.NoError(t, err)
	assert.Equal(t, 12, controller.Progress().MaxTurns)

	_, err = controller.Start(context.Background(), domain.Scenario{ID: "scn-other"})
	assert.ErrorIs(t, err, ErrSessionAlreadyLoaded)
}

func TestRoleplayControllerAwaitFeedbackPollsUntilReady(t *testing.T) {
	gateway := newFakeGateway()
	gateway.pendingPolls = 2
	controller := NewRoleplayController(gateway, DefaultControllerConfig(), nil, nil)
	_, err := controller.Start(context.Background(), domain.Scenario{ID: "scn-1"})
	require.NoError(t, err)
	_, err = controller.EndSession(context.Background(), nil)
	require.NoError(t, err)

	feedback, err := controller.AwaitFeedback(context.Background(), time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 8.0, feedback.OverallScore)
	assert.Equal(t, 3, gateway.feedbackCount())
}

func TestPollFeedbackTimesOut(t *testing.T) {
	t.Parallel()

	fetch := func(context.Context) (domain.Feedback, error) {
		return domain.Feedback{}, domain.ErrFeedbackPending
	}

	_, err := PollFeedback(context.Background(), fetch, 20*time.Millisecond, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrFeedbackTimeout)
}

func TestPollFeedbackStopsOnOtherErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	fetch := func(context.Context) (domain.Feedback, error) {
		calls++
		return domain.Feedback{}, domain.ErrUnauthorized
	}

	_, err := PollFeedback(context.Background(), fetch, time.Millisecond, time.Second)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 1, calls)
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// fakeGateway serves one session in memory. Unused Gateway methods panic
// through the nil embedded interface.
type fakeGateway struct {
	ports.Gateway

	// block, when set, holds SendMessage until closed.
	block        chan struct{}
	pendingPolls int

	mu        sync.Mutex
	sends     int
	ends      int
	feedbacks int
	sendErr   error
	endErr    error
	session   domain.Session
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{}
}

func (g *fakeGateway) StartSession(_ context.Context, scenarioID domain.ScenarioID) (domain.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.session = domain.Session{ID: "sess-1", ScenarioID: scenarioID, Status: domain.SessionActive, StartedAt: testNow}
	return g.session, nil
}

func (g *fakeGateway) SendMessage(_ context.Context, sessionID domain.SessionID, content string) (domain.MessageExchange, error) {
	if g.block != nil {
		<-g.block
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return domain.MessageExchange{}, g.sendErr
	}
	g.sends++
	return domain.MessageExchange{
		UserMessage: domain.Message{ID: fmt.Sprintf("u%d", g.sends), SessionID: sessionID, Role: domain.RoleUser, Content: content},
		AIMessage:   domain.Message{ID: fmt.Sprintf("a%d", g.sends), SessionID: sessionID, Role: domain.RoleAI, Content: "Tell me more."},
	}, nil
}

func (g *fakeGateway) EndSession(_ context.Context, sessionID domain.SessionID) (domain.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ends++
	if g.endErr != nil {
		return domain.Session{}, g.endErr
	}
	completed := testNow.Add(10 * time.Minute)
	return domain.Session{ID: sessionID, Status: domain.SessionCompleted, StartedAt: testNow, CompletedAt: &completed}, nil
}

func (g *fakeGateway) Feedback(_ context.Context, sessionID domain.SessionID) (domain.Feedback, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.feedbacks++
	if g.feedbacks <= g.pendingPolls {
		return domain.Feedback{}, domain.ErrFeedbackPending
	}
	return domain.Feedback{SessionID: sessionID, OverallScore: 8}, nil
}

func (g *fakeGateway) setSendErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sendErr = err
}

func (g *fakeGateway) setEndErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.endErr = err
}

func (g *fakeGateway) sendCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sends
}

func (g *fakeGateway) endCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ends
}

func (g *fakeGateway) feedbackCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.feedbacks
}
