package devgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mastertrainer/mt/internal/adapters/gateway"
	"github.com/mastertrainer/mt/internal/adapters/wire"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, config Config) *Server {
	t.Helper()

	clock := newClock(testNow)
	return NewServer(newTestStore(t, clock), config, clock, nil)
}

type response[T any] struct {
	status   int
	envelope wire.Envelope[T]
}

func call[T any](t *testing.T, s *Server, method, path, token string, body any) response[T] {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var envelope wire.Envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return response[T]{status: rec.Code, envelope: envelope}
}

func login(t *testing.T, s *Server, email string) string {
	t.Helper()

	resp := call[wire.LoginResponse](t, s, http.MethodPost, "/api/auth/login", "", wire.LoginRequest{Email: email, Password: DefaultPassword})
	require.Equal(t, http.StatusOK, resp.status)
	require.NotNil(t, resp.envelope.Data)
	return resp.envelope.Data.Token
}

func TestServerLogin(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})

	resp := call[wire.LoginResponse](t, s, http.MethodPost, "/api/auth/login", "", wire.LoginRequest{Email: "rep@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.False(t, resp.envelope.Success)

	resp = call[wire.LoginResponse](t, s, http.MethodPost, "/api/auth/login", "", wire.LoginRequest{Email: "rep@example.com", Password: DefaultPassword})
	require.Equal(t, http.StatusOK, resp.status)
	assert.NotEmpty(t, resp.envelope.Data.Token)
	assert.Equal(t, "demo-user", resp.envelope.Data.User.ID)
}

func TestServerRequiresToken(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})

	resp := call[wire.Page[wire.Scenario]](t, s, http.MethodGet, "/api/scenarios", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = call[wire.Page[wire.Scenario]](t, s, http.MethodGet, "/api/scenarios", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "unauthorized", resp.envelope.Message)
}

func TestServerRoleplayFlow(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	token := login(t, s, "rep@example.com")
	scenario := application.DemoScenarios()[0]

	started := call[wire.Session](t, s, http.MethodPost, "/api/roleplay/start", token, wire.StartRequest{ScenarioID: string(scenario.ID)})
	require.Equal(t, http.StatusOK, started.status)
	session := *started.envelope.Data
	assert.Equal(t, "active", session.Status)
	assert.Empty(t, session.Messages)

	short := call[wire.Exchange](t, s, http.MethodPost, "/api/roleplay/message", token, wire.MessageRequest{SessionID: session.ID, Content: "hi"})
	assert.Equal(t, http.StatusBadRequest, short.status)
	assert.Contains(t, short.envelope.Message, "too short")

	sent := call[wire.Exchange](t, s, http.MethodPost, "/api/roleplay/message", token, wire.MessageRequest{SessionID: session.ID, Content: "Thanks for taking my call today."})
	require.Equal(t, http.StatusOK, sent.status)
	assert.Equal(t, "user", sent.envelope.Data.UserMessage.Role)
	assert.Equal(t, scenario.Reply(0), sent.envelope.Data.AIMessage.Content)

	detail := call[wire.Session](t, s, http.MethodGet, "/api/roleplay/session/"+session.ID, token, nil)
	require.Equal(t, http.StatusOK, detail.status)
	assert.Len(t, detail.envelope.Data.Messages, 2)

	ended := call[wire.Session](t, s, http.MethodPost, "/api/roleplay/end", token, wire.EndRequest{SessionID: session.ID})
	require.Equal(t, http.StatusOK, ended.status)
	assert.Equal(t, "completed", ended.envelope.Data.Status)
	assert.NotNil(t, ended.envelope.Data.CompletedAt)

	again := call[wire.Session](t, s, http.MethodPost, "/api/roleplay/end", token, wire.EndRequest{SessionID: session.ID})
	assert.Equal(t, http.StatusBadRequest, again.status)

	late := call[wire.Exchange](t, s, http.MethodPost, "/api/roleplay/message", token, wire.MessageRequest{SessionID: session.ID, Content: "One more thing to add."})
	assert.Equal(t, http.StatusBadRequest, late.status)
	assert.Equal(t, domain.ErrSessionNotActive.Error(), late.envelope.Message)

	feedback := call[wire.Feedback](t, s, http.MethodGet, "/api/feedback/session/"+session.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, feedback.status)
	assert.Equal(t, "feedback pending", feedback.envelope.Message)

	history := call[wire.Page[wire.Session]](t, s, http.MethodGet, "/api/roleplay/history?pageSize=2", token, nil)
	require.Equal(t, http.StatusOK, history.status)
	assert.Equal(t, 3, history.envelope.Data.Total)
	assert.Equal(t, 2, history.envelope.Data.TotalPages)
	assert.Equal(t, session.ID, history.envelope.Data.Items[0].ID)
}

func TestServerEnforcesTurnLimit(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{Policy: domain.TurnPolicy{Fixed: 1}})
	token := login(t, s, "rep@example.com")

	started := call[wire.Session](t, s, http.MethodPost, "/api/roleplay/start", token, wire.StartRequest{ScenarioID: "demo-pricing"})
	require.Equal(t, http.StatusOK, started.status)
	id := started.envelope.Data.ID

	first := call[wire.Exchange](t, s, http.MethodPost, "/api/roleplay/message", token, wire.MessageRequest{SessionID: id, Content: "What budget do you have?"})
	require.Equal(t, http.StatusOK, first.status)

	second := call[wire.Exchange](t, s, http.MethodPost, "/api/roleplay/message", token, wire.MessageRequest{SessionID: id, Content: "And the timeline for it?"})
	assert.Equal(t, http.StatusBadRequest, second.status)
	assert.Equal(t, domain.ErrTurnLimitReached.Error(), second.envelope.Message)
}

func TestServerHidesOtherUsersSessions(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	rep := login(t, s, "rep@example.com")
	admin := login(t, s, "admin@example.com")

	started := call[wire.Session](t, s, http.MethodPost, "/api/roleplay/start", admin, wire.StartRequest{ScenarioID: "demo-pricing"})
	require.Equal(t, http.StatusOK, started.status)

	resp := call[wire.Session](t, s, http.MethodGet, "/api/roleplay/session/"+started.envelope.Data.ID, rep, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)

	seeded := call[wire.Feedback](t, s, http.MethodGet, "/api/feedback/session/demo-session-1", rep, nil)
	require.Equal(t, http.StatusOK, seeded.status)
	assert.InDelta(t, 7.5, seeded.envelope.Data.OverallScore, 1e-9)
}

func TestServerScenarioAdministration(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	rep := login(t, s, "rep@example.com")
	admin := login(t, s, "admin@example.com")
	valid := wire.Scenario{Title: "Upsell", Description: "Expand an existing account.", Persona: wire.Persona{Name: "Lee"}, Difficulty: "advanced"}

	forbidden := call[wire.Scenario](t, s, http.MethodPost, "/api/scenarios", rep, valid)
	assert.Equal(t, http.StatusForbidden, forbidden.status)

	invalid := call[wire.Scenario](t, s, http.MethodPost, "/api/scenarios", admin, wire.Scenario{Title: "No persona", Description: "x"})
	assert.Equal(t, http.StatusBadRequest, invalid.status)
	assert.Equal(t, "persona name is required", invalid.envelope.Message)

	created := call[wire.Scenario](t, s, http.MethodPost, "/api/scenarios", admin, valid)
	require.Equal(t, http.StatusCreated, created.status)
	id := created.envelope.Data.ID
	require.NotEmpty(t, id)

	listed := call[wire.Page[wire.Scenario]](t, s, http.MethodGet, "/api/scenarios?difficulty=advanced&search=expand", rep, nil)
	require.Equal(t, http.StatusOK, listed.status)
	require.Len(t, listed.envelope.Data.Items, 1)
	assert.Equal(t, id, listed.envelope.Data.Items[0].ID)

	deleted := call[struct{}](t, s, http.MethodDelete, "/api/scenarios/"+id, admin, nil)
	assert.Equal(t, http.StatusOK, deleted.status)
	assert.True(t, deleted.envelope.Success)

	missing := call[struct{}](t, s, http.MethodDelete, "/api/scenarios/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, missing.status)
}

func TestServerAdminLists(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	admin := login(t, s, "admin@example.com")

	users := call[wire.Page[wire.User]](t, s, http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, users.status)
	assert.Equal(t, 2, users.envelope.Data.Total)

	models := call[[]wire.AIModel](t, s, http.MethodGet, "/api/admin/models", admin, nil)
	require.Equal(t, http.StatusOK, models.status)
	assert.Len(t, *models.envelope.Data, len(application.DemoModels()))

	forbidden := call[[]wire.AIModel](t, s, http.MethodGet, "/api/admin/models", login(t, s, "rep@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, forbidden.status)
}

func TestServerCORSPreflight(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/roleplay/message", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Less(t, rec.Code, 300)
}

func TestServerWithGatewayClient(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	httpServer := httptest.NewServer(s.Handler())
	t.Cleanup(httpServer.Close)

	store := tokenStore{}
	client := gateway.NewClient(gateway.Config{BaseURL: httpServer.URL + "/api", Timeout: 5 * time.Second, TokenKey: "token"}, store, nil)
	ctx := context.Background()

	credentials, err := client.Login(ctx, "rep@example.com", DefaultPassword)
	require.NoError(t, err)
	store["token"] = credentials.Token

	controller := application.NewRoleplayController(client, application.DefaultControllerConfig(), nil, nil)
	scenario := application.DemoScenarios()[1]
	_, err = controller.Start(ctx, scenario)
	require.NoError(t, err)

	result, err := controller.SendMessage(ctx, "What would make this renewal work for you?")
	require.NoError(t, err)
	assert.Equal(t, scenario.Reply(0), result.Exchange.AIMessage.Content)

	_, err = controller.Feedback(ctx)
	assert.ErrorIs(t, err, domain.ErrFeedbackPending)

	ended, err := controller.EndSession(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, ended.Session.Status)
}

type tokenStore map[string]string

func (s tokenStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s[key]
	if !ok {
		return "", domain.ErrCredentialNotFound
	}
	return value, nil
}

func (s tokenStore) Put(_ context.Context, key, value string) error {
	s[key] = value
	return nil
}

func (s tokenStore) Delete(_ context.Context, key string) error {
	delete(s, key)
	return nil
}
