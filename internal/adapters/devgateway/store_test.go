package devgateway

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func demoSeed() SeedData {
	return SeedData{
		Users:     application.DemoUsers(),
		Scenarios: application.DemoScenarios(),
		Sessions:  application.DemoSessions(),
		Models:    application.DemoModels(),
	}
}

func newTestStore(t *testing.T, clock *mutableClock) *Store {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "dev.db"), clock, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Seed(context.Background(), demoSeed()))
	return store
}

func TestStoreSeedIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, newClock(testNow))
	require.NoError(t, store.Seed(context.Background(), demoSeed()))

	scenarios, err := store.ListScenarios(context.Background(), domain.ScenarioFilter{})
	require.NoError(t, err)
	assert.Equal(t, len(application.DemoScenarios()), scenarios.Total)

	scenario, err := store.GetScenario(context.Background(), "demo-cold-call")
	require.NoError(t, err)
	assert.Equal(t, application.DemoScenarios()[0], scenario)

	models, err := store.ListModels(context.Background())
	require.NoError(t, err)
	assert.Len(t, models, len(application.DemoModels()))
}

func TestStoreReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dev.db")
	store, err := OpenStore(path, newClock(testNow), nil)
	require.NoError(t, err)
	created, err := store.CreateScenario(context.Background(), domain.Scenario{Title: "Renewal", Description: "Renew a contract.", Persona: domain.Persona{Name: "Ana"}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path, newClock(testNow), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetScenario(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renewal", got.Title)
	assert.Equal(t, domain.DifficultyBeginner, got.Difficulty)
}

func TestStoreScenarioFilters(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, newClock(testNow))
	ctx := context.Background()

	page, err := store.ListScenarios(ctx, domain.ScenarioFilter{Difficulty: domain.DifficultyIntermediate})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.ScenarioID("demo-pricing"), page.Items[0].ID)

	page, err = store.ListScenarios(ctx, domain.ScenarioFilter{Search: "logistics"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.ScenarioID("demo-cold-call"), page.Items[0].ID)

	page, err = store.ListScenarios(ctx, domain.ScenarioFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	require.NoError(t, store.DeleteScenario(ctx, "demo-pricing"))
	assert.ErrorIs(t, store.DeleteScenario(ctx, "demo-pricing"), domain.ErrScenarioNotFound)
	_, err = store.GetScenario(ctx, "demo-pricing")
	assert.ErrorIs(t, err, domain.ErrScenarioNotFound)
}

func TestStoreSessionLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, newClock(testNow))
	ctx := context.Background()

	_, err := store.CreateSession(ctx, "demo-user", "missing")
	require.ErrorIs(t, err, domain.ErrScenarioNotFound)

	session, err := store.CreateSession(ctx, "demo-user", "demo-cold-call")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, session.Status)

	exchange := domain.MessageExchange{
		UserMessage: domain.Message{Role: domain.RoleUser, Content: "first question", Timestamp: testNow},
		AIMessage:   domain.Message{Role: domain.RoleAI, Content: "first answer", Timestamp: testNow},
	}
	require.NoError(t, store.AppendExchange(ctx, session.ID, exchange))

	loaded, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, domain.RoleUser, loaded.Messages[0].Role)
	assert.Equal(t, "first answer", loaded.Messages[1].Content)
	assert.Nil(t, loaded.Feedback)

	ended, err := store.SetStatus(ctx, session.ID, domain.SessionCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, ended.Status)
	require.NotNil(t, ended.CompletedAt)
	assert.True(t, ended.CompletedAt.Equal(testNow))

	_, err = store.SetStatus(ctx, session.ID, domain.SessionCompleted)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
	_, err = store.SetStatus(ctx, "missing", domain.SessionCompleted)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = store.Feedback(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrFeedbackPending)
}

func TestStoreHistoryIncludesSeededFeedback(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, newClock(testNow))

	page, err := store.ListSessions(context.Background(), "demo-user", domain.PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, domain.SessionID("demo-session-2"), page.Items[0].ID)
	require.NotNil(t, page.Items[1].Feedback)
	assert.InDelta(t, 7.5, page.Items[1].Feedback.OverallScore, 1e-9)
	assert.Equal(t, 8.0, page.Items[1].Feedback.Scores["opening"])

	other, err := store.ListSessions(context.Background(), "demo-admin", domain.PageQuery{})
	require.NoError(t, err)
	assert.Empty(t, other.Items)
	assert.Zero(t, other.TotalPages)
}

func TestStoreAbandonStale(t *testing.T) {
	t.Parallel()

	clock := newClock(testNow)
	store := newTestStore(t, clock)
	ctx := context.Background()

	idle, err := store.CreateSession(ctx, "demo-user", "demo-cold-call")
	require.NoError(t, err)

	clock.advance(45 * time.Minute)
	busy, err := store.CreateSession(ctx, "demo-user", "demo-pricing")
	require.NoError(t, err)

	clock.advance(20 * time.Minute)
	count, err := store.AbandonStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.GetSession(ctx, idle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAbandoned, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, testNow, *got.CompletedAt, time.Second)
	assert.Equal(t, time.Duration(0), got.Duration(clock.Now().Add(24*time.Hour)))

	got, err = store.GetSession(ctx, busy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, got.Status)

	count, err = store.AbandonStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreTokens(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, newClock(testNow))
	ctx := context.Background()

	user, err := store.UserByEmail(ctx, " REP@example.com ")
	require.NoError(t, err)

	token, err := store.IssueToken(ctx, user.ID)
	require.NoError(t, err)

	byToken, err := store.UserByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user, byToken)

	_, err = store.UserByToken(ctx, "bogus")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = store.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(now time.Time) *mutableClock {
	return &mutableClock{now: now}
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mutableClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
