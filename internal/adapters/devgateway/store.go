package devgateway

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mastertrainer/mt/internal/adapters/wire"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the SQLite persistence of the development gateway.
type Store struct {
	db     *sqlx.DB
	clock  ports.Clock
	logger *slog.Logger
}

// SeedData is inserted on every Open; existing rows are left alone.
type SeedData struct {
	Users     []domain.User
	Scenarios []domain.Scenario
	Sessions  []domain.Session
	Models    []domain.AIModel
}

func OpenStore(path string, clock ports.Clock, logger *slog.Logger) (*Store, error) {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, clock: clock, logger: logger}, nil
}

func migrateUp(db *sqlx.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Store) Seed(ctx context.Context, seed SeedData) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, user := range seed.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO users (id, email, name, role, created_at) VALUES (?, ?, ?, ?, ?)`,
			user.ID, strings.ToLower(user.Email), user.Name, user.Role, user.CreatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("seed user %s: %w", user.ID, err)
		}
	}

	for _, scenario := range seed.Scenarios {
		if err := insertScenario(ctx, tx, scenario, s.now(), true); err != nil {
			return err
		}
	}

	for _, model := range seed.Models {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO models (id, name, provider, purpose, active) VALUES (?, ?, ?, ?, ?)`,
			model.ID, model.Name, model.Provider, model.Purpose, model.Active,
		); err != nil {
			return fmt.Errorf("seed model %s: %w", model.ID, err)
		}
	}

	for _, session := range seed.Sessions {
		if err := seedSession(ctx, tx, session); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func seedSession(ctx context.Context, tx *sqlx.Tx, session domain.Session) error {
	updated := session.StartedAt
	if session.CompletedAt != nil {
		updated = *session.CompletedAt
	}

	result, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, user_id, scenario_id, status, started_at, completed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.ScenarioID, session.Status, session.StartedAt.UTC(), utcPtr(session.CompletedAt), updated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("seed session %s: %w", session.ID, err)
	}
	if inserted, _ := result.RowsAffected(); inserted == 0 {
		return nil
	}

	for _, message := range session.Messages {
		if err := insertMessage(ctx, tx, session.ID, message); err != nil {
			return err
		}
	}

	if session.Feedback != nil {
		if err := insertFeedback(ctx, tx, session.ID, *session.Feedback); err != nil {
			return err
		}
	}
	return nil
}

type userRow struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{ID: domain.UserID(r.ID), Email: r.Email, Name: r.Name, Role: r.Role, CreatedAt: r.CreatedAt}
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT id, email, name, role, created_at FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}

// IssueToken creates a bearer token for userID.
func (s *Store) IssueToken(ctx context.Context, userID domain.UserID) (string, error) {
	token := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO tokens (token, user_id, created_at) VALUES (?, ?, ?)`, token, userID, s.now()); err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (s *Store) UserByToken(ctx context.Context, token string) (domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row,
		`SELECT u.id, u.email, u.name, u.role, u.created_at
		 FROM tokens t JOIN users u ON u.id = t.user_id
		 WHERE t.token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get token: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListUsers(ctx context.Context, query domain.PageQuery) (domain.Page[domain.User], error) {
	query = query.Normalize()

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("count users: %w", err)
	}

	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, email, name, role, created_at FROM users ORDER BY created_at, email LIMIT ? OFFSET ?`,
		query.PageSize, offset(query),
	); err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return page(users, total, query), nil
}

type scenarioRow struct {
	ID                string                   `db:"id"`
	Title             string                   `db:"title"`
	Description       string                   `db:"description"`
	Persona           jsonColumn[wire.Persona] `db:"persona"`
	Objections        jsonColumn[[]string]     `db:"objections"`
	IdealResponses    jsonColumn[[]string]     `db:"ideal_responses"`
	Difficulty        string                   `db:"difficulty"`
	Category          string                   `db:"category"`
	EstimatedDuration int                      `db:"estimated_duration"`
}

func (r scenarioRow) toDomain() domain.Scenario {
	return wire.ToScenario(wire.Scenario{
		ID:                r.ID,
		Title:             r.Title,
		Description:       r.Description,
		Persona:           r.Persona.V,
		Objections:        r.Objections.V,
		IdealResponses:    r.IdealResponses.V,
		Difficulty:        r.Difficulty,
		Category:          r.Category,
		EstimatedDuration: r.EstimatedDuration,
	})
}

const scenarioColumns = `id, title, description, persona, objections, ideal_responses, difficulty, category, estimated_duration`

func (s *Store) ListScenarios(ctx context.Context, filter domain.ScenarioFilter) (domain.Page[domain.Scenario], error) {
	filter = filter.Normalize()

	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Difficulty != "" {
		where = append(where, "difficulty = ?")
		args = append(args, string(filter.Difficulty))
	}
	if filter.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM scenarios`+clause, args...); err != nil {
		return domain.Page[domain.Scenario]{}, fmt.Errorf("count scenarios: %w", err)
	}

	query := domain.PageQuery{Page: filter.Page, PageSize: filter.PageSize}
	var rows []scenarioRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+scenarioColumns+` FROM scenarios`+clause+` ORDER BY created_at, id LIMIT ? OFFSET ?`,
		append(args, query.PageSize, offset(query))...,
	); err != nil {
		return domain.Page[domain.Scenario]{}, fmt.Errorf("list scenarios: %w", err)
	}

	scenarios := make([]domain.Scenario, 0, len(rows))
	for _, row := range rows {
		scenarios = append(scenarios, row.toDomain())
	}
	return page(scenarios, total, query), nil
}

func (s *Store) GetScenario(ctx context.Context, id domain.ScenarioID) (domain.Scenario, error) {
	var row scenarioRow
	err := s.db.GetContext(ctx, &row, `SELECT `+scenarioColumns+` FROM scenarios WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Scenario{}, domain.ErrScenarioNotFound
	}
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("get scenario: %w", err)
	}
	return row.toDomain(), nil
}

// CreateScenario stores scenario under a fresh id unless it carries one.
func (s *Store) CreateScenario(ctx context.Context, scenario domain.Scenario) (domain.Scenario, error) {
	if err := scenario.Validate(); err != nil {
		return domain.Scenario{}, err
	}
	if scenario.ID == "" {
		scenario.ID = domain.ScenarioID(uuid.NewString())
	}
	if scenario.Difficulty == "" {
		scenario.Difficulty = domain.DifficultyBeginner
	}

	if err := insertScenario(ctx, s.db, scenario, s.now(), false); err != nil {
		return domain.Scenario{}, err
	}
	return scenario, nil
}

func (s *Store) DeleteScenario(ctx context.Context, id domain.ScenarioID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scenario: %w", err)
	}
	if deleted, _ := result.RowsAffected(); deleted == 0 {
		return domain.ErrScenarioNotFound
	}
	return nil
}

func insertScenario(ctx context.Context, exec sqlx.ExecerContext, scenario domain.Scenario, now time.Time, ignoreExisting bool) error {
	w := wire.FromScenario(scenario)
	verb := "INSERT"
	if ignoreExisting {
		verb = "INSERT OR IGNORE"
	}

	_, err := exec.ExecContext(ctx,
		verb+` INTO scenarios (`+scenarioColumns+`, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Title, w.Description,
		jsonColumn[wire.Persona]{V: w.Persona},
		jsonColumn[[]string]{V: nonNil(w.Objections)},
		jsonColumn[[]string]{V: nonNil(w.IdealResponses)},
		w.Difficulty, w.Category, w.EstimatedDuration, now,
	)
	if err != nil {
		return fmt.Errorf("insert scenario %s: %w", w.ID, err)
	}
	return nil
}

type sessionRow struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	ScenarioID  string     `db:"scenario_id"`
	Status      string     `db:"status"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

func (r sessionRow) toDomain() domain.Session {
	return domain.Session{
		ID:          domain.SessionID(r.ID),
		UserID:      domain.UserID(r.UserID),
		ScenarioID:  domain.ScenarioID(r.ScenarioID),
		Status:      domain.SessionStatus(r.Status),
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

type messageRow struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	Timestamp time.Time `db:"timestamp"`
}

func (r messageRow) toDomain() domain.Message {
	return domain.Message{
		ID:        r.ID,
		SessionID: domain.SessionID(r.SessionID),
		Role:      domain.Role(r.Role),
		Content:   r.Content,
		Timestamp: r.Timestamp,
	}
}

const sessionColumns = `id, user_id, scenario_id, status, started_at, completed_at`

func (s *Store) CreateSession(ctx context.Context, userID domain.UserID, scenarioID domain.ScenarioID) (domain.Session, error) {
	if _, err := s.GetScenario(ctx, scenarioID); err != nil {
		return domain.Session{}, err
	}

	now := s.now()
	session := domain.Session{
		ID:         domain.SessionID(uuid.NewString()),
		UserID:     userID,
		ScenarioID: scenarioID,
		Status:     domain.SessionActive,
		Messages:   []domain.Message{},
		StartedAt:  now,
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, scenario_id, status, started_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.ScenarioID, session.Status, now, now,
	); err != nil {
		return domain.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// GetSession loads a session with its transcript and feedback.
func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}

	sessions, err := s.hydrate(ctx, []sessionRow{row})
	if err != nil {
		return domain.Session{}, err
	}
	return sessions[0], nil
}

// ListSessions pages userID's sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, userID domain.UserID, query domain.PageQuery) (domain.Page[domain.Session], error) {
	query = query.Normalize()

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM sessions WHERE user_id = ?`, userID); err != nil {
		return domain.Page[domain.Session]{}, fmt.Errorf("count sessions: %w", err)
	}

	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY started_at DESC, id LIMIT ? OFFSET ?`,
		userID, query.PageSize, offset(query),
	); err != nil {
		return domain.Page[domain.Session]{}, fmt.Errorf("list sessions: %w", err)
	}

	sessions, err := s.hydrate(ctx, rows)
	if err != nil {
		return domain.Page[domain.Session]{}, err
	}
	return page(sessions, total, query), nil
}

func (s *Store) hydrate(ctx context.Context, rows []sessionRow) ([]domain.Session, error) {
	sessions := make([]domain.Session, 0, len(rows))
	if len(rows) == 0 {
		return sessions, nil
	}

	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		session := row.toDomain()
		session.Messages = []domain.Message{}
		sessions = append(sessions, session)
		ids = append(ids, row.ID)
		index[row.ID] = i
	}

	query, args, err := sqlx.In(`SELECT id, session_id, role, content, timestamp FROM messages WHERE session_id IN (?) ORDER BY seq`, ids)
	if err != nil {
		return nil, fmt.Errorf("build message query: %w", err)
	}
	var messages []messageRow
	if err := s.db.SelectContext(ctx, &messages, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for _, message := range messages {
		i := index[message.SessionID]
		sessions[i].Messages = append(sessions[i].Messages, message.toDomain())
	}

	query, args, err = sqlx.In(`SELECT `+feedbackColumns+` FROM feedback WHERE session_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build feedback query: %w", err)
	}
	var feedback []feedbackRow
	if err := s.db.SelectContext(ctx, &feedback, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	for _, row := range feedback {
		converted := row.toDomain()
		sessions[index[row.SessionID]].Feedback = &converted
	}

	return sessions, nil
}

// AppendExchange stores a user message and its reply and bumps the session's
// activity time.
func (s *Store) AppendExchange(ctx context.Context, sessionID domain.SessionID, exchange domain.MessageExchange) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, message := range []domain.Message{exchange.UserMessage, exchange.AIMessage} {
		if err := insertMessage(ctx, tx, sessionID, message); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, s.now(), sessionID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func insertMessage(ctx context.Context, exec sqlx.ExecerContext, sessionID domain.SessionID, message domain.Message) error {
	id := message.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := exec.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		id, sessionID, message.Role, message.Content, message.Timestamp.UTC(),
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// SetStatus moves an active session to status. It answers
// domain.ErrSessionNotActive when the session already left active.
func (s *Store) SetStatus(ctx context.Context, id domain.SessionID, status domain.SessionStatus) (domain.Session, error) {
	now := s.now()
	var completedAt *time.Time
	if status == domain.SessionCompleted {
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, completed_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status, completedAt, now, id, domain.SessionActive,
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("update session: %w", err)
	}

	if updated, _ := result.RowsAffected(); updated == 0 {
		if _, err := s.GetSession(ctx, id); err != nil {
			return domain.Session{}, err
		}
		return domain.Session{}, domain.ErrSessionNotActive
	}
	return s.GetSession(ctx, id)
}

// AbandonStale marks active sessions idle for longer than olderThan as
// abandoned and returns how many were changed.
func (s *Store) AbandonStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := s.now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, completed_at = updated_at, updated_at = ? WHERE status = ? AND updated_at < ?`,
		domain.SessionAbandoned, now, domain.SessionActive, now.Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("abandon stale sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("abandon stale sessions: %w", err)
	}
	if count > 0 {
		s.logger.Info("abandoned stale sessions", "count", count, "older_than", olderThan)
	}
	return count, nil
}

type feedbackRow struct {
	SessionID       string                         `db:"session_id"`
	OverallScore    float64                        `db:"overall_score"`
	Scores          jsonColumn[map[string]float64] `db:"scores"`
	Summary         string                         `db:"summary"`
	Recommendations jsonColumn[[]string]           `db:"recommendations"`
}

func (r feedbackRow) toDomain() domain.Feedback {
	return domain.Feedback{
		SessionID:       domain.SessionID(r.SessionID),
		OverallScore:    r.OverallScore,
		Scores:          r.Scores.V,
		Summary:         r.Summary,
		Recommendations: r.Recommendations.V,
	}
}

const feedbackColumns = `session_id, overall_score, scores, summary, recommendations`

// Feedback answers domain.ErrFeedbackPending until a row exists.
func (s *Store) Feedback(ctx context.Context, sessionID domain.SessionID) (domain.Feedback, error) {
	var row feedbackRow
	err := s.db.GetContext(ctx, &row, `SELECT `+feedbackColumns+` FROM feedback WHERE session_id = ?`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Feedback{}, domain.ErrFeedbackPending
	}
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("get feedback: %w", err)
	}
	return row.toDomain(), nil
}

func insertFeedback(ctx context.Context, exec sqlx.ExecerContext, sessionID domain.SessionID, feedback domain.Feedback) error {
	scores := feedback.Scores
	if scores == nil {
		scores = map[string]float64{}
	}
	if _, err := exec.ExecContext(ctx,
		`INSERT OR REPLACE INTO feedback (`+feedbackColumns+`) VALUES (?, ?, ?, ?, ?)`,
		sessionID, feedback.OverallScore,
		jsonColumn[map[string]float64]{V: scores},
		feedback.Summary,
		jsonColumn[[]string]{V: nonNil(feedback.Recommendations)},
	); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

type modelRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Provider string `db:"provider"`
	Purpose  string `db:"purpose"`
	Active   bool   `db:"active"`
}

func (s *Store) ListModels(ctx context.Context) ([]domain.AIModel, error) {
	var rows []modelRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, provider, purpose, active FROM models ORDER BY purpose, id`); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	models := make([]domain.AIModel, 0, len(rows))
	for _, row := range rows {
		models = append(models, domain.AIModel{ID: row.ID, Name: row.Name, Provider: row.Provider, Purpose: row.Purpose, Active: row.Active})
	}
	return models, nil
}

// jsonColumn stores V as JSON text; SQLite has no array or map type.
type jsonColumn[T any] struct {
	V T
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(c.V)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c *jsonColumn[T]) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan json column: unsupported type %T", src)
	}
	return json.Unmarshal(data, &c.V)
}

func offset(query domain.PageQuery) int {
	return (query.Page - 1) * query.PageSize
}

func page[T any](items []T, total int, query domain.PageQuery) domain.Page[T] {
	return domain.Page[T]{
		Items:      items,
		Total:      total,
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalPages: (total + query.PageSize - 1) / query.PageSize,
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
