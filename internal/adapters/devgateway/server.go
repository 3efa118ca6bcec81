// Package devgateway is a local implementation of the Master Trainer REST
// API. Persona replies are scripted and feedback is only served when it was
// seeded.
package devgateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/mastertrainer/mt/internal/adapters/wire"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
)

const (
	DefaultAddr     = "127.0.0.1:8080"
	DefaultPassword = "mastertrainer"

	userKey = "user"
)

type Config struct {
	// Password is shared by every seeded user.
	Password       string
	AllowedOrigins []string
	Policy         domain.TurnPolicy
	Limits         domain.MessageLimits
}

type Server struct {
	store  *Store
	config Config
	clock  ports.Clock
	logger *slog.Logger
	engine *gin.Engine
}

func NewServer(store *Store, config Config, clock ports.Clock, logger *slog.Logger) *Server {
	if config.Password == "" {
		config.Password = DefaultPassword
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}
	if config.Limits == (domain.MessageLimits{}) {
		config.Limits = domain.DefaultMessageLimits()
	}
	if config.Policy == (domain.TurnPolicy{}) {
		config.Policy = domain.DefaultTurnPolicy()
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{store: store, config: config, clock: clock, logger: logger}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	api := router.Group("/api")
	api.POST("/auth/login", s.login)

	authed := api.Group("", s.authenticate)
	authed.POST("/roleplay/start", s.startSession)
	authed.POST("/roleplay/message", s.sendMessage)
	authed.POST("/roleplay/end", s.endSession)
	authed.GET("/roleplay/session/:id", s.getSession)
	authed.GET("/roleplay/history", s.history)
	authed.GET("/feedback/session/:id", s.feedback)
	authed.GET("/scenarios", s.listScenarios)
	authed.GET("/scenarios/:id", s.getScenario)

	admin := authed.Group("", s.requireAdmin)
	admin.POST("/scenarios", s.createScenario)
	admin.DELETE("/scenarios/:id", s.deleteScenario)
	admin.GET("/admin/users", s.listUsers)
	admin.GET("/admin/models", s.listModels)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, wire.Fail("route not found"))
	})

	return router
}

// Handler is the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(s.engine)
}

// ListenAndServe serves until ctx is done, then drains for up to five
// seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("development gateway listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := s.clock.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", s.clock.Now().Sub(started),
		)
	}
}

func (s *Server) authenticate(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, wire.Fail("missing bearer token"))
		return
	}

	user, err := s.store.UserByToken(c.Request.Context(), strings.TrimSpace(token))
	if err != nil {
		s.fail(c, err)
		c.Abort()
		return
	}
	c.Set(userKey, user)
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	if currentUser(c).Role != "admin" {
		c.AbortWithStatusJSON(http.StatusForbidden, wire.Fail("admin role required"))
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) domain.User {
	user, _ := c.Get(userKey)
	u, _ := user.(domain.User)
	return u
}

func (s *Server) login(c *gin.Context) {
	var req wire.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.Fail("invalid login request"))
		return
	}

	user, err := s.store.UserByEmail(c.Request.Context(), req.Email)
	if err != nil || req.Password != s.config.Password {
		c.JSON(http.StatusUnauthorized, wire.Fail("invalid email or password"))
		return
	}

	token, err := s.store.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(wire.LoginResponse{Token: token, User: wire.FromUser(user)}))
}

func (s *Server) startSession(c *gin.Context) {
	var req wire.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ScenarioID) == "" {
		c.JSON(http.StatusBadRequest, wire.Fail("scenarioId is required"))
		return
	}

	session, err := s.store.CreateSession(c.Request.Context(), currentUser(c).ID, domain.ScenarioID(req.ScenarioID))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(wire.FromSession(session)))
}

func (s *Server) sendMessage(c *gin.Context) {
	var req wire.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.Fail("invalid message request"))
		return
	}

	ctx := c.Request.Context()
	session, err := s.ownedSession(c, domain.SessionID(req.SessionID))
	if err != nil {
		s.fail(c, err)
		return
	}
	if session.Status != domain.SessionActive {
		s.fail(c, domain.ErrSessionNotActive)
		return
	}
	if err := s.config.Limits.Validate(req.Content); err != nil {
		s.fail(c, err)
		return
	}

	var scenario *domain.Scenario
	if found, err := s.store.GetScenario(ctx, session.ScenarioID); err == nil {
		scenario = &found
	} else if !errors.Is(err, domain.ErrScenarioNotFound) {
		s.fail(c, err)
		return
	}

	turn := session.UserTurns()
	if turn >= s.config.Policy.MaxTurnsFor(scenario) {
		s.fail(c, domain.ErrTurnLimitReached)
		return
	}

	reply := domain.Scenario{}.Reply(turn)
	if scenario != nil {
		reply = scenario.Reply(turn)
	}

	now := s.clock.Now().UTC()
	exchange := domain.MessageExchange{
		UserMessage: domain.Message{ID: uuid.NewString(), SessionID: session.ID, Role: domain.RoleUser, Content: req.Content, Timestamp: now},
		AIMessage:   domain.Message{ID: uuid.NewString(), SessionID: session.ID, Role: domain.RoleAI, Content: reply, Timestamp: now},
	}
	if err := s.store.AppendExchange(ctx, session.ID, exchange); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(wire.FromExchange(exchange)))
}

func (s *Server) endSession(c *gin.Context) {
	var req wire.EndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.Fail("invalid end request"))
		return
	}

	if _, err := s.ownedSession(c, domain.SessionID(req.SessionID)); err != nil {
		s.fail(c, err)
		return
	}

	session, err := s.store.SetStatus(c.Request.Context(), domain.SessionID(req.SessionID), domain.SessionCompleted)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(wire.FromSession(session)))
}

func (s *Server) getSession(c *gin.Context) {
	session, err := s.ownedSession(c, domain.SessionID(c.Param("id")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(wire.FromSession(session)))
}

// ownedSession hides other users' sessions behind ErrSessionNotFound.
func (s *Server) ownedSession(c *gin.Context, id domain.SessionID) (domain.Session, error) {
	session, err := s.store.GetSession(c.Request.Context(), id)
	if err != nil {
		return domain.Session{}, err
	}
	if user := currentUser(c); session.UserID != user.ID && user.Role != "admin" {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Server) history(c *gin.Context) {
	page, err := s.store.ListSessions(c.Request.Context(), currentUser(c).ID, pageQuery(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(wire.FromDomainPage(page, wire.FromSession)))
}

func (s *Server) feedback(c *gin.Context) {
	session, err := s.ownedSession(c, domain.SessionID(c.Param("id")))
	if err != nil {
		s.fail(c, err)
		return
	}

	feedback, err := s.store.Feedback(c.Request.Context(), session.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(wire.FromFeedback(feedback)))
}

func (s *Server) listScenarios(c *gin.Context) {
	query := pageQuery(c)
	filter := domain.ScenarioFilter{
		Page:       query.Page,
		PageSize:   query.PageSize,
		Category:   c.Query("category"),
		Difficulty: domain.Difficulty(c.Query("difficulty")),
		Search:     c.Query("search"),
	}

	page, err := s.store.ListScenarios(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(wire.FromDomainPage(page, wire.FromScenario)))
}

func (s *Server) getScenario(c *gin.Context) {
	scenario, err := s.store.GetScenario(c.Request.Context(), domain.ScenarioID(c.Param("id")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(wire.FromScenario(scenario)))
}

func (s *Server) createScenario(c *gin.Context) {
	var req wire.Scenario
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.Fail("invalid scenario"))
		return
	}

	scenario := wire.ToScenario(req)
	if err := scenario.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, wire.Fail(err.Error()))
		return
	}

	created, err := s.store.CreateScenario(c.Request.Context(), scenario)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, wire.OK(wire.FromScenario(created)))
}

func (s *Server) deleteScenario(c *gin.Context) {
	if err := s.store.DeleteScenario(c.Request.Context(), domain.ScenarioID(c.Param("id"))); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(struct{}{}))
}

func (s *Server) listUsers(c *gin.Context) {
	page, err := s.store.ListUsers(c.Request.Context(), pageQuery(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.OK(wire.FromDomainPage(page, wire.FromUser)))
}

func (s *Server) listModels(c *gin.Context) {
	models, err := s.store.ListModels(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]wire.AIModel, 0, len(models))
	for _, model := range models {
		out = append(out, wire.FromModel(model))
	}
	c.JSON(http.StatusOK, wire.OK(out))
}

func pageQuery(c *gin.Context) domain.PageQuery {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	return domain.PageQuery{Page: page, PageSize: pageSize}.Normalize()
}

func (s *Server) fail(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, wire.Fail("unauthorized"))
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrScenarioNotFound),
		errors.Is(err, domain.ErrFeedbackPending):
		c.JSON(http.StatusNotFound, wire.Fail(err.Error()))
	case errors.As(err, &validationErr),
		errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrTurnLimitReached):
		c.JSON(http.StatusBadRequest, wire.Fail(err.Error()))
	default:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, wire.Fail("internal error"))
	}
}
