// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/invtui/internal/model"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address for the mock server.
	DefaultAddr = "127.0.0.1:8787"

	// MaxRequestBodySize bounds request bodies.
	MaxRequestBodySize = "1M"

	// Version is the mock server version.
	Version = "1.0.0"
)

// EnvelopeStyle selects how list responses are wrapped.
type EnvelopeStyle string

const (
	EnvelopeBare   EnvelopeStyle = "bare"
	EnvelopeData   EnvelopeStyle = "data"
	EnvelopeDomain EnvelopeStyle = "domain"
	EnvelopeResult EnvelopeStyle = "result"
)

// ParseEnvelopeStyle validates a style name.
func ParseEnvelopeStyle(s string) (EnvelopeStyle, error) {
	switch st := EnvelopeStyle(strings.ToLower(s)); st {
	case EnvelopeBare, EnvelopeData, EnvelopeDomain, EnvelopeResult:
		return st, nil
	case "":
		return EnvelopeBare, nil
	default:
		return "", errors.New("envelope style must be one of: bare, data, domain, result")
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the mock API server.
type Server struct {
	echo   *echo.Echo
	store  *Store
	style  EnvelopeStyle
	faults *Faults
	delay  time.Duration
	log    logrus.FieldLogger

	mu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithStore sets the backing store.
func WithStore(store *Store) Option {
	return func(s *Server) { s.store = store }
}

// WithEnvelope sets the list envelope style.
func WithEnvelope(style EnvelopeStyle) Option {
	return func(s *Server) { s.style = style }
}

// WithLatency delays every response by d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithLogger sets the request logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a mock server backed by seeded demo data unless WithStore is
// given.
func New(opts ...Option) *Server {
	s := &Server{
		style:  EnvelopeBare,
		faults: NewFaults(),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = SeededStore()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowCredentials: false,
	}))
	e.Use(middleware.BodyLimit(MaxRequestBodySize))
	e.Use(requestLogger(s.log))
	e.Use(latency(s.delay))
	e.Use(faultInjection(s.faults))
	s.echo = e
	s.RegisterRoutes(e)
	return s
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Faults returns the fault table used to simulate failing endpoints.
func (s *Server) Faults() *Faults {
	return s.faults
}

// Handler returns the server as an http.Handler, for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// RegisterRoutes registers all HTTP routes for the server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", s.handleHealth)

	e.GET("/agents", s.handleAgents)
	e.GET("/tasks", s.handleTasks)
	e.GET("/alerts", s.handleAlerts)

	e.GET("/chats/:id", s.handleGetChat)
	e.POST("/chats", s.handleCreateChat)
	e.POST("/chats/:id/messages", s.handleAppendMessage)

	e.GET("/products", s.handleProducts)
	e.POST("/products", s.handleCreateProduct)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	s.log.WithFields(logrus.Fields{"addr": addr, "version": Version, "envelope": s.style}).Info("mock server starting")
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("mock server shutting down")
	return s.echo.Shutdown(ctx)
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": Version,
	})
}

func (s *Server) handleAgents(c echo.Context) error {
	return s.writeList(c, "agents", s.store.Agents())
}

func (s *Server) handleTasks(c echo.Context) error {
	return s.writeList(c, "tasks", s.store.Tasks())
}

func (s *Server) handleAlerts(c echo.Context) error {
	return s.writeList(c, "alerts", s.store.Alerts())
}

func (s *Server) handleProducts(c echo.Context) error {
	return s.writeList(c, "products", s.store.Products())
}

type createChatBody struct {
	User        string           `json:"user"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	Messages    []model.ChatTurn `json:"messages"`
}

func (s *Server) handleCreateChat(c echo.Context) error {
	var body createChatBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if body.Slug == "" || len(body.Messages) == 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "slug and messages are required")
	}

	last := lastUserTurn(body.Messages)
	reply := s.store.Reply(last)
	rec := s.store.CreateChat(body.User, body.Slug, body.Description, body.Messages)
	s.store.AppendTurns(rec.ID, model.ChatTurn{Role: model.RoleAssistant, Content: reply})

	return c.JSON(http.StatusCreated, map[string]any{
		"chat":             map[string]any{"id": rec.ID, "slug": rec.Slug},
		"assistantMessage": map[string]any{"role": model.RoleAssistant, "content": reply},
	})
}

type appendBody struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

func (s *Server) handleAppendMessage(c echo.Context) error {
	id := c.Param("id")
	var body appendBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(body.Content) == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "content is required")
	}

	reply := s.store.Reply(body.Content)
	ok := s.store.AppendTurns(id,
		model.ChatTurn{Role: model.RoleUser, Content: body.Content},
		model.ChatTurn{Role: model.RoleAssistant, Content: reply},
	)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "chat not found")
	}

	// Append answers under "result", not "assistantMessage".
	return c.JSON(http.StatusOK, map[string]any{"result": reply})
}

func (s *Server) handleGetChat(c echo.Context) error {
	rec := s.store.Chat(c.Param("id"))
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "chat not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"chat": rec})
}

func (s *Server) handleCreateProduct(c echo.Context) error {
	var in model.ProductInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := in.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	p := s.store.AddProduct(in)
	return c.JSON(http.StatusCreated, p)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) writeList(c echo.Context, domainKey string, list any) error {
	s.mu.Lock()
	style := s.style
	s.mu.Unlock()

	switch style {
	case EnvelopeData:
		return c.JSON(http.StatusOK, map[string]any{"data": list})
	case EnvelopeDomain:
		return c.JSON(http.StatusOK, map[string]any{domainKey: list})
	case EnvelopeResult:
		return c.JSON(http.StatusOK, map[string]any{"result": list, "count": lenOf(list)})
	default:
		return c.JSON(http.StatusOK, list)
	}
}

// SetEnvelope changes the list envelope style at runtime.
func (s *Server) SetEnvelope(style EnvelopeStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style = style
}

func lenOf(list any) int {
	switch l := list.(type) {
	case []model.Agent:
		return len(l)
	case []model.Task:
		return len(l)
	case []model.Alert:
		return len(l)
	case []model.Product:
		return len(l)
	default:
		return 0
	}
}

func lastUserTurn(turns []model.ChatTurn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == model.RoleUser {
			return turns[i].Content
		}
	}
	return ""
}
