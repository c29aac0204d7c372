// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/invtui/internal/api"
	"github.com/jeranaias/invtui/internal/chat"
	"github.com/jeranaias/invtui/internal/config"
	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/server"
	uichat "github.com/jeranaias/invtui/internal/ui/chat"
	"github.com/jeranaias/invtui/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSource struct {
	mu       sync.Mutex
	agents   []model.Agent
	agentErr error
	products []model.Product
	lists    int
	created  []model.ProductInput
}

func (f *fakeSource) ListAgents(ctx context.Context) ([]model.Agent, error) {
	return f.agents, f.agentErr
}

func (f *fakeSource) ListTasks(ctx context.Context) ([]model.Task, error) {
	return nil, errors.New("tasks down")
}

func (f *fakeSource) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	return []model.Alert{{Message: "USB-C Cable is low"}}, nil
}

func (f *fakeSource) ListProducts(ctx context.Context) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return append([]model.Product(nil), f.products...), nil
}

func (f *fakeSource) CreateProduct(ctx context.Context, in model.ProductInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	f.products = append(f.products, model.Product{ID: "9", Name: in.Name, Category: in.Category, Stock: in.Stock, Price: in.Price})
	return nil
}

type fakeChat struct{}

func (fakeChat) GetChat(ctx context.Context, id model.ID) ([]model.Message, error) {
	return nil, nil
}

func (fakeChat) CreateChat(ctx context.Context, req api.CreateChatRequest) (api.ChatResult, error) {
	return api.ChatResult{ChatID: "1", Reply: "hello"}, nil
}

func (fakeChat) AppendMessage(ctx context.Context, id model.ID, text string) (api.ChatResult, error) {
	return api.ChatResult{ChatID: id, Reply: "again"}, nil
}

func newSource() *fakeSource {
	return &fakeSource{
		agents: []model.Agent{
			{ID: "1", Name: "Inventory Agent", Model: "gpt-4o", Status: model.AgentActive, TasksCompleted: 4},
			{ID: "2", Name: "Pricing Agent", Model: "claude", Status: model.AgentWaiting, TasksCompleted: 1},
		},
		products: []model.Product{
			{ID: "1", Name: "iPhone 15 Pro", Category: "Smartphones", Stock: 12, Price: 999.99},
			{ID: "2", Name: "Laptop Dell XPS 15", Category: "Laptops", Stock: 45, Price: 1499},
			{ID: "3", Name: "Galaxy S24", Category: "Smartphones", Stock: 20, Price: 899.5},
			{ID: "4", Name: "USB-C Cable", Category: "Accessories", Stock: 3, Price: 9.99},
		},
	}
}

func newTestModel(t *testing.T, src *fakeSource) *Model {
	t.Helper()
	log, _ := test.NewNullLogger()
	cfg := config.Default()
	cfg.UI.Markdown = false
	registry := chat.NewRegistry(SessionFactory(cfg, fakeChat{}, nil, log, nil))
	m := New(context.Background(), Options{
		Config:   cfg,
		Agents:   src,
		Products: src,
		Registry: registry,
		Theme:    styles.NewTheme(styles.ModeDark),
		Logger:   log,
		Clock:    func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) },
	})
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	t.Cleanup(m.Close)
	return m
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	_, next := m.Update(cmd())
	return next
}

func press(m *Model, s string) tea.Cmd {
	var msg tea.KeyMsg
	switch s {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		msg = tea.KeyMsg{Type: tea.KeyCtrlS}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

// =============================================================================
// AGENTS VIEW
// =============================================================================

func TestAgentsView_LoadsOnMount(t *testing.T) {
	m := newTestModel(t, newSource())
	assert.Equal(t, ViewAgents, m.CurrentView())

	run(t, m, m.mount(ViewAgents))
	view := m.View()
	assert.Contains(t, view, "Inventory Agent")
	assert.Contains(t, view, "Pricing Agent")
	assert.Contains(t, view, "1/2")
	assert.Contains(t, view, "Online")
	assert.Empty(t, m.toasts.Toasts(), "secondary failures are not surfaced")
}

func TestAgentsView_Empty(t *testing.T) {
	m := newTestModel(t, &fakeSource{})
	run(t, m, m.mount(ViewAgents))
	assert.Contains(t, m.View(), "No agents found.")
}

func TestAgentsView_PrimaryFailure(t *testing.T) {
	m := newTestModel(t, &fakeSource{agentErr: errors.New("API Agents request failed: 503 Service Unavailable")})
	run(t, m, m.mount(ViewAgents))

	view := m.View()
	assert.Contains(t, view, "Error loading agents:")
	assert.Contains(t, view, "Offline")
	require.Len(t, m.toasts.Toasts(), 1)
}

func TestStaleResultIsDropped(t *testing.T) {
	m := newTestModel(t, &fakeSource{agentErr: errors.New("boom")})
	load := m.mount(ViewAgents)

	press(m, "2")
	assert.Equal(t, ViewInventory, m.CurrentView())

	m.Update(load())
	assert.Empty(t, m.toasts.Toasts(), "the agents view was unmounted before its result arrived")
}

// =============================================================================
// INVENTORY VIEW
// =============================================================================

func TestInventoryView_FilterDoesNotRefetch(t *testing.T) {
	src := newSource()
	m := newTestModel(t, src)
	run(t, m, press(m, "2"))
	assert.Contains(t, m.View(), "Showing 4 of 4 products")

	press(m, "/")
	for _, r := range "smart" {
		press(m, string(r))
	}
	press(m, "enter")

	view := m.View()
	assert.Contains(t, view, "Showing 2 of 4 products")
	assert.Contains(t, view, "Galaxy S24")
	assert.NotContains(t, view, "Laptop Dell XPS 15")
	assert.Equal(t, 1, src.lists)

	press(m, "/")
	press(m, "esc")
	assert.Contains(t, m.View(), "Showing 4 of 4 products")
}

func TestInventoryView_AddProduct(t *testing.T) {
	src := newSource()
	m := newTestModel(t, src)
	run(t, m, press(m, "2"))

	press(m, "n")
	require.NotNil(t, m.form)
	assert.Nil(t, press(m, "ctrl+s"))
	assert.Contains(t, m.View(), "is required")
	assert.Empty(t, src.created)

	values := map[string]string{
		"name": "Webcam", "category": "Accessories", "description": "1080p",
		"stock": "30", "stockMinimum": "5", "price": "49.99", "image": "cam.png",
	}
	for field, v := range values {
		m.form.setValue(field, v)
	}
	run(t, m, press(m, "ctrl+s"))

	assert.Nil(t, m.form)
	require.Len(t, src.created, 1)
	assert.Equal(t, 30, src.created[0].Stock)
	assert.Equal(t, 2, src.lists, "create refetches the list")
	assert.Contains(t, m.View(), "Showing 5 of 5 products")
	require.NotEmpty(t, m.toasts.Toasts())
	assert.Contains(t, m.toasts.Toasts()[0].Message, "Webcam")
}

func TestInventoryView_FormRejectsBadNumbers(t *testing.T) {
	m := newTestModel(t, newSource())
	run(t, m, press(m, "2"))
	press(m, "n")

	for _, field := range model.ProductFields {
		m.form.setValue(field, "x")
	}
	press(m, "ctrl+s")
	assert.Contains(t, m.form.fieldErrs["stock"], "non-negative integer")
	assert.Contains(t, m.form.fieldErrs["price"], "non-negative number")

	press(m, "esc")
	assert.Nil(t, m.form)
}

// =============================================================================
// CHAT PANEL
// =============================================================================

func TestChatPanel_OpenSendCloseResume(t *testing.T) {
	m := newTestModel(t, newSource())
	run(t, m, m.mount(ViewAgents))

	press(m, "enter")
	require.True(t, m.ChatOpen())
	assert.Contains(t, m.View(), "Chat with Inventory Agent")
	assert.Contains(t, m.View(), "Hi! I'm")
	assert.Equal(t, chat.Greeting("Inventory Agent"), m.registry.Get("Inventory Agent").Messages()[0].Content)

	for _, r := range "hola" {
		press(m, string(r))
	}
	run(t, m, press(m, "enter"))
	assert.Contains(t, m.View(), "hello")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	run(t, m, cmd)
	assert.False(t, m.ChatOpen())

	press(m, "c")
	require.True(t, m.ChatOpen())
	session := m.registry.Get("Inventory Agent")
	assert.Equal(t, model.ID("1"), session.ChatID(), "reopening resumes the same session")
	assert.Len(t, session.Messages(), 3)
}

func TestChatPanel_EventForClosedPanelBecomesToast(t *testing.T) {
	m := newTestModel(t, newSource())
	m.Update(uichat.EventMsg{Event: chat.Event{Kind: chat.EventError, Agent: "Pricing Agent", Err: errors.New("speech failed")}})
	require.Len(t, m.toasts.Toasts(), 1)
	assert.Contains(t, m.toasts.Toasts()[0].Message, "speech failed")
}

// =============================================================================
// SHELL
// =============================================================================

func TestHelpAndQuit(t *testing.T) {
	m := newTestModel(t, newSource())
	press(m, "?")
	assert.Contains(t, m.View(), "Keyboard shortcuts")
	press(m, "x")
	assert.NotContains(t, m.View(), "Keyboard shortcuts")

	cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestConfigReload(t *testing.T) {
	m := newTestModel(t, newSource())
	cfg := config.Default()
	cfg.UI.Theme = styles.ModeLight
	m.Update(ConfigReloadedMsg{Config: cfg})
	assert.False(t, m.theme.IsDark)
	require.Len(t, m.toasts.Toasts(), 1)
}

func TestSmallTerminalDoesNotPanic(t *testing.T) {
	m := newTestModel(t, newSource())
	run(t, m, m.mount(ViewAgents))
	m.Update(tea.WindowSizeMsg{Width: 20, Height: 6})
	press(m, "enter")
	assert.NotPanics(t, func() { _ = m.View() })
}

func TestAgainstMockServer(t *testing.T) {
	log, _ := test.NewNullLogger()
	srv := server.New(server.WithLogger(log), server.WithEnvelope(server.EnvelopeDomain))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cfg := config.Default()
	cfg.API.AgentsURL = ts.URL
	cfg.API.DetailsURL = ts.URL
	set := api.NewSet(cfg, log)

	m := New(context.Background(), Options{
		Config:   cfg,
		Agents:   set.Agents,
		Products: set.Details,
		Registry: chat.NewRegistry(SessionFactory(cfg, set.Agents, nil, log, nil)),
		Theme:    styles.NewTheme(styles.ModeDark),
		Logger:   log,
	})
	defer m.Close()
	m.Update(tea.WindowSizeMsg{Width: 160, Height: 60})

	run(t, m, m.mount(ViewAgents))
	agents := srv.Store().Agents()
	require.NotEmpty(t, agents)
	assert.Contains(t, m.View(), agents[0].Name)

	run(t, m, press(m, "2"))
	assert.Contains(t, m.View(), "of "+strconv.Itoa(len(srv.Store().Products()))+" products")
}
