// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root Bubble Tea model: view switching between the
// agents and inventory dashboards, the chat side panel, the product form
// and toast notifications.
package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/invtui/internal/chat"
	"github.com/jeranaias/invtui/internal/config"
	"github.com/jeranaias/invtui/internal/dashboard"
	uichat "github.com/jeranaias/invtui/internal/ui/chat"
	"github.com/jeranaias/invtui/internal/ui/components"
	"github.com/jeranaias/invtui/internal/ui/styles"
)

// View identifies a dashboard view.
type View int

const (
	ViewAgents View = iota
	ViewInventory
)

// ParseView maps a config value to a view, defaulting to agents.
func ParseView(s string) View {
	if s == "inventory" {
		return ViewInventory
	}
	return ViewAgents
}

func (v View) String() string {
	if v == ViewInventory {
		return "inventory"
	}
	return "agents"
}

// Options wires the model to its data sources.
type Options struct {
	Config   *config.Config
	Agents   dashboard.AgentsSource
	Products dashboard.ProductsSource
	Registry *chat.Registry
	Theme    *styles.Theme
	Logger   logrus.FieldLogger
	Clock    func() time.Time
}

// Model is the application model.
type Model struct {
	ctx   context.Context
	cfg   *config.Config
	log   logrus.FieldLogger
	now   func() time.Time
	theme *styles.Theme
	keys  KeyMap
	help  help.Model

	markdown  *components.MarkdownRenderer
	agents    *dashboard.AgentsController
	inventory *dashboard.InventoryController
	registry  *chat.Registry
	toasts    *components.ToastManager
	spinner   spinner.Model

	view  View
	scope *dashboard.Scope

	agentSel   int
	productSel int
	filter     textinput.Model
	filtering  bool
	form       *productForm

	panel     *uichat.Panel
	lastAgent string

	showHelp bool
	width    int
	height   int
}

// New creates the model. ctx bounds every request the UI starts.
func New(ctx context.Context, opts Options) *Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(cfg.UI.Theme)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	filter := textinput.New()
	filter.Placeholder = "Search by name or category"
	filter.Prompt = "/ "
	filter.PromptStyle = theme.InputPrompt
	filter.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	h := help.New()
	h.ShortSeparator = "  "

	return &Model{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		now:       now,
		theme:     theme,
		keys:      DefaultKeyMap(),
		help:      h,
		markdown:  components.NewMarkdownRenderer(cfg.UI.Markdown, markdownStyle(cfg.UI.Theme)),
		agents:    dashboard.NewAgentsController(opts.Agents, log),
		inventory: dashboard.NewInventoryController(opts.Products, log),
		registry:  opts.Registry,
		toasts:    components.NewToastManager(),
		spinner:   sp,
		view:      ParseView(cfg.UI.DefaultView),
		scope:     dashboard.NewScope(ctx),
		filter:    filter,
		width:     100,
		height:    30,
	}
}

func markdownStyle(theme string) string {
	switch theme {
	case styles.ModeDark, styles.ModeLight:
		return theme
	}
	return ""
}

// CurrentView returns the mounted view.
func (m *Model) CurrentView() View {
	return m.view
}

// ChatOpen reports whether the chat panel is showing.
func (m *Model) ChatOpen() bool {
	return m.panel != nil
}

// Init mounts the default view.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.mount(m.view),
		m.spinner.Tick,
		components.ToastTickCmd(),
	)
}

// =============================================================================
// VIEW LIFECYCLE
// =============================================================================

// scopedMsg wraps a result produced for a mounted view.
type scopedMsg struct {
	scope *dashboard.Scope
	msg   tea.Msg
}

type agentsLoadedMsg struct {
	snap dashboard.AgentsSnapshot
}

type productsLoadedMsg struct {
	err error
}

type productCreatedMsg struct {
	name string
	err  error
}

// ConfigReloadedMsg is sent when the config file changes on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// mount closes the current view scope and mounts v under a new one.
func (m *Model) mount(v View) tea.Cmd {
	if m.scope != nil {
		m.scope.Close()
	}
	m.view = v
	m.scope = dashboard.NewScope(m.ctx)
	m.form = nil
	m.filtering = false
	m.filter.Blur()

	if v == ViewInventory {
		return m.scoped(func(ctx context.Context) tea.Msg {
			return productsLoadedMsg{err: m.inventory.Load(ctx)}
		})
	}
	return m.scoped(func(ctx context.Context) tea.Msg {
		return agentsLoadedMsg{snap: m.agents.Load(ctx)}
	})
}

// scoped runs fn as a command tied to the current view scope. fn gets a
// context detached from the scope, so closing the view never aborts the
// request; the result is dropped instead.
func (m *Model) scoped(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	scope := m.scope
	return func() tea.Msg {
		return scopedMsg{scope: scope, msg: fn(scope.Detached())}
	}
}

func (m *Model) refresh() tea.Cmd {
	if m.view == ViewInventory {
		return m.scoped(func(ctx context.Context) tea.Msg {
			return productsLoadedMsg{err: m.inventory.Reload(ctx)}
		})
	}
	return m.scoped(func(ctx context.Context) tea.Msg {
		return agentsLoadedMsg{snap: m.agents.Reload(ctx)}
	})
}

// Close tears down the mounted view.
func (m *Model) Close() {
	if m.scope != nil {
		m.scope.Close()
	}
}
