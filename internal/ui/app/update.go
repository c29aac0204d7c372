// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/invtui/internal/chat"
	"github.com/jeranaias/invtui/internal/model"
	uichat "github.com/jeranaias/invtui/internal/ui/chat"
	"github.com/jeranaias/invtui/internal/ui/components"
	"github.com/jeranaias/invtui/internal/ui/styles"
)

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKeyPress(msg)

	case scopedMsg:
		if msg.scope != m.scope || !msg.scope.Live() {
			m.log.WithField("msg", fmt.Sprintf("%T", msg.msg)).Debug("dropping result for unmounted view")
			return m, nil
		}
		return m, m.applyResult(msg.msg)

	case uichat.CloseMsg:
		m.panel = nil
		m.layout()
		return m, nil

	case uichat.ReplyMsg:
		if msg.Err != nil {
			m.toasts.AddError("Chat with " + msg.Agent + " failed: " + msg.Err.Error())
		}
		return m, m.forwardToPanel(msg.Agent, msg)

	case uichat.HistoryMsg:
		if msg.Err != nil {
			m.toasts.AddWarning("Could not load conversation: " + msg.Err.Error())
		}
		return m, m.forwardToPanel(msg.Agent, msg)

	case uichat.EventMsg:
		if msg.Kind == chat.EventError && msg.Err != nil && (m.panel == nil || m.panel.Agent() != msg.Agent) {
			m.toasts.AddWarning(msg.Agent + ": " + msg.Err.Error())
		}
		return m, m.forwardToPanel(msg.Agent, msg)

	case ConfigReloadedMsg:
		m.applyConfig(msg)
		return m, nil

	case components.ToastTickMsg:
		m.toasts.Tick(msg.Time)
		return m, components.ToastTickCmd()

	case spinner.TickMsg:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.panel != nil {
			cmds = append(cmds, m.panel.Update(msg))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		if m.panel != nil {
			return m, m.panel.Update(msg)
		}
		return m, nil
	}

	// Cursor blinks and other input internals.
	var cmds []tea.Cmd
	if m.panel != nil {
		cmds = append(cmds, m.panel.Update(msg))
	}
	if m.filtering {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.form != nil {
		cmds = append(cmds, m.form.update(msg))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) forwardToPanel(agent string, msg tea.Msg) tea.Cmd {
	if m.panel == nil || m.panel.Agent() != agent {
		return nil
	}
	return m.panel.Update(msg)
}

// applyResult applies a result that arrived for the mounted view.
func (m *Model) applyResult(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case agentsLoadedMsg:
		if msg.snap.Err != "" {
			m.toasts.AddError("Error loading agents: " + msg.snap.Err)
		}
		m.clampSelection()

	case productsLoadedMsg:
		if msg.err != nil {
			m.toasts.AddError("Error loading products: " + msg.err.Error())
		}
		m.clampSelection()

	case productCreatedMsg:
		if m.form == nil {
			return nil
		}
		m.form.submitting = false
		if msg.err != nil {
			m.form.setError(msg.err)
			m.toasts.AddError("Could not create product: " + msg.err.Error())
			return nil
		}
		m.form = nil
		m.toasts.AddSuccess("Product " + msg.name + " created")
		m.clampSelection()
	}
	return nil
}

func (m *Model) applyConfig(msg ConfigReloadedMsg) {
	if msg.Config == nil {
		return
	}
	m.cfg = msg.Config
	m.theme = styles.NewTheme(msg.Config.UI.Theme)
	m.markdown = components.NewMarkdownRenderer(msg.Config.UI.Markdown, markdownStyle(msg.Config.UI.Theme))
	m.toasts.AddStatus("Configuration reloaded")
	m.log.Info("configuration reloaded")
}

// =============================================================================
// KEYBOARD
// =============================================================================

// handleKeyPress processes keyboard input. Focus order: chat panel, product
// form, search field, help overlay, then the view.
func (m *Model) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		m.Close()
		return tea.Quit
	}

	if m.panel != nil {
		return m.panel.Update(msg)
	}
	if m.form != nil {
		return m.handleFormKey(msg)
	}
	if m.filtering {
		return m.handleFilterKey(msg)
	}
	if m.showHelp {
		m.showHelp = false
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return nil

	case key.Matches(msg, m.keys.Agents):
		return m.switchView(ViewAgents)

	case key.Matches(msg, m.keys.Inventory):
		return m.switchView(ViewInventory)

	case key.Matches(msg, m.keys.NextView):
		if m.view == ViewAgents {
			return m.switchView(ViewInventory)
		}
		return m.switchView(ViewAgents)

	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()

	case key.Matches(msg, m.keys.Dismiss):
		m.toasts.Dismiss()
		return nil

	case key.Matches(msg, m.keys.Chat):
		return m.openChat(m.chatTarget())
	}

	if m.view == ViewInventory {
		return m.handleInventoryKey(msg)
	}
	return m.handleAgentsKey(msg)
}

func (m *Model) switchView(v View) tea.Cmd {
	if v == m.view {
		return nil
	}
	return m.mount(v)
}

func (m *Model) handleAgentsKey(msg tea.KeyMsg) tea.Cmd {
	agents := m.agents.Snapshot().Agents
	if len(agents) == 0 {
		return nil
	}
	cols := components.GridColumns(len(agents), m.mainWidth())

	switch {
	case key.Matches(msg, m.keys.Left):
		m.agentSel--
	case key.Matches(msg, m.keys.Right):
		m.agentSel++
	case key.Matches(msg, m.keys.Up):
		if m.agentSel-cols >= 0 {
			m.agentSel -= cols
		}
	case key.Matches(msg, m.keys.Down):
		if m.agentSel+cols < len(agents) {
			m.agentSel += cols
		}
	case key.Matches(msg, m.keys.Open):
		m.clampSelection()
		return m.openChat(agents[m.agentSel].Name)
	}
	m.clampSelection()
	return nil
}

func (m *Model) handleInventoryKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.filtering = true
		return m.filter.Focus()

	case key.Matches(msg, m.keys.Add):
		m.form = newProductForm(m.theme)
		return nil

	case key.Matches(msg, m.keys.Up):
		m.productSel--

	case key.Matches(msg, m.keys.Down):
		m.productSel++

	case key.Matches(msg, m.keys.Back):
		m.filter.SetValue("")
	}
	m.clampSelection()
	return nil
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.filter.SetValue("")
		m.filter.Blur()
		m.filtering = false
		m.clampSelection()
		return nil
	case tea.KeyEnter:
		m.filter.Blur()
		m.filtering = false
		return nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.productSel = 0
	return cmd
}

func (m *Model) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	f := m.form
	if f.submitting {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.Back):
		m.form = nil
		return nil
	case key.Matches(msg, m.keys.Save):
		return m.submitForm()
	case msg.Type == tea.KeyEnter:
		if f.onLast() {
			return m.submitForm()
		}
		return f.move(1)
	case key.Matches(msg, m.keys.NextField):
		return f.move(1)
	case key.Matches(msg, m.keys.PrevField):
		return f.move(-1)
	}
	return f.update(msg)
}

func (m *Model) submitForm() tea.Cmd {
	f := m.form
	in, err := model.ParseProductInput(f.values())
	if err != nil {
		f.setError(err)
		return nil
	}
	f.setError(nil)
	f.submitting = true
	return m.scoped(func(ctx context.Context) tea.Msg {
		return productCreatedMsg{name: in.Name, err: m.inventory.Create(ctx, in)}
	})
}

// =============================================================================
// CHAT
// =============================================================================

// chatTarget picks the agent the chat toggle opens: the selected agent in
// the agents view, else the last agent chatted with.
func (m *Model) chatTarget() string {
	if m.view == ViewAgents {
		if agents := m.agents.Snapshot().Agents; len(agents) > 0 {
			m.clampSelection()
			return agents[m.agentSel].Name
		}
	}
	return m.lastAgent
}

func (m *Model) openChat(agent string) tea.Cmd {
	if agent == "" || m.registry == nil {
		m.toasts.AddStatus("Select an agent to chat with")
		return nil
	}
	m.lastAgent = agent
	m.panel = uichat.NewPanel(m.ctx, m.registry.Get(agent), m.theme, m.markdown)
	m.layout()
	return m.panel.Init()
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) clampSelection() {
	clamp := func(v, n int) int {
		if v >= n {
			v = n - 1
		}
		if v < 0 {
			v = 0
		}
		return v
	}
	m.agentSel = clamp(m.agentSel, len(m.agents.Snapshot().Agents))
	shown, _ := m.inventory.Filter(m.filter.Value())
	m.productSel = clamp(m.productSel, len(shown))
}

// panelWidth is the chat panel width; the panel takes the whole screen
// when the terminal is narrow.
func (m *Model) panelWidth() int {
	if m.panel == nil {
		return 0
	}
	if m.width < 100 {
		return m.width
	}
	w := m.width * 2 / 5
	if w < 44 {
		w = 44
	}
	return w
}

func (m *Model) mainWidth() int {
	w := m.width - m.panelWidth()
	if w <= 0 {
		return 0
	}
	return w - m.theme.Container.GetHorizontalFrameSize()
}

func (m *Model) layout() {
	m.filter.Width = m.mainWidth() - 4
	if m.filter.Width < 10 {
		m.filter.Width = 10
	}
	if m.panel != nil {
		m.panel.SetSize(m.panelWidth(), m.bodyHeight())
	}
}

// bodyHeight is the space between the header and the status bar.
func (m *Model) bodyHeight() int {
	// header: border, title, tabs
	h := m.height - 4 - 1
	if h < 5 {
		h = 5
	}
	return h
}
