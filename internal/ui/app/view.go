// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	uichat "github.com/jeranaias/invtui/internal/ui/chat"
	"github.com/jeranaias/invtui/internal/ui/components"
	"github.com/jeranaias/invtui/internal/ui/styles"
)

var tabs = []components.Tab{
	{Key: "1", Title: "Agents"},
	{Key: "2", Title: "Inventory"},
}

// View renders the application.
func (m *Model) View() string {
	header := components.Header(m.theme, "Inventory Agents", m.subtitle(), tabs, int(m.view), m.width)

	bodyH := m.bodyHeight()
	toasts := components.RenderToastStack(m.toasts.Toasts(), m.width, 0, m.now())
	if toasts != "" {
		bodyH -= lipgloss.Height(toasts)
	}
	if bodyH < 1 {
		bodyH = 1
	}

	var body string
	switch {
	case m.showHelp:
		body = m.helpView()
	case m.panel != nil && m.panelWidth() >= m.width:
		body = m.panel.View()
	default:
		main := m.theme.Container.Width(m.mainWidth() + m.theme.Container.GetHorizontalPadding()).Render(m.mainView(bodyH))
		if m.panel != nil {
			body = lipgloss.JoinHorizontal(lipgloss.Top, main, m.panel.View())
		} else {
			body = main
		}
	}
	body = lipgloss.NewStyle().Height(bodyH).MaxHeight(bodyH).Render(body)

	parts := []string{header, body}
	if toasts != "" {
		parts = append(parts, toasts)
	}
	parts = append(parts, components.StatusBar(m.theme, m.help.ShortHelpView(m.hints()), m.status(), m.width))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// subtitle shows connectivity: offline once a primary fetch has failed.
func (m *Model) subtitle() string {
	online := m.agents.Snapshot().Err == "" && m.inventory.Err() == ""
	state := styles.StatusIndicators.Active + " Online"
	if !online {
		state = styles.StatusIndicators.Error + " Offline"
	}
	if host := hostOf(m.cfg.API.AgentsURL); host != "" {
		state += "  " + host
	}
	return state
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func (m *Model) hints() []key.Binding {
	switch {
	case m.panel != nil:
		return m.panel.Keys().ShortHelp()
	case m.form != nil:
		return m.keys.formHelp()
	case m.view == ViewInventory:
		return m.keys.inventoryHelp()
	}
	return m.keys.agentsHelp()
}

func (m *Model) status() string {
	if m.agents.Loading() || m.inventory.Loading() {
		return m.spinner.View() + " Loading"
	}
	if m.panel != nil {
		return "Chat: " + m.panel.Agent()
	}
	return m.view.String()
}

func (m *Model) helpView() string {
	h := m.help
	h.ShowAll = true
	h.Width = m.width
	return m.theme.Container.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.theme.CardTitle.Render("Keyboard shortcuts"),
			"",
			h.View(m.keys),
			"",
			m.theme.CardTitle.Render("Chat panel"),
			"",
			h.View(uichat.DefaultKeyMap()),
			"",
			m.theme.CardMuted.Render("Press any key to close"),
		),
	)
}

func (m *Model) mainView(height int) string {
	if m.view == ViewInventory {
		return m.inventoryView(height)
	}
	return m.agentsView()
}

// =============================================================================
// AGENTS
// =============================================================================

func (m *Model) agentsView() string {
	width := m.mainWidth()
	snap := m.agents.Snapshot()

	if m.agents.Loading() && len(snap.Agents) == 0 {
		return m.spinner.View() + " Loading agents..."
	}
	if snap.Err != "" {
		return components.ErrorPanel(m.theme, "Error loading agents: "+snap.Err, "Press r to retry.", width)
	}
	if len(snap.Agents) == 0 {
		return m.theme.CardMuted.Render("No agents found.")
	}

	mt := snap.Metrics
	metrics := components.MetricsRow(m.theme, []components.Metric{
		{Label: "Active agents", Value: fmt.Sprintf("%d/%d", mt.Active, mt.Total)},
		{Label: "Requests today", Value: strconv.Itoa(mt.RequestsToday)},
		{Label: "Tasks completed", Value: strconv.Itoa(mt.TasksCompleted)},
		{Label: "Products updated", Value: strconv.Itoa(mt.ProductsUpdated)},
		{Label: "Alerts", Value: strconv.Itoa(mt.Alerts)},
		{Label: "Models", Value: strconv.Itoa(mt.Models)},
	}, width)

	lines := []string{metrics}
	if labels := snap.ModelLabels(); len(labels) > 0 {
		lines = append(lines, m.theme.CardMuted.Render("Models: "+strings.Join(labels, ", ")))
	}
	lines = append(lines, components.AgentGrid(m.theme, snap.Agents, m.now(), m.agentSel, width))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// =============================================================================
// INVENTORY
// =============================================================================

func (m *Model) inventoryView(height int) string {
	width := m.mainWidth()
	if m.form != nil {
		return m.form.view(m.theme, width)
	}

	if m.inventory.Loading() && len(m.inventory.Products()) == 0 {
		return m.spinner.View() + " Loading products..."
	}
	if err := m.inventory.Err(); err != "" {
		return components.ErrorPanel(m.theme, "Error loading products", err+"\nPress r to retry.", width)
	}

	shown, sum := m.inventory.Filter(m.filter.Value())

	search := m.filter.View()
	if !m.filtering && m.filter.Value() == "" {
		search = m.theme.CardMuted.Render("Press / to search, n to add a product")
	}
	summary := m.theme.CardLabel.Render(fmt.Sprintf("%s  ·  %d units  ·  %d low stock  ·  %d categories  ·  $%.2f",
		sum.Showing(), sum.Units, sum.LowStock, sum.Categories, sum.Value))

	var detail string
	if len(shown) > 0 && m.productSel < len(shown) && height >= 24 {
		detail = components.ProductDetail(m.theme, shown[m.productSel], width)
	}

	tableH := height - 2
	if detail != "" {
		tableH -= lipgloss.Height(detail)
	}
	table := components.ProductTable(m.theme, shown, m.productSel, width, tableH)

	lines := []string{search, summary, table}
	if detail != "" {
		lines = append(lines, detail)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
