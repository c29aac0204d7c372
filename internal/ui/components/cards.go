// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/ui/styles"
	"github.com/jeranaias/invtui/internal/util"
)

// Metric is one labelled figure, preformatted (e.g. "3/4").
type Metric struct {
	Label string
	Value string
}

// MetricsRow renders metrics as boxes side by side, wrapping onto further
// rows when width runs out.
func MetricsRow(theme *styles.Theme, metrics []Metric, width int) string {
	const boxWidth = 18
	perRow := width / (boxWidth + theme.MetricBox.GetHorizontalBorderSize())
	if perRow < 1 {
		perRow = 1
	}

	var rows []string
	var row []string
	for i, m := range metrics {
		box := theme.MetricBox.Width(boxWidth).Render(
			theme.MetricValue.Render(util.TruncateWidth(m.Value, boxWidth-2)) + "\n" +
				theme.MetricLabel.Render(util.TruncateWidth(m.Label, boxWidth-2)),
		)
		row = append(row, box)
		if len(row) == perRow || i == len(metrics)-1 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// AgentCard renders one agent tile.
func AgentCard(theme *styles.Theme, a model.Agent, now time.Time, selected bool, width int) string {
	style := theme.Card
	if selected {
		style = theme.CardSelected
	}
	inner := width - style.GetHorizontalFrameSize()
	if inner < 16 {
		inner = 16
	}

	status := theme.StatusBadge(styles.AgentStatusColor(a.Status), styles.AgentStatusIndicator(a.Status), a.Status.Label())
	name := theme.CardTitle.Render(util.TruncateWidth(a.Name, inner))

	lines := []string{name, status}
	if a.Model != "" {
		lines = append(lines, theme.CardLabel.Render(util.TruncateWidth("Model: "+a.Model, inner)))
	}
	if a.Description != "" {
		lines = append(lines, theme.CardMuted.Render(util.TruncateWidth(a.Description, inner)))
	}
	lines = append(lines,
		theme.CardLabel.Render(util.TruncateWidth("Last action: "+a.LastActionDisplay(now), inner)),
		theme.CardLabel.Render("Tasks completed: "+strconv.Itoa(a.TasksCompleted)),
	)
	return style.Width(inner + style.GetHorizontalPadding()).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// GridColumns returns how many agent cards fit side by side.
func GridColumns(n, width int) int {
	const minCard = 32
	cols := width / minCard
	if cols < 1 {
		cols = 1
	}
	if n > 0 && cols > n {
		cols = n
	}
	return cols
}

// AgentGrid lays cards out in columns. selected is an index into agents, or
// -1 for none.
func AgentGrid(theme *styles.Theme, agents []model.Agent, now time.Time, selected, width int) string {
	if len(agents) == 0 {
		return theme.CardMuted.Render("No agents found.")
	}
	cols := GridColumns(len(agents), width)
	cardWidth := width / cols

	var rows []string
	for start := 0; start < len(agents); start += cols {
		end := start + cols
		if end > len(agents) {
			end = len(agents)
		}
		cells := make([]string, 0, cols)
		for i := start; i < end; i++ {
			cells = append(cells, AgentCard(theme, agents[i], now, i == selected, cardWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
