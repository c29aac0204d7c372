// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/invtui/internal/ui/styles"
	"github.com/jeranaias/invtui/internal/util"
)

// Tab is one entry of the view switcher.
type Tab struct {
	Key   string
	Title string
}

// Header renders the title bar with the view tabs beneath it.
func Header(theme *styles.Theme, title, subtitle string, tabs []Tab, active, width int) string {
	inner := width - theme.Header.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}

	left := theme.HeaderTitle.Render(util.TruncateWidth(title, inner))
	if rest := inner - lipgloss.Width(left) - 2; subtitle != "" && rest > 3 {
		left += "  " + theme.HeaderSubtitle.Render(util.TruncateWidth(subtitle, rest))
	}

	rendered := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		label := tab.Key + " " + tab.Title
		if i == active {
			rendered = append(rendered, theme.TabActive.Render(label))
		} else {
			rendered = append(rendered, theme.Tab.Render(label))
		}
	}
	tabRow := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)

	return theme.Header.Width(inner + theme.Header.GetHorizontalPadding()).Render(lipgloss.JoinVertical(lipgloss.Left, left, tabRow))
}

// StatusBar renders left-aligned hints and right-aligned status text on one
// line of the given width.
func StatusBar(theme *styles.Theme, hints, status string, width int) string {
	inner := width - theme.StatusBar.GetHorizontalFrameSize()
	if inner <= 0 {
		return ""
	}
	hw := lipgloss.Width(hints)
	sw := lipgloss.Width(status)
	gap := inner - hw - sw
	if gap < 1 {
		// Status wins; hints are dropped when space runs out.
		return theme.StatusBar.Width(width).Render(util.TruncateWidth(status, inner))
	}
	return theme.StatusBar.Width(width).Render(hints + strings.Repeat(" ", gap) + status)
}

// ErrorPanel renders a boxed error message for a failed view load.
func ErrorPanel(theme *styles.Theme, title, message string, width int) string {
	w := width - theme.ErrorBox.GetHorizontalFrameSize()
	if w < 20 {
		w = 20
	}
	body := strings.Join(util.WrapWidth(message, w), "\n")
	return theme.ErrorBox.Width(w + theme.ErrorBox.GetHorizontalPadding()).Render(
		theme.ErrorTitle.Render(styles.StatusIndicators.Error+" "+title) + "\n" + theme.ErrorMessage.Render(body),
	)
}
