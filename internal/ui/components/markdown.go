// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders agent replies as terminal markdown. Renderers
// are built lazily per wrap width. When disabled or when rendering fails
// the text is returned unchanged.
type MarkdownRenderer struct {
	mu        sync.Mutex
	enabled   bool
	style     string
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer. style is "dark", "light" or ""
// for auto detection.
func NewMarkdownRenderer(enabled bool, style string) *MarkdownRenderer {
	return &MarkdownRenderer{enabled: enabled, style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// Render renders text wrapped at width columns.
func (m *MarkdownRenderer) Render(text string, width int) string {
	if m == nil || !m.enabled || width <= 0 {
		return text
	}
	r := m.renderer(width)
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (m *MarkdownRenderer) renderer(width int) *glamour.TermRenderer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.renderers[width]; ok {
		return r
	}
	styleOpt := glamour.WithAutoStyle()
	if m.style == "dark" || m.style == "light" {
		styleOpt = glamour.WithStandardStyle(m.style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		r = nil
	}
	m.renderers[width] = r
	return r
}
