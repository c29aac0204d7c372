// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis is appended by the truncating helpers.
const Ellipsis = "..."

// TruncateRunes truncates s to at most maxRunes runes, ending in "..." when
// it was shortened.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= len(Ellipsis) {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-len(Ellipsis)]) + Ellipsis
}

// TruncateWidth truncates s to at most maxWidth terminal columns. Wide
// characters count as two columns.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(Ellipsis) {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// PadRight truncates or pads s with spaces to exactly width columns.
func PadRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.FillRight(TruncateWidth(s, width), width)
}

// StringWidth returns the display width of s.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// WrapWidth word-wraps text to lines of at most width columns. Words wider
// than width are truncated.
func WrapWidth(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	var (
		lines []string
		line  strings.Builder
		cur   int
	)
	for _, word := range strings.Fields(text) {
		w := runewidth.StringWidth(word)
		if w > width {
			word = TruncateWidth(word, width)
			w = runewidth.StringWidth(word)
		}
		switch {
		case cur == 0:
			line.WriteString(word)
			cur = w
		case cur+1+w <= width:
			line.WriteByte(' ')
			line.WriteString(word)
			cur += 1 + w
		default:
			lines = append(lines, line.String())
			line.Reset()
			line.WriteString(word)
			cur = w
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
