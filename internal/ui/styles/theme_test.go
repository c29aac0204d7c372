// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	if th := NewTheme(ModeDark); !th.IsDark {
		t.Error("dark mode should report IsDark")
	}
	if th := NewTheme(ModeLight); th.IsDark {
		t.Error("light mode should not report IsDark")
	}
}

func TestTheme_RendersText(t *testing.T) {
	th := NewTheme(ModeDark)
	for name, out := range map[string]string{
		"header": th.HeaderTitle.Render("Agents"),
		"tab":    th.TabActive.Render("Agents"),
		"card":   th.Card.Render("Agents"),
		"badge":  th.StatusBadge(Emerald, StatusIndicators.Active, "Agents"),
	} {
		if !strings.Contains(out, "Agents") {
			t.Errorf("%s render lost its text: %q", name, out)
		}
	}
}
