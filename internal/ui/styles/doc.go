// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the invtui dashboard.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The [ui] theme setting in config.toml may force either mode.

# Color System (colors.go)

  - Purple - Primary accent, assistant messages, selections
  - Cyan - Brand color, user highlights
  - Emerald - Active agents, high stock
  - Amber - Waiting agents, medium stock
  - Rose - Errors, low stock

State is never carried by color alone: every colored state is paired with
a marker from StatusIndicators.

# Theme (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme)
	header := theme.HeaderTitle.Render("Inventory Agents")
*/
package styles
