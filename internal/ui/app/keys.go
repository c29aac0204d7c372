// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard key bindings.
type KeyMap struct {
	// Navigation
	Agents    key.Binding
	Inventory key.Binding
	NextView  key.Binding
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding

	// Actions
	Open    key.Binding
	Chat    key.Binding
	Search  key.Binding
	Add     key.Binding
	Refresh key.Binding
	Dismiss key.Binding

	// Forms
	NextField key.Binding
	PrevField key.Binding
	Save      key.Binding
	Back      key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Agents: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "agents"),
		),
		Inventory: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "inventory"),
		),
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "switch view"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "right"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "chat with agent"),
		),
		Chat: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "open chat"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Add: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new product"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("Tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("S-Tab", "previous field"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "save"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextView, k.Open, k.Search, k.Add, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Agents, k.Inventory, k.NextView},
		{k.Up, k.Down, k.Left, k.Right},
		{k.Open, k.Chat, k.Refresh, k.Dismiss},
		{k.Search, k.Add, k.Save, k.Back},
		{k.Help, k.Quit},
	}
}

// agentsHelp lists the hints shown in the agents view.
func (k KeyMap) agentsHelp() []key.Binding {
	return []key.Binding{k.NextView, k.Open, k.Chat, k.Refresh, k.Help, k.Quit}
}

// inventoryHelp lists the hints shown in the inventory view.
func (k KeyMap) inventoryHelp() []key.Binding {
	return []key.Binding{k.NextView, k.Search, k.Add, k.Refresh, k.Help, k.Quit}
}

// formHelp lists the hints shown while the product form is open.
func (k KeyMap) formHelp() []key.Binding {
	return []key.Binding{k.NextField, k.PrevField, k.Save, k.Back}
}
