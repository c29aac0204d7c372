// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the render helpers for the invtui dashboard.

Components are plain functions from data to strings; state lives in the
ui/app models. The exceptions are ToastManager, which owns the transient
notification stack, and MarkdownRenderer, which caches a glamour renderer
per width.

# Components

  - Header: title, subtitle and view tabs
  - StatusBar: key hints and status text
  - AgentCard, MetricsRow: the agents view
  - ProductTable: the inventory view
  - Toasts: non-blocking notifications in the bottom-right corner
*/
package components
