// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/ui/styles"
)

var testTheme = styles.NewTheme(styles.ModeDark)

// =============================================================================
// TOASTS
// =============================================================================

func TestToastManager_NewestFirstAndCapped(t *testing.T) {
	m := NewToastManager()
	for i := 0; i < maxToasts+2; i++ {
		m.AddStatus("status")
	}
	m.AddError("boom")

	toasts := m.Toasts()
	if len(toasts) != maxToasts {
		t.Fatalf("len = %d, want %d", len(toasts), maxToasts)
	}
	if toasts[0].Message != "boom" || toasts[0].Kind != ToastKindError {
		t.Errorf("newest toast = %+v", toasts[0])
	}

	m.Dismiss()
	if m.Toasts()[0].Message == "boom" {
		t.Error("Dismiss should drop the newest toast")
	}
}

func TestToastManager_TickExpires(t *testing.T) {
	m := NewToastManager()
	m.AddStatus("short")
	m.AddError("long")

	left := m.Tick(time.Now().Add(DefaultToastDuration + time.Second))
	if len(left) != 1 || left[0].Message != "long" {
		t.Fatalf("after tick = %+v", left)
	}
	if left := m.Tick(time.Now().Add(ErrorToastDuration + time.Second)); len(left) != 0 {
		t.Errorf("all toasts should expire, got %d", len(left))
	}
}

func TestRenderToast_ContainsMessage(t *testing.T) {
	now := time.Now()
	toast := Toast{Message: "API Agents request failed: 500 Internal Server Error", Kind: ToastKindError, CreatedAt: now, Duration: ErrorToastDuration}
	out := RenderToast(toast, 100, now)
	if !strings.Contains(out, "500 Internal") {
		t.Errorf("toast lost its message: %q", out)
	}
	if !strings.Contains(out, styles.StatusIndicators.Error) {
		t.Error("error toast should carry the error marker")
	}
}

// =============================================================================
// VIEWS
// =============================================================================

func TestAgentGrid(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	agents := []model.Agent{
		{ID: "1", Name: "Inventory Agent", Model: "gpt-4o", Status: model.AgentActive, TasksCompleted: 5},
		{ID: "2", Name: "Sales Agent", Status: model.AgentError},
	}
	out := AgentGrid(testTheme, agents, now, 0, 80)
	for _, want := range []string{"Inventory Agent", "Sales Agent", "Tasks completed: 5", "No recent activity"} {
		if !strings.Contains(out, want) {
			t.Errorf("grid missing %q", want)
		}
	}
	if got := AgentGrid(testTheme, nil, now, -1, 80); !strings.Contains(got, "No agents") {
		t.Errorf("empty grid = %q", got)
	}
}

func TestProductTable_ScrollsToSelection(t *testing.T) {
	var products []model.Product
	for i := 0; i < 20; i++ {
		products = append(products, model.Product{Name: "Item " + string(rune('A'+i)), Category: "Misc", Stock: i, Price: 1})
	}
	out := ProductTable(testTheme, products, 15, 100, 7)
	if !strings.Contains(out, "Item P") {
		t.Error("selected row should be visible")
	}
	if strings.Contains(out, "Item A ") {
		t.Error("rows above the window should be scrolled away")
	}
	if lines := strings.Count(out, "\n"); lines > 7 {
		t.Errorf("table has %d lines, want at most 7", lines+1)
	}
}

func TestMetricsRow(t *testing.T) {
	out := MetricsRow(testTheme, []Metric{{"Active agents", "3/4"}, {"Alerts", "1"}}, 80)
	if !strings.Contains(out, "Active agents") || !strings.Contains(out, "3/4") {
		t.Errorf("metrics row = %q", out)
	}
}

func TestStatusBar_FitsWidth(t *testing.T) {
	out := StatusBar(testTheme, "q quit  r refresh", "Agents", 60)
	if w := lipgloss.Width(out); w != 60 {
		t.Errorf("status bar width = %d, want 60", w)
	}
}

func TestMarkdownRenderer_Disabled(t *testing.T) {
	r := NewMarkdownRenderer(false, "dark")
	if got := r.Render("**bold**", 40); got != "**bold**" {
		t.Errorf("disabled renderer changed text: %q", got)
	}
	var nilRenderer *MarkdownRenderer
	if got := nilRenderer.Render("x", 10); got != "x" {
		t.Errorf("nil renderer = %q", got)
	}
}

func TestMarkdownRenderer_Renders(t *testing.T) {
	r := NewMarkdownRenderer(true, "dark")
	out := r.Render("Stock is **12 units**", 40)
	if !strings.Contains(out, "12 units") {
		t.Errorf("rendered markdown lost text: %q", out)
	}
}
