// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/jeranaias/invtui/internal/model"
)

func TestAgentStatusColor(t *testing.T) {
	tests := []struct {
		status model.AgentStatus
		want   string
	}{
		{model.AgentActive, Emerald.Dark},
		{model.AgentWaiting, Amber.Dark},
		{model.AgentError, Rose.Dark},
	}
	for _, tt := range tests {
		if got := AgentStatusColor(tt.status).Dark; got != tt.want {
			t.Errorf("AgentStatusColor(%s) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestStockColor(t *testing.T) {
	if StockColor(model.StockStatus(5)) != Rose {
		t.Error("low stock should be rose")
	}
	if StockColor(model.StockStatus(20)) != Amber {
		t.Error("medium stock should be amber")
	}
	if StockColor(model.StockStatus(30)) != Emerald {
		t.Error("high stock should be emerald")
	}
}

func TestStatusIndicatorsAreASCII(t *testing.T) {
	for _, s := range []string{
		StatusIndicators.Success, StatusIndicators.Error, StatusIndicators.Warning,
		StatusIndicators.Info, StatusIndicators.Pending, StatusIndicators.Active,
	} {
		if s == "" {
			t.Error("indicator should not be empty")
		}
		for _, r := range s {
			if r > 127 {
				t.Errorf("indicator %q should be ASCII", s)
			}
		}
	}
	if !strings.HasPrefix(AgentStatusIndicator(model.AgentError), "[") {
		t.Error("agent indicator should use bracket markers")
	}
}
