// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// AGENT STATUS
// =============================================================================

// AgentStatus is the derived health of an agent.
type AgentStatus string

const (
	AgentActive  AgentStatus = "active"
	AgentWaiting AgentStatus = "waiting"
	AgentError   AgentStatus = "error"
)

// Label returns the status as shown on agent cards.
func (s AgentStatus) Label() string {
	switch s {
	case AgentActive:
		return "Active"
	case AgentError:
		return "Error"
	default:
		return "Waiting"
	}
}

// ParseAgentStatus maps the many spellings backends use onto the three
// known states. Unknown values are treated as waiting.
func ParseAgentStatus(s string) AgentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "activo", "online", "running", "busy", "working":
		return AgentActive
	case "error", "failed", "failure", "offline", "down", "crashed":
		return AgentError
	default:
		return AgentWaiting
	}
}

// =============================================================================
// AGENT
// =============================================================================

// Agent is a backend AI worker. It is fetched and displayed, never mutated.
type Agent struct {
	ID             ID          `json:"id"`
	Name           string      `json:"name"`
	Model          string      `json:"model,omitempty"`
	Description    string      `json:"description,omitempty"`
	Status         AgentStatus `json:"status"`
	LastAction     string      `json:"lastAction,omitempty"`
	TasksCompleted int         `json:"tasksCompleted"`
}

// agentWire is the loose shape accepted from the agents API.
type agentWire struct {
	ID             ID                `json:"id"`
	MongoID        ID                `json:"_id"`
	Name           string            `json:"name"`
	Model          string            `json:"model"`
	Company        string            `json:"company"`
	Description    string            `json:"description"`
	Status         *string           `json:"status"`
	State          *string           `json:"state"`
	Active         *bool             `json:"active"`
	LastAction     string            `json:"lastAction"`
	LastActionAlt  string            `json:"last_action"`
	UpdatedAt      string            `json:"updatedAt"`
	UpdatedAtAlt   string            `json:"updated_at"`
	TasksCompleted *json.Number      `json:"tasksCompleted"`
	TasksAlt       *json.Number      `json:"tasks_completed"`
	Tasks          []json.RawMessage `json:"tasks"`
}

// UnmarshalJSON derives status, last action and completed-task count from
// whichever fields the backend supplied.
func (a *Agent) UnmarshalJSON(data []byte) error {
	var w agentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	a.ID = w.ID
	if a.ID.IsZero() {
		a.ID = w.MongoID
	}
	a.Name = w.Name
	a.Model = w.Model
	if a.Model == "" {
		a.Model = w.Company
	}
	a.Description = w.Description
	a.Status = deriveStatus(w)
	a.LastAction = firstNonEmpty(w.LastAction, w.LastActionAlt, w.UpdatedAt, w.UpdatedAtAlt)
	a.TasksCompleted = deriveTasks(w)
	return nil
}

func deriveStatus(w agentWire) AgentStatus {
	switch {
	case w.Status != nil && *w.Status != "":
		return ParseAgentStatus(*w.Status)
	case w.State != nil && *w.State != "":
		return ParseAgentStatus(*w.State)
	case w.Active != nil && *w.Active:
		return AgentActive
	default:
		return AgentWaiting
	}
}

func deriveTasks(w agentWire) int {
	for _, n := range []*json.Number{w.TasksCompleted, w.TasksAlt} {
		if n == nil {
			continue
		}
		if i, err := n.Int64(); err == nil && i >= 0 {
			return int(i)
		}
		if f, err := n.Float64(); err == nil && f >= 0 {
			return int(f)
		}
	}
	return len(w.Tasks)
}

// LastActionDisplay formats LastAction for display. RFC 3339 timestamps
// become a relative age; free text passes through.
func (a Agent) LastActionDisplay(now time.Time) string {
	if a.LastAction == "" {
		return "No recent activity"
	}
	t, err := time.Parse(time.RFC3339, a.LastAction)
	if err != nil {
		return a.LastAction
	}
	return RelativeAge(now.Sub(t))
}

// RelativeAge renders a duration as "just now", "5 min ago", "3 h ago" or
// "2 d ago".
func RelativeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d/time.Minute)) + " min ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d/time.Hour)) + " h ago"
	default:
		return strconv.Itoa(int(d/(24*time.Hour))) + " d ago"
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
