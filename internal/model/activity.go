// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Task is a unit of work an agent has taken on. Only the fields needed for
// dashboard metrics are kept.
type Task struct {
	ID        ID     `json:"id"`
	AgentID   ID     `json:"agentId,omitempty"`
	ProductID ID     `json:"productId,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type taskWire struct {
	ID           ID     `json:"id"`
	AgentID      ID     `json:"agentId"`
	AgentIDAlt   ID     `json:"agent_id"`
	ProductID    ID     `json:"productId"`
	ProductIDAlt ID     `json:"product_id"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
	CreatedAtAlt string `json:"created_at"`
}

// UnmarshalJSON accepts camelCase and snake_case field names.
func (t *Task) UnmarshalJSON(data []byte) error {
	var w taskWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.ID = w.ID
	t.AgentID = ID(firstNonEmpty(w.AgentID.String(), w.AgentIDAlt.String()))
	t.ProductID = ID(firstNonEmpty(w.ProductID.String(), w.ProductIDAlt.String()))
	t.Status = w.Status
	t.CreatedAt = firstNonEmpty(w.CreatedAt, w.CreatedAtAlt)
	return nil
}

// Completed reports whether the task reached a terminal success state.
func (t Task) Completed() bool {
	switch strings.ToLower(t.Status) {
	case "done", "completed", "complete", "success":
		return true
	}
	return false
}

// CreatedOn reports whether the task was created on the same local day as
// now. Tasks without a parsable timestamp never match.
func (t Task) CreatedOn(now time.Time) bool {
	ts, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		return false
	}
	y1, m1, d1 := ts.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Alert is an inventory alert raised by an agent.
type Alert struct {
	ID        ID     `json:"id"`
	ProductID ID     `json:"productId,omitempty"`
	Level     string `json:"level,omitempty"`
	Message   string `json:"message"`
	Resolved  bool   `json:"resolved,omitempty"`
}
