// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package envelope

import (
	"strings"

	"github.com/jeranaias/invtui/internal/model"
)

// ReplyPlaceholder is shown when a chat response carries no reply text.
const ReplyPlaceholder = "Understood. I'm processing your request..."

// ChatReply extracts the assistant reply from a create or append response:
// assistantMessage.content first, then a string result, then the
// placeholder.
func ChatReply(e *Envelope) string {
	if am, ok := e.Field("assistantMessage").(map[string]any); ok {
		if s, ok := am["content"].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if s, ok := e.Field("result").(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return ReplyPlaceholder
}

// ChatID extracts the id of a newly created chat: chat.id, then id, then
// data.id.
func ChatID(e *Envelope) model.ID {
	if chat, ok := e.Field("chat").(map[string]any); ok {
		if id := model.IDFromAny(chat["id"]); id != "" {
			return id
		}
	}
	if id := model.IDFromAny(e.Field("id")); id != "" {
		return id
	}
	if data, ok := e.Field("data").(map[string]any); ok {
		return model.IDFromAny(data["id"])
	}
	return ""
}

// ChatMessages extracts a persisted message history from GET /chats/{id}.
// It accepts a bare list, {messages: [...]}, {chat: {messages: [...]}} and
// the usual data/result wrappers. Entries without content are dropped.
func ChatMessages(e *Envelope) []model.Message {
	var items []any
	if chat, ok := e.Field("chat").(map[string]any); ok {
		items = Normalize(chat["messages"], "messages")
	}
	if len(items) == 0 {
		items = e.Items("messages")
	}

	msgs := make([]model.Message, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		content, _ := m["content"].(string)
		if content == "" {
			continue
		}
		role := model.RoleAssistant
		if r, _ := m["role"].(string); r == string(model.RoleUser) {
			role = model.RoleUser
		}
		msg := model.Message{Role: role, Content: content}
		msg.ID = string(model.IDFromAny(m["id"]))
		msgs = append(msgs, msg)
	}
	return msgs
}
