// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api wraps the agents and details REST facilities with typed
// operations.
package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/invtui/internal/envelope"
	"github.com/jeranaias/invtui/internal/gateway"
	"github.com/jeranaias/invtui/internal/model"
)

// CreateChatRequest is the POST /chats payload.
type CreateChatRequest struct {
	User        string           `json:"user"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	Messages    []model.ChatTurn `json:"messages"`
}

// AppendMessageRequest is the POST /chats/{id}/messages payload.
type AppendMessageRequest struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

// ChatResult is the decoded outcome of a create or append call.
type ChatResult struct {
	ChatID model.ID
	Reply  string
}

// Agents is the typed client for the agents API.
type Agents struct {
	client *gateway.Client
	log    logrus.FieldLogger
}

// NewAgents wraps a gateway client bound to the agents API.
func NewAgents(client *gateway.Client, log logrus.FieldLogger) *Agents {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Agents{client: client, log: log}
}

// Client returns the underlying gateway client.
func (a *Agents) Client() *gateway.Client {
	return a.client
}

// ListAgents fetches GET /agents.
func (a *Agents) ListAgents(ctx context.Context) ([]model.Agent, error) {
	env, err := a.client.Get(ctx, "/agents")
	if err != nil {
		return nil, err
	}
	return envelope.DecodeList[model.Agent](env, "agents", a.log), nil
}

// ListTasks fetches GET /tasks.
func (a *Agents) ListTasks(ctx context.Context) ([]model.Task, error) {
	env, err := a.client.Get(ctx, "/tasks")
	if err != nil {
		return nil, err
	}
	return envelope.DecodeList[model.Task](env, "tasks", a.log), nil
}

// ListAlerts fetches GET /alerts.
func (a *Agents) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	env, err := a.client.Get(ctx, "/alerts")
	if err != nil {
		return nil, err
	}
	return envelope.DecodeList[model.Alert](env, "alerts", a.log), nil
}

// GetChat fetches GET /chats/{id} and returns its message history.
func (a *Agents) GetChat(ctx context.Context, id model.ID) ([]model.Message, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("get chat: empty id")
	}
	env, err := a.client.Get(ctx, "/chats/"+url.PathEscape(id.String()))
	if err != nil {
		return nil, err
	}
	return envelope.ChatMessages(env), nil
}

// CreateChat issues POST /chats and returns the new chat id and the reply.
func (a *Agents) CreateChat(ctx context.Context, req CreateChatRequest) (ChatResult, error) {
	env, err := a.client.Post(ctx, "/chats", req)
	if err != nil {
		return ChatResult{}, err
	}
	res := ChatResult{ChatID: envelope.ChatID(env), Reply: envelope.ChatReply(env)}
	if res.ChatID.IsZero() {
		a.log.WithField("slug", req.Slug).Warn("create chat response carried no chat id")
	}
	return res, nil
}

// AppendMessage issues POST /chats/{id}/messages.
func (a *Agents) AppendMessage(ctx context.Context, id model.ID, content string) (ChatResult, error) {
	path := "/chats/" + url.PathEscape(id.String()) + "/messages"
	env, err := a.client.Post(ctx, path, AppendMessageRequest{Role: model.RoleUser, Content: content})
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{ChatID: id, Reply: envelope.ChatReply(env)}, nil
}
