// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/invtui/internal/config"
	"github.com/jeranaias/invtui/internal/envelope"
	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/server"
)

func newSet(t *testing.T, opts ...server.Option) (*Set, *server.Server) {
	t.Helper()
	log, _ := test.NewNullLogger()
	srv := server.New(append([]server.Option{server.WithLogger(log)}, opts...)...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.API.AgentsURL = ts.URL + "/"
	cfg.API.DetailsURL = ts.URL
	return NewSet(cfg, log), srv
}

func TestAgents_ListAcrossEnvelopes(t *testing.T) {
	for _, style := range []server.EnvelopeStyle{server.EnvelopeBare, server.EnvelopeData, server.EnvelopeDomain, server.EnvelopeResult} {
		t.Run(string(style), func(t *testing.T) {
			set, _ := newSet(t, server.WithEnvelope(style))
			agents, err := set.Agents.ListAgents(context.Background())
			require.NoError(t, err)
			assert.Len(t, agents, 4)
			assert.Equal(t, model.AgentActive, agents[0].Status)

			products, err := set.Details.ListProducts(context.Background())
			require.NoError(t, err)
			assert.Len(t, products, 4)
		})
	}
}

func TestAgents_TasksFailureIsAnError(t *testing.T) {
	set, srv := newSet(t)
	srv.Faults().Fail("/tasks", http.StatusBadGateway)

	_, err := set.Agents.ListTasks(context.Background())
	require.Error(t, err)
	assert.Equal(t, "API Agents request failed: 502 Bad Gateway", err.Error())
}

func TestAgents_ChatCreateThenAppend(t *testing.T) {
	set, srv := newSet(t)
	ctx := context.Background()

	res, err := set.Agents.CreateChat(ctx, CreateChatRequest{
		User:        "tester",
		Slug:        "inventory-agent-1",
		Description: "Chat with Inventory Agent",
		Messages:    []model.ChatTurn{{Role: model.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	require.False(t, res.ChatID.IsZero())
	assert.NotEqual(t, envelope.ReplyPlaceholder, res.Reply)

	res2, err := set.Agents.AppendMessage(ctx, res.ChatID, "Laptop Dell XPS 15 stock?")
	require.NoError(t, err)
	assert.Equal(t, res.ChatID, res2.ChatID)
	assert.Contains(t, res2.Reply, "45 units")
	assert.Equal(t, 1, srv.Store().ChatCount())

	history, err := set.Agents.GetChat(ctx, res.ChatID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestDetails_CreateProductValidatesFirst(t *testing.T) {
	set, srv := newSet(t)
	before := len(srv.Store().Products())

	err := set.Details.CreateProduct(context.Background(), model.ProductInput{Name: "x"})
	require.Error(t, err)
	assert.Len(t, srv.Store().Products(), before, "invalid input must not reach the backend")

	err = set.Details.CreateProduct(context.Background(), model.ProductInput{
		Name: "Webcam", Category: "Accessories", Description: "1080p",
		Stock: 30, StockMinimum: 5, Price: 49.99, Image: "cam.png",
	})
	require.NoError(t, err)
	assert.Len(t, srv.Store().Products(), before+1)
}

func TestSet_UnconfiguredFacility(t *testing.T) {
	log, _ := test.NewNullLogger()
	set := NewSet(config.Default(), log)
	_, err := set.Details.ListProducts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API Details")
}
