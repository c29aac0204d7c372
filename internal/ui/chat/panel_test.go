// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/invtui/internal/api"
	"github.com/jeranaias/invtui/internal/chat"
	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/ui/components"
	"github.com/jeranaias/invtui/internal/ui/styles"
)

type stubAPI struct {
	mu      sync.Mutex
	creates int
	history []model.Message
	err     error
}

func (s *stubAPI) GetChat(ctx context.Context, id model.ID) ([]model.Message, error) {
	return s.history, nil
}

func (s *stubAPI) CreateChat(ctx context.Context, req api.CreateChatRequest) (api.ChatResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.err != nil {
		return api.ChatResult{}, s.err
	}
	return api.ChatResult{ChatID: "42", Reply: "We have **12 units** in stock."}, nil
}

func (s *stubAPI) AppendMessage(ctx context.Context, id model.ID, text string) (api.ChatResult, error) {
	return api.ChatResult{ChatID: id, Reply: "ok"}, nil
}

func newTestPanel(t *testing.T, stub *stubAPI, opts ...chat.Option) *Panel {
	t.Helper()
	log, _ := test.NewNullLogger()
	opts = append([]chat.Option{chat.WithLogger(log)}, opts...)
	s := chat.NewSession(stub, "Inventory Agent", opts...)
	p := NewPanel(context.Background(), s, styles.NewTheme(styles.ModeDark), components.NewMarkdownRenderer(false, ""))
	p.SetSize(80, 24)
	return p
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func TestPanel_EmptySubmitIsIgnored(t *testing.T) {
	stub := &stubAPI{}
	p := newTestPanel(t, stub)

	p.input.SetValue("   ")
	assert.Nil(t, p.Update(enter()))
	assert.Empty(t, p.Session().Messages())
	assert.Zero(t, stub.creates)
}

func TestPanel_SubmitAndReply(t *testing.T) {
	stub := &stubAPI{}
	p := newTestPanel(t, stub)

	p.input.SetValue("How many iPhones?")
	cmd := p.Update(enter())
	require.NotNil(t, cmd)
	assert.Empty(t, p.Input(), "input clears on submit")
	assert.Equal(t, chat.StatePending, p.Session().State())
	assert.Contains(t, p.View(), "How many iPhones?")

	msg := cmd()
	reply, ok := msg.(ReplyMsg)
	require.True(t, ok)
	assert.NoError(t, reply.Err)
	assert.Equal(t, "Inventory Agent", reply.Agent)

	p.Update(msg)
	view := p.View()
	assert.Contains(t, view, "12 units")
	assert.Contains(t, view, "#42")
	assert.Equal(t, 1, stub.creates)
}

func TestPanel_FailureShowsError(t *testing.T) {
	stub := &stubAPI{err: errors.New("API Agents request failed: 500 Internal Server Error")}
	p := newTestPanel(t, stub)

	p.input.SetValue("hello")
	cmd := p.Update(enter())
	require.NotNil(t, cmd)
	p.Update(cmd())

	view := p.View()
	assert.Contains(t, view, "hello", "the user message stays visible")
	assert.Contains(t, view, "500 Internal Server Error")
}

func TestPanel_TranscriptFillsInput(t *testing.T) {
	p := newTestPanel(t, &stubAPI{})

	p.Update(EventMsg{chat.Event{Kind: chat.EventTranscript, Agent: "Sales Bot", Text: "ignored"}})
	assert.Empty(t, p.Input())

	p.Update(EventMsg{chat.Event{Kind: chat.EventTranscript, Agent: "Inventory Agent", Text: "cuántos quedan"}})
	assert.Equal(t, "cuántos quedan", p.Input())
	assert.Empty(t, p.Session().Messages(), "a transcript is never sent automatically")
}

func TestPanel_ListenWithoutListenerShowsError(t *testing.T) {
	p := newTestPanel(t, &stubAPI{})
	p.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.False(t, p.Session().Listening())
	assert.Contains(t, p.View(), chat.ErrListenerUnavailable.Error())
}

func TestPanel_EscCloses(t *testing.T) {
	p := newTestPanel(t, &stubAPI{})
	cmd := p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}

func TestPanel_InitLoadsHistory(t *testing.T) {
	stub := &stubAPI{history: []model.Message{
		{Role: model.RoleUser, Content: "previous question"},
		{Role: model.RoleAssistant, Content: "previous answer"},
	}}
	p := newTestPanel(t, stub, chat.WithChatID("7"))

	batch, ok := p.Init()().(tea.BatchMsg)
	require.True(t, ok)

	var history *HistoryMsg
	for _, cmd := range batch {
		if cmd == nil {
			continue
		}
		if h, ok := cmd().(HistoryMsg); ok {
			history = &h
		}
	}
	require.NotNil(t, history)
	assert.NoError(t, history.Err)

	p.Update(*history)
	assert.Contains(t, p.View(), "previous answer")
}
