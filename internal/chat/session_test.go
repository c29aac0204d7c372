// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/invtui/internal/api"
	"github.com/jeranaias/invtui/internal/config"
	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/server"
	"github.com/jeranaias/invtui/internal/speech"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeAPI struct {
	mu sync.Mutex

	gate chan struct{}

	creates []api.CreateChatRequest
	appends []string

	createErr error
	appendErr error
	nextID    model.ID

	history      []model.Message
	historyCalls int
}

func (f *fakeAPI) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) GetChat(ctx context.Context, id model.ID) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	return f.history, nil
}

func (f *fakeAPI) CreateChat(ctx context.Context, req api.CreateChatRequest) (api.ChatResult, error) {
	if err := f.wait(ctx); err != nil {
		return api.ChatResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req)
	if f.createErr != nil {
		return api.ChatResult{}, f.createErr
	}
	id := f.nextID
	if id.IsZero() {
		id = "chat-1"
	}
	return api.ChatResult{ChatID: id, Reply: "created: " + req.Messages[len(req.Messages)-1].Content}, nil
}

func (f *fakeAPI) AppendMessage(ctx context.Context, id model.ID, content string) (api.ChatResult, error) {
	if err := f.wait(ctx); err != nil {
		return api.ChatResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends = append(f.appends, string(id)+":"+content)
	if f.appendErr != nil {
		return api.ChatResult{}, f.appendErr
	}
	return api.ChatResult{ChatID: id, Reply: "appended: " + content}, nil
}

type fakeSpeaker struct {
	spoken chan string
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) error {
	f.spoken <- text
	return nil
}
func (f *fakeSpeaker) Stop() error    { return nil }
func (f *fakeSpeaker) Speaking() bool { return false }

type fakeListener struct {
	text string
}

type nopHandle struct{}

func (nopHandle) Stop() {}

func (f *fakeListener) Listen(ctx context.Context, onResult func(string), onError func(string)) speech.Handle {
	go onResult(f.text)
	return nopHandle{}
}

func newTestSession(a ChatAPI, opts ...Option) *Session {
	log, _ := test.NewNullLogger()
	return NewSession(a, "Inventory Agent", append([]Option{WithLogger(log)}, opts...)...)
}

// =============================================================================
// SENDING
// =============================================================================

func TestSubmit_AppendsUserMessageBeforeReply(t *testing.T) {
	fa := &fakeAPI{gate: make(chan struct{})}
	s := newTestSession(fa)

	_, err := s.Submit("   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, s.Messages())

	x, err := s.Submit("  ¿Cuántos iPhone quedan?  ")
	require.NoError(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "¿Cuántos iPhone quedan?", msgs[0].Content)
	assert.Equal(t, StatePending, s.State())
	assert.True(t, s.Loading())

	_, err = s.Submit("otra")
	assert.ErrorIs(t, err, ErrPending)
	assert.False(t, s.CanSend("otra"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := x.Await(context.Background())
		assert.NoError(t, err)
	}()
	close(fa.gate)
	<-done

	msgs = s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, StateActive, s.State())
	assert.False(t, s.Loading())

	_, err = x.Await(context.Background())
	assert.ErrorIs(t, err, ErrPending, "an exchange runs once")
}

func TestSend_CreatesOnceThenAppends(t *testing.T) {
	fa := &fakeAPI{nextID: "c-42"}
	now := time.UnixMilli(1700000000000)
	s := newTestSession(fa, WithGreeting(), WithUser("tester"), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	reply, err := s.Send(ctx, "hola")
	require.NoError(t, err)
	assert.Equal(t, "created: hola", reply.Content)
	assert.Equal(t, model.ID("c-42"), s.ChatID())

	require.Len(t, fa.creates, 1)
	req := fa.creates[0]
	assert.Equal(t, "tester", req.User)
	assert.Equal(t, "inventory-agent-1700000000000", req.Slug)
	assert.Equal(t, "Chat with Inventory Agent", req.Description)
	require.Len(t, req.Messages, 2, "greeting and first message")
	assert.Equal(t, Greeting("Inventory Agent"), req.Messages[0].Content)
	assert.Equal(t, model.RoleUser, req.Messages[1].Role)

	_, err = s.Send(ctx, "gracias")
	require.NoError(t, err)
	assert.Len(t, fa.creates, 1, "chat is created only once")
	assert.Equal(t, []string{"c-42:gracias"}, fa.appends)

	contents := make([]string, 0, 5)
	for _, m := range s.Messages() {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{Greeting("Inventory Agent"), "hola", "created: hola", "gracias", "appended: gracias"}, contents)
}

func TestSend_FailureKeepsUserMessage(t *testing.T) {
	boom := errors.New("API Agents request failed: 500 Internal Server Error")
	fa := &fakeAPI{createErr: boom}
	s := newTestSession(fa)

	_, err := s.Send(context.Background(), "hola")
	require.ErrorIs(t, err, boom)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hola", msgs[0].Content)
	assert.Equal(t, boom, s.Err())
	assert.Equal(t, StateEmpty, s.State())
	assert.False(t, s.Loading())

	fa.mu.Lock()
	fa.createErr = nil
	fa.mu.Unlock()

	_, err = s.Send(context.Background(), "otra vez")
	require.NoError(t, err)
	assert.NoError(t, s.Err())
	assert.Equal(t, StateActive, s.State())
	assert.Len(t, fa.creates, 2, "no id was assigned, so the retry creates")
}

func TestSend_AppendFailureStaysActive(t *testing.T) {
	fa := &fakeAPI{appendErr: errors.New("connection refused")}
	s := newTestSession(fa, WithChatID("c-1"))

	_, err := s.Send(context.Background(), "hola")
	require.Error(t, err)
	assert.Equal(t, "connection refused", s.Err().Error())
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, model.ID("c-1"), s.ChatID())
}

// =============================================================================
// HISTORY
// =============================================================================

func TestLoadHistory_OnlyOnceAndOnlyWithID(t *testing.T) {
	fa := &fakeAPI{history: []model.Message{
		model.NewUserMessage("hola"),
		model.NewAssistantMessage("¿En qué te ayudo?"),
	}}

	fresh := newTestSession(fa)
	require.NoError(t, fresh.LoadHistory(context.Background()))
	assert.Zero(t, fa.historyCalls, "no id means nothing to fetch")

	s := newTestSession(fa, WithChatID("c-9"))
	require.NoError(t, s.LoadHistory(context.Background()))
	require.NoError(t, s.LoadHistory(context.Background()))
	assert.Equal(t, 1, fa.historyCalls)
	assert.Len(t, s.Messages(), 2)
}

// =============================================================================
// SPEECH
// =============================================================================

func TestSend_SpeaksReplyAfterDelay(t *testing.T) {
	fa := &fakeAPI{}
	sp := &fakeSpeaker{spoken: make(chan string, 1)}
	s := newTestSession(fa, WithSpeaker(sp, true), WithSpeakDelay(10*time.Millisecond))

	_, err := s.Send(context.Background(), "hola")
	require.NoError(t, err)

	select {
	case text := <-sp.spoken:
		assert.Equal(t, "created: hola", text)
	case <-time.After(2 * time.Second):
		t.Fatal("reply was not spoken")
	}
}

func TestSend_NoSpeechWhenDisabled(t *testing.T) {
	sp := &fakeSpeaker{spoken: make(chan string, 1)}
	s := newTestSession(&fakeAPI{}, WithSpeaker(sp, false), WithSpeakDelay(time.Millisecond))

	_, err := s.Send(context.Background(), "hola")
	require.NoError(t, err)
	select {
	case text := <-sp.spoken:
		t.Fatalf("unexpected speech %q", text)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartListening(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		s := newTestSession(&fakeAPI{})
		assert.False(t, s.StartListening(context.Background(), nil))
		assert.False(t, s.Listening())
		assert.ErrorContains(t, s.Err(), "not available")
	})

	t.Run("transcript is not sent", func(t *testing.T) {
		fa := &fakeAPI{}
		var events []EventKind
		var mu sync.Mutex
		s := newTestSession(fa, WithListener(&fakeListener{text: "hola"}), WithNotify(func(ev Event) {
			mu.Lock()
			events = append(events, ev.Kind)
			mu.Unlock()
		}))

		got := make(chan string, 1)
		require.True(t, s.StartListening(context.Background(), func(text string) { got <- text }))

		select {
		case text := <-got:
			assert.Equal(t, "hola", text)
		case <-time.After(2 * time.Second):
			t.Fatal("no transcript")
		}
		assert.Eventually(t, func() bool { return !s.Listening() }, time.Second, 10*time.Millisecond)
		assert.Empty(t, fa.creates)
		assert.Empty(t, s.Messages())

		mu.Lock()
		defer mu.Unlock()
		assert.Contains(t, events, EventTranscript)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func TestSlug(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "inventory-agent-1700000000123", Slug("Inventory Agent", at))
	assert.Equal(t, "sales-bot-2-1700000000123", Slug("Sales \t Bot 2", at))
}

func TestRegistry_ReusesSession(t *testing.T) {
	fa := &fakeAPI{}
	created := 0
	reg := NewRegistry(func(name string) *Session {
		created++
		return newTestSession(fa)
	})

	a := reg.Get("Inventory Agent")
	b := reg.Get("Inventory Agent")
	assert.Same(t, a, b)
	reg.Get("Sales Agent")
	assert.Equal(t, 2, created)
	assert.Equal(t, []string{"Inventory Agent", "Sales Agent"}, reg.Agents())

	_, ok := reg.Lookup("Nobody")
	assert.False(t, ok)
}

// =============================================================================
// AGAINST THE MOCK BACKEND
// =============================================================================

func TestSession_AgainstMockServer(t *testing.T) {
	log, _ := test.NewNullLogger()
	srv := server.New(server.WithLogger(log))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cfg := config.Default()
	cfg.API.AgentsURL = ts.URL
	cfg.API.DetailsURL = ts.URL
	set := api.NewSet(cfg, log)

	s := NewSession(set.Agents, "Inventory Agent", WithLogger(log), WithGreeting())
	reply, err := s.Send(context.Background(), "How many iPhone 15 Pro are left?")
	require.NoError(t, err)
	assert.True(t, strings.Contains(reply.Content, "12 units"), reply.Content)
	require.False(t, s.ChatID().IsZero())

	_, err = s.Send(context.Background(), "thanks")
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Store().ChatCount())

	resumed := NewSession(set.Agents, "Inventory Agent", WithLogger(log), WithChatID(s.ChatID()))
	require.NoError(t, resumed.LoadHistory(context.Background()))
	assert.Len(t, resumed.Messages(), len(s.Messages()))
}
