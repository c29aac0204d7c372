// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the conversation state for each agent, independent of
// how it is displayed.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/invtui/internal/api"
	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/speech"
)

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

// SpeakDelay is how long after a reply is appended before it is spoken, so
// the reply renders first.
const SpeakDelay = 300 * time.Millisecond

var (
	// ErrEmptyMessage is returned when the trimmed input is empty.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrPending is returned when a send is already in flight.
	ErrPending = errors.New("a message is already being sent")

	// ErrListenerUnavailable is reported when voice input is not configured.
	ErrListenerUnavailable = errors.New("speech recognition is not available")
)

// State is the session lifecycle state.
type State int

const (
	// StateEmpty means no chat has been persisted yet.
	StateEmpty State = iota
	// StatePending means a send is in flight.
	StatePending
	// StateActive means a chat id is assigned and the session is idle.
	StateActive
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ChatAPI is the subset of the agents API a session talks to.
type ChatAPI interface {
	GetChat(ctx context.Context, id model.ID) ([]model.Message, error)
	CreateChat(ctx context.Context, req api.CreateChatRequest) (api.ChatResult, error)
	AppendMessage(ctx context.Context, id model.ID, content string) (api.ChatResult, error)
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies a session change pushed to observers.
type EventKind int

const (
	EventMessages EventKind = iota
	EventState
	EventSpeaking
	EventListening
	EventTranscript
	EventError
)

// Event is delivered to the notify callback whenever observable session
// state changes outside a direct call, e.g. speech finishing.
type Event struct {
	Kind  EventKind
	Agent string
	Text  string
	Err   error
}

// =============================================================================
// SESSION
// =============================================================================

// Session owns the conversation with one agent. It lives for as long as the
// process keeps it; nothing is persisted locally.
type Session struct {
	mu sync.Mutex

	api       ChatAPI
	agentName string
	user      string
	log       logrus.FieldLogger
	now       func() time.Time

	speaker    speech.Speaker
	listener   speech.Listener
	autoSpeak  bool
	speakDelay time.Duration
	notify     func(Event)

	chatID           model.ID
	messages         []model.Message
	state            State
	err              error
	historyRequested bool
	historyLoading   bool

	speaking     bool
	speakGen     uint64
	listening    bool
	listenHandle speech.Handle
}

// Option configures a Session.
type Option func(*Session)

// WithUser sets the user recorded as the chat owner.
func WithUser(user string) Option {
	return func(s *Session) { s.user = user }
}

// WithSpeaker enables spoken replies.
func WithSpeaker(sp speech.Speaker, auto bool) Option {
	return func(s *Session) {
		s.speaker = sp
		s.autoSpeak = auto
	}
}

// WithListener enables voice input.
func WithListener(l speech.Listener) Option {
	return func(s *Session) { s.listener = l }
}

// WithNotify registers a callback for asynchronous changes. It is called
// without the session lock held.
func WithNotify(fn func(Event)) Option {
	return func(s *Session) { s.notify = fn }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithSpeakDelay overrides SpeakDelay.
func WithSpeakDelay(d time.Duration) Option {
	return func(s *Session) { s.speakDelay = d }
}

// WithChatID resumes an existing persisted chat. Its history is fetched on
// the first LoadHistory call.
func WithChatID(id model.ID) Option {
	return func(s *Session) { s.chatID = id }
}

// WithGreeting prefills the conversation with a local greeting from the
// agent. The greeting is not persisted on its own; it is sent along with
// the first message when the chat is created.
func WithGreeting() Option {
	return func(s *Session) {
		s.messages = append(s.messages, model.NewAssistantMessage(Greeting(s.agentName)))
	}
}

// NewSession creates a session for agentName.
func NewSession(chatAPI ChatAPI, agentName string, opts ...Option) *Session {
	s := &Session{
		api:        chatAPI,
		agentName:  agentName,
		user:       "dashboard",
		log:        logrus.StandardLogger(),
		now:        time.Now,
		speakDelay: SpeakDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.chatID.IsZero() {
		s.state = StateActive
	}
	s.log = s.log.WithField("agent", agentName)
	return s
}

// Greeting returns the prefilled opening line for an agent.
func Greeting(agentName string) string {
	return fmt.Sprintf("Hi! I'm %s. How can I help you today?", agentName)
}

// AgentName returns the agent this session talks to.
func (s *Session) AgentName() string {
	return s.agentName
}

// ChatID returns the persisted chat id, or "" before the first send.
func (s *Session) ChatID() model.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the conversation in order.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.messages...)
}

// Err returns the error from the last failed operation, cleared by the next
// successful send.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Loading reports whether a send or history fetch is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StatePending || s.historyLoading
}

// Speaking reports whether a reply is being spoken.
func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Listening reports whether voice capture is active.
func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// CanSend reports whether text would be accepted by Submit.
func (s *Session) CanSend(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StatePending && strings.TrimSpace(text) != ""
}

// =============================================================================
// SENDING
// =============================================================================

// Exchange is one in-flight send started by Submit.
type Exchange struct {
	s       *Session
	text    string
	chatID  model.ID
	turns   []model.ChatTurn
	started time.Time
	once    sync.Once
}

// Submit appends the user's message immediately and moves the session to
// Pending. The returned Exchange performs the network round trip.
func (s *Session) Submit(text string) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state == StatePending {
		s.mu.Unlock()
		return nil, ErrPending
	}
	msg := model.NewUserMessage(text)
	msg.Timestamp = s.now()
	s.messages = append(s.messages, msg)
	s.state = StatePending
	s.err = nil
	x := &Exchange{
		s:       s,
		text:    text,
		chatID:  s.chatID,
		started: s.now(),
	}
	if x.chatID.IsZero() {
		x.turns = model.Turns(s.messages)
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessages})
	return x, nil
}

// Await performs the create or append request and records the outcome. It
// must be called exactly once per Exchange; later calls return ErrPending.
func (x *Exchange) Await(ctx context.Context) (model.Message, error) {
	ran := false
	var (
		reply model.Message
		err   error
	)
	x.once.Do(func() {
		ran = true
		reply, err = x.run(ctx)
	})
	if !ran {
		return model.Message{}, ErrPending
	}
	return reply, err
}

func (x *Exchange) run(ctx context.Context) (model.Message, error) {
	s := x.s
	var (
		res api.ChatResult
		err error
	)
	if x.chatID.IsZero() {
		res, err = s.api.CreateChat(ctx, api.CreateChatRequest{
			User:        s.user,
			Slug:        Slug(s.agentName, x.started),
			Description: Description(s.agentName),
			Messages:    x.turns,
		})
	} else {
		res, err = s.api.AppendMessage(ctx, x.chatID, x.text)
	}

	s.mu.Lock()
	if err != nil {
		s.err = err
		if s.chatID.IsZero() {
			s.state = StateEmpty
		} else {
			s.state = StateActive
		}
		s.mu.Unlock()
		s.log.WithError(err).Warn("chat send failed")
		s.emit(Event{Kind: EventError, Err: err})
		return model.Message{}, err
	}

	if s.chatID.IsZero() && !res.ChatID.IsZero() {
		s.chatID = res.ChatID
	}
	reply := model.NewAssistantMessage(res.Reply)
	reply.Timestamp = s.now()
	s.messages = append(s.messages, reply)
	if s.chatID.IsZero() {
		s.state = StateEmpty
	} else {
		s.state = StateActive
	}
	speak := s.speaker != nil && s.autoSpeak && strings.TrimSpace(res.Reply) != ""
	delay := s.speakDelay
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessages})
	if speak {
		time.AfterFunc(delay, func() { s.Speak(res.Reply) })
	}
	return reply, nil
}

// Send submits text and waits for the reply.
func (s *Session) Send(ctx context.Context, text string) (model.Message, error) {
	x, err := s.Submit(text)
	if err != nil {
		return model.Message{}, err
	}
	return x.Await(ctx)
}

// LoadHistory fetches the persisted messages once, and only when a chat id
// is known and nothing is loaded yet. Later calls are no-ops.
func (s *Session) LoadHistory(ctx context.Context) error {
	s.mu.Lock()
	if s.historyRequested || s.chatID.IsZero() || len(s.messages) > 0 {
		s.mu.Unlock()
		return nil
	}
	s.historyRequested = true
	s.historyLoading = true
	id := s.chatID
	s.mu.Unlock()

	msgs, err := s.api.GetChat(ctx, id)

	s.mu.Lock()
	s.historyLoading = false
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.log.WithError(err).Warn("loading chat history failed")
		s.emit(Event{Kind: EventError, Err: err})
		return err
	}
	if len(s.messages) == 0 {
		s.messages = msgs
	}
	s.mu.Unlock()
	s.emit(Event{Kind: EventMessages})
	return nil
}

// =============================================================================
// SPEECH
// =============================================================================

// Speak plays text through the configured speaker. Any earlier playback is
// cancelled by the speaker. The speaking flag is cleared when playback ends
// or, at the latest, after an estimate based on the text length.
func (s *Session) Speak(text string) {
	if s.speaker == nil || strings.TrimSpace(text) == "" {
		return
	}
	s.mu.Lock()
	s.speakGen++
	gen := s.speakGen
	s.speaking = true
	s.mu.Unlock()
	s.emit(Event{Kind: EventSpeaking})

	clear := func() {
		s.mu.Lock()
		if s.speakGen != gen || !s.speaking {
			s.mu.Unlock()
			return
		}
		s.speaking = false
		s.mu.Unlock()
		s.emit(Event{Kind: EventSpeaking})
	}
	time.AfterFunc(speech.EstimateDuration(text), clear)

	go func() {
		if err := s.speaker.Speak(context.Background(), text); err != nil && !errors.Is(err, speech.ErrCancelled) {
			s.log.WithError(err).Warn("speech playback failed")
		}
		clear()
	}()
}

// AutoSpeak reports whether replies are spoken automatically.
func (s *Session) AutoSpeak() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaker != nil && s.autoSpeak
}

// SetAutoSpeak turns automatic reply playback on or off. It has no effect
// without a speaker.
func (s *Session) SetAutoSpeak(on bool) {
	s.mu.Lock()
	s.autoSpeak = on
	s.mu.Unlock()
}

// StopSpeaking cancels playback.
func (s *Session) StopSpeaking() {
	if s.speaker == nil {
		return
	}
	if err := s.speaker.Stop(); err != nil {
		s.log.WithError(err).Debug("stop speaking")
	}
	s.mu.Lock()
	s.speakGen++
	was := s.speaking
	s.speaking = false
	s.mu.Unlock()
	if was {
		s.emit(Event{Kind: EventSpeaking})
	}
}

// StartListening begins one voice capture. The transcript is delivered as
// an EventTranscript and to onText; it is not sent automatically. It
// reports false when no capture session could be started.
func (s *Session) StartListening(ctx context.Context, onText func(string)) bool {
	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return true
	}
	listener := s.listener
	s.mu.Unlock()

	fail := func(msg string) {
		s.mu.Lock()
		s.listening = false
		s.listenHandle = nil
		s.err = errors.New(msg)
		err := s.err
		s.mu.Unlock()
		s.emit(Event{Kind: EventListening})
		s.emit(Event{Kind: EventError, Err: err})
	}

	if listener == nil {
		s.log.Warn(ErrListenerUnavailable.Error())
		fail(ErrListenerUnavailable.Error())
		return false
	}

	s.mu.Lock()
	s.listening = true
	s.mu.Unlock()
	s.emit(Event{Kind: EventListening})

	h := listener.Listen(ctx, func(text string) {
		s.mu.Lock()
		s.listening = false
		s.listenHandle = nil
		s.mu.Unlock()
		s.emit(Event{Kind: EventListening})
		s.emit(Event{Kind: EventTranscript, Text: text})
		if onText != nil {
			onText(text)
		}
	}, fail)

	if h == nil {
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
		return false
	}
	s.mu.Lock()
	if s.listening {
		s.listenHandle = h
	}
	s.mu.Unlock()
	return true
}

// StopListening ends an active capture early.
func (s *Session) StopListening() {
	s.mu.Lock()
	h := s.listenHandle
	s.mu.Unlock()
	if h != nil {
		h.Stop()
	}
}

func (s *Session) emit(ev Event) {
	if s.notify == nil {
		return
	}
	ev.Agent = s.agentName
	s.notify(ev)
}

// =============================================================================
// SLUGS
// =============================================================================

var whitespace = regexp.MustCompile(`\s+`)

// Slug builds the chat slug from the agent name and a millisecond
// timestamp, lower-cased with whitespace runs replaced by hyphens. Two
// sessions created in the same millisecond for the same agent collide.
func Slug(agentName string, now time.Time) string {
	s := strings.ToLower(strings.TrimSpace(agentName) + "-" + strconv.FormatInt(now.UnixMilli(), 10))
	return whitespace.ReplaceAllString(s, "-")
}

// Description is the human-readable description of a new chat.
func Description(agentName string) string {
	return "Chat with " + agentName
}
