// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/invtui/internal/api"
	"github.com/jeranaias/invtui/internal/chat"
	"github.com/jeranaias/invtui/internal/config"
	"github.com/jeranaias/invtui/internal/speech"
	uichat "github.com/jeranaias/invtui/internal/ui/chat"
)

// RunOptions configures Run.
type RunOptions struct {
	Config *config.Config

	// ConfigPath is watched for changes when set.
	ConfigPath string

	APIs   *api.Set
	Bridge *speech.Bridge
	Logger logrus.FieldLogger
}

// SessionFactory builds chat sessions wired to the configured speech
// provider. notify receives session events; it may be nil.
func SessionFactory(cfg *config.Config, chatAPI chat.ChatAPI, bridge *speech.Bridge, log logrus.FieldLogger, notify func(chat.Event)) func(string) *chat.Session {
	return func(agent string) *chat.Session {
		opts := []chat.Option{
			chat.WithUser(cfg.User),
			chat.WithLogger(log),
			chat.WithGreeting(),
		}
		if bridge != nil && bridge.Speaker != nil {
			opts = append(opts, chat.WithSpeaker(bridge.Speaker, cfg.Speech.AutoSpeak))
		}
		if bridge != nil && bridge.Listener != nil {
			opts = append(opts, chat.WithListener(bridge.Listener))
		}
		if notify != nil {
			opts = append(opts, chat.WithNotify(notify))
		}
		return chat.NewSession(chatAPI, agent, opts...)
	}
}

// newProgram builds the program for model and points relay at it.
func newProgram(ctx context.Context, model tea.Model, relay *eventRelay, opts ...tea.ProgramOption) *tea.Program {
	p := tea.NewProgram(model, append(opts, tea.WithContext(ctx))...)
	relay.attach(p)
	return p
}

// eventRelay forwards session events to the program in order without
// blocking the emitter. Sessions emit from inside Update, where a direct
// Program.Send would wait on the loop that is running it.
type eventRelay struct {
	program atomic.Pointer[tea.Program]
	queue   chan chat.Event
}

func newEventRelay(ctx context.Context) *eventRelay {
	r := &eventRelay{queue: make(chan chat.Event, 64)}
	go r.forward(ctx)
	return r
}

func (r *eventRelay) attach(p *tea.Program) {
	r.program.Store(p)
}

// notify never blocks. A full queue falls back to a detached send.
func (r *eventRelay) notify(ev chat.Event) {
	select {
	case r.queue <- ev:
	default:
		go r.send(ev)
	}
}

func (r *eventRelay) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.queue:
			r.send(ev)
		}
	}
}

// send drops events emitted before the program exists.
func (r *eventRelay) send(ev chat.Event) {
	if p := r.program.Load(); p != nil {
		p.Send(uichat.EventMsg{Event: ev})
	}
}

// Run starts the TUI and blocks until it exits.
func Run(ctx context.Context, opts RunOptions) error {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	relay := newEventRelay(ctx)
	registry := chat.NewRegistry(SessionFactory(opts.Config, opts.APIs.Agents, opts.Bridge, log, relay.notify))
	m := New(ctx, Options{
		Config:   opts.Config,
		Agents:   opts.APIs.Agents,
		Products: opts.APIs.Details,
		Registry: registry,
		Logger:   log,
	})
	defer m.Close()

	p := newProgram(ctx, m, relay, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if opts.ConfigPath != "" {
		go func() {
			err := config.Watch(ctx, opts.ConfigPath, func(cfg *config.Config) {
				p.Send(ConfigReloadedMsg{Config: cfg})
			}, log)
			if err != nil {
				log.WithError(err).Warn("config watch stopped")
			}
		}()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
