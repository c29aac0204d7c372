// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sort"
	"sync"
)

// Registry keeps one Session per agent for the life of the process, so a
// closed and reopened chat panel resumes the same conversation.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  func(agentName string) *Session
}

// NewRegistry creates a registry that builds new sessions with factory.
func NewRegistry(factory func(agentName string) *Session) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Get returns the session for agentName, creating it on first use.
func (r *Registry) Get(agentName string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[agentName]; ok {
		return s
	}
	s := r.factory(agentName)
	r.sessions[agentName] = s
	return s
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(agentName string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[agentName]
	return s, ok
}

// Agents lists agents with a session, sorted.
func (r *Registry) Agents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
