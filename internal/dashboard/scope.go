// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dashboard holds the view controllers behind the agents and
// inventory views: fetch-once loaders, derived metrics and filtering.
package dashboard

import (
	"context"
	"sync"
)

// Scope ties asynchronous work to the lifetime of a mounted view. Results
// that arrive after Close are dropped instead of being applied: the owner
// checks Live on its event loop before applying each one.
//
// Requests already in flight are left to finish on a context detached from
// the scope; only their effects are suppressed.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewScope creates a live scope derived from parent.
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Context is cancelled when the scope closes.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Detached returns a context that keeps the scope's values but is never
// cancelled by Close, for requests that must run to completion.
func (s *Scope) Detached() context.Context {
	return context.WithoutCancel(s.ctx)
}

// Live reports whether the scope is still open.
func (s *Scope) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close cancels the scope. Live reports false once Close returns.
func (s *Scope) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}
