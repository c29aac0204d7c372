// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/invtui/internal/model"
)

// ChatRecord is a chat persisted by the mock server.
type ChatRecord struct {
	ID          string           `json:"id"`
	User        string           `json:"user"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	Messages    []model.ChatTurn `json:"messages"`
	CreatedAt   string           `json:"createdAt"`
}

// Store is the in-memory state behind the mock server. All methods are
// safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	agents   []model.Agent
	tasks    []model.Task
	alerts   []model.Alert
	products []model.Product
	chats    map[string]*ChatRecord
	nextID   int
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		chats:  make(map[string]*ChatRecord),
		nextID: 1000,
		now:    time.Now,
	}
}

// SeededStore returns a store populated with demo data.
func SeededStore() *Store {
	s := NewStore()
	now := s.now().UTC()
	ts := func(d time.Duration) string { return now.Add(-d).Format(time.RFC3339) }

	s.agents = []model.Agent{
		{ID: "1", Name: "Inventory Agent", Model: "gpt-4o", Description: "Keeps stock levels in sync", Status: model.AgentActive, LastAction: ts(2 * time.Minute), TasksCompleted: 128},
		{ID: "2", Name: "Purchasing Agent", Model: "claude", Description: "Raises purchase orders for low stock", Status: model.AgentActive, LastAction: ts(15 * time.Minute), TasksCompleted: 54},
		{ID: "3", Name: "Pricing Agent", Model: "gpt-4o", Description: "Tracks competitor prices", Status: model.AgentWaiting, LastAction: ts(3 * time.Hour), TasksCompleted: 31},
		{ID: "4", Name: "Audit Agent", Model: "llama", Description: "Reconciles counts with the warehouse", Status: model.AgentError, LastAction: ts(26 * time.Hour), TasksCompleted: 9},
	}
	s.products = []model.Product{
		{ID: "p1", Name: "Laptop Dell XPS 15", Category: "Electronics", Description: "15 inch laptop", Stock: 45, StockMinimum: 10, Price: 1899.99, Image: "xps15.png", CreatedAt: ts(72 * time.Hour), UpdatedAt: ts(time.Hour)},
		{ID: "p2", Name: "iPhone 15 Pro", Category: "Phones", Description: "128 GB", Stock: 12, StockMinimum: 20, Price: 999, Image: "iphone15.png", CreatedAt: ts(48 * time.Hour)},
		{ID: "p3", Name: "Magic Mouse", Category: "Accessories", Description: "Wireless mouse", Stock: 22, StockMinimum: 5, Price: 79.5, Image: "mouse.png"},
		{ID: "p4", Name: "USB-C Hub", Category: "Accessories", Description: "7 port hub", Stock: 80, StockMinimum: 15, Price: 39.9, Image: "hub.png", CreatedAt: ts(5 * time.Hour)},
	}
	s.tasks = []model.Task{
		{ID: "t1", AgentID: "1", ProductID: "p1", Status: "done", CreatedAt: ts(30 * time.Minute)},
		{ID: "t2", AgentID: "1", ProductID: "p2", Status: "done", CreatedAt: ts(90 * time.Minute)},
		{ID: "t3", AgentID: "2", ProductID: "p2", Status: "pending", CreatedAt: ts(10 * time.Minute)},
		{ID: "t4", AgentID: "3", ProductID: "p3", Status: "done", CreatedAt: ts(50 * time.Hour)},
	}
	s.alerts = []model.Alert{
		{ID: "a1", ProductID: "p2", Level: "warning", Message: "iPhone 15 Pro is below its minimum stock"},
	}
	return s
}

func (s *Store) id(prefix string) string {
	s.nextID++
	return prefix + strconv.Itoa(s.nextID)
}

// Agents returns a copy of the agent list.
func (s *Store) Agents() []model.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Agent(nil), s.agents...)
}

// Tasks returns a copy of the task list.
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task(nil), s.tasks...)
}

// Alerts returns a copy of the alert list.
func (s *Store) Alerts() []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Alert(nil), s.alerts...)
}

// Products returns a copy of the product list.
func (s *Store) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Product(nil), s.products...)
}

// SetAgents replaces the agent list.
func (s *Store) SetAgents(agents []model.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = agents
}

// SetProducts replaces the product list.
func (s *Store) SetProducts(products []model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
}

// AddProduct stores a new product and raises an alert when it starts
// below its own minimum.
func (s *Store) AddProduct(in model.ProductInput) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC().Format(time.RFC3339)
	p := model.Product{
		ID:           model.ID(s.id("p")),
		Name:         in.Name,
		Category:     in.Category,
		Description:  in.Description,
		Stock:        in.Stock,
		StockMinimum: in.StockMinimum,
		Price:        in.Price,
		Image:        in.Image,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.products = append(s.products, p)
	if p.BelowMinimum() {
		s.alerts = append(s.alerts, model.Alert{
			ID:        model.ID(s.id("a")),
			ProductID: p.ID,
			Level:     "warning",
			Message:   p.Name + " is below its minimum stock",
		})
	}
	return p
}

// CreateChat persists a chat and returns its id.
func (s *Store) CreateChat(user, slug, description string, turns []model.ChatTurn) *ChatRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &ChatRecord{
		ID:          s.id("c"),
		User:        user,
		Slug:        slug,
		Description: description,
		Messages:    append([]model.ChatTurn(nil), turns...),
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
	}
	s.chats[rec.ID] = rec
	return rec
}

// Chat returns a copy of a chat, or nil.
func (s *Store) Chat(id string) *ChatRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.chats[id]
	if !ok {
		return nil
	}
	cp := *rec
	cp.Messages = append([]model.ChatTurn(nil), rec.Messages...)
	return &cp
}

// ChatCount returns the number of persisted chats.
func (s *Store) ChatCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}

// AppendTurns adds turns to an existing chat. It reports false when the
// chat does not exist.
func (s *Store) AppendTurns(id string, turns ...model.ChatTurn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.chats[id]
	if !ok {
		return false
	}
	rec.Messages = append(rec.Messages, turns...)
	return true
}

// Reply produces the canned assistant answer for a user message. A message
// naming a known product gets its stock level; anything else gets a generic
// acknowledgement.
func (s *Store) Reply(content string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lower := strings.ToLower(content)
	for _, p := range s.products {
		if p.Name != "" && strings.Contains(lower, strings.ToLower(p.Name)) {
			msg := fmt.Sprintf("%s currently has %d units in stock (%s).", p.Name, p.Stock, p.StockStatus().Label())
			if p.BelowMinimum() {
				msg += fmt.Sprintf(" That is below the minimum of %d units. Should I raise a purchase order?", p.StockMinimum)
			}
			return msg
		}
	}
	return fmt.Sprintf("I have noted your request: %q. Is there anything else you need?", content)
}
