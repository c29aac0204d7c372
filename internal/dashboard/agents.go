// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/invtui/internal/model"
)

// AgentsSource is the part of the agents API the agents view reads.
type AgentsSource interface {
	ListAgents(ctx context.Context) ([]model.Agent, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	ListAlerts(ctx context.Context) ([]model.Alert, error)
}

// AgentMetrics are the aggregate figures shown above the agent grid. They
// are derived only from the fetched lists.
type AgentMetrics struct {
	Active          int `json:"active"`
	Total           int `json:"total"`
	RequestsToday   int `json:"requests_today"`
	TasksCompleted  int `json:"tasks_completed"`
	ProductsUpdated int `json:"products_updated"`
	Alerts          int `json:"alerts"`
	Models          int `json:"models"`
}

// ComputeMetrics derives the metrics. Tasks created on now's calendar day
// count as today's requests.
func ComputeMetrics(agents []model.Agent, tasks []model.Task, alerts []model.Alert, now time.Time) AgentMetrics {
	m := AgentMetrics{Total: len(agents), Alerts: len(alerts)}

	models := make(map[string]struct{})
	for _, a := range agents {
		if a.Status == model.AgentActive {
			m.Active++
		}
		m.TasksCompleted += a.TasksCompleted
		if a.Model != "" {
			models[a.Model] = struct{}{}
		}
	}
	m.Models = len(models)

	products := make(map[model.ID]struct{})
	for _, t := range tasks {
		if t.CreatedOn(now) {
			m.RequestsToday++
		}
		if !t.ProductID.IsZero() {
			products[t.ProductID] = struct{}{}
		}
	}
	m.ProductsUpdated = len(products)
	return m
}

// AgentsSnapshot is everything the agents view renders.
type AgentsSnapshot struct {
	Agents   []model.Agent
	Tasks    []model.Task
	Alerts   []model.Alert
	Metrics  AgentMetrics
	Err      string
	LoadedAt time.Time
}

// ModelLabels returns the distinct model labels, sorted.
func (s AgentsSnapshot) ModelLabels() []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, a := range s.Agents {
		if a.Model == "" {
			continue
		}
		if _, ok := seen[a.Model]; ok {
			continue
		}
		seen[a.Model] = struct{}{}
		labels = append(labels, a.Model)
	}
	sort.Strings(labels)
	return labels
}

// AgentsController loads the agents view once per mount.
type AgentsController struct {
	src AgentsSource
	log logrus.FieldLogger
	now func() time.Time

	mu      sync.Mutex
	loaded  bool
	loading bool
	snap    AgentsSnapshot
}

// NewAgentsController creates a controller reading from src.
func NewAgentsController(src AgentsSource, log logrus.FieldLogger) *AgentsController {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AgentsController{src: src, log: log.WithField("view", "agents"), now: time.Now}
}

// Loading reports whether a fetch is running.
func (c *AgentsController) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Snapshot returns the last loaded data.
func (c *AgentsController) Snapshot() AgentsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Load fetches agents, tasks and alerts the first time it is called and
// returns the cached snapshot afterwards.
func (c *AgentsController) Load(ctx context.Context) AgentsSnapshot {
	c.mu.Lock()
	if c.loaded || c.loading {
		snap := c.snap
		c.mu.Unlock()
		return snap
	}
	c.loading = true
	c.mu.Unlock()
	return c.fetch(ctx)
}

// Reload fetches unconditionally.
func (c *AgentsController) Reload(ctx context.Context) AgentsSnapshot {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	return c.fetch(ctx)
}

// fetch runs with loading already set and clears it when done.
func (c *AgentsController) fetch(ctx context.Context) AgentsSnapshot {
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	var (
		snap     AgentsSnapshot
		agentErr error
		g        errgroup.Group
	)
	g.Go(func() error {
		agents, err := c.src.ListAgents(ctx)
		if err != nil {
			agentErr = err
			return nil
		}
		snap.Agents = agents
		return nil
	})
	g.Go(func() error {
		tasks, err := c.src.ListTasks(ctx)
		if err != nil {
			c.log.WithError(err).Warn("tasks unavailable, continuing without them")
			tasks = nil
		}
		snap.Tasks = tasks
		return nil
	})
	g.Go(func() error {
		alerts, err := c.src.ListAlerts(ctx)
		if err != nil {
			c.log.WithError(err).Warn("alerts unavailable, continuing without them")
			alerts = nil
		}
		snap.Alerts = alerts
		return nil
	})
	_ = g.Wait()

	if agentErr != nil {
		c.log.WithError(agentErr).Error("loading agents failed")
		snap.Err = agentErr.Error()
	}
	if snap.Tasks == nil {
		snap.Tasks = []model.Task{}
	}
	if snap.Alerts == nil {
		snap.Alerts = []model.Alert{}
	}
	snap.LoadedAt = c.now()
	snap.Metrics = ComputeMetrics(snap.Agents, snap.Tasks, snap.Alerts, snap.LoadedAt)

	c.mu.Lock()
	c.snap = snap
	c.loaded = true
	c.mu.Unlock()
	return snap
}
