// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides an in-memory mock of the agents and details APIs.
//
// Endpoints:
//   - GET  /agents              - List agents
//   - GET  /tasks               - List tasks
//   - GET  /alerts              - List alerts
//   - GET  /chats/:id           - Chat with message history
//   - POST /chats               - Create a chat and answer its first message
//   - POST /chats/:id/messages  - Append a user message and answer it
//   - GET  /products            - List products
//   - POST /products            - Create a product
//   - GET  /health              - Health check
//
// One instance serves both facilities, so API_AGENT and API_DETAILS may
// point at the same address. List responses are wrapped according to the
// configured EnvelopeStyle.
//
// # Key Types
//
//   - Server: echo application with routes and middleware
//   - Store: in-memory agents, tasks, alerts, products and chats
//   - Faults: per-path forced failures for partial-failure demos
//
// # Usage
//
//	srv := server.New(server.WithEnvelope(server.EnvelopeData))
//	srv.Faults().Fail("/tasks", http.StatusServiceUnavailable)
//	go srv.Start("127.0.0.1:8787")
package server
