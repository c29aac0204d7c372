// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the domain records shown by the dashboard.
//
// # Key Types
//
//   - Agent: a backend AI worker with a derived status (active, waiting, error)
//   - Product: an inventory item with a stock level badge
//   - ProductInput: the validated creation payload for a product
//   - Task, Alert: activity records used for dashboard metrics
//   - Message: one chat message with role, content and display timestamp
//
// Backends disagree on id types and field spellings; the custom JSON
// decoders here absorb those differences so that callers only ever see one
// shape.
//
// # Usage
//
//	level := model.StockStatus(12) // model.StockLow
//	in, err := model.ParseProductInput(form)
package model
