// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat panel: a Bubble Tea component showing one
// agent conversation with an input line, optional voice capture and spoken
// replies. Conversation state lives in the chat session; the panel only
// renders it and forwards input.
package chat
