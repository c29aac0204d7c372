// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the config layer and the
// terminal renderers: crash-safe file writes and column-aware truncation.
//
//	err := util.AtomicWriteFileWithDir(path, data, 0o600, 0o700)
//	cell := util.PadRight(product.Name, 24)
package util
